// Package config manages user-level settings stored at ~/.placekit/config.yaml.
// Values can be overridden with PLACEKIT_* environment variables, where dots in
// the key become underscores (portal.webhook → PLACEKIT_PORTAL_WEBHOOK).
package config
