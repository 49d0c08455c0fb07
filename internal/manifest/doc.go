// Package manifest handles parsing and validation of placement manifests.
// A manifest declares the app's entry and widget filenames and the fixed set
// of placements to bind. The default manifest is embedded at build time; an
// alternative file can be loaded explicitly. Manifests are validated against
// an embedded JSON Schema plus semantic checks (semver version, version
// constraint, unique placement codes).
package manifest
