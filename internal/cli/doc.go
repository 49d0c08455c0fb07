// Package cli defines the Cobra command tree for the placekit CLI. Each file
// in this package registers one top-level command (install, uninstall, serve,
// etc.) with the root command. Command implementations delegate to internal
// packages for the portal protocol and only handle flag parsing, settings
// and output formatting.
package cli
