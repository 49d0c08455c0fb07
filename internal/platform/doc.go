// Package platform wraps filesystem permission handling that differs between
// Unix and Windows. The config file holds OAuth secrets, so it is kept
// readable by its owner only where the OS supports permission bits.
package platform
