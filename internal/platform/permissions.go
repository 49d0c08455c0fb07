package platform

import (
	"fmt"
	"os"
	"runtime"
)

// PrivateFileMode is the mode for files holding credentials.
const PrivateFileMode os.FileMode = 0600

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// RestrictToOwner makes path readable and writable by its owner only.
func RestrictToOwner(path string) error {
	if err := Chmod(path, PrivateFileMode); err != nil {
		return fmt.Errorf("restricting permissions on %s: %w", path, err)
	}
	return nil
}

// IsPrivate reports whether group and other have no access to path.
// It is always true on Windows.
func IsPrivate(path string) (bool, error) {
	if runtime.GOOS == "windows" {
		return true, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&0077 == 0, nil
}
