package fs

import (
	"os"
	"path/filepath"
	"strings"
)

// fixpath returns an absolute path prefixed with \\?\ so that paths longer
// than 260 characters can be used.
func fixpath(name string) string {
	abspath, err := filepath.Abs(name)
	if err != nil {
		return name
	}
	if strings.HasPrefix(abspath, `\\?\`) {
		return abspath
	}
	if strings.HasPrefix(abspath, `\\`) {
		return `\\?\UNC\` + abspath[2:]
	}
	return `\\?\` + abspath
}

// Chmod changes the mode of the named file to mode. Windows only knows the
// read-only bit, which is all os.Chmod sets.
func Chmod(name string, mode os.FileMode) error {
	return os.Chmod(fixpath(name), mode)
}
