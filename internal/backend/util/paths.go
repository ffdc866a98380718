package util

import (
	"os"

	"github.com/skyline93/dope/internal/fs"
)

// Modes holds the permissions used for new directories and files.
type Modes struct {
	Dir  os.FileMode
	File os.FileMode
}

// DefaultModes keeps new files private to the owner.
var DefaultModes = Modes{Dir: 0700, File: 0600}

// DeriveModesFromFileInfo widens DefaultModes to the group if the group can
// read the directory described by fi.
func DeriveModesFromFileInfo(fi os.FileInfo, err error) Modes {
	m := DefaultModes
	if err != nil {
		return m
	}

	if fi.Mode()&0040 != 0 { // Group has read access
		m.Dir |= 0070
		m.File |= 0060
	}

	return m
}

// ModesForDir returns the modes for files created inside dir.
func ModesForDir(dir string) Modes {
	return DeriveModesFromFileInfo(fs.Stat(dir))
}
