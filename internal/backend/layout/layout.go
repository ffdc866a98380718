package layout

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/backend"
)

// Layout computes paths for the files belonging to a table.
type Layout interface {
	Filename(backend.Handle) string
	Dirname() string
	Name() string
}

// SidecarLayout keeps the key and lock files next to the table file, named
// after it: table.csv, table.csv.key, table.csv.lock.
type SidecarLayout struct {
	Path string
}

var sidecarSuffix = map[backend.FileType]string{
	backend.TableFile: "",
	backend.KeyFile:   ".key",
	backend.LockFile:  ".lock",
}

// Filename returns the path of the file for h.
func (l *SidecarLayout) Filename(h backend.Handle) string {
	return l.Path + sidecarSuffix[h.Type]
}

// Dirname returns the directory holding all files of the table.
func (l *SidecarLayout) Dirname() string {
	return filepath.Dir(l.Path)
}

// Name returns the name of the layout.
func (l *SidecarLayout) Name() string {
	return "sidecar"
}

// ParseLayout returns the layout with the given name for the table file at
// path. The empty name selects the default layout.
func ParseLayout(name, path string) (Layout, error) {
	if path == "" {
		return nil, errors.New("empty table path")
	}

	switch name {
	case "", "sidecar":
		return &SidecarLayout{Path: filepath.Clean(path)}, nil
	}

	return nil, errors.Errorf("unknown backend layout %q", name)
}
