package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDeriveModes(t *testing.T) {
	dir := t.TempDir()

	private := filepath.Join(dir, "private")
	shared := filepath.Join(dir, "shared")
	for name, mode := range map[string]os.FileMode{private: 0700, shared: 0750} {
		if err := os.Mkdir(name, mode); err != nil {
			t.Fatal(err)
		}
		// umask may have removed bits
		if err := os.Chmod(name, mode); err != nil {
			t.Fatal(err)
		}
	}

	if m := ModesForDir(private); m != DefaultModes {
		t.Errorf("modes for private dir = %+v, want %+v", m, DefaultModes)
	}
	if m := ModesForDir(shared); m.Dir != 0770 || m.File != 0660 {
		t.Errorf("modes for shared dir = %+v", m)
	}
	if m := DeriveModesFromFileInfo(nil, errors.New("stat failed")); m != DefaultModes {
		t.Errorf("modes on error = %+v, want %+v", m, DefaultModes)
	}
}
