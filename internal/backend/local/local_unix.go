//go:build !windows

package local

import (
	"errors"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

func isMacENOTTY(err error) bool {
	return runtime.GOOS == "darwin" && errors.Is(err, unix.ENOTTY)
}

// isSyncNotSupported returns true if err reports that the filesystem does
// not implement fsync for the file.
func isSyncNotSupported(err error) bool {
	return errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EINVAL) || isMacENOTTY(err)
}

// fsyncDir flushes changes to the directory dir.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}

	err = d.Sync()
	if err != nil && (isSyncNotSupported(err) || errors.Is(err, unix.ENOENT)) {
		err = nil
	}

	cerr := d.Close()
	if err == nil {
		err = cerr
	}

	return err
}
