package local

import (
	"os"
	"os/user"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/fs"
)

// tryLock creates the lock file exclusively. It returns errWouldBlock while
// the file exists.
func tryLock(path string, mode os.FileMode) (*Lock, error) {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, mode)
	if os.IsExist(err) {
		return nil, errWouldBlock
	}
	if err != nil {
		return nil, backoff.Permanent(errors.WithStack(err))
	}

	return &Lock{f: f, path: path}, nil
}

// Unlock releases the lock by removing the lock file.
func (l *Lock) Unlock() error {
	err := l.f.Close()
	if rerr := fs.Remove(l.path); err == nil {
		err = rerr
	}
	return errors.WithStack(err)
}

// uidGidInt is not available on Windows, user IDs are SIDs.
func uidGidInt(_ *user.User) (uid, gid uint32, err error) {
	return 0, 0, nil
}
