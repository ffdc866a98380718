//go:build !windows

package local

import (
	"os"
	"os/user"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/fs"
	"golang.org/x/sys/unix"
)

// tryLock takes an advisory flock on the file at path without blocking. It
// returns errWouldBlock while another open file description holds the lock.
func tryLock(path string, mode os.FileMode) (*Lock, error) {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, mode)
	if err != nil {
		return nil, backoff.Permanent(errors.WithStack(err))
	}

	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errWouldBlock
		}
		return nil, backoff.Permanent(errors.Wrap(err, "flock"))
	}

	return &Lock{f: f, path: path}, nil
}

// Unlock releases the lock. The lock file is kept so that processes waiting
// on it keep referring to the same inode.
func (l *Lock) Unlock() error {
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return errors.WithStack(err)
}

// uidGidInt returns uid, gid of the user as a number.
func uidGidInt(u *user.User) (uid, gid uint32, err error) {
	ui, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, 0, errors.Errorf("invalid UID %q", u.Uid)
	}
	gi, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return 0, 0, errors.Errorf("invalid GID %q", u.Gid)
	}
	return uint32(ui), uint32(gi), nil
}
