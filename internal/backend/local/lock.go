package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/skyline93/dope/internal/backend"
	"github.com/skyline93/dope/internal/backend/util"
	"github.com/skyline93/dope/internal/fs"
)

// ErrLocked is returned by Lock when the table is still locked by another
// process after the lock timeout has passed.
var ErrLocked = errors.New("table is locked by another process")

// errWouldBlock signals a lock that is currently held elsewhere.
var errWouldBlock = errors.New("lock is held")

// Lock is an exclusive lock on a table, held until Unlock is called.
type Lock struct {
	f    *os.File
	path string
}

// lockInfo is written into the lock file to identify the holder.
type lockInfo struct {
	Time     time.Time `json:"time"`
	Hostname string    `json:"hostname"`
	Username string    `json:"username,omitempty"`
	PID      int       `json:"pid"`
	UID      uint32    `json:"uid,omitempty"`
	GID      uint32    `json:"gid,omitempty"`
}

func newLockInfo() lockInfo {
	info := lockInfo{
		Time: time.Now(),
		PID:  os.Getpid(),
	}
	info.Hostname, _ = os.Hostname()

	usr, err := user.Current()
	if err == nil {
		info.Username = usr.Username
		info.UID, info.GID, err = uidGidInt(usr)
		if err != nil {
			log.Debugf("unable to determine uid/gid: %v", err)
		}
	}

	return info
}

// Lock acquires the exclusive lock for the table. While another process
// holds it, acquisition is retried with exponential backoff until the
// configured LockTimeout has passed; a zero timeout tries exactly once.
func (b *Local) Lock(ctx context.Context) (*Lock, error) {
	path := b.Filename(backend.Handle{Type: backend.LockFile})
	mode := util.ModesForDir(b.Dirname()).File

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if b.LockTimeout > 0 {
		ebo := backoff.NewExponentialBackOff()
		ebo.InitialInterval = 50 * time.Millisecond
		ebo.MaxInterval = time.Second
		ebo.MaxElapsedTime = b.LockTimeout
		bo = ebo
	}

	var lock *Lock
	err := backoff.RetryNotify(func() error {
		l, err := tryLock(path, mode)
		if err != nil {
			return err
		}
		lock = l
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		log.Debugf("%v is locked by %v, retrying in %v", path, holder(path), d)
	})

	if errors.Is(err, errWouldBlock) {
		return nil, errors.Wrapf(ErrLocked, "%v (held by %v)", path, holder(path))
	}
	if err != nil {
		return nil, err
	}

	if err := lock.writeInfo(newLockInfo()); err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	log.Debugf("acquired lock %v", path)
	return lock, nil
}

func (l *Lock) writeInfo(info lockInfo) error {
	buf, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "Marshal")
	}

	if err := l.f.Truncate(0); err != nil {
		return errors.WithStack(err)
	}
	if _, err := l.f.WriteAt(buf, 0); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// holder describes the process recorded in the lock file at path.
func holder(path string) string {
	f, err := fs.Open(path)
	if err != nil {
		return "unknown process"
	}
	defer func() { _ = f.Close() }()

	var info lockInfo
	if err := json.NewDecoder(f).Decode(&info); err != nil {
		return "unknown process"
	}

	return info.String()
}

func (info lockInfo) String() string {
	return fmt.Sprintf("PID %d on %s by %s since %s",
		info.PID, info.Hostname, info.Username, info.Time.Format(time.RFC3339))
}
