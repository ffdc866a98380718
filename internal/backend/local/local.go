package local

import (
	"bytes"
	"context"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/skyline93/dope/internal/backend"
	"github.com/skyline93/dope/internal/backend/layout"
	"github.com/skyline93/dope/internal/backend/util"
	"github.com/skyline93/dope/internal/dope"
	"github.com/skyline93/dope/internal/fs"
)

// ErrIDMismatch is returned by Load when the content of a file does not
// match the content ID recorded when it was saved.
var ErrIDMismatch = errors.New("content does not match recorded ID")

// Local is a backend storing a table and its auxiliary files in the local
// filesystem.
type Local struct {
	Config
	layout.Layout
}

// ensure statically that *Local implements backend.Backend.
var _ backend.Backend = &Local{}

// Open returns the backend for the table file described by cfg. The
// directory holding the table is created if it does not exist yet.
func Open(_ context.Context, cfg Config) (*Local, error) {
	l, err := layout.ParseLayout(cfg.Layout, cfg.Path)
	if err != nil {
		return nil, err
	}

	dir := l.Dirname()
	if _, err := fs.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "Stat")
		}

		log.Infof("creating directory %v", dir)
		if err := fs.MkdirAll(dir, util.DefaultModes.Dir); err != nil {
			return nil, errors.Wrap(err, "MkdirAll")
		}
	}

	log.Debugf("opened %v using the %v layout", cfg.Path, l.Name())
	return &Local{Config: cfg, Layout: l}, nil
}

// Location returns this backend's location (the table file name).
func (b *Local) Location() string {
	return b.Path
}

// Hasher returns the hash function used for content IDs.
func (b *Local) Hasher() hash.Hash {
	return sha256.New()
}

// IsNotExist returns true if the error is caused by a non existing file.
func (b *Local) IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// Save stores data in the backend at the handle. The data is written to a
// temporary file in the same directory first, which is synced and then
// renamed over the final name, so readers see either the old or the new
// content. The content ID of rd is recorded on the file if the filesystem
// supports extended attributes.
func (b *Local) Save(ctx context.Context, h backend.Handle, rd backend.RewindReader) (err error) {
	if !h.Valid() {
		return errors.Errorf("invalid handle %v", h)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	finalname := b.Filename(h)
	dir := filepath.Dir(finalname)

	if err = rd.Rewind(); err != nil {
		return errors.Wrap(err, "Rewind")
	}

	f, err := fs.CreateTemp(dir, "."+filepath.Base(finalname)+"-tmp-")
	if err != nil {
		return errors.Wrap(err, "CreateTemp")
	}
	tmpname := f.Name()

	defer func(f *os.File) {
		if err != nil {
			_ = f.Close() // Double Close is harmless.
			// Remove after Rename is harmless: we embed the final name in the
			// temporary's name and no other goroutine will get the same data to
			// Save, so the temporary name should never be reused by another
			// goroutine.
			_ = fs.RemoveIfExists(tmpname)
		}
	}(f)

	wbytes, err := io.Copy(f, rd)
	if err != nil {
		return errors.WithStack(err)
	}
	// sanity check
	if wbytes != rd.Length() {
		return errors.Errorf("wrote %d bytes instead of the expected %d bytes", wbytes, rd.Length())
	}

	// Ignore error if filesystem does not support fsync.
	err = f.Sync()
	syncNotSup := err != nil && isSyncNotSupported(err)
	if err != nil && !syncNotSup {
		return errors.WithStack(err)
	}

	if id := rd.ID(); !id.IsNull() {
		if err = setID(tmpname, id); err != nil {
			return err
		}
	}

	if err = fs.Chmod(tmpname, util.ModesForDir(dir).File); err != nil {
		return errors.WithStack(err)
	}

	// Close, then rename. Windows doesn't like the reverse order.
	if err = f.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err = fs.Rename(tmpname, finalname); err != nil {
		return errors.WithStack(err)
	}

	// Now sync the directory to commit the Rename.
	if !syncNotSup {
		err = fsyncDir(dir)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	log.Debugf("saved %v (%d bytes) to %v", h, wbytes, finalname)
	return nil
}

// Load runs fn with a reader that yields the contents of the file at h. If a
// content ID was recorded for the file, the content is verified against it
// before fn is called.
func (b *Local) Load(ctx context.Context, h backend.Handle, fn func(rd io.Reader) error) error {
	return backend.DefaultLoad(ctx, h, b.openReader, fn)
}

func (b *Local) openReader(ctx context.Context, h backend.Handle) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := b.Filename(h)
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}

	buf, err := io.ReadAll(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.Wrap(err, "ReadAll")
	}

	id, err := readID(name)
	if err != nil {
		return nil, err
	}
	if !id.IsNull() {
		if got := dope.Hash(buf); !got.Equal(id) {
			return nil, errors.Wrapf(ErrIDMismatch, "%v: recorded %v, content %v", name, id.Str(), got.Str())
		}
	}

	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Stat returns information about the file at h.
func (b *Local) Stat(_ context.Context, h backend.Handle) (backend.FileInfo, error) {
	name := b.Filename(h)
	fi, err := fs.Stat(name)
	if err != nil {
		return backend.FileInfo{}, errors.WithStack(err)
	}

	id, err := readID(name)
	if err != nil {
		return backend.FileInfo{}, err
	}

	return backend.FileInfo{Size: fi.Size(), Name: name, ID: id}, nil
}

// Remove removes the file at h.
func (b *Local) Remove(_ context.Context, h backend.Handle) error {
	return fs.Remove(b.Filename(h))
}
