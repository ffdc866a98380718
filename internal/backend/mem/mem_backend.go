package mem

import (
	"bytes"
	"context"
	"hash"
	"io"
	"sync"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/backend"
	"github.com/skyline93/dope/internal/dope"
)

var errNotFound = errors.New("not found")

// MemoryBackend is a mock backend that uses a map for storing all data in
// memory. This should only be used for tests.
type MemoryBackend struct {
	data map[backend.FileType][]byte
	m    sync.Mutex
}

// ensure statically that *MemoryBackend implements backend.Backend.
var _ backend.Backend = &MemoryBackend{}

// New returns a new backend that saves all data in a map in memory.
func New() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[backend.FileType][]byte),
	}
}

// Location returns the location of the backend.
func (be *MemoryBackend) Location() string {
	return "memory"
}

// Hasher may return a hash function for calculating a content hash for the backend
func (be *MemoryBackend) Hasher() hash.Hash {
	return sha256.New()
}

// IsNotExist returns true if the file does not exist.
func (be *MemoryBackend) IsNotExist(err error) bool {
	return errors.Is(err, errNotFound)
}

// Save adds new Data to the backend.
func (be *MemoryBackend) Save(ctx context.Context, h backend.Handle, rd backend.RewindReader) error {
	if !h.Valid() {
		return errors.Errorf("invalid handle %v", h)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := rd.Rewind(); err != nil {
		return err
	}
	buf, err := io.ReadAll(rd)
	if err != nil {
		return err
	}

	be.m.Lock()
	defer be.m.Unlock()

	be.data[h.Type] = buf
	return nil
}

// Load runs fn with a reader that yields the contents of the file at h.
func (be *MemoryBackend) Load(ctx context.Context, h backend.Handle, fn func(rd io.Reader) error) error {
	return backend.DefaultLoad(ctx, h, be.openReader, fn)
}

func (be *MemoryBackend) openReader(ctx context.Context, h backend.Handle) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	be.m.Lock()
	defer be.m.Unlock()

	buf, ok := be.data[h.Type]
	if !ok {
		return nil, errNotFound
	}

	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Stat returns information about the file at h.
func (be *MemoryBackend) Stat(ctx context.Context, h backend.Handle) (backend.FileInfo, error) {
	be.m.Lock()
	defer be.m.Unlock()

	buf, ok := be.data[h.Type]
	if !ok {
		return backend.FileInfo{}, errNotFound
	}

	return backend.FileInfo{Size: int64(len(buf)), Name: h.Type.String(), ID: dope.Hash(buf)}, nil
}

// Remove deletes the file at h.
func (be *MemoryBackend) Remove(ctx context.Context, h backend.Handle) error {
	be.m.Lock()
	defer be.m.Unlock()

	if _, ok := be.data[h.Type]; !ok {
		return errNotFound
	}
	delete(be.data, h.Type)
	return nil
}

// Raw returns the stored bytes for h, or nil. The result may be modified to
// simulate damaged files.
func (be *MemoryBackend) Raw(h backend.Handle) []byte {
	be.m.Lock()
	defer be.m.Unlock()

	return be.data[h.Type]
}
