package backend

import (
	"context"
	"hash"
	"io"

	"github.com/skyline93/dope/internal/dope"
)

// Backend is used to store and access the files belonging to one table.
type Backend interface {
	// Location returns a string that describes the type and location of the
	// table file.
	Location() string

	// Hasher returns the hash function used to compute the content ID the
	// backend records for saved files.
	Hasher() hash.Hash

	// Save stores the data from rd under the given handle, replacing any
	// previous content atomically.
	Save(ctx context.Context, h Handle, rd RewindReader) error

	// Load runs fn with a reader that yields the contents of the file at h.
	// The reader must not be used after fn returns.
	Load(ctx context.Context, h Handle, fn func(rd io.Reader) error) error

	// Stat returns information about the file at h.
	Stat(ctx context.Context, h Handle) (FileInfo, error)

	// Remove removes the file at h.
	Remove(ctx context.Context, h Handle) error

	// IsNotExist returns true if the error was caused by a non-existing file.
	IsNotExist(err error) bool
}

// FileInfo contains information about a file in the backend.
type FileInfo struct {
	Size int64
	Name string

	// ID is the content ID recorded when the file was saved, or the null ID
	// if none was recorded.
	ID dope.ID
}
