package backend

import (
	"bytes"
	"hash"
	"io"

	"github.com/skyline93/dope/internal/dope"
)

// RewindReader allows resetting the Reader to the beginning of the data.
type RewindReader interface {
	io.Reader

	// Rewind rewinds the reader so the same data can be read again from the
	// start.
	Rewind() error

	// Length returns the number of bytes that can be read from the Reader
	// after calling Rewind.
	Length() int64

	// ID returns the content ID of the data, or the null ID if the reader
	// was created without a hasher.
	ID() dope.ID
}

// ByteReader implements a RewindReader for a byte slice.
type ByteReader struct {
	*bytes.Reader
	Len int64
	id  dope.ID
}

// NewByteReader prepares a ByteReader that can then be used to read buf. If
// hasher is not nil, the content ID of buf is computed with it.
func NewByteReader(buf []byte, hasher hash.Hash) *ByteReader {
	rd := &ByteReader{
		Reader: bytes.NewReader(buf),
		Len:    int64(len(buf)),
	}

	if hasher != nil {
		// must never fail according to interface
		if _, err := hasher.Write(buf); err != nil {
			panic(err)
		}
		rd.id = dope.IDFromHash(hasher.Sum(nil))
	}

	return rd
}

// Rewind restarts the reader from the beginning of the data.
func (b *ByteReader) Rewind() error {
	_, err := b.Reader.Seek(0, io.SeekStart)
	return err
}

// Length returns the number of bytes read from the reader after Rewind is
// called.
func (b *ByteReader) Length() int64 {
	return b.Len
}

// ID returns the content ID computed when the reader was created.
func (b *ByteReader) ID() dope.ID {
	return b.id
}
