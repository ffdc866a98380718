package repository

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/skyline93/dope/internal/backend"
	"github.com/skyline93/dope/internal/crypto"
	"github.com/skyline93/dope/internal/dope"
	"github.com/skyline93/dope/internal/hashtable"
)

// DefaultCapacity is the number of buckets of a freshly created table.
const DefaultCapacity = 13

// Table is the table type stored in a repository.
type Table = hashtable.Table[hashtable.String, string]

// Entry is a single row of a stored table.
type Entry = hashtable.Entry[hashtable.String, string]

// compressedVersion is the first byte of a compressed table file. Plain CSV
// never starts with this control character.
const compressedVersion = 2

// Options configure how a repository stores its table.
type Options struct {
	Compression CompressionMode
	Capacity    uint32
}

// Repository loads and saves a table through a backend, handling the file
// format: CSV, optionally compressed with zstd and optionally encrypted.
type Repository struct {
	be    backend.Backend
	key   *crypto.Key
	keyID dope.ID

	opts Options

	allocEnc sync.Once
	allocDec sync.Once
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// New returns a new repository with backend be.
func New(be backend.Backend, opts Options) (*Repository, error) {
	if opts.Compression == CompressionInvalid {
		return nil, errors.New("invalid compression mode")
	}

	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Capacity > hashtable.MaxCapacity {
		return nil, errors.Errorf("capacity larger than limit of %v buckets", hashtable.MaxCapacity)
	}

	repo := &Repository{
		be:   be,
		opts: opts,
	}

	return repo, nil
}

// Backend returns the backend for the repository.
func (r *Repository) Backend() backend.Backend {
	return r.be
}

// Key returns the current master key, or nil for an unencrypted repository.
func (r *Repository) Key() *crypto.Key {
	return r.key
}

// KeyID returns the content ID of the key file in use.
func (r *Repository) KeyID() dope.ID {
	return r.keyID
}

// KeyExists reports whether the table is protected by a key file.
func (r *Repository) KeyExists(ctx context.Context) (bool, error) {
	_, err := r.be.Stat(ctx, backend.Handle{Type: backend.KeyFile})
	if r.be.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Init creates a new master key protected by password and stores it in the
// key file. Subsequent saves are encrypted with it.
func (r *Repository) Init(ctx context.Context, password string) error {
	exists, err := r.KeyExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return errors.New("key file already exists")
	}

	key, err := AddKey(ctx, r, password, nil)
	if err != nil {
		return err
	}

	r.key = key.master
	r.keyID = key.ID()
	log.Infof("created new key %v", key.ID().Str())
	return nil
}

// Encrypt creates a new key protected by password and saves t encrypted with
// it. If t cannot be saved, the new key file is removed again and the
// repository stays unencrypted, so the previous table file remains readable.
func (r *Repository) Encrypt(ctx context.Context, password string, t *Table) (dope.ID, error) {
	if err := r.Init(ctx, password); err != nil {
		return dope.ID{}, err
	}

	id, err := r.SaveTable(ctx, t)
	if err != nil {
		if rerr := r.be.Remove(ctx, backend.Handle{Type: backend.KeyFile}); rerr != nil {
			log.Warnf("unable to remove key %v: %v", r.keyID.Str(), rerr)
		}
		r.key = nil
		r.keyID = dope.ID{}
		return dope.ID{}, err
	}

	return id, nil
}

// SearchKey opens the key file with password and uses the master key it
// contains for all subsequent loads and saves.
func (r *Repository) SearchKey(ctx context.Context, password string) error {
	key, err := OpenKey(ctx, r, password)
	if err != nil {
		return err
	}

	r.key = key.master
	r.keyID = key.ID()
	return nil
}

// LoadTable reads the table file and returns its contents as a table with
// the configured initial capacity. A missing table file yields an empty
// table.
func (r *Repository) LoadTable(ctx context.Context) (*Table, error) {
	tab, err := hashtable.New[hashtable.String, string](r.opts.Capacity)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = r.be.Load(ctx, backend.Handle{Type: backend.TableFile}, func(rd io.Reader) error {
		buf, err := io.ReadAll(rd)
		if err != nil {
			return errors.WithStack(err)
		}

		plaintext, err := r.decode(buf)
		if err != nil {
			return err
		}

		entries, err = ReadEntries(bytes.NewReader(plaintext))
		return err
	})

	if r.be.IsNotExist(err) {
		log.Infof("table %v does not exist yet, starting empty", r.be.Location())
		return tab, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %v", r.be.Location())
	}

	for _, e := range entries {
		if err := tab.Insert(e.Key, e.Value); err != nil {
			return nil, errors.Wrapf(err, "insert %q", e.Key)
		}
	}

	log.Infof("loaded %d entries from %v, %d buckets", tab.Len(), r.be.Location(), tab.Capacity())
	return tab, nil
}

// SaveTable writes all entries of t to the table file, replacing its
// previous content atomically. It returns the content ID of the stored file.
func (r *Repository) SaveTable(ctx context.Context, t *Table) (dope.ID, error) {
	var buf bytes.Buffer
	if err := WriteEntries(&buf, t); err != nil {
		return dope.ID{}, err
	}

	p := r.encode(buf.Bytes())

	rd := backend.NewByteReader(p, r.be.Hasher())
	err := r.be.Save(ctx, backend.Handle{Type: backend.TableFile}, rd)
	if err != nil {
		log.Errorf("error saving table %v: %v", r.be.Location(), err)
		return dope.ID{}, err
	}

	log.Infof("saved %d entries to %v, id %v", t.Len(), r.be.Location(), rd.ID().Str())
	return rd.ID(), nil
}

// encode compresses and encrypts p as configured.
func (r *Repository) encode(p []byte) []byte {
	if r.opts.Compression != CompressionOff {
		out := []byte{compressedVersion}
		p = r.getZstdEncoder().EncodeAll(p, out)
	}

	if r.key != nil {
		p = r.key.SealWithNonce(p)
	}

	return p
}

// decode reverses encode. Compression is detected from the content, so a
// table can be read regardless of the configured compression mode.
func (r *Repository) decode(p []byte) ([]byte, error) {
	if r.key != nil {
		plaintext, err := r.key.OpenWithNonce(p)
		if err != nil {
			return nil, errors.Wrap(err, "decrypt")
		}
		p = plaintext
	}

	if len(p) == 0 || p[0] != compressedVersion {
		return p, nil
	}

	out, err := r.getZstdDecoder().DecodeAll(p[1:], nil)
	return out, errors.Wrap(err, "decompress")
}

func (r *Repository) getZstdEncoder() *zstd.Encoder {
	r.allocEnc.Do(func() {
		level := zstd.SpeedDefault
		if r.opts.Compression == CompressionMax {
			level = zstd.SpeedBestCompression
		}

		opts := []zstd.EOption{
			// Set the compression level configured.
			zstd.WithEncoderLevel(level),
			// Disable CRC, the content ID already covers the whole file.
			zstd.WithEncoderCRC(false),
			// Table files are small, a window of 512kbyte is plenty.
			zstd.WithWindowSize(512 * 1024),
		}

		enc, err := zstd.NewWriter(nil, opts...)
		if err != nil {
			panic(err)
		}
		r.enc = enc
	})
	return r.enc
}

func (r *Repository) getZstdDecoder() *zstd.Decoder {
	r.allocDec.Do(func() {
		opts := []zstd.DOption{
			// Tables are decoded once per run.
			zstd.WithDecoderConcurrency(1),
			// Limit the maximum decompressed memory. Set to a very high,
			// conservative value.
			zstd.WithDecoderMaxMemory(16 * 1024 * 1024 * 1024),
		}

		dec, err := zstd.NewReader(nil, opts...)
		if err != nil {
			panic(err)
		}
		r.dec = dec
	})
	return r.dec
}
