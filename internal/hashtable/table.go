package hashtable

import (
	"slices"

	"github.com/pkg/errors"
)

// LoadFactor is the ratio of entries to buckets at which a table doubles its
// bucket count.
const LoadFactor = 0.75

// MaxCapacity is the largest number of buckets a table can have.
const MaxCapacity = 1 << 30

// maxCapacity is MaxCapacity, lowered by tests that need a resize to fail.
var maxCapacity uint32 = MaxCapacity

// Entry is a key/value pair stored in a Table.
type Entry[K Key, V any] struct {
	Key   K
	Value V
}

// A Table is a hash table with separate chaining. Each bucket holds a chain
// of entries whose hashed keys compress to the bucket index. Buckets without
// entries hold a nil chain.
//
// Keys are unique: inserting an existing key replaces its value. When the
// number of entries reaches LoadFactor times the number of buckets, the
// bucket count is doubled and every entry is rehashed.
//
// The zero value is an empty table without buckets. It gets a single bucket
// on the first Insert. Use New to choose the initial capacity.
//
// A Table is not safe for concurrent use.
type Table[K Key, V any] struct {
	// Zero only for the zero value, which has never been inserted into.
	buckets [][]Entry[K, V]
	size    uint32
}

// New returns an empty table with the given number of buckets.
func New[K Key, V any](capacity uint32) (*Table[K, V], error) {
	if capacity == 0 || capacity > maxCapacity {
		return nil, errors.Wrapf(ErrInvalidCapacity, "capacity %d", capacity)
	}

	return &Table[K, V]{
		buckets: make([][]Entry[K, V], capacity),
	}, nil
}

// Capacity returns the current number of buckets.
func (t *Table[K, V]) Capacity() uint32 {
	return uint32(len(t.buckets))
}

// Len returns the number of stored entries.
func (t *Table[K, V]) Len() uint32 {
	return t.size
}

// LoadFactor returns the current ratio of entries to buckets.
func (t *Table[K, V]) LoadFactor() float64 {
	if len(t.buckets) == 0 {
		return 0
	}
	return float64(t.size) / float64(len(t.buckets))
}

func (t *Table[K, V]) compress(hash uint32) int {
	return int(hash % uint32(len(t.buckets)))
}

// Insert stores value under key. If key is already present its value is
// replaced. Otherwise the entry is appended to its bucket's chain and the
// table grows when the load factor is reached. If growing fails, the entry
// is removed again and an error wrapping ErrResize is returned.
func (t *Table[K, V]) Insert(key K, value V) error {
	if len(t.buckets) == 0 {
		t.buckets = make([][]Entry[K, V], 1)
	}

	idx := t.compress(key.Hash())
	chain := t.buckets[idx]

	for i := range chain {
		if chain[i].Key == key {
			chain[i].Value = value
			return nil
		}
	}

	t.buckets[idx] = append(chain, Entry[K, V]{Key: key, Value: value})
	t.size++

	if t.LoadFactor() < LoadFactor {
		return nil
	}

	err := t.resize()
	if err != nil {
		// resize leaves the buckets untouched on failure, so the new entry
		// is still the last one in its chain
		chain = t.buckets[idx]
		last := len(chain) - 1
		chain[last] = Entry[K, V]{}
		if last == 0 {
			chain = nil
		} else {
			chain = chain[:last]
		}
		t.buckets[idx] = chain
		t.size--
		return err
	}

	return nil
}

// Get returns the value stored under key. If the chain holds several
// matching entries, the last one found wins.
func (t *Table[K, V]) Get(key K) (V, error) {
	var (
		value V
		found bool
	)
	if len(t.buckets) == 0 {
		return value, ErrKeyNotFound
	}

	for _, e := range t.buckets[t.compress(key.Hash())] {
		if e.Key == key {
			value = e.Value
			found = true
		}
	}

	if !found {
		return value, ErrKeyNotFound
	}
	return value, nil
}

// Delete removes every entry stored under key. Removal swaps the last entry
// of the chain into the freed slot, so chain order is not preserved.
func (t *Table[K, V]) Delete(key K) error {
	if len(t.buckets) == 0 {
		return ErrKeyNotFound
	}

	idx := t.compress(key.Hash())
	chain := t.buckets[idx]

	removed := 0
	for i := 0; i < len(chain); {
		if chain[i].Key != key {
			i++
			continue
		}

		last := len(chain) - 1
		chain[i] = chain[last]
		chain[last] = Entry[K, V]{}
		chain = chain[:last]
		removed++
	}

	if removed == 0 {
		return ErrKeyNotFound
	}

	if len(chain) == 0 {
		chain = nil
	}
	t.buckets[idx] = chain
	t.size -= uint32(removed)

	return nil
}

// resize doubles the number of buckets. The new bucket array is filled
// completely before it replaces the old one.
func (t *Table[K, V]) resize() error {
	capacity := t.Capacity()
	if capacity > maxCapacity/2 {
		return errors.Wrapf(ErrResize, "cannot grow %d buckets beyond %d", capacity, maxCapacity)
	}

	capacity *= 2
	buckets := make([][]Entry[K, V], capacity)
	for _, chain := range t.buckets {
		for _, e := range chain {
			idx := e.Key.Hash() % capacity
			buckets[idx] = append(buckets[idx], e)
		}
	}

	t.buckets = buckets
	return nil
}

// Each calls fn for every entry, in bucket order and then chain order. The
// walk stops at the first error returned by fn, which is passed through.
func (t *Table[K, V]) Each(fn func(Entry[K, V]) error) error {
	for _, chain := range t.buckets {
		for _, e := range chain {
			if err := fn(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// EachBucket calls fn for every bucket index, including empty buckets which
// are passed a nil chain. The chain is a copy and may be kept by fn.
func (t *Table[K, V]) EachBucket(fn func(index int, chain []Entry[K, V]) error) error {
	for i, chain := range t.buckets {
		if err := fn(i, slices.Clone(chain)); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns all entries in the order Each visits them.
func (t *Table[K, V]) Entries() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, t.size)
	_ = t.Each(func(e Entry[K, V]) error {
		entries = append(entries, e)
		return nil
	})
	return entries
}

// Stats describes how entries are spread over the buckets.
type Stats struct {
	Capacity     uint32
	Size         uint32
	UsedBuckets  uint32
	LongestChain uint32
}

// Stats returns the current bucket statistics.
func (t *Table[K, V]) Stats() Stats {
	s := Stats{
		Capacity: t.Capacity(),
		Size:     t.size,
	}
	for _, chain := range t.buckets {
		if len(chain) == 0 {
			continue
		}
		s.UsedBuckets++
		if n := uint32(len(chain)); n > s.LongestChain {
			s.LongestChain = n
		}
	}
	return s
}
