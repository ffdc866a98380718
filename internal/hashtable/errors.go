package hashtable

import "github.com/pkg/errors"

var (
	// ErrKeyNotFound is returned by Get and Delete when no entry matches the key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrResize is returned by Insert when the table cannot grow any further.
	ErrResize = errors.New("resize failed")

	// ErrInvalidCapacity is returned by New for a zero or oversized capacity.
	ErrInvalidCapacity = errors.New("invalid capacity")
)
