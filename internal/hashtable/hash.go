package hashtable

// Hasher is implemented by every key type stored in a Table.
type Hasher interface {
	Hash() uint32
}

// Key is the constraint for table keys: comparable values that know how to
// hash themselves.
type Key interface {
	comparable
	Hasher
}

// highBits selects the five bits rotated out of the accumulator each round.
const highBits = 0xf8000000

// step folds one symbol into the accumulator: rotate left by five bits, then
// xor the symbol in.
func step(h, c uint32) uint32 {
	high := h & highBits
	h <<= 5
	h ^= high >> 27
	return h ^ c
}

// HashString hashes the code points of s. The empty string hashes to 0.
func HashString(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = step(h, uint32(c))
	}
	return h
}

// HashBytes hashes b byte by byte with the same recurrence as HashString.
func HashBytes(b []byte) uint32 {
	var h uint32
	for _, c := range b {
		h = step(h, uint32(c))
	}
	return h
}

// String is a text key.
type String string

// Hash implements Hasher.
func (s String) Hash() uint32 {
	return HashString(string(s))
}

// Bytes4 is a fixed four byte key, e.g. an IPv4 address.
type Bytes4 [4]byte

// Hash implements Hasher.
func (b Bytes4) Hash() uint32 {
	return HashBytes(b[:])
}
