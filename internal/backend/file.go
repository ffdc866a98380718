package backend

// FileType is the type of a file managed by a backend.
type FileType uint8

// These are the different files stored for a table.
const (
	TableFile FileType = 1 + iota
	KeyFile
	LockFile
)

func (t FileType) String() string {
	s := "invalid"
	switch t {
	case TableFile:
		s = "table"
	case KeyFile:
		s = "key"
	case LockFile:
		s = "lock"
	}
	return s
}

// Handle is used to store and access data in a backend.
type Handle struct {
	Type FileType
}

func (h Handle) String() string {
	return "<" + h.Type.String() + ">"
}

// Valid reports whether h refers to a known file type.
func (h Handle) Valid() bool {
	return h.Type >= TableFile && h.Type <= LockFile
}
