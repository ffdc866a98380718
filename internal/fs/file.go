package fs

import "os"

// Stat returns a FileInfo structure describing the named file.
// If there is an error, it will be of type *PathError.
func Stat(name string) (os.FileInfo, error) {
	return os.Stat(fixpath(name))
}

// MkdirAll creates a directory named path, along with any necessary parents,
// and returns nil, or else returns an error. The permission bits perm are used
// for all directories that MkdirAll creates. If path is already a directory,
// MkdirAll does nothing and returns nil.
func MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(fixpath(path), perm)
}

// Open opens a file for reading.
func Open(name string) (*os.File, error) {
	return os.Open(fixpath(name))
}

// OpenFile is the generalized open call; most users will use Open
// or Create instead.  It opens the named file with specified flag
// (O_RDONLY etc.) and perm, (0666 etc.) if applicable.  If successful,
// methods on the returned File can be used for I/O.
// If there is an error, it will be of type *PathError.
func OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(fixpath(name), flag, perm)
}

// CreateTemp creates a new temporary file in dir, named after pattern as
// described for os.CreateTemp.
func CreateTemp(dir, pattern string) (*os.File, error) {
	return os.CreateTemp(fixpath(dir), pattern)
}

// Rename renames (moves) oldpath to newpath, replacing newpath if it
// already exists.
func Rename(oldpath, newpath string) error {
	return os.Rename(fixpath(oldpath), fixpath(newpath))
}

// Remove removes the named file or directory.
// If there is an error, it will be of type *PathError.
func Remove(name string) error {
	return os.Remove(fixpath(name))
}

// RemoveIfExists removes a file, returning no error if it does not exist.
func RemoveIfExists(filename string) error {
	err := os.Remove(fixpath(filename))
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	return err
}

// WriteFile writes data to the named file, creating it with perm if
// necessary.
func WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(fixpath(name), data, perm)
}
