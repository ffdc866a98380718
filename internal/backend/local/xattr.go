package local

import (
	"syscall"

	"github.com/pkg/errors"
	"github.com/pkg/xattr"
	"github.com/skyline93/dope/internal/dope"
)

// idAttr is the extended attribute holding the content ID of a saved file.
const idAttr = "user.dope.id"

// setID records id on the file at path. Filesystems without support for
// extended attributes are silently skipped.
func setID(path string, id dope.ID) error {
	err := xattr.Set(path, idAttr, []byte(id.String()))
	return handleXattrErr(err)
}

// readID returns the content ID recorded on the file at path, or the null ID
// if none is recorded or the filesystem has no extended attributes.
func readID(path string) (dope.ID, error) {
	buf, err := xattr.Get(path, idAttr)
	if err = handleXattrErr(err); err != nil || buf == nil {
		return dope.ID{}, err
	}

	id, err := dope.ParseID(string(buf))
	if err != nil {
		return dope.ID{}, errors.Wrapf(err, "attribute %v of %v", idAttr, path)
	}
	return id, nil
}

func handleXattrErr(err error) error {
	switch e := err.(type) {
	case nil:
		return nil

	case *xattr.Error:
		// On Linux, xattr calls on files in an SMB/CIFS mount can return
		// ENOATTR instead of ENOTSUP. tmpfs before Linux 6.6 rejects user
		// attributes with EPERM.
		switch e.Err {
		case syscall.ENOTSUP, syscall.EPERM, xattr.ENOATTR:
			return nil
		}
		return errors.WithStack(e)

	default:
		return errors.WithStack(e)
	}
}
