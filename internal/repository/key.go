package repository

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/user"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/skyline93/dope/internal/backend"
	"github.com/skyline93/dope/internal/crypto"
	"github.com/skyline93/dope/internal/dope"
)

// ErrWrongPassword is returned by OpenKey when the password does not open
// the key file.
var ErrWrongPassword = errors.New("wrong password or damaged key file")

// Key represents an encrypted master key for a table.
type Key struct {
	Created  time.Time `json:"created"`
	Username string    `json:"username"`
	Hostname string    `json:"hostname"`

	KDF  string `json:"kdf"`
	N    int    `json:"N"`
	R    int    `json:"r"`
	P    int    `json:"p"`
	Salt []byte `json:"salt"`
	Data []byte `json:"data"`

	user   *crypto.Key
	master *crypto.Key

	id dope.ID
}

// Params tracks the parameters used for the KDF. If not set, it will be
// calibrated on the first run of AddKey().
var Params *crypto.Params

var (
	// KDFTimeout specifies the maximum runtime for the KDF.
	KDFTimeout = 500 * time.Millisecond

	// KDFMemory limits the memory the KDF is allowed to use.
	KDFMemory = 60
)

// AddKey creates a new key file holding the master key template, encrypted
// with password. If template is nil, a new random master key is generated.
func AddKey(ctx context.Context, r *Repository, password string, template *crypto.Key) (*Key, error) {
	// make sure we have valid KDF parameters
	if Params == nil {
		p, err := crypto.Calibrate(KDFTimeout, KDFMemory)
		if err != nil {
			return nil, errors.Wrap(err, "Calibrate")
		}

		Params = &p
		log.Debugf("calibrated KDF parameters are %v", p)
	}

	// fill meta data about key
	newkey := &Key{
		Created: time.Now(),
		KDF:     "scrypt",
		N:       Params.N,
		R:       Params.R,
		P:       Params.P,
	}

	newkey.Hostname, _ = os.Hostname()
	if usr, err := user.Current(); err == nil {
		newkey.Username = usr.Username
	}

	// generate random salt
	var err error
	newkey.Salt, err = crypto.NewSalt()
	if err != nil {
		panic("unable to read enough random bytes for salt: " + err.Error())
	}

	// call KDF to derive user key
	newkey.user, err = crypto.KDF(*Params, newkey.Salt, password)
	if err != nil {
		return nil, err
	}

	newkey.master = template
	if newkey.master == nil {
		newkey.master = crypto.NewRandomKey()
	}

	// encrypt master keys (as json) with user key
	buf, err := json.Marshal(newkey.master)
	if err != nil {
		return nil, errors.Wrap(err, "Marshal")
	}
	newkey.Data = newkey.user.SealWithNonce(buf)

	// dump as json
	buf, err = json.Marshal(newkey)
	if err != nil {
		return nil, errors.Wrap(err, "Marshal")
	}

	rd := backend.NewByteReader(buf, r.be.Hasher())
	err = r.be.Save(ctx, backend.Handle{Type: backend.KeyFile}, rd)
	if err != nil {
		return nil, err
	}

	newkey.id = rd.ID()

	return newkey, nil
}

// OpenKey reads the key file and decrypts the master key with password.
func OpenKey(ctx context.Context, r *Repository, password string) (*Key, error) {
	var buf []byte
	err := r.be.Load(ctx, backend.Handle{Type: backend.KeyFile}, func(rd io.Reader) (err error) {
		buf, err = io.ReadAll(rd)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load key file")
	}

	k := &Key{}
	if err := json.Unmarshal(buf, k); err != nil {
		return nil, errors.Wrap(err, "Unmarshal")
	}
	k.id = dope.Hash(buf)

	if k.KDF != "scrypt" {
		return nil, errors.Errorf("unknown KDF %q in key file", k.KDF)
	}

	params := crypto.Params{N: k.N, R: k.R, P: k.P}
	k.user, err = crypto.KDF(params, k.Salt, password)
	if err != nil {
		return nil, errors.Wrap(err, "KDF")
	}

	plaintext, err := k.user.OpenWithNonce(k.Data)
	if errors.Is(err, crypto.ErrUnauthenticated) {
		return nil, errors.Wrapf(ErrWrongPassword, "key %v", k.id.Str())
	}
	if err != nil {
		return nil, errors.Wrap(err, "decrypt master key")
	}

	k.master = &crypto.Key{}
	if err := json.Unmarshal(plaintext, k.master); err != nil {
		return nil, errors.Wrap(err, "Unmarshal")
	}

	if !k.master.Valid() {
		return nil, errors.New("invalid key for repository")
	}

	log.Debugf("opened key %v created %v by %v@%v", k.id.Str(), k.Created, k.Username, k.Hostname)
	return k, nil
}

// ID returns an identifier for the key.
func (k Key) ID() dope.ID {
	return k.id
}
