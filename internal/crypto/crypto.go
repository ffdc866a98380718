package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/crypto/poly1305"
)

const (
	aesKeySize  = 32                        // for AES-256
	macKeySizeK = 16                        // for AES-128
	macKeySizeR = 16                        // for Poly1305
	macKeySize  = macKeySizeK + macKeySizeR // for Poly1305-AES128
	ivSize      = aes.BlockSize

	macSize = poly1305.TagSize

	// Extension is the number of bytes a plaintext is enlarged by encrypting it.
	Extension = ivSize + macSize
)

// ErrUnauthenticated is returned when ciphertext verification has failed.
var ErrUnauthenticated = errors.New("ciphertext verification failed")

// Key holds the keys used to encrypt and authenticate a table file. Data is
// encrypted with AES-256 in CTR mode and authenticated with Poly1305-AES.
type Key struct {
	MACKey        `json:"mac"`
	EncryptionKey `json:"encrypt"`
}

// EncryptionKey is key used for encryption
type EncryptionKey [aesKeySize]byte

// MACKey is used to sign (authenticate) data.
type MACKey struct {
	K [macKeySizeK]byte // for AES-128
	R [macKeySizeR]byte // for Poly1305
}

// NewRandomKey returns new encryption and message authentication keys.
func NewRandomKey() *Key {
	k := &Key{}
	readRandom(k.EncryptionKey[:], "encryption key")
	readRandom(k.MACKey.K[:], "MAC encryption key")
	readRandom(k.MACKey.R[:], "MAC key")
	return k
}

// NewRandomNonce returns a new random nonce. It panics on error so that the
// program is safely terminated.
func NewRandomNonce() []byte {
	iv := make([]byte, ivSize)
	readRandom(iv, "iv")
	return iv
}

func readRandom(buf []byte, what string) {
	n, err := rand.Read(buf)
	if n != len(buf) || err != nil {
		panic("unable to read enough random bytes for " + what)
	}
}

func nonZero(buf []byte) bool {
	var sum byte
	for _, b := range buf {
		sum |= b
	}
	return sum != 0
}

// Valid tests whether the key k is valid (i.e. not zero).
func (k *EncryptionKey) Valid() bool {
	return nonZero(k[:])
}

// Valid tests whether the key m is valid (i.e. neither part is zero).
func (m *MACKey) Valid() bool {
	return nonZero(m.K[:]) && nonZero(m.R[:])
}

// Valid tests if the key is valid.
func (k *Key) Valid() bool {
	return k.EncryptionKey.Valid() && k.MACKey.Valid()
}

// NonceSize returns the size of the nonce that must be passed to Seal
// and Open.
func (k *Key) NonceSize() int {
	return ivSize
}

// Overhead returns the number of bytes Seal appends to the plaintext.
func (k *Key) Overhead() int {
	return macSize
}

// Seal encrypts and authenticates plaintext with nonce and appends the
// result to dst. additionalData is not supported and must be empty.
func (k *Key) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if !k.Valid() {
		panic("key is invalid")
	}
	if len(additionalData) > 0 {
		panic("additional data is not supported")
	}
	if len(nonce) != ivSize {
		panic("incorrect nonce length")
	}
	if !nonZero(nonce) {
		panic("nonce is invalid")
	}

	ret, out := sliceForAppend(dst, len(plaintext)+k.Overhead())

	k.stream(nonce).XORKeyStream(out, plaintext)
	mac := poly1305MAC(out[:len(plaintext)], nonce, &k.MACKey)
	copy(out[len(plaintext):], mac[:])

	return ret
}

// Open verifies and decrypts ciphertext sealed with nonce and appends the
// plaintext to dst. It returns ErrUnauthenticated if the MAC does not match.
func (k *Key) Open(dst, nonce, ciphertext, _ []byte) ([]byte, error) {
	if !k.Valid() {
		return nil, errors.New("invalid key")
	}
	if len(nonce) != ivSize {
		panic("incorrect nonce length")
	}
	if !nonZero(nonce) {
		return nil, errors.New("nonce is invalid")
	}
	if len(ciphertext) < k.Overhead() {
		return nil, errors.Errorf("trying to decrypt invalid data: ciphertext too short")
	}

	l := len(ciphertext) - macSize
	ct, mac := ciphertext[:l], ciphertext[l:]

	if !poly1305Verify(ct, nonce, &k.MACKey, mac) {
		return nil, ErrUnauthenticated
	}

	ret, out := sliceForAppend(dst, len(ct))
	k.stream(nonce).XORKeyStream(out, ct)

	return ret, nil
}

// SealWithNonce encrypts plaintext under a fresh random nonce and returns
// nonce, ciphertext and MAC in one buffer.
func (k *Key) SealWithNonce(plaintext []byte) []byte {
	nonce := NewRandomNonce()
	buf := NewBlobBuffer(len(plaintext))[:0]
	buf = append(buf, nonce...)
	return k.Seal(buf, nonce, plaintext, nil)
}

// OpenWithNonce reverses SealWithNonce.
func (k *Key) OpenWithNonce(buf []byte) ([]byte, error) {
	if len(buf) < Extension {
		return nil, errors.Errorf("trying to decrypt invalid data: %d bytes are too short", len(buf))
	}
	nonce, ciphertext := buf[:ivSize], buf[ivSize:]
	return k.Open(nil, nonce, ciphertext, nil)
}

func (k *Key) stream(nonce []byte) cipher.Stream {
	c, err := aes.NewCipher(k.EncryptionKey[:])
	if err != nil {
		panic(fmt.Sprintf("unable to create cipher: %v", err))
	}
	return cipher.NewCTR(c, nonce)
}

func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}

// poly1305PrepareKey derives the one-time Poly1305 key: R from the MAC key,
// followed by the nonce encrypted with AES-128 under K.
func poly1305PrepareKey(nonce []byte, key *MACKey) [32]byte {
	var k [32]byte

	c, err := aes.NewCipher(key.K[:])
	if err != nil {
		panic(err)
	}
	c.Encrypt(k[16:], nonce)

	copy(k[:16], key.R[:])

	return k
}

func poly1305MAC(msg []byte, nonce []byte, key *MACKey) [macSize]byte {
	k := poly1305PrepareKey(nonce, key)

	var out [macSize]byte
	poly1305.Sum(&out, msg, &k)

	return out
}

func poly1305Verify(msg []byte, nonce []byte, key *MACKey, mac []byte) bool {
	k := poly1305PrepareKey(nonce, key)

	var m [macSize]byte
	copy(m[:], mac)

	return poly1305.Verify(&m, msg, &k)
}
