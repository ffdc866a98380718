package crypto

// CiphertextLength returns the encrypted length of a plaintext with
// plaintextSize bytes, including nonce and MAC.
func CiphertextLength(plaintextSize int) int {
	return plaintextSize + Extension
}

// NewBlobBuffer returns a buffer that is large enough to hold a sealed
// plaintext of size bytes, including the crypto overhead.
func NewBlobBuffer(size int) []byte {
	return make([]byte, size, CiphertextLength(size))
}
