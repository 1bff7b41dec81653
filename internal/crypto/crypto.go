package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize   = 16     // Salt size in bytes
	KeySize    = 32     // AES-256 key size
	NonceSize  = 12     // GCM nonce size
	TagSize    = 16     // GCM authentication tag size
	Iterations = 100000 // PBKDF2-HMAC-SHA256 rounds
)

var (
	ErrAuthFailed = errors.New("authentication failed")
	ErrInvalidKey = errors.New("invalid key size")
)

// DeriveKey derives a 32-byte AES-256 key from a password and salt
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, Iterations, KeySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts buf in place with AES-256-GCM and returns the detached tag.
// Associated data is always empty.
func Seal(key, nonce, buf []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}

	// Seal appends ciphertext and tag to buf[:0]. Without TagSize bytes of
	// spare capacity the result lands in a new array, and buf still holds
	// the plaintext until the ciphertext is copied back.
	sealed := gcm.Seal(buf[:0], nonce, buf, nil)
	if len(buf) > 0 && &sealed[0] != &buf[0] {
		copy(buf, sealed[:len(buf)])
	}

	tag := make([]byte, TagSize)
	copy(tag, sealed[len(buf):])
	return tag, nil
}

// Open verifies tag over ciphertext and returns the plaintext.
// Nothing is returned unless the tag verifies.
func Open(key, nonce, ciphertext, tag []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, ErrAuthFailed
	}

	sealed := make([]byte, len(ciphertext)+TagSize)
	copy(sealed, ciphertext)
	copy(sealed[len(ciphertext):], tag)

	// Decrypt into the front of the same buffer.
	plaintext, err := gcm.Open(sealed[:0], nonce, sealed, nil)
	if err != nil {
		ClearBytes(sealed)
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
