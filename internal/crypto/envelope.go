package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
)

// HeaderSize is the salt and nonce prefix of an envelope.
const HeaderSize = SaltSize + NonceSize

// MinEnvelopeSize is the size of an envelope holding an empty plaintext.
const MinEnvelopeSize = HeaderSize + TagSize

var (
	ErrTooShort      = errors.New("invalid encrypted data: too short")
	ErrLikelyCorrupt = errors.New("invalid encrypted data: zeroed salt or nonce, file is likely corrupt")
)

// deriveKey is swapped in tests to observe derivation calls.
var deriveKey = DeriveKey

var (
	zeroSalt  [SaltSize]byte
	zeroNonce [NonceSize]byte
)

// Encrypt seals plaintext under a key derived from password.
//
// Layout: salt(16) | nonce(12) | ciphertext(len(plaintext)) | tag(16)
func Encrypt(plaintext, password []byte) ([]byte, error) {
	out := make([]byte, HeaderSize, MinEnvelopeSize+len(plaintext))
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("failed to generate salt and nonce: %w", err)
	}

	key := deriveKey(password, out[:SaltSize])
	defer ClearBytes(key)

	out = append(out, plaintext...)
	tag, err := Seal(key, out[SaltSize:HeaderSize], out[HeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("failed to seal: %w", err)
	}

	return append(out, tag...), nil
}

// Decrypt opens an envelope produced by Encrypt. A wrong password and
// tampered data both return ErrAuthFailed.
func Decrypt(envelope, password []byte) ([]byte, error) {
	if len(envelope) < MinEnvelopeSize {
		return nil, ErrTooShort
	}

	salt := envelope[:SaltSize]
	nonce := envelope[SaltSize:HeaderSize]
	rest := envelope[HeaderSize:]

	// Heuristic only; authentication below is the real check.
	if bytes.Equal(salt, zeroSalt[:]) || bytes.Equal(nonce, zeroNonce[:]) {
		return nil, ErrLikelyCorrupt
	}

	key := deriveKey(password, salt)
	defer ClearBytes(key)

	split := len(rest) - TagSize
	return Open(key, nonce, rest[:split], rest[split:])
}

// IsEnvelopeError reports whether err came from envelope validation or
// authentication rather than from I/O.
func IsEnvelopeError(err error) bool {
	return errors.Is(err, ErrTooShort) || errors.Is(err, ErrLikelyCorrupt) || errors.Is(err, ErrAuthFailed)
}
