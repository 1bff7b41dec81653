// Package crypto provides the password envelope used to protect archives.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from password via PBKDF2-HMAC-SHA256
//   - 100,000 iterations, 16-byte random salt per envelope
//   - 12-byte random nonce per envelope
//   - 16-byte tag, empty associated data
//
// Envelope layout:
//
//	salt(16) | nonce(12) | ciphertext(N) | tag(16)
//
// There is no version byte and no length prefix; N is the envelope length
// minus 44. Decrypt rejects inputs shorter than 44 bytes and inputs whose
// salt or nonce is all zeros before paying for key derivation. A wrong
// password and tampered ciphertext are reported the same way.
//
// Memory safety:
//   - Use ClearBytes() to zero passwords after use
//   - Derived keys are cleared before Encrypt/Decrypt return
package crypto
