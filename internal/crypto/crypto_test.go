package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, SaltSize)

	k1 := DeriveKey([]byte("password"), salt)
	k2 := DeriveKey([]byte("password"), salt)
	if len(k1) != KeySize {
		t.Fatalf("key length = %d, want %d", len(k1), KeySize)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same password and salt produced different keys")
	}

	other := DeriveKey([]byte("password"), bytes.Repeat([]byte{0x43}, SaltSize))
	if bytes.Equal(k1, other) {
		t.Error("different salts produced the same key")
	}
}

func TestSealOpenInPlace(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeySize)
	nonce := bytes.Repeat([]byte{2}, NonceSize)
	plaintext := []byte("attack at dawn")

	buf := append([]byte(nil), plaintext...)
	tag, err := Seal(key, nonce, buf)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if len(tag) != TagSize {
		t.Fatalf("tag length = %d, want %d", len(tag), TagSize)
	}
	if bytes.Equal(buf, plaintext) {
		t.Fatal("buffer was not encrypted in place")
	}

	got, err := Open(key, nonce, buf, tag)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Open = %q, want %q", got, plaintext)
	}
}

func TestSealOverwritesPlaintext(t *testing.T) {
	key := bytes.Repeat([]byte{3}, KeySize)
	nonce := bytes.Repeat([]byte{4}, NonceSize)
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	tests := []struct {
		name  string
		spare int
	}{
		{"exact capacity", 0},
		{"short capacity", TagSize - 1},
		{"room for tag", TagSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, len(plaintext), len(plaintext)+tt.spare)
			copy(buf, plaintext)

			tag, err := Seal(key, nonce, buf)
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}
			if bytes.Equal(buf, plaintext) {
				t.Fatal("plaintext left in buffer after Seal")
			}

			got, err := Open(key, nonce, buf, tag)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Errorf("Open = %q, want %q", got, plaintext)
			}
		})
	}
}

func TestOpenRejectsBadTag(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeySize)
	nonce := bytes.Repeat([]byte{2}, NonceSize)

	buf := []byte("some secret bytes")
	tag, err := Seal(key, nonce, buf)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	tag[0] ^= 0x01

	got, err := Open(key, nonce, buf, tag)
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("Open error = %v, want ErrAuthFailed", err)
	}
	if got != nil {
		t.Error("Open returned plaintext on authentication failure")
	}
}

func TestSealRejectsBadKey(t *testing.T) {
	_, err := Seal([]byte("short"), make([]byte, NonceSize), []byte("x"))
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Seal error = %v, want ErrInvalidKey", err)
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte("secret")
	ClearBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not cleared", i)
		}
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !ConstantTimeCompare([]byte("abc"), []byte("abc")) {
		t.Error("equal slices compared unequal")
	}
	if ConstantTimeCompare([]byte("abc"), []byte("abd")) {
		t.Error("different slices compared equal")
	}
}
