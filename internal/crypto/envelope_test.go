package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
		password  []byte
	}{
		{"empty plaintext", []byte{}, []byte("pw")},
		{"short text", []byte("Hello, world!"), []byte("pw1")},
		{"binary", []byte{0x00, 0xff, 0x10, 0x00}, []byte("correct horse battery staple")},
		{"empty password", []byte("data"), []byte{}},
		{"large", bytes.Repeat([]byte("0123456789"), 10000), []byte("pw")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Encrypt(tt.plaintext, tt.password)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}
			if len(env) != MinEnvelopeSize+len(tt.plaintext) {
				t.Fatalf("envelope length = %d, want %d", len(env), MinEnvelopeSize+len(tt.plaintext))
			}

			got, err := Decrypt(env, tt.password)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}
			if !bytes.Equal(got, tt.plaintext) {
				t.Errorf("round trip mismatch")
			}
		})
	}
}

func TestEnvelopeExample(t *testing.T) {
	env, err := Encrypt([]byte("Hello, world!"), []byte("pw1"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	got, err := Decrypt(env, []byte("pw1"))
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(got) != "Hello, world!" {
		t.Errorf("Decrypt = %q", got)
	}

	if _, err := Decrypt(env, []byte("pw2")); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("wrong password error = %v, want ErrAuthFailed", err)
	}

	if _, err := Decrypt(env[:43], []byte("pw1")); !errors.Is(err, ErrTooShort) {
		t.Errorf("truncated error = %v, want ErrTooShort", err)
	}
}

func TestEnvelopeWrongPassword(t *testing.T) {
	env, err := Encrypt([]byte("Secret data"), []byte("correct_password"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	got, err := Decrypt(env, []byte("wrong_password"))
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("error = %v, want ErrAuthFailed", err)
	}
	if got != nil {
		t.Error("plaintext returned for wrong password")
	}
}

func TestEnvelopeTamperDetection(t *testing.T) {
	password := []byte("pw")
	env, err := Encrypt([]byte("tamper me"), password)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// Every bit of the ciphertext and tag region.
	for i := HeaderSize; i < len(env); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), env...)
			tampered[i] ^= 1 << bit
			if _, err := openWithKey(tampered, password); !errors.Is(err, ErrAuthFailed) {
				t.Fatalf("flip byte %d bit %d: error = %v, want ErrAuthFailed", i, bit, err)
			}
		}
	}

	// A flipped nonce or salt bit must fail as well.
	for _, i := range []int{0, SaltSize} {
		tampered := append([]byte(nil), env...)
		tampered[i] ^= 0x80
		if _, err := Decrypt(tampered, password); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("flip header byte %d: error = %v, want ErrAuthFailed", i, err)
		}
	}
}

// openWithKey skips derivation by reusing the key for the envelope's salt,
// keeping the exhaustive bit-flip test fast.
var keyCache = map[string][]byte{}

func openWithKey(env, password []byte) ([]byte, error) {
	salt := string(env[:SaltSize])
	key, ok := keyCache[salt]
	if !ok {
		key = DeriveKey(password, env[:SaltSize])
		keyCache[salt] = key
	}
	rest := env[HeaderSize:]
	split := len(rest) - TagSize
	return Open(key, env[SaltSize:HeaderSize], rest[:split], rest[split:])
}

func TestDecryptTooShortSkipsDerivation(t *testing.T) {
	calls := 0
	orig := deriveKey
	deriveKey = func(password, salt []byte) []byte {
		calls++
		return orig(password, salt)
	}
	defer func() { deriveKey = orig }()

	for n := 0; n < MinEnvelopeSize; n++ {
		data := bytes.Repeat([]byte{0xAB}, n)
		if _, err := Decrypt(data, []byte("pw")); !errors.Is(err, ErrTooShort) {
			t.Fatalf("len %d: error = %v, want ErrTooShort", n, err)
		}
	}
	if calls != 0 {
		t.Errorf("key derivation ran %d times for short input", calls)
	}
}

func TestDecryptZeroSaltOrNonce(t *testing.T) {
	password := []byte("pw")
	env, err := Encrypt([]byte("payload"), password)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	calls := 0
	orig := deriveKey
	deriveKey = func(password, salt []byte) []byte {
		calls++
		return orig(password, salt)
	}
	defer func() { deriveKey = orig }()

	zeroSaltEnv := append([]byte(nil), env...)
	copy(zeroSaltEnv[:SaltSize], make([]byte, SaltSize))
	if _, err := Decrypt(zeroSaltEnv, password); !errors.Is(err, ErrLikelyCorrupt) {
		t.Errorf("zero salt: error = %v, want ErrLikelyCorrupt", err)
	}

	zeroNonceEnv := append([]byte(nil), env...)
	copy(zeroNonceEnv[SaltSize:HeaderSize], make([]byte, NonceSize))
	if _, err := Decrypt(zeroNonceEnv, password); !errors.Is(err, ErrLikelyCorrupt) {
		t.Errorf("zero nonce: error = %v, want ErrLikelyCorrupt", err)
	}

	if calls != 0 {
		t.Errorf("key derivation ran %d times for zeroed header", calls)
	}
}

func TestEnvelopeFreshness(t *testing.T) {
	a, err := Encrypt([]byte("same"), []byte("pw"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := Encrypt([]byte("same"), []byte("pw"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if bytes.Equal(a, b) {
		t.Fatal("two encryptions produced identical envelopes")
	}
	if bytes.Equal(a[:SaltSize], b[:SaltSize]) {
		t.Error("salt reused across encryptions")
	}
	if bytes.Equal(a[SaltSize:HeaderSize], b[SaltSize:HeaderSize]) {
		t.Error("nonce reused across encryptions")
	}
}

func TestIsEnvelopeError(t *testing.T) {
	if !IsEnvelopeError(ErrTooShort) || !IsEnvelopeError(ErrLikelyCorrupt) || !IsEnvelopeError(ErrAuthFailed) {
		t.Error("envelope sentinels not recognised")
	}
	if IsEnvelopeError(errors.New("other")) {
		t.Error("unrelated error recognised as envelope error")
	}
}
