package archive

import (
	"github.com/Murchiz/Gpucompress/internal/crypto"
)

// Sealed applies the password envelope around a codec that has no
// password mechanism of its own. Without a password it is transparent.
type Sealed struct {
	Codec Codec
}

// Seal returns c itself when it handles passwords natively, otherwise c
// wrapped in Sealed.
func Seal(c Codec) Codec {
	if supportsPassword(c) {
		return c
	}
	if _, ok := c.(*Sealed); ok {
		return c
	}
	return &Sealed{Codec: c}
}

func (s *Sealed) Format() Format {
	return s.Codec.Format()
}

// Compress builds the container and encrypts it when password is set.
func (s *Sealed) Compress(entries []Entry, password []byte) ([]byte, error) {
	data, err := s.Codec.Compress(entries, nil)
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return data, nil
	}
	return crypto.Encrypt(data, password)
}

// Decompress opens the envelope when password is set, then parses the
// container. Envelope failures are returned unwrapped.
func (s *Sealed) Decompress(data []byte, password []byte) ([]Entry, error) {
	if len(password) == 0 {
		return s.Codec.Decompress(data, nil)
	}
	plain, err := crypto.Decrypt(data, password)
	if err != nil {
		return nil, err
	}
	return s.Codec.Decompress(plain, nil)
}

func supportsPassword(c Codec) bool {
	np, ok := c.(NativePassword)
	return ok && np.SupportsPassword()
}
