package archive

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Murchiz/Gpucompress/internal/crypto"
)

// Registry maps formats to codecs.
type Registry struct {
	codecs map[Format]Codec
}

// NewRegistry registers the given codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[Format]Codec, len(codecs))}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the codec for c.Format().
func (r *Registry) Register(c Codec) {
	if s, ok := c.(*Sealed); ok {
		c = s.Codec
	}
	r.codecs[c.Format()] = c
}

// Lookup returns the codec for an explicit format, wrapped in Sealed
// when it has no native password support.
func (r *Registry) Lookup(f Format) (Codec, error) {
	c, ok := r.codecs[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return Seal(c), nil
}

// Formats lists the registered formats in detection order.
func (r *Registry) Formats() []Format {
	var out []Format
	for _, f := range DetectOrder {
		if _, ok := r.codecs[f]; ok {
			out = append(out, f)
		}
	}
	for f := range r.codecs {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// NativePassword reports whether the codec for f handles passwords itself.
func (r *Registry) NativePassword(f Format) bool {
	c, ok := r.codecs[f]
	return ok && supportsPassword(c)
}

// Detect tries every registered codec in DetectOrder and returns the
// first that decodes data. With a password, the envelope is opened at
// most once and its plaintext is shared by every codec without native
// password support.
func (r *Registry) Detect(data, password []byte) (Format, []Entry, error) {
	var (
		plain  []byte
		envErr error
		opened bool
		hint   error
	)

	for _, f := range r.Formats() {
		c := r.codecs[f]

		var (
			entries []Entry
			err     error
		)
		switch {
		case len(password) == 0:
			entries, err = c.Decompress(data, nil)
		case supportsPassword(c):
			entries, err = c.Decompress(data, password)
		default:
			if !opened {
				plain, envErr = crypto.Decrypt(data, password)
				opened = true
			}
			if envErr != nil {
				continue
			}
			entries, err = c.Decompress(plain, nil)
		}

		if err == nil {
			return f, entries, nil
		}
		if hint == nil && errors.Is(err, ErrAcceleratorRequired) {
			hint = err
		}
	}

	switch {
	case hint != nil:
		return "", nil, fmt.Errorf("%w: %w", ErrUnrecognized, hint)
	case envErr != nil:
		return "", nil, fmt.Errorf("%w: %w", ErrUnrecognized, envErr)
	default:
		return "", nil, ErrUnrecognized
	}
}
