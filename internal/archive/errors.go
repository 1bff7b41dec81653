package archive

import (
	"errors"
	"fmt"
)

var (
	ErrPasswordUnsupported = errors.New("format has no native password support")
	ErrNotImplemented      = errors.New("not implemented")
	ErrAcceleratorRequired = errors.New("format requires an accelerator")
	ErrUnknownFormat       = errors.New("unknown archive format")
	ErrUnrecognized        = errors.New("data is not a recognized archive")
	ErrBadMagic            = errors.New("bad magic")
)

// CodecError reports a failure inside a codec.
type CodecError struct {
	Format Format
	Op     string // "compress" or "decompress"
	Err    error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Format, e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// NewCodecError wraps err unless it is nil.
func NewCodecError(format Format, op string, err error) error {
	if err == nil {
		return nil
	}
	return &CodecError{Format: format, Op: op, Err: err}
}

// IsCodecError reports whether err came from a codec.
func IsCodecError(err error) bool {
	var ce *CodecError
	return errors.As(err, &ce)
}
