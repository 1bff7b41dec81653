package archive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Murchiz/Gpucompress/internal/accel"
)

// Entry is one named file inside an archive.
type Entry struct {
	Name string `cbor:"n"`
	Data []byte `cbor:"d"`
}

// Format names a container format.
type Format string

const (
	FormatZip    Format = "zip"
	Format7z     Format = "7z"
	FormatTarZst Format = "tar.zst"
	FormatTarLZ4 Format = "tar.lz4"
	FormatLat    Format = "lat"
	FormatPaqg   Format = "paqg"
)

// EncryptedSuffix marks a file whose container is wrapped in the envelope.
const EncryptedSuffix = ".enc"

// DetectOrder is the order Detect tries formats in.
var DetectOrder = []Format{FormatZip, Format7z, FormatTarZst, FormatTarLZ4, FormatLat, FormatPaqg}

// Codec turns entries into container bytes and back.
//
// A codec that cannot honour a password returns ErrPasswordUnsupported
// when given one; the Registry wraps such codecs in Sealed.
type Codec interface {
	Format() Format
	Compress(entries []Entry, password []byte) ([]byte, error)
	Decompress(data []byte, password []byte) ([]Entry, error)
}

// NativePassword is implemented by codecs that protect data with the
// password themselves.
type NativePassword interface {
	SupportsPassword() bool
}

// Options carries the per-run compression settings.
type Options struct {
	// Level is 1 (fastest) to 9 (smallest); 0 picks the codec default.
	Level int
	// Accelerator is nil when no accelerator is available.
	Accelerator accel.Accelerator
}

// ParseFormat parses an explicit format token.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "zip":
		return FormatZip, nil
	case "7z":
		return Format7z, nil
	case "tar.zst", "tzst", "zst", "zstd":
		return FormatTarZst, nil
	case "tar.lz4", "lz4":
		return FormatTarLZ4, nil
	case "lat":
		return FormatLat, nil
	case "paqg":
		return FormatPaqg, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension for a format, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// FormatFromPath infers the format from a file name. A trailing .enc is
// stripped first and reported as encrypted.
func FormatFromPath(path string) (format Format, encrypted bool, err error) {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, EncryptedSuffix) {
		encrypted = true
		name = strings.TrimSuffix(name, EncryptedSuffix)
	}

	switch {
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return FormatTarZst, encrypted, nil
	case strings.HasSuffix(name, ".tar.lz4"):
		return FormatTarLZ4, encrypted, nil
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, encrypted, nil
	case strings.HasSuffix(name, ".7z"):
		return Format7z, encrypted, nil
	case strings.HasSuffix(name, ".lat"):
		return FormatLat, encrypted, nil
	case strings.HasSuffix(name, ".paqg"):
		return FormatPaqg, encrypted, nil
	}
	return "", encrypted, fmt.Errorf("%w: cannot infer format from %q", ErrUnknownFormat, filepath.Base(path))
}

// Dedupe keeps the last entry for every name, in first-seen order.
func Dedupe(entries []Entry) []Entry {
	last := make(map[string]int, len(entries))
	for i, e := range entries {
		last[e.Name] = i
	}
	if len(last) == len(entries) {
		return entries
	}

	out := make([]Entry, 0, len(last))
	seen := make(map[string]bool, len(last))
	for _, e := range entries {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		out = append(out, entries[last[e.Name]])
	}
	return out
}

// TotalSize sums the entry payload sizes.
func TotalSize(entries []Entry) int64 {
	var n int64
	for _, e := range entries {
		n += int64(len(e.Data))
	}
	return n
}
