package formats

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/Murchiz/Gpucompress/internal/archive"
)

// Zip writes deflate-compressed zip archives. Passwords go through the
// envelope; zip's own encryption schemes are not supported.
type Zip struct {
	level int
}

// NewZip creates a zip codec. level 0 uses the flate default.
func NewZip(opts archive.Options) *Zip {
	level := flate.DefaultCompression
	if opts.Level > 0 {
		level = clampLevel(opts.Level)
	}
	return &Zip{level: level}
}

func (z *Zip) Format() archive.Format { return archive.FormatZip }

func (z *Zip) Compress(entries []archive.Entry, password []byte) ([]byte, error) {
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatZip, "compress", archive.ErrPasswordUnsupported)
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, z.level)
	})

	for _, e := range entries {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			return nil, archive.NewCodecError(archive.FormatZip, "compress", fmt.Errorf("failed to add %s: %w", e.Name, err))
		}
		if _, err := fw.Write(e.Data); err != nil {
			return nil, archive.NewCodecError(archive.FormatZip, "compress", fmt.Errorf("failed to write %s: %w", e.Name, err))
		}
	}
	if err := w.Close(); err != nil {
		return nil, archive.NewCodecError(archive.FormatZip, "compress", err)
	}
	return buf.Bytes(), nil
}

func (z *Zip) Decompress(data []byte, password []byte) ([]archive.Entry, error) {
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatZip, "decompress", archive.ErrPasswordUnsupported)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatZip, "decompress", err)
	}

	entries := make([]archive.Entry, 0, len(r.File))
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, archive.NewCodecError(archive.FormatZip, "decompress", fmt.Errorf("failed to read %s: %w", f.Name, err))
		}
		entries = append(entries, archive.Entry{Name: f.Name, Data: content})
	}
	return entries, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// clampLevel maps a 1-9 level onto the codec's range.
func clampLevel(level int) int {
	return max(1, min(level, 9))
}
