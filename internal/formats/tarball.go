package formats

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/Murchiz/Gpucompress/internal/archive"
)

// zstdEncoder and zstdDecoder are shared by every codec using zstd at
// the default level. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("formats: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("formats: zstd decoder initialization failed: " + err.Error())
	}
}

// zstdEncoderFor returns the shared encoder for level 0 and a dedicated
// one otherwise.
func zstdEncoderFor(level int) (*zstd.Encoder, error) {
	if level == 0 {
		return zstdEncoder, nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(zstdLevel(level))))
}

// zstdLevel spreads 1-9 over zstd's 1-19 range.
func zstdLevel(level int) int {
	return clampLevel(level)*2 + 1
}

// TarZst is a tar stream compressed with zstd.
type TarZst struct {
	level int
}

func NewTarZst(opts archive.Options) *TarZst {
	return &TarZst{level: opts.Level}
}

func (t *TarZst) Format() archive.Format { return archive.FormatTarZst }

func (t *TarZst) Compress(entries []archive.Entry, password []byte) ([]byte, error) {
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatTarZst, "compress", archive.ErrPasswordUnsupported)
	}
	raw, err := writeTar(entries)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatTarZst, "compress", err)
	}
	enc, err := zstdEncoderFor(t.level)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatTarZst, "compress", err)
	}
	if enc != zstdEncoder {
		defer enc.Close()
	}
	return enc.EncodeAll(raw, nil), nil
}

func (t *TarZst) Decompress(data []byte, password []byte) ([]archive.Entry, error) {
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatTarZst, "decompress", archive.ErrPasswordUnsupported)
	}
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatTarZst, "decompress", err)
	}
	entries, err := readTar(raw)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatTarZst, "decompress", err)
	}
	return entries, nil
}

// TarLZ4 is a tar stream in an LZ4 frame.
type TarLZ4 struct {
	level lz4.CompressionLevel
}

func NewTarLZ4(opts archive.Options) *TarLZ4 {
	return &TarLZ4{level: lz4Level(opts.Level)}
}

func lz4Level(level int) lz4.CompressionLevel {
	levels := []lz4.CompressionLevel{
		lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
		lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
	}
	if level <= 0 {
		return lz4.Fast
	}
	return levels[clampLevel(level)]
}

func (t *TarLZ4) Format() archive.Format { return archive.FormatTarLZ4 }

func (t *TarLZ4) Compress(entries []archive.Entry, password []byte) ([]byte, error) {
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatTarLZ4, "compress", archive.ErrPasswordUnsupported)
	}
	raw, err := writeTar(entries)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatTarLZ4, "compress", err)
	}

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(t.level)); err != nil {
		return nil, archive.NewCodecError(archive.FormatTarLZ4, "compress", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, archive.NewCodecError(archive.FormatTarLZ4, "compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, archive.NewCodecError(archive.FormatTarLZ4, "compress", err)
	}
	return buf.Bytes(), nil
}

func (t *TarLZ4) Decompress(data []byte, password []byte) ([]archive.Entry, error) {
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatTarLZ4, "decompress", archive.ErrPasswordUnsupported)
	}
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatTarLZ4, "decompress", err)
	}
	entries, err := readTar(raw)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatTarLZ4, "decompress", err)
	}
	return entries, nil
}

func writeTar(entries []archive.Entry) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     0600,
			Size:     int64(len(e.Data)),
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("failed to write header for %s: %w", e.Name, err)
		}
		if _, err := tw.Write(e.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close tar stream: %w", err)
	}
	return buf.Bytes(), nil
}

var errEmptyTar = errors.New("empty tar stream")

func readTar(raw []byte) ([]archive.Entry, error) {
	// tar.Reader accepts an empty stream as a valid archive, so anything
	// shorter than the end-of-archive marker is rejected up front.
	if len(raw) < 1024 {
		return nil, errEmptyTar
	}

	tr := tar.NewReader(bytes.NewReader(raw))
	var entries []archive.Entry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		// Unsafe names are rejected at extraction, not while decoding.
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return nil, fmt.Errorf("failed to read tar header: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", hdr.Name, err)
		}
		entries = append(entries, archive.Entry{Name: hdr.Name, Data: content})
	}
	return entries, nil
}
