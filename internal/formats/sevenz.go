package formats

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bodgit/sevenzip"

	"github.com/Murchiz/Gpucompress/internal/archive"
)

// SevenZip reads 7z archives, including AES-encrypted ones. Writing is
// not available.
type SevenZip struct{}

func NewSevenZip() *SevenZip { return &SevenZip{} }

func (s *SevenZip) Format() archive.Format { return archive.Format7z }

// SupportsPassword reports that 7z carries its own AES encryption.
func (s *SevenZip) SupportsPassword() bool { return true }

// Compress always fails: there is no maintained 7z writer for Go.
func (s *SevenZip) Compress(entries []archive.Entry, password []byte) ([]byte, error) {
	return nil, archive.NewCodecError(archive.Format7z, "compress", archive.ErrNotImplemented)
}

func (s *SevenZip) Decompress(data []byte, password []byte) ([]archive.Entry, error) {
	r, err := sevenzip.NewReaderWithPassword(bytes.NewReader(data), int64(len(data)), string(password))
	if err != nil {
		return nil, archive.NewCodecError(archive.Format7z, "decompress", err)
	}

	entries := make([]archive.Entry, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		content, err := read7zFile(f)
		if err != nil {
			return nil, archive.NewCodecError(archive.Format7z, "decompress", fmt.Errorf("failed to read %s: %w", f.Name, err))
		}
		entries = append(entries, archive.Entry{Name: f.Name, Data: content})
	}
	return entries, nil
}

func read7zFile(f *sevenzip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
