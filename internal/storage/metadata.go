package storage

import (
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"
)

// Record describes one archive written by gpucompress.
type Record struct {
	ID        string          `cbor:"id"`
	Path      string          `cbor:"path"`
	Format    string          `cbor:"format"`
	Encrypted bool            `cbor:"encrypted"`
	Level     int             `cbor:"level,omitempty"`
	Backend   string          `cbor:"backend,omitempty"`
	Size      int64           `cbor:"size"`
	Created   time.Time       `cbor:"created"`
	Entries   []ManifestEntry `cbor:"entries"`
}

// ManifestEntry represents an entry inside a cataloged archive
type ManifestEntry struct {
	Name string `cbor:"name"`
	Size int64  `cbor:"size"`
	Hash string `cbor:"hash"` // BLAKE3, hex
}

// HashContent returns the hex BLAKE3-256 digest of data.
func HashContent(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AddEntry adds or replaces a manifest entry for name.
func (r *Record) AddEntry(name string, data []byte) {
	entry := ManifestEntry{Name: name, Size: int64(len(data)), Hash: HashContent(data)}
	for i := range r.Entries {
		if r.Entries[i].Name == name {
			r.Entries[i] = entry
			return
		}
	}
	r.Entries = append(r.Entries, entry)
}

// FindEntry finds a manifest entry by name
func (r *Record) FindEntry(name string) *ManifestEntry {
	for i := range r.Entries {
		if r.Entries[i].Name == name {
			return &r.Entries[i]
		}
	}
	return nil
}

// TotalSize sums the uncompressed entry sizes.
func (r *Record) TotalSize() int64 {
	var n int64
	for _, e := range r.Entries {
		n += e.Size
	}
	return n
}

// Verify compares data against the manifest entry for name.
func (r *Record) Verify(name string, data []byte) bool {
	e := r.FindEntry(name)
	return e != nil && e.Size == int64(len(data)) && e.Hash == HashContent(data)
}
