// Package formats implements the archive codecs.
//
// Codecs:
//   - zip: deflate via klauspost/compress
//   - 7z: read-only, native AES passwords via bodgit/sevenzip
//   - tar.zst, tar.lz4: tar streams under zstd or an LZ4 frame
//   - lat: accelerator byte-grouping kernel followed by zstd
//   - paqg: context mixing with accelerator-side probability mixing
//
// lat and paqg refuse to run without an accelerator.
package formats

import (
	"github.com/Murchiz/Gpucompress/internal/archive"
)

// NewRegistry returns a registry holding every codec built with opts.
func NewRegistry(opts archive.Options) *archive.Registry {
	return archive.NewRegistry(
		NewZip(opts),
		NewSevenZip(),
		NewTarZst(opts),
		NewTarLZ4(opts),
		NewLat(opts),
		NewPaqg(opts),
	)
}
