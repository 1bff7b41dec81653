package formats

import (
	"bytes"
	"fmt"

	"github.com/Murchiz/Gpucompress/internal/accel"
	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/wire"
)

// Container layout:
//
//	"LAT\x01" | CBOR latHeader | zstd(kernel(CBOR entries))
const latMagic = "LAT\x01"

type latHeader struct {
	Kernel string `cbor:"k"`
	Size   uint64 `cbor:"s"`
}

var inverseKernel = map[string]string{
	accel.KernelBG4Encode:   accel.KernelBG4Decode,
	accel.KernelDeltaEncode: accel.KernelDeltaDecode,
}

// Lat runs the entry list through an accelerator kernel before zstd.
type Lat struct {
	acc   accel.Accelerator
	level int
}

func NewLat(opts archive.Options) *Lat {
	return &Lat{acc: opts.Accelerator, level: opts.Level}
}

func (l *Lat) Format() archive.Format { return archive.FormatLat }

func (l *Lat) Compress(entries []archive.Entry, password []byte) ([]byte, error) {
	if l.acc == nil {
		return nil, archive.NewCodecError(archive.FormatLat, "compress", archive.ErrAcceleratorRequired)
	}
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatLat, "compress", archive.ErrPasswordUnsupported)
	}

	payload, err := wire.Marshal(entriesOrEmpty(entries))
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatLat, "compress", fmt.Errorf("failed to encode entries: %w", err))
	}

	hdr := latHeader{Kernel: accel.KernelBG4Encode, Size: uint64(len(payload))}
	if err := l.acc.RunKernel(hdr.Kernel, payload); err != nil {
		return nil, archive.NewCodecError(archive.FormatLat, "compress", err)
	}

	head, err := wire.Marshal(hdr)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatLat, "compress", err)
	}

	enc, err := zstdEncoderFor(l.level)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatLat, "compress", err)
	}
	if enc != zstdEncoder {
		defer enc.Close()
	}

	out := make([]byte, 0, len(latMagic)+len(head)+len(payload)/2)
	out = append(out, latMagic...)
	out = append(out, head...)
	return enc.EncodeAll(payload, out), nil
}

func (l *Lat) Decompress(data []byte, password []byte) ([]archive.Entry, error) {
	if !bytes.HasPrefix(data, []byte(latMagic)) {
		return nil, archive.NewCodecError(archive.FormatLat, "decompress", archive.ErrBadMagic)
	}
	if l.acc == nil {
		return nil, archive.NewCodecError(archive.FormatLat, "decompress", archive.ErrAcceleratorRequired)
	}
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatLat, "decompress", archive.ErrPasswordUnsupported)
	}

	var hdr latHeader
	body, err := wire.UnmarshalFirst(data[len(latMagic):], &hdr)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatLat, "decompress", fmt.Errorf("failed to read header: %w", err))
	}
	inverse, ok := inverseKernel[hdr.Kernel]
	if !ok {
		return nil, archive.NewCodecError(archive.FormatLat, "decompress", fmt.Errorf("%w: %q", accel.ErrUnknownKernel, hdr.Kernel))
	}

	payload, err := zstdDecoder.DecodeAll(body, make([]byte, 0, min(hdr.Size, maxPrealloc)))
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatLat, "decompress", err)
	}
	if uint64(len(payload)) != hdr.Size {
		return nil, archive.NewCodecError(archive.FormatLat, "decompress",
			fmt.Errorf("payload is %d bytes, header says %d", len(payload), hdr.Size))
	}
	if err := l.acc.RunKernel(inverse, payload); err != nil {
		return nil, archive.NewCodecError(archive.FormatLat, "decompress", err)
	}

	var entries []archive.Entry
	if err := wire.Unmarshal(payload, &entries); err != nil {
		return nil, archive.NewCodecError(archive.FormatLat, "decompress", fmt.Errorf("failed to decode entries: %w", err))
	}
	return entries, nil
}

// maxPrealloc caps how much a header can make us allocate up front.
const maxPrealloc = 64 << 20

// entriesOrEmpty makes a nil list encode as an empty array rather than null.
func entriesOrEmpty(entries []archive.Entry) []archive.Entry {
	if entries == nil {
		return []archive.Entry{}
	}
	return entries
}
