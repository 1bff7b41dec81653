package formats

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Murchiz/Gpucompress/internal/accel"
	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/wire"
)

// Container layout:
//
//	"PAQG" | CBOR paqgHeader | lane 0 code | lane 1 code | ...
//
// The CBOR entry list is split into contiguous lanes, each with its own
// models and arithmetic coder. Lanes advance in lockstep so every bit
// position costs one MixProbabilities call for all of them.
const (
	paqgMagic    = "PAQG"
	paqgVersion  = 1
	maxLanes     = 16
	minLaneBytes = 4096
	maxPaqgBytes = 1 << 32

	// A bit costs at least log2(4096/4095) code bits since probabilities
	// are clamped to [1, 4095]/4096, so one code byte covers under 2840
	// payload bytes.
	maxPaqgExpansion = 8192
)

type paqgHeader struct {
	Version uint8    `cbor:"v"`
	Sizes   []uint64 `cbor:"s"`
	Coded   []uint64 `cbor:"c"`
}

var (
	errBadHeader     = errors.New("inconsistent header")
	errTruncatedCode = errors.New("lane code ended early")
)

// Paqg is a context-mixing codec. Mixing runs on the accelerator.
type Paqg struct {
	acc accel.Accelerator
}

func NewPaqg(opts archive.Options) *Paqg {
	return &Paqg{acc: opts.Accelerator}
}

func (p *Paqg) Format() archive.Format { return archive.FormatPaqg }

func (p *Paqg) Compress(entries []archive.Entry, password []byte) ([]byte, error) {
	if p.acc == nil {
		return nil, archive.NewCodecError(archive.FormatPaqg, "compress", archive.ErrAcceleratorRequired)
	}
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatPaqg, "compress", archive.ErrPasswordUnsupported)
	}

	payload, err := wire.Marshal(entriesOrEmpty(entries))
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatPaqg, "compress", fmt.Errorf("failed to encode entries: %w", err))
	}
	if uint64(len(payload)) >= maxPaqgBytes {
		return nil, archive.NewCodecError(archive.FormatPaqg, "compress", fmt.Errorf("payload of %d bytes is too large", len(payload)))
	}

	lanes := splitLanes(payload)
	codes, err := p.encodeLanes(lanes)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatPaqg, "compress", err)
	}

	hdr := paqgHeader{Version: paqgVersion}
	for i := range lanes {
		hdr.Sizes = append(hdr.Sizes, uint64(len(lanes[i])))
		hdr.Coded = append(hdr.Coded, uint64(len(codes[i])))
	}
	head, err := wire.Marshal(hdr)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatPaqg, "compress", err)
	}

	var out bytes.Buffer
	out.WriteString(paqgMagic)
	out.Write(head)
	for _, c := range codes {
		out.Write(c)
	}
	return out.Bytes(), nil
}

func (p *Paqg) Decompress(data []byte, password []byte) ([]archive.Entry, error) {
	if !bytes.HasPrefix(data, []byte(paqgMagic)) {
		return nil, archive.NewCodecError(archive.FormatPaqg, "decompress", archive.ErrBadMagic)
	}
	if p.acc == nil {
		return nil, archive.NewCodecError(archive.FormatPaqg, "decompress", archive.ErrAcceleratorRequired)
	}
	if len(password) > 0 {
		return nil, archive.NewCodecError(archive.FormatPaqg, "decompress", archive.ErrPasswordUnsupported)
	}

	var hdr paqgHeader
	body, err := wire.UnmarshalFirst(data[len(paqgMagic):], &hdr)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatPaqg, "decompress", fmt.Errorf("failed to read header: %w", err))
	}
	codes, err := splitCodes(hdr, body)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatPaqg, "decompress", err)
	}

	lanes, err := p.decodeLanes(hdr.Sizes, codes)
	if err != nil {
		return nil, archive.NewCodecError(archive.FormatPaqg, "decompress", err)
	}

	var entries []archive.Entry
	if err := wire.Unmarshal(bytes.Join(lanes, nil), &entries); err != nil {
		return nil, archive.NewCodecError(archive.FormatPaqg, "decompress", fmt.Errorf("failed to decode entries: %w", err))
	}
	return entries, nil
}

func splitLanes(payload []byte) [][]byte {
	n := (len(payload) + minLaneBytes - 1) / minLaneBytes
	n = max(1, min(n, maxLanes))
	chunk := (len(payload) + n - 1) / n

	lanes := make([][]byte, n)
	for i := range lanes {
		start := min(i*chunk, len(payload))
		end := min(start+chunk, len(payload))
		lanes[i] = payload[start:end]
	}
	return lanes
}

func splitCodes(hdr paqgHeader, body []byte) ([][]byte, error) {
	if hdr.Version != paqgVersion {
		return nil, fmt.Errorf("unsupported version %d", hdr.Version)
	}
	if len(hdr.Sizes) == 0 || len(hdr.Sizes) > maxLanes || len(hdr.Sizes) != len(hdr.Coded) {
		return nil, fmt.Errorf("%w: %d lane sizes, %d code sizes", errBadHeader, len(hdr.Sizes), len(hdr.Coded))
	}

	var total uint64
	for _, s := range hdr.Sizes {
		total += s
	}
	if total >= maxPaqgBytes {
		return nil, fmt.Errorf("%w: payload of %d bytes", errBadHeader, total)
	}

	codes := make([][]byte, len(hdr.Coded))
	for i, c := range hdr.Coded {
		if c > uint64(len(body)) {
			return nil, fmt.Errorf("%w: lane %d code overruns data", errBadHeader, i)
		}
		if hdr.Sizes[i] > (c+1)*maxPaqgExpansion {
			return nil, fmt.Errorf("%w: lane %d claims %d bytes from %d code bytes", errBadHeader, i, hdr.Sizes[i], c)
		}
		codes[i] = body[:c]
		body = body[c:]
	}
	if len(body) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errBadHeader, len(body))
	}
	return codes, nil
}

// activeLanes returns the lanes that still have a byte at pos.
func activeLanes(dst []int, sizes []int, pos int) []int {
	dst = dst[:0]
	for i, s := range sizes {
		if pos < s {
			dst = append(dst, i)
		}
	}
	return dst
}

func (p *Paqg) encodeLanes(lanes [][]byte) ([][]byte, error) {
	sizes := make([]int, len(lanes))
	longest := 0
	for i, l := range lanes {
		sizes[i] = len(l)
		longest = max(longest, len(l))
	}

	mix := newMixer(p.acc, len(lanes))
	encoders := make([]*arithEncoder, len(lanes))
	for i := range encoders {
		encoders[i] = newArithEncoder()
	}

	active := make([]int, 0, len(lanes))
	bits := make([]int, len(lanes))
	for pos := 0; pos < longest; pos++ {
		active = activeLanes(active, sizes, pos)
		for shift := 7; shift >= 0; shift-- {
			mixed, err := mix.predict(active)
			if err != nil {
				return nil, fmt.Errorf("failed to mix: %w", err)
			}
			for j, li := range active {
				bits[j] = int(lanes[li][pos]>>shift) & 1
				encoders[li].encode(bits[j], toP12(mixed[j]))
			}
			mix.update(active, bits, mixed)
		}
	}

	codes := make([][]byte, len(lanes))
	for i, e := range encoders {
		codes[i] = e.finish()
	}
	return codes, nil
}

func (p *Paqg) decodeLanes(sizes64 []uint64, codes [][]byte) ([][]byte, error) {
	sizes := make([]int, len(sizes64))
	longest := 0
	for i, s := range sizes64 {
		sizes[i] = int(s)
		longest = max(longest, sizes[i])
	}

	mix := newMixer(p.acc, len(sizes))
	decoders := make([]*arithDecoder, len(sizes))
	lanes := make([][]byte, len(sizes))
	for i := range decoders {
		decoders[i] = newArithDecoder(codes[i])
		lanes[i] = make([]byte, 0, min(sizes[i], maxPrealloc))
	}

	active := make([]int, 0, len(sizes))
	bits := make([]int, len(sizes))
	for pos := 0; pos < longest; pos++ {
		active = activeLanes(active, sizes, pos)
		var cur [maxLanes]byte
		for shift := 7; shift >= 0; shift-- {
			mixed, err := mix.predict(active)
			if err != nil {
				return nil, fmt.Errorf("failed to mix: %w", err)
			}
			for j, li := range active {
				bits[j] = decoders[li].decode(toP12(mixed[j]))
				cur[j] = cur[j]<<1 | byte(bits[j])
			}
			mix.update(active, bits, mixed)
		}
		for _, li := range active {
			if decoders[li].overrun() {
				return nil, fmt.Errorf("%w: lane %d at byte %d", errTruncatedCode, li, pos)
			}
		}
		for j, li := range active {
			lanes[li] = append(lanes[li], cur[j])
		}
	}
	return lanes, nil
}
