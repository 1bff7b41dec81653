package formats

// Binary arithmetic coder over a 32-bit range. p12 is the probability
// that the bit is 1, scaled to 1..4095.

type arithEncoder struct {
	x1, x2 uint32
	out    []byte
}

func newArithEncoder() *arithEncoder {
	return &arithEncoder{x2: 0xffffffff}
}

func (e *arithEncoder) encode(bit int, p12 uint32) {
	xmid := e.x1 + (e.x2-e.x1)>>12*p12
	if bit != 0 {
		e.x2 = xmid
	} else {
		e.x1 = xmid + 1
	}
	for (e.x1^e.x2)&0xff000000 == 0 {
		e.out = append(e.out, byte(e.x2>>24))
		e.x1 <<= 8
		e.x2 = e.x2<<8 | 255
	}
}

// finish flushes all of x1 so the decoder never reads past the stream.
func (e *arithEncoder) finish() []byte {
	return append(e.out, byte(e.x1>>24), byte(e.x1>>16), byte(e.x1>>8), byte(e.x1))
}

type arithDecoder struct {
	x1, x2, x uint32
	in        []byte
	pos       int
	past      int // Bytes read beyond the end of in
}

// maxDecoderSlack is how far a decoder may read past its input. A valid
// stream ends with the encoder's 4-byte flush, so it never needs any.
const maxDecoderSlack = 4

func newArithDecoder(in []byte) *arithDecoder {
	d := &arithDecoder{x2: 0xffffffff, in: in}
	for i := 0; i < 4; i++ {
		d.x = d.x<<8 | uint32(d.next())
	}
	return d
}

func (d *arithDecoder) next() byte {
	if d.pos >= len(d.in) {
		d.past++
		return 0
	}
	b := d.in[d.pos]
	d.pos++
	return b
}

// overrun reports whether the decoder has run out of input.
func (d *arithDecoder) overrun() bool {
	return d.past > maxDecoderSlack
}

func (d *arithDecoder) decode(p12 uint32) int {
	xmid := d.x1 + (d.x2-d.x1)>>12*p12
	bit := 0
	if d.x <= xmid {
		bit = 1
		d.x2 = xmid
	} else {
		d.x1 = xmid + 1
	}
	for (d.x1^d.x2)&0xff000000 == 0 {
		d.x1 <<= 8
		d.x2 = d.x2<<8 | 255
		d.x = d.x<<8 | uint32(d.next())
	}
	return bit
}
