package accel

// bg4Transpose writes the byte planes of src's 4-byte words to dst: all
// byte 0s first, then all byte 1s, and so on. len(src) must be a multiple
// of 4 and len(dst) must equal it.
func bg4Transpose(dst, src []byte) {
	groups := len(src) / 4
	for i := 0; i < groups; i++ {
		dst[i] = src[i*4]
		dst[groups+i] = src[i*4+1]
		dst[groups*2+i] = src[i*4+2]
		dst[groups*3+i] = src[i*4+3]
	}
}

// bg4Untranspose reverses bg4Transpose.
func bg4Untranspose(dst, src []byte) {
	groups := len(src) / 4
	for i := 0; i < groups; i++ {
		dst[i*4] = src[i]
		dst[i*4+1] = src[groups+i]
		dst[i*4+2] = src[groups*2+i]
		dst[i*4+3] = src[groups*3+i]
	}
}

// deltaEncode replaces each byte with its difference from the previous one.
func deltaEncode(data []byte) {
	for i := len(data) - 1; i > 0; i-- {
		data[i] -= data[i-1]
	}
}

func deltaDecode(data []byte) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}
