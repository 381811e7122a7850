package qrcode

// bitBuffer is an append-only sequence of bits, most significant first.
type bitBuffer []bool

// appendBits appends the low n bits of val.
func (b *bitBuffer) appendBits(val, n int) {
	for i := n - 1; i >= 0; i-- {
		*b = append(*b, (val>>i)&1 != 0)
	}
}

// bytes packs the buffer into bytes, padding the final byte with zeros.
func (b bitBuffer) bytes() []byte {
	out := make([]byte, (len(b)+7)/8)
	for i, bit := range b {
		if bit {
			out[i>>3] |= 1 << (7 - uint(i&7))
		}
	}
	return out
}
