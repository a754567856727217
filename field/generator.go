package field

import "math/big"

// A Generator is a raw source of pseudo-random (or truly random) bytes,
// used by Uniform and UniformPow2 to sample field elements. crypto/rand's
// Reader, and PRZS's per-pair chacha20 streams, both satisfy it.
type Generator interface {
	Read(p []byte) (n int, err error)
}

// byteLen returns ceil(bits/8).
func byteLen(bits int) int {
	return (bits + 7) / 8
}

func readFull(g Generator, n int) []byte {
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := g.Read(buf[read:])
		if err != nil {
			panic("field: generator failed: " + err.Error())
		}
		if m == 0 {
			panic("field: generator produced no bytes")
		}
		read += m
	}
	return buf
}

// uniformElem draws one uniform element of the field via rejection
// sampling: repeatedly pull ceil(bits/8) raw bytes from the generator,
// mask off the high bits above the field's bit width, and accept the
// sample only if it lands inside [0, p).
func (f Field) uniformElem(g Generator) *big.Int {
	nbytes := byteLen(f.bits)
	topBits := uint(nbytes*8 - f.bits)
	mask := byte(0xFF >> topBits)
	for {
		buf := readFull(g, nbytes)
		buf[0] &= mask
		v := new(big.Int).SetBytes(buf)
		if f.InField(v) {
			return v
		}
	}
}

// Uniform returns an Array of the given shape whose elements are drawn
// uniformly from the field via rejection sampling against g's raw
// bitstream.
func (f Field) Uniform(shape []int, g Generator) Array {
	n := size(shape)
	data := make([]*big.Int, n)
	for i := range data {
		data[i] = f.uniformElem(g)
	}
	return Array{field: f, shape: append([]int(nil), shape...), data: data}
}

// UniformPow2 returns an Array of the given shape whose elements are single
// bits (0 or 1), drawn from g. It is cheaper than Uniform because it never
// needs to reject a sample: any single bit is trivially within any field
// with p > 1.
func (f Field) UniformPow2(shape []int, g Generator) Array {
	n := size(shape)
	data := make([]*big.Int, n)
	buf := readFull(g, (n+7)/8)
	for i := 0; i < n; i++ {
		bit := (buf[i/8] >> uint(i%8)) & 1
		data[i] = big.NewInt(int64(bit))
	}
	return Array{field: f, shape: append([]int(nil), shape...), data: data}
}
