package comm

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/republicprotocol/cicada/field"
)

// EncodeArray serializes a field.Array as: shape (u32 dim count, then u32
// dims), then for each element a length-prefixed big-endian integer
// (spec.md §6's array payload format).
func EncodeArray(a field.Array) []byte {
	shape := a.Shape()
	buf := make([]byte, 0, 64)

	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(shape)))
	buf = append(buf, tmp4[:]...)
	for _, d := range shape {
		binary.BigEndian.PutUint32(tmp4[:], uint32(d))
		buf = append(buf, tmp4[:]...)
	}

	for i := 0; i < a.Len(); i++ {
		b := a.At(i).Bytes()
		binary.BigEndian.PutUint32(tmp4[:], uint32(len(b)))
		buf = append(buf, tmp4[:]...)
		buf = append(buf, b...)
	}
	return buf
}

// DecodeArray deserializes a payload produced by EncodeArray back into a
// field.Array of the given field.
func DecodeArray(f field.Field, buf []byte) (field.Array, error) {
	if len(buf) < 4 {
		return field.Array{}, fmt.Errorf("comm: truncated array payload")
	}
	ndim := int(binary.BigEndian.Uint32(buf[0:4]))
	off := 4
	shape := make([]int, ndim)
	for i := 0; i < ndim; i++ {
		if off+4 > len(buf) {
			return field.Array{}, fmt.Errorf("comm: truncated array shape")
		}
		shape[i] = int(binary.BigEndian.Uint32(buf[off : off+4]))
		off += 4
	}

	n := 1
	for _, d := range shape {
		n *= d
	}
	values := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		if off+4 > len(buf) {
			return field.Array{}, fmt.Errorf("comm: truncated array element length")
		}
		l := int(binary.BigEndian.Uint32(buf[off : off+4]))
		off += 4
		if off+l > len(buf) {
			return field.Array{}, fmt.Errorf("comm: truncated array element data")
		}
		values[i] = new(big.Int).SetBytes(buf[off : off+l])
		off += l
	}
	return field.NewArray(f, shape, values), nil
}
