// Package encoding maps real, boolean, and bit arrays to and from field
// elements. The field and its arithmetic know nothing about encodings;
// encoding is a pure value-to-value mapping layered on top (spec.md §4.2).
package encoding

import (
	"math/big"

	"github.com/republicprotocol/cicada/field"
)

// An Encoding maps a slice of float64 values to a field.Array and back.
// FixedPoint, Bits, Boolean, and Identity all implement it, even though
// Bits/Boolean logically operate on integers/booleans — their Encode and
// Decode accept and return float64 so every suite operation can share one
// interface, rounding bit/boolean values to the nearest integer on decode.
type Encoding interface {
	// Encode maps real values to field elements of the given field.
	Encode(f field.Field, values []float64) field.Array

	// Decode maps field elements back to real values.
	Decode(a field.Array) []float64
}

// Identity passes values through unchanged, with no scaling and no
// reduction modulo p. It is used when revealing raw field values rather
// than an application-level encoded type.
type Identity struct{}

// Encode implements Encoding. Values must already be non-negative integers
// less than the field's modulus; Identity performs no scaling.
func (Identity) Encode(f field.Field, values []float64) field.Array {
	bigs := make([]*big.Int, len(values))
	for i, v := range values {
		bigs[i] = big.NewInt(int64(v))
	}
	return field.NewArray(f, []int{len(values)}, bigs)
}

// Decode implements Encoding, returning the field element's canonical
// non-negative integer representative.
func (Identity) Decode(a field.Array) []float64 {
	out := make([]float64, a.Len())
	for i := 0; i < a.Len(); i++ {
		f, _ := new(big.Float).SetInt(a.At(i)).Float64()
		out[i] = f
	}
	return out
}

// Bits encodes {0,1} values identically in the field; decode yields integer
// 0 or 1.
type Bits struct{}

// Encode implements Encoding.
func (Bits) Encode(f field.Field, values []float64) field.Array {
	bigs := make([]*big.Int, len(values))
	for i, v := range values {
		if v != 0 && v != 1 {
			panic("encoding: Bits.Encode requires values in {0, 1}")
		}
		bigs[i] = big.NewInt(int64(v))
	}
	return field.NewArray(f, []int{len(values)}, bigs)
}

// Decode implements Encoding.
func (Bits) Decode(a field.Array) []float64 {
	out := make([]float64, a.Len())
	for i := 0; i < a.Len(); i++ {
		out[i] = float64(a.At(i).Int64())
	}
	return out
}

// Boolean encodes false as 0 and true as 1.
type Boolean struct{}

// Encode implements Encoding, taking 0 for false and any non-zero value for
// true.
func (Boolean) Encode(f field.Field, values []float64) field.Array {
	bigs := make([]*big.Int, len(values))
	for i, v := range values {
		if v != 0 {
			bigs[i] = big.NewInt(1)
		} else {
			bigs[i] = big.NewInt(0)
		}
	}
	return field.NewArray(f, []int{len(values)}, bigs)
}

// Decode implements Encoding, returning 0 or 1.
func (Boolean) Decode(a field.Array) []float64 {
	out := make([]float64, a.Len())
	for i := 0; i < a.Len(); i++ {
		if a.At(i).Sign() != 0 {
			out[i] = 1
		}
	}
	return out
}

// FixedPoint encodes real numbers as encode(x) = trunc(x * 2^precision) mod
// p (truncation toward zero), and decodes the upper half of the field as
// negative. Overflow on
// encoded inputs wraps silently, by design — see spec.md §4.2.
type FixedPoint struct {
	Precision uint
}

// NewFixedPoint returns a FixedPoint encoding with the given number of
// fractional bits.
func NewFixedPoint(precision uint) FixedPoint {
	return FixedPoint{Precision: precision}
}

// scale returns 2^precision.
func (fp FixedPoint) scale() *big.Float {
	s := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), fp.Precision))
	return s
}

// Encode implements Encoding.
func (fp FixedPoint) Encode(f field.Field, values []float64) field.Array {
	scale := fp.scale()
	p := f.Prime()
	bigs := make([]*big.Int, len(values))
	for i, v := range values {
		scaled := new(big.Float).Mul(big.NewFloat(v), scale)
		// Truncate toward zero then wrap into [0, p) — the fractional part
		// introduced by floating point noise is dropped here, matching the
		// spec's "saturating-to-truncation" note.
		truncated, _ := scaled.Int(nil)
		truncated.Mod(truncated, p)
		if truncated.Sign() < 0 {
			truncated.Add(truncated, p)
		}
		bigs[i] = truncated
	}
	return field.NewArray(f, []int{len(values)}, bigs)
}

// Decode implements Encoding, interpreting the upper half of the field
// (values > p//2) as negative.
func (fp FixedPoint) Decode(a field.Array) []float64 {
	f := a.Field()
	posBound := f.PosBound()
	p := f.Prime()
	scale := fp.scale()

	out := make([]float64, a.Len())
	for i := 0; i < a.Len(); i++ {
		v := a.At(i)
		signed := new(big.Int).Set(v)
		if v.Cmp(posBound) > 0 {
			signed.Sub(v, p)
		}
		ratio := new(big.Float).Quo(new(big.Float).SetInt(signed), scale)
		out[i], _ = ratio.Float64()
	}
	return out
}

// Range returns the approximate representable interval [lo, hi) for values
// encoded under this FixedPoint encoding in the given field, per spec.md
// §4.2: roughly [-p/2^(f+1), p/2^(f+1)).
func (fp FixedPoint) Range(f field.Field) (lo, hi float64) {
	p := new(big.Float).SetInt(f.Prime())
	denom := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), fp.Precision+1))
	bound := new(big.Float).Quo(p, denom)
	b, _ := bound.Float64()
	return -b, b
}
