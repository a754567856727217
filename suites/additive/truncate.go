package additive

import (
	"math/big"

	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/field"
)

// toSigned reinterprets a field element as a signed integer, treating the
// upper half of the field as negative (the same convention
// encoding.FixedPoint.Decode uses).
func toSigned(f field.Field, v *big.Int) *big.Int {
	signed := new(big.Int).Set(v)
	if v.Cmp(f.PosBound()) > 0 {
		signed.Sub(v, f.Prime())
	}
	return signed
}

// reduceElem folds a (possibly negative or out-of-range) integer back into
// [0, p), since math/big's arithmetic on toSigned's output does not stay
// reduced the way field.Field's own ops do.
func reduceElem(f field.Field, v *big.Int) *big.Int {
	return new(big.Int).Mod(v, f.Prime())
}

// shiftArray arithmetic-right-shifts every element of a, interpreted as a
// signed integer, by bits, and reduces the result back into the field.
func shiftArray(f field.Field, a field.Array, bits uint) field.Array {
	values := make([]*big.Int, a.Len())
	for i := 0; i < a.Len(); i++ {
		signed := toSigned(f, a.At(i))
		values[i] = reduceElem(f, new(big.Int).Rsh(signed, bits))
	}
	return field.NewArray(f, a.Shape(), values)
}

// RightShift truncates a share's encoded value by bits bits (spec.md §4.4
// right_shift), the building block Multiply and Dot use to undo the
// doubled fixed-point scale a field_multiply introduces. It is
// probabilistic: a+r is opened for a mask r dealt by tripleDealer, and the
// result is the exact shift of a or one more in its lowest bit, depending
// on the carry out of the discarded low bits of a+r. In the rare case that
// a+r wraps around the field, the result is off by far more than one. This
// avoids a bit-decomposition circuit on every multiplication.
func (s *Suite) RightShift(a Share, bits uint) (Share, error) {
	if bits == 0 {
		return a, nil
	}
	shape := a.Value.Shape()
	f := s.field

	var rClear, rShiftedClear field.Array
	if s.comm.Rank() == tripleDealer {
		rClear = f.Uniform(shape, cryptoRandGenerator{})
		rShiftedClear = shiftArray(f, rClear, bits)
	}

	r, err := s.Share(tripleDealer, rClear, shape)
	if err != nil {
		return Share{}, err
	}
	rShifted, err := s.Share(tripleDealer, rShiftedClear, shape)
	if err != nil {
		return Share{}, err
	}

	masked, err := s.Reveal(Add(a, r), dstAll)
	if err != nil {
		return Share{}, cicada.New(cicada.KindTerminated, "additive.RightShift", err)
	}
	maskedShifted := shiftArray(f, masked, bits)

	result := Subtract(s.constShare(maskedShifted, tripleDealer), rShifted)
	return result, nil
}
