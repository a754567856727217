package shamirsuite

import (
	"math/big"

	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/field"
)

func toSigned(f field.Field, v *big.Int) *big.Int {
	signed := new(big.Int).Set(v)
	if v.Cmp(f.PosBound()) > 0 {
		signed.Sub(v, f.Prime())
	}
	return signed
}

// reduceElem folds a (possibly negative or out-of-range) integer back into
// [0, p) via Go's Euclidean big.Int.Mod, which is always non-negative.
func reduceElem(f field.Field, v *big.Int) *big.Int {
	return new(big.Int).Mod(v, f.Prime())
}

func shiftArray(f field.Field, a field.Array, bits uint) field.Array {
	values := make([]*big.Int, a.Len())
	for i := 0; i < a.Len(); i++ {
		// Unsigned shift: the mask r in RightShift is an unsigned integer
		// below 2^fieldBits, so a+r must be shifted the same way for
		// floor((a+r)/2^bits) - floor(r/2^bits) to give a's shift.
		values[i] = new(big.Int).Rsh(a.At(i), bits)
	}
	return field.NewArray(f, a.Shape(), values)
}

// RightShift truncates a by bits, the probabilistic mask-and-open
// technique of spec.md §4.4: a jointly random full-width bitwise mask r is
// drawn (RandomBitwiseSecret, no dealer needed for this suite), a+r is
// opened, the opened value is shifted in the clear, and r's own
// pre-shifted value (composed locally from the leading bits of the same
// mask) is subtracted back out. Error is at most 1 ULP with negligible
// probability of wraparound, exactly as in suites/additive.
func (s *ShamirSuite) RightShift(a Share, bits uint) (Share, error) {
	if bits == 0 {
		return a, nil
	}
	shape := a.Value.Shape()
	fieldBits := uint(s.field.Bits())

	rBitsShare, rIntShare, err := s.RandomBitwiseSecret(fieldBits, shape)
	if err != nil {
		return Share{}, err
	}

	masked, err := s.Reveal(Add(a, rIntShare), dstAll)
	if err != nil {
		return Share{}, cicada.New(cicada.KindTerminated, "shamirsuite.RightShift", err)
	}
	maskedShifted := shiftArray(s.field, masked, bits)

	rShiftedBits := bitPrefix(rBitsShare, int(fieldBits), int(bits))
	rShiftedShare, err := s.BitCompose(rShiftedBits)
	if err != nil {
		return Share{}, err
	}

	return Subtract(s.constShare(maskedShifted), rShiftedShare), nil
}
