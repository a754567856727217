package shamirsuite

import (
	"math/big"

	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/encoding"
	"github.com/republicprotocol/cicada/field"
)

// newtonIterations is the fixed number of Newton-Raphson refinement steps
// Divide runs; spec.md §4.4 leaves the iteration count to the
// implementation.
const newtonIterations = 3

// publicConstant encodes a literal real value under enc and broadcasts it
// to shape, for mixing known constants into share arithmetic.
func (s *ShamirSuite) publicConstant(v float64, enc encoding.FixedPoint, shape []int) field.Array {
	encoded := enc.Encode(s.field, []float64{v})
	return field.Full(s.field, shape, encoded.At(0))
}

// scalarDivideByTwo multiplies a share by the field's multiplicative
// inverse of 2, the local (round-free) way to divide an encoded share by
// the public constant 2.
func (s *ShamirSuite) scalarDivideByTwo(a Share) Share {
	inv2 := new(big.Int).ModInverse(big.NewInt(2), s.field.Prime())
	coeff := field.Full(s.field, a.Value.Shape(), inv2)
	return Share{Index: a.Index, Value: field.Multiply(coeff, a.Value)}
}

// Absolute returns |a| (spec.md §4.4 absolute): (1-2*sign(a))*a.
func (s *ShamirSuite) Absolute(a Share) (Share, error) {
	sign, err := s.LessZero(a)
	if err != nil {
		return Share{}, err
	}
	shape := a.Value.Shape()
	two := field.Full(s.field, shape, big.NewInt(2))
	coeff := Subtract(s.constShare(field.Ones(s.field, shape)), Share{Index: sign.Index, Value: field.Multiply(two, sign.Value)})
	return s.FieldMultiply(a, coeff)
}

// Floor zeroes out a's fractional bits, sign-aware (spec.md §4.4 floor).
func (s *ShamirSuite) Floor(a Share, precision uint) (Share, error) {
	shifted, err := s.RightShift(a, precision)
	if err != nil {
		return Share{}, err
	}
	scale := new(big.Int).Lsh(big.NewInt(1), precision)
	coeff := field.Full(s.field, a.Value.Shape(), scale)
	return Share{Index: shifted.Index, Value: field.Multiply(coeff, shifted.Value)}, nil
}

// Relu returns max(0, a) (spec.md §4.4 relu): a*(1-less_zero(a)).
func (s *ShamirSuite) Relu(a Share) (Share, error) {
	negative, err := s.LessZero(a)
	if err != nil {
		return Share{}, err
	}
	return s.FieldMultiply(a, s.notShare(negative))
}

// Maximum returns max(a,b) = (a+b+|a-b|)/2 (spec.md §4.4), accurate only
// when both operands carry the same sign or |a|,|b| < p/4, as the
// caller's contract.
func (s *ShamirSuite) Maximum(a, b Share) (Share, error) {
	absDiff, err := s.Absolute(Subtract(a, b))
	if err != nil {
		return Share{}, err
	}
	return s.scalarDivideByTwo(Add(Add(a, b), absDiff)), nil
}

// Minimum returns min(a,b) = (a+b-|a-b|)/2 (spec.md §4.4).
func (s *ShamirSuite) Minimum(a, b Share) (Share, error) {
	absDiff, err := s.Absolute(Subtract(a, b))
	if err != nil {
		return Share{}, err
	}
	return s.scalarDivideByTwo(Subtract(Add(a, b), absDiff)), nil
}

// Zigmoid computes the piecewise-linear sigmoid approximation of spec.md
// §4.4: clip(a+0.5, 0, 1), built directly from Maximum and Minimum.
func (s *ShamirSuite) Zigmoid(a Share, enc encoding.FixedPoint) (Share, error) {
	shape := a.Value.Shape()
	half := s.publicConstant(0.5, enc, shape)
	one := s.publicConstant(1.0, enc, shape)

	shifted := Add(a, s.constShare(half))
	clippedLow, err := s.Maximum(shifted, Share{Index: a.Index, Value: field.Zeros(s.field, shape)})
	if err != nil {
		return Share{}, err
	}
	return s.Minimum(clippedLow, s.constShare(one))
}

// Power computes a^k for a public non-negative exponent k via
// square-and-multiply (spec.md §4.4 power).
func (s *ShamirSuite) Power(a Share, k uint, enc encoding.FixedPoint) (Share, error) {
	shape := a.Value.Shape()
	one := s.publicConstant(1.0, enc, shape)
	result := s.constShare(one)
	base := a

	for k > 0 {
		if k&1 == 1 {
			next, err := s.Multiply(result, base, enc)
			if err != nil {
				return Share{}, err
			}
			result = next
		}
		k >>= 1
		if k > 0 {
			next, err := s.Multiply(base, base, enc)
			if err != nil {
				return Share{}, err
			}
			base = next
		}
	}
	return result, nil
}

func allNonzero(a field.Array) bool {
	for i := 0; i < a.Len(); i++ {
		if a.At(i).Sign() == 0 {
			return false
		}
	}
	return true
}

func invertArray(f field.Field, a field.Array) field.Array {
	values := make([]*big.Int, a.Len())
	for i := 0; i < a.Len(); i++ {
		values[i] = new(big.Int).ModInverse(a.At(i), f.Prime())
	}
	return field.NewArray(f, a.Shape(), values)
}

// MultiplicativeInverse returns the field inverse of a's value (spec.md
// §4.4 multiplicative_inverse): mask a by a jointly random share r that no
// player knows individually, open a*r, invert the revealed product in the
// field, then multiply by r (Bar-Ilan/Beaver's classic trick). If the
// opened product is zero — which only happens with negligible probability,
// since it requires either a or the fresh random r to be exactly zero —
// the mask is redrawn.
func (s *ShamirSuite) MultiplicativeInverse(a Share) (Share, error) {
	shape := a.Value.Shape()
	for {
		r, err := s.FieldUniform(shape)
		if err != nil {
			return Share{}, err
		}
		masked, err := s.FieldMultiply(a, r)
		if err != nil {
			return Share{}, err
		}
		opened, err := s.Reveal(masked, dstAll)
		if err != nil {
			return Share{}, cicada.New(cicada.KindTerminated, "shamirsuite.MultiplicativeInverse", err)
		}
		if !allNonzero(opened) {
			continue
		}
		invOpened := invertArray(s.field, opened)
		return Share{Index: a.Index, Value: field.Multiply(invOpened, r.Value)}, nil
	}
}

// newtonSeed decodes the fully revealed b to produce an initial
// reciprocal estimate in the right regime for Newton-Raphson to converge —
// Divide's one deliberate relaxation of secrecy (see DESIGN.md); every
// refinement step after this is a plain, non-revealing Multiply.
func newtonSeed(f field.Field, revealedB field.Array, enc encoding.FixedPoint) field.Array {
	decoded := enc.Decode(revealedB)
	estimates := make([]float64, len(decoded))
	for i, v := range decoded {
		if v == 0 {
			estimates[i] = 0
			continue
		}
		estimates[i] = 1.0 / v
	}
	flat := enc.Encode(f, estimates)
	values := make([]*big.Int, flat.Len())
	for i := 0; i < flat.Len(); i++ {
		values[i] = flat.At(i)
	}
	return field.NewArray(f, revealedB.Shape(), values)
}

// Divide approximates a/b via Newton-Raphson iteration on the reciprocal of
// b (spec.md §4.4 divide): w_{i+1} = w_i*(2 - b*w_i).
func (s *ShamirSuite) Divide(a, b Share, enc encoding.FixedPoint) (Share, error) {
	shape := b.Value.Shape()
	revealedB, err := s.Reveal(b, dstAll)
	if err != nil {
		return Share{}, cicada.New(cicada.KindTerminated, "shamirsuite.Divide", err)
	}

	seed := newtonSeed(s.field, revealedB, enc)
	w := s.constShare(seed)
	two := s.constShare(s.publicConstant(2.0, enc, shape))

	for i := 0; i < newtonIterations; i++ {
		bw, err := s.Multiply(b, w, enc)
		if err != nil {
			return Share{}, err
		}
		next, err := s.Multiply(w, Subtract(two, bw), enc)
		if err != nil {
			return Share{}, err
		}
		w = next
	}
	return s.Multiply(a, w, enc)
}
