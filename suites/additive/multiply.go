package additive

import (
	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/encoding"
	"github.com/republicprotocol/cicada/field"
)

// tripleDealer is the fixed rank that generates Beaver triples for field
// multiplication. Plain n-out-of-n additive sharing cannot manufacture a
// correlated (x, y, x*y) triple from local randomness alone — some player
// has to know x and y in the clear to compute their product. Rank 0 plays
// that role for every multiplication, mirroring the "trusted dealer" SPDZ
// deployment mode (markkurossi-ephemelier/crypto/spdz.Triple, whose
// MulShare this file's combine step follows directly) rather than an
// OT-based offline phase. Because the dealer also takes part in opening d
// and e below, it can reconstruct the operands of any multiplication it
// deals a triple for; this is an accepted simplification of the
// honest-but-curious baseline the suite targets, not a claim of security
// against a curious rank 0 (see DESIGN.md).
const tripleDealer = 0

// triple is one Beaver triple: shares of x, y and z = x*y.
type triple struct {
	x, y, z Share
}

func (s *Suite) generateTriple(shape []int) (triple, error) {
	rank := s.comm.Rank()

	var xClear, yClear field.Array
	if rank == tripleDealer {
		xClear = s.field.Uniform(shape, cryptoRandGenerator{})
		yClear = s.field.Uniform(shape, cryptoRandGenerator{})
	}

	x, err := s.Share(tripleDealer, xClear, shape)
	if err != nil {
		return triple{}, err
	}
	y, err := s.Share(tripleDealer, yClear, shape)
	if err != nil {
		return triple{}, err
	}

	var zClear field.Array
	if rank == tripleDealer {
		zClear = field.Multiply(xClear, yClear)
	}
	z, err := s.Share(tripleDealer, zClear, shape)
	if err != nil {
		return triple{}, err
	}

	return triple{x: x, y: y, z: z}, nil
}

// FieldMultiply computes the field-level product of two shares (spec.md
// §4.4 field_multiply): one Beaver triple is drawn, d = a-x and e = b-y are
// opened to every player, and each player locally combines z + d*y + e*x,
// with exactly one designated player folding in the d*e correction so the
// sum across all players' local pieces telescopes to a*b.
func (s *Suite) FieldMultiply(a, b Share) (Share, error) {
	shape := a.Value.Shape()
	t, err := s.generateTriple(shape)
	if err != nil {
		return Share{}, err
	}

	d := Subtract(a, t.x)
	e := Subtract(b, t.y)

	dv, err := s.Reveal(d, dstAll)
	if err != nil {
		return Share{}, cicada.New(cicada.KindTerminated, "additive.FieldMultiply", err)
	}
	ev, err := s.Reveal(e, dstAll)
	if err != nil {
		return Share{}, cicada.New(cicada.KindTerminated, "additive.FieldMultiply", err)
	}

	local := field.Add(t.z.Value, field.Add(field.Multiply(dv, t.y.Value), field.Multiply(ev, t.x.Value)))
	if s.comm.Rank() == tripleDealer {
		local = field.Add(local, field.Multiply(dv, ev))
	}
	return Share{Value: local}, nil
}

// Multiply computes the encoded product of two shares (spec.md §4.4
// multiply): a field_multiply followed by a right_shift of enc's fixed-point
// precision to undo the doubled scaling factor.
func (s *Suite) Multiply(a, b Share, enc encoding.FixedPoint) (Share, error) {
	prod, err := s.FieldMultiply(a, b)
	if err != nil {
		return Share{}, err
	}
	return s.RightShift(prod, enc.Precision)
}

// Dot computes the encoded dot product of two equal-length share vectors
// (spec.md §4.4 dot): every field_multiply is performed before the single
// right_shift, so precision is only lost once rather than once per term.
func (s *Suite) Dot(as, bs []Share, enc encoding.FixedPoint) (Share, error) {
	if len(as) != len(bs) {
		return Share{}, cicada.New(cicada.KindPrecondition, "additive.Dot", errMismatchedLength)
	}
	if len(as) == 0 {
		return Share{}, cicada.New(cicada.KindPrecondition, "additive.Dot", errEmptyOperand)
	}

	total, err := s.FieldMultiply(as[0], bs[0])
	if err != nil {
		return Share{}, err
	}
	for i := 1; i < len(as); i++ {
		term, err := s.FieldMultiply(as[i], bs[i])
		if err != nil {
			return Share{}, err
		}
		total = Add(total, term)
	}
	return s.RightShift(total, enc.Precision)
}
