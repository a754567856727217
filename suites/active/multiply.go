package active

import (
	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/encoding"
	"github.com/republicprotocol/cicada/suites/additive"
	"github.com/republicprotocol/cicada/suites/shamirsuite"
)

// Multiply computes the encoded product of two active shares (spec.md
// §4.4/§4.6), applying each backing suite's own multiply in lockstep: the
// additive half runs its Beaver-triple protocol, the Shamir half its
// dealer-free degree reduction, and the two results remain a consistent
// pair as long as neither multiply is tampered with in transit.
//
// Both halves truncate their product independently (additive/truncate.go,
// shamirsuite/truncate.go), each drawing its own probabilistic rounding
// randomness. The two truncations round the same mathematical quotient,
// but are not guaranteed to land on the same side of a boundary value, so
// an untampered product can in rare cases differ between the two halves
// by one unit in the last place — which a later Verify/Reveal (verify.go)
// cannot distinguish from real tampering and reports as a ConsistencyError.
// Eliminating this would require sharing truncation randomness across two
// structurally unrelated secret-sharing schemes, which neither backing
// suite currently exposes a way to do.
func (s *Suite) Multiply(a, b Share, enc encoding.FixedPoint) (Share, error) {
	addProd, err := s.additive.Multiply(a.Additive, b.Additive, enc)
	if err != nil {
		return Share{}, err
	}
	shamirProd, err := s.shamir.Multiply(a.Shamir, b.Shamir, enc)
	if err != nil {
		return Share{}, err
	}
	return Share{Additive: addProd, Shamir: shamirProd}, nil
}

// Dot computes the encoded dot product of two equal-length active share
// vectors (spec.md §4.4/§4.6 dot), in lockstep on both components.
func (s *Suite) Dot(as, bs []Share, enc encoding.FixedPoint) (Share, error) {
	if len(as) != len(bs) {
		return Share{}, cicada.New(cicada.KindPrecondition, "active.Dot", errMismatchedLength)
	}
	if len(as) == 0 {
		return Share{}, cicada.New(cicada.KindPrecondition, "active.Dot", errEmptyOperand)
	}

	addVec := make([]additive.Share, len(as))
	shamirVec := make([]shamirsuite.Share, len(as))
	bAddVec := make([]additive.Share, len(bs))
	bShamirVec := make([]shamirsuite.Share, len(bs))
	for i := range as {
		addVec[i] = as[i].Additive
		shamirVec[i] = as[i].Shamir
		bAddVec[i] = bs[i].Additive
		bShamirVec[i] = bs[i].Shamir
	}

	addDot, err := s.additive.Dot(addVec, bAddVec, enc)
	if err != nil {
		return Share{}, err
	}
	shamirDot, err := s.shamir.Dot(shamirVec, bShamirVec, enc)
	if err != nil {
		return Share{}, err
	}
	return Share{Additive: addDot, Shamir: shamirDot}, nil
}
