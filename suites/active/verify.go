package active

import (
	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/field"
)

// Verify checks that every share in shares still carries matching additive
// and Shamir components (spec.md §4.6): rather than reveal each pair
// separately, it folds the whole batch into one random linear combination
// per component (coefficients from combiningCoefficients, so nobody could
// have tailored a pair of tampers that cancel out under a coefficient they
// picked themselves) and reveals just that pair once. Raises
// ConsistencyError if the two revelations disagree. Verify(shares...) with
// zero shares is a no-op.
func (s *Suite) Verify(shares ...Share) error {
	if len(shares) == 0 {
		return nil
	}

	shape := shares[0].Additive.Value.Shape()
	coeffs, err := s.combiningCoefficients(len(shares))
	if err != nil {
		return err
	}

	combined := zeroShare(s, shape)
	for i, sh := range shares {
		coeff := field.Full(s.field, shape, coeffs[i])
		combined = Add(combined, ScalarMultiply(coeff, sh))
	}

	addVal, err := s.additive.Reveal(combined.Additive, dstAll)
	if err != nil {
		return cicada.New(cicada.KindTerminated, "active.Verify", err)
	}
	shamirVal, err := s.shamir.Reveal(combined.Shamir, dstAll)
	if err != nil {
		return cicada.New(cicada.KindTerminated, "active.Verify", err)
	}

	if !field.Equal(addVal, shamirVal) {
		return cicada.New(cicada.KindConsistencyError, "active.Verify", errInconsistent)
	}
	return nil
}

// Reveal verifies a, then reconstructs its cleartext from the additive
// component (spec.md §4.6: "reveal implicitly calls verify before
// returning the cleartext"). If dst is dstAll every player learns the
// value; otherwise only dst does, and every other caller gets a zero array
// back, matching additive.Reveal's and shamirsuite.Reveal's own
// conventions.
func (s *Suite) Reveal(a Share, dst int) (field.Array, error) {
	if err := s.Verify(a); err != nil {
		return field.Array{}, err
	}
	return s.additive.Reveal(a.Additive, dst)
}
