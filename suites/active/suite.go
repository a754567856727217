// Package active implements Cicada's active protocol suite (spec.md §4.6):
// every share is a pair of an additive share and a Shamir share of the
// same underlying value, carried in lockstep through every operation.
// Because the two backing suites reconstruct a secret through entirely
// different procedures (summing pieces vs. Lagrange interpolation), an
// adversary who tampers with only one component is caught the next time
// the pair is verified or revealed — the design republicprotocol-tau's
// core/vss/vss.go pursues with Pedersen commitments, adapted here to a
// cheaper "compare two independent reconstructions" check instead of a
// commitment scheme.
package active

import (
	"github.com/republicprotocol/cicada/comm"
	"github.com/republicprotocol/cicada/field"
	"github.com/republicprotocol/cicada/przs"
	"github.com/republicprotocol/cicada/suites/additive"
	"github.com/republicprotocol/cicada/suites/shamirsuite"
)

// Share pairs an additive share and a Shamir share that must represent the
// same underlying value (spec.md §4.6's ActiveShare); inconsistency
// between the two implies tampering. Share is a plain value type; see
// DESIGN.md's note on share aliasing.
type Share struct {
	Additive additive.Share
	Shamir   shamirsuite.Share
}

// Suite binds one additive suite and one Shamir suite over the same
// Communicator, plus a dedicated Przs instance used only to seed verify's
// combining coefficients (see coefficients.go).
type Suite struct {
	comm     *comm.Communicator
	field    field.Field
	przs     *przs.Przs
	additive *additive.Suite
	shamir   *shamirsuite.ShamirSuite
}

// New constructs an active suite over c: an additive suite, a full Shamir
// suite with threshold k (so 2k-1 <= world size is required, same as a
// bare ShamirSuite), and one more Przs seed exchange dedicated to verify's
// coin flip.
func New(c *comm.Communicator, f field.Field, k int) (*Suite, error) {
	addSuite, err := additive.New(c, f)
	if err != nil {
		return nil, err
	}
	shamirSuite, err := shamirsuite.New(c, f, k)
	if err != nil {
		return nil, err
	}
	p, err := przs.Setup(c, f)
	if err != nil {
		return nil, err
	}
	return &Suite{comm: c, field: f, przs: p, additive: addSuite, shamir: shamirSuite}, nil
}

// Field returns the suite's working field.
func (s *Suite) Field() field.Field { return s.field }

// Communicator returns the suite's underlying communicator.
func (s *Suite) Communicator() *comm.Communicator { return s.comm }

// dstAll is passed to Reveal to mean "every player learns the secret."
const dstAll = -1

// Share secret-shares secret, known only at src, as an active Share: an
// independent additive sharing and Shamir sharing of the same value, dealt
// concurrently since they ride different reserved tags.
func (s *Suite) Share(src int, secret field.Array, shape []int) (Share, error) {
	var addShare additive.Share
	var shamirShare shamirsuite.Share
	var addErr, shamirErr error

	done := make(chan struct{})
	go func() {
		addShare, addErr = s.additive.Share(src, secret, shape)
		close(done)
	}()
	shamirShare, shamirErr = s.shamir.Share(src, secret, shape)
	<-done

	if addErr != nil {
		return Share{}, addErr
	}
	if shamirErr != nil {
		return Share{}, shamirErr
	}
	return Share{Additive: addShare, Shamir: shamirShare}, nil
}

// Add returns a + b, applied in lockstep to both components (spec.md
// §4.6).
func Add(a, b Share) Share {
	return Share{Additive: additive.Add(a.Additive, b.Additive), Shamir: shamirsuite.Add(a.Shamir, b.Shamir)}
}

// Subtract returns a - b, applied in lockstep to both components.
func Subtract(a, b Share) Share {
	return Share{Additive: additive.Subtract(a.Additive, b.Additive), Shamir: shamirsuite.Subtract(a.Shamir, b.Shamir)}
}

// Negate returns -a, applied in lockstep to both components.
func Negate(a Share) Share {
	return Share{Additive: additive.Negative(a.Additive), Shamir: shamirsuite.Negate(a.Shamir)}
}

// ScalarMultiply returns pub*a for a publicly-known coefficient array,
// applied in lockstep to both components.
func ScalarMultiply(pub field.Array, a Share) Share {
	return Share{
		Additive: additive.Share{Value: field.Multiply(pub, a.Additive.Value)},
		Shamir:   shamirsuite.ScalarMultiply(pub, a.Shamir),
	}
}

// Sum reduces a vector Share to a scalar Share, applied in lockstep to
// both components (spec.md §4.4/§4.6 sum(a)).
func Sum(a Share) Share {
	return Share{Additive: additive.Sum(a.Additive), Shamir: shamirsuite.Sum(a.Shamir)}
}

func zeroShare(s *Suite, shape []int) Share {
	return Share{
		Additive: additive.Share{Value: field.Zeros(s.field, shape)},
		Shamir:   shamirsuite.Share{Index: s.comm.Rank() + 1, Value: field.Zeros(s.field, shape)},
	}
}
