// Package additive implements Cicada's additive secret-sharing protocol
// suite (spec.md §4.4): every share is a single field-array per player,
// summing across players to the secret. Multiplication uses on-demand
// Beaver triples dealt by rank 0 (tripleDealer), adapted from the teacher's
// core/vm/mul/mul.go and core/vm/open/open.go actors into direct blocking
// calls against comm.Communicator.
package additive

import (
	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/comm"
	"github.com/republicprotocol/cicada/field"
	"github.com/republicprotocol/cicada/przs"
)

// Share is one player's piece of an additively-shared secret: a field
// array that, summed across every player's Share value, reconstructs the
// secret. Share is a plain value type; operations never mutate a Share's
// storage in place (see DESIGN.md's note on share aliasing).
type Share struct {
	Value field.Array
}

// Suite binds a Communicator, field, and PRZS generator together; every
// additive-suite operation is a method on Suite because multiplication,
// reveal, and reshare all need the Communicator and PRZS state.
type Suite struct {
	comm  *comm.Communicator
	field field.Field
	przs  *przs.Przs
}

// New constructs an additive suite over c using f as the working field. It
// performs PRZS setup (one round of seed exchange) before returning.
func New(c *comm.Communicator, f field.Field) (*Suite, error) {
	p, err := przs.Setup(c, f)
	if err != nil {
		return nil, err
	}
	return &Suite{comm: c, field: f, przs: p}, nil
}

// Field returns the suite's working field.
func (s *Suite) Field() field.Field { return s.field }

// Communicator returns the suite's underlying communicator.
func (s *Suite) Communicator() *comm.Communicator { return s.comm }

// constShare returns a Share of a publicly-known value: owner's local piece
// is value, every other player's local piece is zero. Summed across
// players this reconstructs value, which is the standard "share of a
// constant" trick used by RightShift and the comparison operators to mix a
// revealed intermediate back into share arithmetic without another round
// of communication.
func (s *Suite) constShare(value field.Array, owner int) Share {
	if s.comm.Rank() == owner {
		return Share{Value: value}
	}
	return Share{Value: field.Zeros(s.field, value.Shape())}
}

// Add returns a + b, a local field-add of the two players' pieces.
func Add(a, b Share) Share {
	return Share{Value: field.Add(a.Value, b.Value)}
}

// Subtract returns a - b, a local field-subtract.
func Subtract(a, b Share) Share {
	return Share{Value: field.Subtract(a.Value, b.Value)}
}

// Negative returns -a, a local field-negate.
func Negative(a Share) Share {
	return Share{Value: field.Negative(a.Value)}
}

// Sum reduces a vector Share to a scalar Share via a local field-sum of the
// caller's own piece (spec.md §4.4 sum(a)).
func Sum(a Share) Share {
	total := field.Sum(a.Value)
	return Share{Value: field.Scalar(a.Value.Field(), total)}
}

// FieldUniform has every player draw an independent uniform field array;
// the sum across players is uniform mod p without any communication
// (spec.md §4.4 field_uniform).
func (s *Suite) FieldUniform(shape []int) Share {
	return Share{Value: s.field.Uniform(shape, cryptoRandGenerator{})}
}

// Share secret-shares secret, known only at src, among every player in the
// suite's communicator. Every caller (including src) must supply the same
// shape. The source draws n-1 uniform masks, sends one to each other
// player, and keeps secret minus their sum as its own piece (spec.md
// §4.4).
func (s *Suite) Share(src int, secret field.Array, shape []int) (Share, error) {
	n := s.comm.WorldSize()
	rank := s.comm.Rank()

	if rank == src {
		remainder := secret
		errs := make([]error, n)
		masks := make([]field.Array, n)
		for r := 0; r < n; r++ {
			if r == src {
				continue
			}
			masks[r] = s.field.Uniform(shape, cryptoRandGenerator{})
			remainder = field.Subtract(remainder, masks[r])
		}
		done := make(chan struct{}, n-1)
		for r := 0; r < n; r++ {
			if r == src {
				continue
			}
			go func(r int) {
				errs[r] = s.comm.SendReserved(r, comm.TagSuiteShare, comm.EncodeArray(masks[r]))
				done <- struct{}{}
			}(r)
		}
		for i := 0; i < n-1; i++ {
			<-done
		}
		for _, err := range errs {
			if err != nil {
				return Share{}, cicada.New(cicada.KindTerminated, "additive.Share", err)
			}
		}
		return Share{Value: remainder}, nil
	}

	buf, err := s.comm.RecvReserved(src, comm.TagSuiteShare)
	if err != nil {
		return Share{}, cicada.New(cicada.KindTerminated, "additive.Share", err)
	}
	value, err := comm.DecodeArray(s.field, buf)
	if err != nil {
		return Share{}, cicada.New(cicada.KindProtocolError, "additive.Share", err)
	}
	return Share{Value: value}, nil
}

// dstAll is passed to Reveal to mean "every player learns the secret."
const dstAll = -1

// Reveal reconstructs a Share's secret. If dst is dstAll, every player
// all-gathers every piece and field-sums them; otherwise only dst receives
// the pieces and performs the sum, and every other caller gets a zero
// array back (spec.md §4.4 reveal).
func (s *Suite) Reveal(a Share, dst int) (field.Array, error) {
	if dst == dstAll {
		raw, err := s.comm.AllGather(comm.EncodeArray(a.Value))
		if err != nil {
			return field.Array{}, cicada.New(cicada.KindTerminated, "additive.Reveal", err)
		}
		return sumPieces(s.field, raw)
	}

	raw, err := s.comm.Gather(dst, comm.EncodeArray(a.Value))
	if err != nil {
		return field.Array{}, cicada.New(cicada.KindTerminated, "additive.Reveal", err)
	}
	if s.comm.Rank() != dst {
		return field.Zeros(s.field, a.Value.Shape()), nil
	}
	return sumPieces(s.field, raw)
}

func sumPieces(f field.Field, raw [][]byte) (field.Array, error) {
	var total field.Array
	for i, buf := range raw {
		piece, err := comm.DecodeArray(f, buf)
		if err != nil {
			return field.Array{}, cicada.New(cicada.KindProtocolError, "additive.Reveal", err)
		}
		if i == 0 {
			total = piece
			continue
		}
		total = field.Add(total, piece)
	}
	return total, nil
}

// Reshare adds fresh PRZS noise to a's value, re-randomizing its pieces
// without changing the reconstructed secret (spec.md §4.4 reshare).
func (s *Suite) Reshare(a Share) Share {
	noise := s.przs.Next(a.Value.Shape())
	return Share{Value: field.Add(a.Value, noise)}
}
