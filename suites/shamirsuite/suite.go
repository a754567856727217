// Package shamirsuite implements Cicada's Shamir (threshold) secret-sharing
// protocol suite (spec.md §4.5): every share is one evaluation of a degree
// k-1 polynomial whose constant term is the secret, and any k of the n
// evaluations reconstruct it by Lagrange interpolation at x=0. Share,
// split, and reconstruction are adapted directly from the teacher's
// core/vss/shamir/shamir.go (Split/Join); the rest of the operation surface
// generalizes core/vm/mul and core/vm/open the same way suites/additive
// does, but built on degree-reduction multiplication instead of Beaver
// triples, since Shamir multiplication never needs a trusted dealer.
package shamirsuite

import (
	"math/big"

	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/comm"
	"github.com/republicprotocol/cicada/field"
)

// Share is one player's evaluation of the sharing polynomial at its own
// index. Index follows the teacher's shamir.Share convention of never
// using 0, which is reserved for the secret itself; this suite assigns
// player rank r the index r+1.
type Share struct {
	Index int
	Value field.Array
}

// core holds the state common to ShamirBasicSuite and ShamirSuite.
// Unexported so that only the two typed wrappers below can be
// constructed, keeping ShamirSuite's extra methods unreachable through a
// ShamirBasicSuite value.
type core struct {
	comm  *comm.Communicator
	field field.Field
	k     int
}

// index returns the evaluation point player rank uses.
func index(rank int) int {
	return rank + 1
}

func bigIndex(rank int) *big.Int {
	return big.NewInt(int64(index(rank)))
}

// ShamirBasicSuite supports the linear operations of spec.md §4.5 for any
// k <= n: share, reveal, add, subtract, negate, and scalar multiply.
type ShamirBasicSuite struct {
	*core
}

// NewBasic constructs a ShamirBasicSuite requiring only k <= n
// (spec.md §4.5). Returns a KindInvalidConfiguration error otherwise.
func NewBasic(c *comm.Communicator, f field.Field, k int) (*ShamirBasicSuite, error) {
	n := c.WorldSize()
	if k < 1 || k > n {
		return nil, cicada.New(cicada.KindInvalidConfiguration, "shamirsuite.NewBasic",
			errThreshold)
	}
	return &ShamirBasicSuite{&core{comm: c, field: f, k: k}}, nil
}

// Field returns the suite's working field.
func (s *ShamirBasicSuite) Field() field.Field { return s.field }

// Communicator returns the suite's underlying communicator.
func (s *ShamirBasicSuite) Communicator() *comm.Communicator { return s.comm }

// Threshold returns k, the number of shares needed to reconstruct a secret.
func (s *ShamirBasicSuite) Threshold() int { return s.k }

// ShamirSuite additionally supports multiplication, division, bit
// decomposition, and the full nonlinear surface of spec.md §4.4, which all
// require the degree-reduction step and so need 2k-1 <= n.
type ShamirSuite struct {
	*ShamirBasicSuite
}

// New constructs a ShamirSuite requiring 2k-1 <= n, i.e. k <= (n+1)/2
// (spec.md §4.5). Returns a KindInvalidConfiguration error otherwise.
func New(c *comm.Communicator, f field.Field, k int) (*ShamirSuite, error) {
	n := c.WorldSize()
	if 2*k-1 > n {
		return nil, cicada.New(cicada.KindInvalidConfiguration, "shamirsuite.New",
			errDegreeReduction)
	}
	basic, err := NewBasic(c, f, k)
	if err != nil {
		return nil, err
	}
	return &ShamirSuite{basic}, nil
}

// randomPolynomial draws k-1 uniform coefficients over secret (the constant
// term), mirroring core/vss/algebra.NewRandomWithSecret's shape but without
// the non-zero leading coefficient constraint, which spec.md does not ask
// for (a lower-degree polynomial only shortens the effective threshold, it
// never weakens secrecy).
func randomPolynomial(f field.Field, degree int, secret *big.Int) []*big.Int {
	coeffs := make([]*big.Int, degree+1)
	coeffs[0] = secret
	for i := 1; i <= degree; i++ {
		coeffs[i] = f.Random()
	}
	return coeffs
}

func evaluatePoly(f field.Field, coeffs []*big.Int, x *big.Int) *big.Int {
	acc := new(big.Int).Set(coeffs[len(coeffs)-1])
	for i := len(coeffs) - 2; i >= 0; i-- {
		acc.Mul(acc, x)
		acc.Mod(acc, f.Prime())
		acc.Add(acc, coeffs[i])
		acc.Mod(acc, f.Prime())
	}
	return acc
}

// Share secret-shares secret (known only at src) among every player via a
// random degree-(k-1) polynomial, sending player i its evaluation at
// x_i = i+1 (spec.md §4.5 share). Every caller, including src, must supply
// the same shape.
func (s *ShamirBasicSuite) Share(src int, secret field.Array, shape []int) (Share, error) {
	return s.shareDegree(src, secret, shape, s.k-1, comm.TagShamirShare)
}

func (s *core) shareDegree(src int, secret field.Array, shape []int, degree int, tag comm.Tag) (Share, error) {
	n := s.comm.WorldSize()
	rank := s.comm.Rank()
	idx := index(rank)

	if rank == src {
		m := size(shape)
		coeffsPerElem := make([][]*big.Int, m)
		for e := 0; e < m; e++ {
			coeffsPerElem[e] = randomPolynomial(s.field, degree, secret.At(e))
		}

		evalFor := func(r int) field.Array {
			values := make([]*big.Int, m)
			x := bigIndex(r)
			for e := 0; e < m; e++ {
				values[e] = evaluatePoly(s.field, coeffsPerElem[e], x)
			}
			return field.NewArray(s.field, shape, values)
		}

		var mine field.Array
		errs := make([]error, n)
		done := make(chan struct{}, n-1)
		for r := 0; r < n; r++ {
			if r == src {
				mine = evalFor(r)
				continue
			}
			go func(r int) {
				errs[r] = s.comm.SendReserved(r, tag, comm.EncodeArray(evalFor(r)))
				done <- struct{}{}
			}(r)
		}
		for i := 0; i < n-1; i++ {
			<-done
		}
		for _, err := range errs {
			if err != nil {
				return Share{}, cicada.New(cicada.KindTerminated, "shamirsuite.Share", err)
			}
		}
		return Share{Index: idx, Value: mine}, nil
	}

	buf, err := s.comm.RecvReserved(src, tag)
	if err != nil {
		return Share{}, cicada.New(cicada.KindTerminated, "shamirsuite.Share", err)
	}
	value, err := comm.DecodeArray(s.field, buf)
	if err != nil {
		return Share{}, cicada.New(cicada.KindProtocolError, "shamirsuite.Share", err)
	}
	return Share{Index: idx, Value: value}, nil
}

// dstAll is passed to Reveal to mean "every player learns the secret."
const dstAll = -1

// lagrangeCoeffsAtZero returns, for the evaluation points xs, the
// coefficients lambda_j such that sum_j lambda_j * P(x_j) = P(0) for any
// polynomial of degree < len(xs) (spec.md §4.5 reveal's Lagrange formula).
func lagrangeCoeffsAtZero(f field.Field, xs []*big.Int) []*big.Int {
	p := f.Prime()
	coeffs := make([]*big.Int, len(xs))
	for j := range xs {
		num := big.NewInt(1)
		den := big.NewInt(1)
		for m := range xs {
			if m == j {
				continue
			}
			num.Mul(num, xs[m])
			num.Mod(num, p)
			diff := new(big.Int).Sub(xs[j], xs[m])
			diff.Mod(diff, p)
			den.Mul(den, diff)
			den.Mod(den, p)
		}
		num.Neg(num)
		num.Mod(num, p)
		denInv := new(big.Int).ModInverse(den, p)
		coeffs[j] = num.Mul(num, denInv)
		coeffs[j].Mod(coeffs[j], p)
	}
	return coeffs
}

// recombine applies Lagrange interpolation at x=0 to a set of (index,
// value-array) shares, reconstructing the constant term of the polynomial
// they lie on (spec.md §4.5 reveal; grounded on shamir.Join's formula,
// generalized to field.Array).
func recombine(f field.Field, shares []Share) field.Array {
	xs := make([]*big.Int, len(shares))
	for i, sh := range shares {
		xs[i] = big.NewInt(int64(sh.Index))
	}
	coeffs := lagrangeCoeffsAtZero(f, xs)

	shape := shares[0].Value.Shape()
	m := shares[0].Value.Len()
	acc := make([]*big.Int, m)
	for e := range acc {
		acc[e] = big.NewInt(0)
	}
	for i, sh := range shares {
		for e := 0; e < m; e++ {
			term := new(big.Int).Mul(coeffs[i], sh.Value.At(e))
			acc[e].Add(acc[e], term)
			acc[e].Mod(acc[e], f.Prime())
		}
	}
	return field.NewArray(f, shape, acc)
}

// Reveal reconstructs a Share's secret by gathering at least k shares and
// Lagrange-interpolating at x=0 (spec.md §4.5 reveal). If dst is dstAll,
// every player all-gathers and every player reconstructs; otherwise only
// dst gathers and reconstructs, and every other caller gets a zero array.
func (s *ShamirBasicSuite) Reveal(a Share, dst int) (field.Array, error) {
	encoded := encodeShare(a)
	if dst == dstAll {
		raw, err := s.comm.AllGather(encoded)
		if err != nil {
			return field.Array{}, cicada.New(cicada.KindTerminated, "shamirsuite.Reveal", err)
		}
		shares, err := decodeShares(s.field, raw)
		if err != nil {
			return field.Array{}, err
		}
		return recombine(s.field, shares), nil
	}

	raw, err := s.comm.Gather(dst, encoded)
	if err != nil {
		return field.Array{}, cicada.New(cicada.KindTerminated, "shamirsuite.Reveal", err)
	}
	if s.comm.Rank() != dst {
		return field.Zeros(s.field, a.Value.Shape()), nil
	}
	shares, err := decodeShares(s.field, raw)
	if err != nil {
		return field.Array{}, err
	}
	return recombine(s.field, shares), nil
}

func encodeShare(a Share) []byte {
	header := make([]byte, 4)
	header[0] = byte(a.Index >> 24)
	header[1] = byte(a.Index >> 16)
	header[2] = byte(a.Index >> 8)
	header[3] = byte(a.Index)
	return append(header, comm.EncodeArray(a.Value)...)
}

func decodeShares(f field.Field, raw [][]byte) ([]Share, error) {
	shares := make([]Share, len(raw))
	for i, buf := range raw {
		if len(buf) < 4 {
			return nil, cicada.New(cicada.KindProtocolError, "shamirsuite.Reveal", errMalformedShare)
		}
		idx := int(buf[0])<<24 | int(buf[1])<<16 | int(buf[2])<<8 | int(buf[3])
		value, err := comm.DecodeArray(f, buf[4:])
		if err != nil {
			return nil, cicada.New(cicada.KindProtocolError, "shamirsuite.Reveal", err)
		}
		shares[i] = Share{Index: idx, Value: value}
	}
	return shares, nil
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// constShare returns every player's local evaluation of the zero-degree
// polynomial P(x) = value: since that polynomial is the constant function,
// every player already "holds" the same value at its own index with zero
// communication, unlike additive sharing's owner-only convention.
func (s *core) constShare(value field.Array) Share {
	return Share{Index: index(s.comm.Rank()), Value: value}
}

// Add returns a share of a's secret plus b's secret, a local field-add of
// same-index evaluations (spec.md §4.5 add). a and b must share an index.
func Add(a, b Share) Share {
	return Share{Index: a.Index, Value: field.Add(a.Value, b.Value)}
}

// Subtract returns a share of a's secret minus b's secret (spec.md §4.5
// subtract).
func Subtract(a, b Share) Share {
	return Share{Index: a.Index, Value: field.Subtract(a.Value, b.Value)}
}

// Negate returns a share of the negation of a's secret (spec.md §4.5
// negate).
func Negate(a Share) Share {
	return Share{Index: a.Index, Value: field.Negative(a.Value)}
}

// ScalarMultiply returns a share of pub*secret, a local scale of a's
// evaluation by a publicly-known array (spec.md §4.5 scalar-multiply).
func ScalarMultiply(pub field.Array, a Share) Share {
	return Share{Index: a.Index, Value: field.Multiply(pub, a.Value)}
}

// Sum reduces a vector Share to a scalar Share via a local field-sum of the
// caller's own evaluation (linear in the secret, like additive's Sum).
func Sum(a Share) Share {
	total := field.Sum(a.Value)
	return Share{Index: a.Index, Value: field.Scalar(a.Value.Field(), total)}
}

// FieldUniform returns a share of a value no single player knows
// (spec.md §4.4 field_uniform): unlike additive sharing, where independent
// per-player draws already sum to a uniform share with no communication,
// a Shamir share must lie on one consistent polynomial, so every player
// contributes its own independently-drawn value via Share and the n
// results are summed — sums of Shamir shares are themselves valid shares
// of the sum of the underlying secrets.
func (s *ShamirBasicSuite) FieldUniform(shape []int) (Share, error) {
	n := s.comm.WorldSize()
	var acc Share
	for i := 0; i < n; i++ {
		var clear field.Array
		if s.comm.Rank() == i {
			clear = s.field.Uniform(shape, cryptoRandGenerator{})
		}
		piece, err := s.Share(i, clear, shape)
		if err != nil {
			return Share{}, err
		}
		if i == 0 {
			acc = piece
			continue
		}
		acc = Add(acc, piece)
	}
	return acc, nil
}
