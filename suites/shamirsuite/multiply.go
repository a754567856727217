package shamirsuite

import (
	"math/big"
	"sync"

	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/comm"
	"github.com/republicprotocol/cicada/encoding"
	"github.com/republicprotocol/cicada/field"
)

// allToAllReshare has every player deal its own share h at a fresh
// degree-(k-1) polynomial to every other player, and returns, for each
// dealer rank i, the evaluation that dealer's polynomial produced at the
// caller's own index. Combining these n contributions with the Lagrange
// coefficients of the original n evaluation points (spec.md §4.5's
// degree-reduction step) yields a degree-(k-1) share of h's original
// constant term, grounded on shamir.Split/Join generalized from a single
// dealer to all n players dealing simultaneously.
func (s *ShamirSuite) allToAllReshare(h Share) ([]field.Array, error) {
	n := s.comm.WorldSize()
	rank := s.comm.Rank()
	shape := h.Value.Shape()
	m := size(shape)

	coeffs := make([][]*big.Int, m)
	for e := range coeffs {
		coeffs[e] = randomPolynomial(s.field, s.k-1, h.Value.At(e))
	}
	evalFor := func(r int) field.Array {
		values := make([]*big.Int, m)
		x := bigIndex(r)
		for e := 0; e < m; e++ {
			values[e] = evaluatePoly(s.field, coeffs[e], x)
		}
		return field.NewArray(s.field, shape, values)
	}

	received := make([]field.Array, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for r := 0; r < n; r++ {
		if r == rank {
			received[rank] = evalFor(rank)
			continue
		}
		wg.Add(2)
		go func(r int) {
			defer wg.Done()
			errs[r] = s.comm.SendReserved(r, comm.TagShamirReduce, comm.EncodeArray(evalFor(r)))
		}(r)
		go func(r int) {
			defer wg.Done()
			buf, err := s.comm.RecvReserved(r, comm.TagShamirReduce)
			if err != nil {
				errs[r] = err
				return
			}
			v, err := comm.DecodeArray(s.field, buf)
			if err != nil {
				errs[r] = err
				return
			}
			received[r] = v
		}(r)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, cicada.New(cicada.KindTerminated, "shamirsuite.allToAllReshare", err)
		}
	}
	return received, nil
}

// FieldMultiply returns a degree-(k-1) share of a's secret times b's
// secret (spec.md §4.5 field_multiply via degree reduction). The local
// product a.Value*b.Value is an evaluation of a degree-2(k-1) polynomial;
// every player reshares its evaluation at a fresh lower-degree polynomial,
// and the n resulting contributions are recombined with the Lagrange
// coefficients of the original n points, which is valid because
// 2k-1 <= n (checked at construction).
func (s *ShamirSuite) FieldMultiply(a, b Share) (Share, error) {
	if a.Index != b.Index {
		return Share{}, cicada.New(cicada.KindPrecondition, "shamirsuite.FieldMultiply", errIndexMismatch)
	}
	h := Share{Index: a.Index, Value: field.Multiply(a.Value, b.Value)}

	pieces, err := s.allToAllReshare(h)
	if err != nil {
		return Share{}, err
	}

	n := s.comm.WorldSize()
	xs := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		xs[i] = bigIndex(i)
	}
	coeffs := lagrangeCoeffsAtZero(s.field, xs)

	shape := h.Value.Shape()
	m := size(shape)
	acc := make([]*big.Int, m)
	for e := range acc {
		acc[e] = big.NewInt(0)
	}
	for i := 0; i < n; i++ {
		for e := 0; e < m; e++ {
			term := new(big.Int).Mul(coeffs[i], pieces[i].At(e))
			acc[e].Add(acc[e], term)
			acc[e].Mod(acc[e], s.field.Prime())
		}
	}
	return Share{Index: a.Index, Value: field.NewArray(s.field, shape, acc)}, nil
}

// Multiply is field_multiply followed by a right_shift of enc's precision
// (spec.md §4.4/§4.5 multiply).
func (s *ShamirSuite) Multiply(a, b Share, enc encoding.FixedPoint) (Share, error) {
	prod, err := s.FieldMultiply(a, b)
	if err != nil {
		return Share{}, err
	}
	return s.RightShift(prod, enc.Precision)
}

// Dot returns the truncated sum of field_multiply over as and bs
// (spec.md §4.4 dot).
func (s *ShamirSuite) Dot(as, bs []Share, enc encoding.FixedPoint) (Share, error) {
	if len(as) != len(bs) {
		return Share{}, cicada.New(cicada.KindPrecondition, "shamirsuite.Dot", errMismatchedLength)
	}
	if len(as) == 0 {
		return Share{}, cicada.New(cicada.KindPrecondition, "shamirsuite.Dot", errEmptyOperand)
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
