package additive

import (
	"math/big"

	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/field"
)

func productShape(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// xorPublic combines a value every player already knows (pub) with a share,
// entirely locally: pub + a - 2*pub*a, with pub folded in via constShare so
// it is counted exactly once across all players' pieces.
func (s *Suite) xorPublic(pub field.Array, a Share) Share {
	two := field.Full(s.field, pub.Shape(), big.NewInt(2))
	coeff := field.Subtract(field.Ones(s.field, pub.Shape()), field.Multiply(two, pub))
	return Add(s.constShare(pub, tripleDealer), Share{Value: field.Multiply(coeff, a.Value)})
}

// andPublic is pub*a, a local scalar-array multiply that needs no round
// since every player can scale its own piece by the publicly-known value.
func (s *Suite) andPublic(pub field.Array, a Share) Share {
	return Share{Value: field.Multiply(pub, a.Value)}
}

// notShare is NOT a = 1-a (spec.md §4.4 logical_not), free via constShare.
func (s *Suite) notShare(a Share) Share {
	return Subtract(s.constShare(field.Ones(s.field, a.Value.Shape()), tripleDealer), a)
}

// LogicalXor is a XOR b = a+b-2ab for bit shares (spec.md §4.4).
func (s *Suite) LogicalXor(a, b Share) (Share, error) {
	prod, err := s.FieldMultiply(a, b)
	if err != nil {
		return Share{}, err
	}
	two := field.Full(s.field, a.Value.Shape(), big.NewInt(2))
	return Subtract(Add(a, b), Share{Value: field.Multiply(two, prod.Value)}), nil
}

// LogicalAnd is a AND b = a*b for bit shares (spec.md §4.4).
func (s *Suite) LogicalAnd(a, b Share) (Share, error) {
	return s.FieldMultiply(a, b)
}

// LogicalOr is a OR b = a+b-ab, derived from LogicalAnd (spec.md §4.4).
func (s *Suite) LogicalOr(a, b Share) (Share, error) {
	prod, err := s.FieldMultiply(a, b)
	if err != nil {
		return Share{}, err
	}
	return Subtract(Add(a, b), prod), nil
}

// LogicalNot is NOT a = 1-a for a bit share (spec.md §4.4).
func (s *Suite) LogicalNot(a Share) Share {
	return s.notShare(a)
}

// RandomBitwiseSecret produces a joint random bit vector and the integer it
// encodes, shares of neither known to any single player (spec.md §4.4):
// every player privately draws its own random bit vector and secret-shares
// it, and the n contributions are combined with a chain of LogicalXor, so
// the final coin depends on every player's input rather than one dealer's.
func (s *Suite) RandomBitwiseSecret(bits uint, shape []int) (Share, Share, error) {
	fullShape := append(append([]int(nil), shape...), int(bits))
	n := s.comm.WorldSize()

	var acc Share
	for i := 0; i < n; i++ {
		var clear field.Array
		if s.comm.Rank() == i {
			clear = s.field.UniformPow2(fullShape, cryptoRandGenerator{})
		}
		piece, err := s.Share(i, clear, fullShape)
		if err != nil {
			return Share{}, Share{}, err
		}
		if i == 0 {
			acc = piece
			continue
		}
		next, err := s.LogicalXor(acc, piece)
		if err != nil {
			return Share{}, Share{}, err
		}
		acc = next
	}

	intShare, err := s.BitCompose(acc)
	if err != nil {
		return Share{}, Share{}, err
	}
	return acc, intShare, nil
}

// BitCompose collapses a share's trailing bit axis (big-endian) back into
// the integer it encodes (spec.md §4.4 bit_compose), a local weighted sum
// since multiplying a share by the public constant 2^k never needs a round.
func (s *Suite) BitCompose(bitsShare Share) (Share, error) {
	shape := bitsShare.Value.Shape()
	if len(shape) == 0 {
		return Share{}, cicada.New(cicada.KindPrecondition, "additive.BitCompose", errNoBitAxis)
	}
	bits := shape[len(shape)-1]
	outShape := append([]int(nil), shape[:len(shape)-1]...)
	n := productShape(outShape)

	values := make([]*big.Int, n)
	for e := 0; e < n; e++ {
		acc := big.NewInt(0)
		for b := 0; b < bits; b++ {
			weight := new(big.Int).Lsh(big.NewInt(1), uint(bits-1-b))
			term := new(big.Int).Mul(bitsShare.Value.At(e*bits+b), weight)
			acc.Add(acc, term)
		}
		values[e] = reduceElem(s.field, acc)
	}
	return Share{Value: field.NewArray(s.field, outShape, values)}, nil
}

// decomposeClearBits splits every element of a public array into its
// big-endian bits (index 0 = most significant), each returned as its own
// field.Array of masked's shape.
func decomposeClearBits(f field.Field, masked field.Array, bits int) []field.Array {
	shape := masked.Shape()
	n := masked.Len()
	perBit := make([]field.Array, bits)
	columns := make([][]*big.Int, bits)
	for i := range columns {
		columns[i] = make([]*big.Int, n)
	}
	for e := 0; e < n; e++ {
		v := masked.At(e)
		for i := 0; i < bits; i++ {
			bit := new(big.Int).Rsh(v, uint(bits-1-i))
			bit.And(bit, big.NewInt(1))
			columns[i][e] = bit
		}
	}
	for i := 0; i < bits; i++ {
		perBit[i] = field.NewArray(f, shape, columns[i])
	}
	return perBit
}

// extractBit pulls bit index i (0 = most significant) out of a share with a
// trailing bit axis, returning a share of shape's shape.
func (s *Suite) extractBit(bitsShare Share, shape []int, bits int, i int) Share {
	n := productShape(shape)
	values := make([]*big.Int, n)
	for e := 0; e < n; e++ {
		values[e] = bitsShare.Value.At(e*bits + i)
	}
	return Share{Value: field.NewArray(s.field, shape, values)}
}

// subtractBitwise computes the big-endian bit shares of cBits - rBits via a
// ripple-borrow subtractor: cBits is public (every player holds the same
// clear value), rBits is a share, so only the borrow chain — which mixes
// two shares together once it leaves the first (publicly zero) step —
// costs a multiplication round; everything touching only a public operand
// is free. This is the O(bits)-round cost spec.md §4.4 documents for
// bit_decompose.
func (s *Suite) subtractBitwise(cBits []field.Array, rBits Share, shape []int, bits int) (Share, error) {
	n := productShape(shape)
	rBitSlices := make([]field.Array, bits)
	for i := 0; i < bits; i++ {
		values := make([]*big.Int, n)
		for e := 0; e < n; e++ {
			values[e] = rBits.Value.At(e*bits + i)
		}
		rBitSlices[i] = field.NewArray(s.field, shape, values)
	}

	diffBits := make([]field.Array, bits)
	borrow := field.Zeros(s.field, shape)

	for i := bits - 1; i >= 0; i-- {
		cPub := cBits[i]
		rShare := Share{Value: rBitSlices[i]}
		borrowShare := Share{Value: borrow}

		// diff_i = c_i XOR r_i XOR borrow_i
		rXorBorrow, err := s.LogicalXor(rShare, borrowShare)
		if err != nil {
			return Share{}, err
		}
		diffBits[i] = s.xorPublic(cPub, rXorBorrow).Value

		// borrow_{i+1} = (NOT c_i AND r_i) OR (borrow_i AND NOT(c_i XOR r_i))
		cXorR := s.xorPublic(cPub, rShare)
		notCXorR := s.notShare(cXorR)
		notCPub := field.Subtract(field.Ones(s.field, shape), cPub)
		term1 := s.andPublic(notCPub, rShare)
		term2, err := s.LogicalAnd(borrowShare, notCXorR)
		if err != nil {
			return Share{}, err
		}
		borrowNext, err := s.LogicalOr(term1, term2)
		if err != nil {
			return Share{}, err
		}
		borrow = borrowNext.Value
	}

	data := make([]*big.Int, n*bits)
	for e := 0; e < n; e++ {
		for i := 0; i < bits; i++ {
			data[e*bits+i] = diffBits[i].At(e)
		}
	}
	return Share{Value: field.NewArray(s.field, append(append([]int(nil), shape...), bits), data)}, nil
}

// BitDecompose produces the big-endian bits of a's field representation
// (spec.md §4.4 bit_decompose): a random bitwise secret masks a, the masked
// value is opened, and a ripple-borrow subtractor recovers a's bits from
// the public masked bits and the shared mask bits without ever revealing a.
// bits defaults to the field's own bit width when the caller wants a full
// decomposition; a narrower width is valid whenever a is known to fit
// (e.g. sign/comparison helpers that only need the top bits).
func (s *Suite) BitDecompose(a Share, bits uint) (Share, error) {
	shape := a.Value.Shape()
	rBits, rInt, err := s.RandomBitwiseSecret(bits, shape)
	if err != nil {
		return Share{}, err
	}

	masked, err := s.Reveal(Add(a, rInt), dstAll)
	if err != nil {
		return Share{}, cicada.New(cicada.KindTerminated, "additive.BitDecompose", err)
	}

	cBits := decomposeClearBits(s.field, masked, int(bits))
	return s.subtractBitwise(cBits, rBits, shape, int(bits))
}

// LessZero reports (as a share of 0/1) whether a is negative, by
// bit-decomposing a over the full field width and reading off the sign bit
// (spec.md §4.4 less_zero). Less(a, b) is LessZero(a-b) with a local
// subtraction, so LessZero(a) costs the same as Less(a, zero).
func (s *Suite) LessZero(a Share) (Share, error) {
	bits := uint(s.field.Bits())
	decomposed, err := s.BitDecompose(a, bits)
	if err != nil {
		return Share{}, err
	}
	return s.extractBit(decomposed, a.Value.Shape(), int(bits), 0), nil
}

// Less reports (as a share of 0/1) whether a < b, via LessZero(a-b)
// (spec.md §4.4 less).
func (s *Suite) Less(a, b Share) (Share, error) {
	return s.LessZero(Subtract(a, b))
}

// Equal reports (as a share of 0/1) whether a == b, via bit_decompose of
// a-b and a NOR fold across its bits (spec.md §4.4 equal).
func (s *Suite) Equal(a, b Share) (Share, error) {
	bits := uint(s.field.Bits())
	decomposed, err := s.BitDecompose(Subtract(a, b), bits)
	if err != nil {
		return Share{}, err
	}

	shape := a.Value.Shape()
	acc := s.notShare(s.extractBit(decomposed, shape, int(bits), 0))
	for i := 1; i < int(bits); i++ {
		notBit := s.notShare(s.extractBit(decomposed, shape, int(bits), i))
		next, err := s.LogicalAnd(acc, notBit)
		if err != nil {
			return Share{}, err
		}
		acc = next
	}
	return acc, nil
}
