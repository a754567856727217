// Package field implements modular arithmetic over arrays of arbitrary
// precision integers, mod a prime p. It is the leaf component of Cicada:
// every secret-sharing suite, the encoding layer, and PRZS are built on top
// of the Field and its Array type.
package field

import (
	"crypto/rand"
	"math/big"
)

// DefaultPrime is the largest prime below 2^64. It is the default modulus
// used when a suite is constructed without an explicit Field.
var DefaultPrime = mustPrime("18446744073709551557")

func mustPrime(s string) *big.Int {
	p, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("field: invalid default prime literal")
	}
	if !p.ProbablyPrime(32) {
		panic("field: default prime is not prime")
	}
	return p
}

// Field is the ring of integers modulo a prime p. A Field is an immutable
// value once constructed; all of its methods are pure functions of their
// array arguments.
type Field struct {
	p        *big.Int
	bits     int
	posBound *big.Int
}

// New returns the field of integers modulo prime. It panics if prime is not
// (probably) prime, mirroring the teacher's stance that an invalid modulus
// is a construction-time programmer error, not a recoverable one.
func New(prime *big.Int) Field {
	if prime == nil || !prime.ProbablyPrime(32) {
		panic("field: given prime is probably not prime")
	}
	posBound := new(big.Int).Rsh(prime, 1)
	return Field{
		p:        new(big.Int).Set(prime),
		bits:     prime.BitLen(),
		posBound: posBound,
	}
}

// Default returns the field of integers modulo the largest prime below
// 2^64.
func Default() Field {
	return New(DefaultPrime)
}

// Prime returns the modulus p.
func (f Field) Prime() *big.Int {
	return new(big.Int).Set(f.p)
}

// Bits returns the bit width b = ceil(log2 p).
func (f Field) Bits() int {
	return f.bits
}

// PosBound returns p // 2, the boundary FixedPoint decoding uses to tell
// encoded negative numbers from positive ones.
func (f Field) PosBound() *big.Int {
	return new(big.Int).Set(f.posBound)
}

// InField reports whether v satisfies the field invariant 0 <= v < p.
func (f Field) InField(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(f.p) < 0
}

func (f Field) checkInField(op string, vs ...*big.Int) {
	for _, v := range vs {
		if !f.InField(v) {
			panic("field: precondition violation in " + op + ": value outside [0, p)")
		}
	}
}

func (f Field) reduce(v *big.Int) *big.Int {
	v.Mod(v, f.p)
	return v
}

// addElem sets dst = a + b mod p.
func (f Field) addElem(a, b *big.Int) *big.Int {
	f.checkInField("add", a, b)
	return f.reduce(new(big.Int).Add(a, b))
}

// subElem sets dst = a - b mod p.
func (f Field) subElem(a, b *big.Int) *big.Int {
	f.checkInField("subtract", a, b)
	d := new(big.Int).Sub(a, b)
	return f.reduce(d)
}

// mulElem sets dst = a * b mod p.
func (f Field) mulElem(a, b *big.Int) *big.Int {
	f.checkInField("multiply", a, b)
	return f.reduce(new(big.Int).Mul(a, b))
}

// negElem sets dst = -a mod p.
func (f Field) negElem(a *big.Int) *big.Int {
	f.checkInField("negative", a)
	if a.Sign() == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(f.p, a)
}

// Random draws a single uniformly distributed element of the field using
// rejection sampling from crypto/rand.
func (f Field) Random() *big.Int {
	v, err := rand.Int(rand.Reader, f.p)
	if err != nil {
		// crypto/rand.Int only fails if the modulus is <= 0, which New
		// already rules out.
		panic(err)
	}
	return v
}

// Equal reports whether two Fields share the same modulus.
func (f Field) Equal(other Field) bool {
	return f.p.Cmp(other.p) == 0
}
