// Package przs implements Pseudo-Random Zero Sharing (spec.md §4.3): at
// suite construction each player exchanges a fresh 128-bit seed with its
// right neighbour, then derives a pair of deterministic stream generators
// from the seeds it holds with its left and right neighbours. Every
// subsequent przs(shape) call produces correlated noise that sums to zero
// across all players, without any further communication.
package przs

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"

	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/comm"
	"github.com/republicprotocol/cicada/field"
)

func sha256New() hash.Hash { return sha256.New() }

const seedSize = 16

// TagSeedExchange is the reserved Communicator tag the initial seed
// exchange rides over (spec.md §4.3 step 1).
const TagSeedExchange = comm.TagPrzsSeed

// Przs holds one player's left/right PRNG pair, fixed for the lifetime of
// a suite. Every call advances the same two shared cipher streams and Przs
// does no locking of its own, so it is not safe for concurrent use: calls
// from several goroutines must be serialized by the caller (mirroring
// Communicator's own collectives contract).
type Przs struct {
	field  field.Field
	gLeft  *chacha20.Cipher
	gRight *chacha20.Cipher
}

// Setup performs the seed exchange of spec.md §4.3 step 1 over c (using
// TagSeedExchange) and returns the resulting Przs generator pair. It must
// be called exactly once per suite construction, by every player in c.
func Setup(c *comm.Communicator, f field.Field) (*Przs, error) {
	n := c.WorldSize()
	rank := c.Rank()
	if n < 2 {
		return nil, cicada.New(cicada.KindPrecondition, "przs.Setup", fmt.Errorf("przs requires at least 2 players"))
	}

	mySeed := make([]byte, seedSize)
	if _, err := rand.Read(mySeed); err != nil {
		return nil, cicada.New(cicada.KindPrecondition, "przs.Setup", err)
	}

	right := (rank + 1) % n
	left := (rank - 1 + n) % n

	var seedFromLeft []byte
	var sendErr, recvErr error
	done := make(chan struct{})
	go func() {
		sendErr = c.SendReserved(right, TagSeedExchange, mySeed)
		close(done)
	}()
	seedFromLeft, recvErr = c.RecvReserved(left, TagSeedExchange)
	<-done

	if sendErr != nil {
		return nil, cicada.New(cicada.KindTerminated, "przs.Setup", sendErr)
	}
	if recvErr != nil {
		return nil, cicada.New(cicada.KindTerminated, "przs.Setup", recvErr)
	}

	// Both ends of a pair link must derive byte-for-byte the same cipher
	// from the shared seed: player i calls this its "right" generator and
	// player i+1 calls the identical stream its "left" generator, so the
	// HKDF info string here must not depend on which side is deriving it
	// (see DESIGN.md — an earlier direction-tagged derivation broke the
	// ring-cancellation invariant).
	gLeft, err := newStream(seedFromLeft)
	if err != nil {
		return nil, cicada.New(cicada.KindPrecondition, "przs.Setup", err)
	}
	gRight, err := newStream(mySeed)
	if err != nil {
		return nil, cicada.New(cicada.KindPrecondition, "przs.Setup", err)
	}

	return &Przs{field: f, gLeft: gLeft, gRight: gRight}, nil
}

// newStream derives a chacha20 keystream from a raw pair-link seed via
// HKDF. The two players holding the same seed must call this identically
// to get the same stream back (see Setup).
func newStream(seed []byte) (*chacha20.Cipher, error) {
	kdf := hkdf.New(sha256New, seed, nil, []byte("cicada-przs"))
	key := make([]byte, chacha20.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20.NonceSize)
	return chacha20.NewUnauthenticatedCipher(key, nonce)
}

// streamGenerator adapts a chacha20.Cipher to field.Generator.
type streamGenerator struct {
	cipher *chacha20.Cipher
}

func (g streamGenerator) Read(p []byte) (int, error) {
	zero := make([]byte, len(p))
	g.cipher.XORKeyStream(p, zero)
	return len(p), nil
}

// Next draws one field-array of the given shape from the left/right stream
// pair: G_L.next(shape) - G_R.next(shape) mod p. Summed in a ring across
// every player's identical call sequence, the terms cancel to zero
// (spec.md §4.3).
func (p *Przs) Next(shape []int) field.Array {
	l := p.field.Uniform(shape, streamGenerator{p.gLeft})
	r := p.field.Uniform(shape, streamGenerator{p.gRight})
	return field.Subtract(l, r)
}

// NextPow2 is Next restricted to power-of-two masking (bits only), used
// where PRZS feeds a bitwise masking protocol rather than a general field
// element (spec.md §4.1's uniform_pow2).
func (p *Przs) NextPow2(shape []int) field.Array {
	l := p.field.UniformPow2(shape, streamGenerator{p.gLeft})
	r := p.field.UniformPow2(shape, streamGenerator{p.gRight})
	return field.Subtract(l, r)
}
