package active

import (
	"crypto/sha256"
	"io"
	"math/big"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"

	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/comm"
)

// streamGenerator adapts a chacha20.Cipher to field.Generator, the same
// trick przs.streamGenerator uses — kept as a small unexported duplicate
// here since that type isn't exported across package boundaries.
type streamGenerator struct {
	cipher *chacha20.Cipher
}

func (g streamGenerator) Read(p []byte) (int, error) {
	zero := make([]byte, len(p))
	g.cipher.XORKeyStream(p, zero)
	return len(p), nil
}

// combiningCoefficients derives m public field coefficients, identical at
// every player, for verify's batched consistency check (spec.md §4.6,
// SPEC_FULL.md §4.6). Each player's contribution is drawn from its own
// Przs stream (so no player's input is predictable to its peers ahead of
// time) and combined via a commit-reveal coin flip over two AllGather
// collectives: every player first commits to a hash
// of its draw, only exchanging the raw values once every commitment is in,
// so nobody can choose its contribution after seeing anyone else's. The
// folded result seeds a deterministic chacha20 stream that every player
// expands identically into the m coefficients — this is what keeps any
// single player from unilaterally picking the combining coefficients.
func (s *Suite) combiningCoefficients(m int) ([]*big.Int, error) {
	local := s.przs.Next([]int{4})
	localBytes := comm.EncodeArray(local)
	commitment := sha256.Sum256(localBytes)

	commits, err := s.comm.AllGather(commitment[:])
	if err != nil {
		return nil, cicada.New(cicada.KindTerminated, "active.combiningCoefficients", err)
	}
	reveals, err := s.comm.AllGather(localBytes)
	if err != nil {
		return nil, cicada.New(cicada.KindTerminated, "active.combiningCoefficients", err)
	}

	folded := sha256.New()
	for i, raw := range reveals {
		check := sha256.Sum256(raw)
		if string(check[:]) != string(commits[i]) {
			return nil, cicada.New(cicada.KindProtocolError, "active.combiningCoefficients", errCommitMismatch)
		}
		folded.Write(raw)
	}
	seed := folded.Sum(nil)

	kdf := hkdf.New(sha256.New, seed, nil, []byte("cicada-active-verify"))
	key := make([]byte, chacha20.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, cicada.New(cicada.KindPrecondition, "active.combiningCoefficients", err)
	}
	nonce := make([]byte, chacha20.NonceSize)
	cipher, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, cicada.New(cicada.KindPrecondition, "active.combiningCoefficients", err)
	}

	arr := s.field.Uniform([]int{m}, streamGenerator{cipher})
	coeffs := make([]*big.Int, m)
	for i := 0; i < m; i++ {
		coeffs[i] = arr.At(i)
	}
	return coeffs, nil
}
