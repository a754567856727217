package shamirsuite

import "crypto/rand"

// cryptoRandGenerator adapts crypto/rand.Reader to field.Generator, used
// wherever a player needs to draw a value independently of its peers.
type cryptoRandGenerator struct{}

func (cryptoRandGenerator) Read(p []byte) (int, error) {
	return rand.Read(p)
}
