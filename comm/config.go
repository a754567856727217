package comm

import (
	"crypto/tls"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config bundles the construction-time parameters of a Communicator.
// Environment-variable based bootstrap (spec.md §6) is handled entirely by
// ConfigFromEnv; every other constructor takes a Config built directly by
// the caller, keeping the core free of ambient process-environment
// side-effects (see SPEC_FULL.md §3).
type Config struct {
	// Addresses is the complete ordered address list for a Direct
	// bootstrap. Addresses[i] is the address rank i listens on.
	Addresses []string

	// RootAddress is the root player's address for a Rendezvous bootstrap:
	// the address non-root players dial, and the address the root itself
	// listens on. Only meaningful when Addresses is empty.
	RootAddress string

	// Address is this player's own listen address for a Rendezvous
	// bootstrap (ignored by Direct, which takes every address from
	// Addresses). The root's Address must equal RootAddress.
	Address string

	// WorldSize is the total number of players, required by the root of a
	// Rendezvous bootstrap so it knows how many non-root contacts to
	// expect (populated from CICADA_WORLD_SIZE by ConfigFromEnv).
	WorldSize int

	// Rank is this player's rank. For Rendezvous it is only meaningful for
	// the root (rank 0); other players learn their assigned rank from the
	// root during bootstrap.
	Rank int

	// Timeout is the default blocking-operation timeout. Zero means wait
	// forever.
	Timeout time.Duration

	// BootstrapTimeout bounds Direct/Rendezvous bootstrap. Zero means wait
	// forever.
	BootstrapTimeout time.Duration

	// TLS, if non-nil, wraps every peer connection in TLS. verifyTLSRank is
	// consulted in addition to ordinary certificate validation to check
	// the peer's claimed rank against its certificate subject (spec.md
	// §4.7).
	TLS *tls.Config

	// Name is a human-readable label for this communicator, echoed in log
	// messages.
	Name string

	// Logger receives lifecycle and failure events. Defaults to
	// log.Default() when nil.
	Logger *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// ConfigFromEnv builds a Config from the CICADA_* environment variables of
// spec.md §6. CICADA_WORLD_SIZE, CICADA_RANK and CICADA_ADDRESS are required; exactly
// one of CICADA_ROOT_ADDRESS (rendezvous) should be set, or the caller
// should separately populate Addresses for a Direct bootstrap using the
// world size as a hint.
func ConfigFromEnv() (Config, error) {
	var cfg Config

	worldSizeStr := os.Getenv("CICADA_WORLD_SIZE")
	if worldSizeStr == "" {
		return cfg, errMissingEnv("CICADA_WORLD_SIZE")
	}
	worldSize, err := strconv.Atoi(worldSizeStr)
	if err != nil {
		return cfg, errInvalidEnv("CICADA_WORLD_SIZE", err)
	}
	cfg.WorldSize = worldSize

	rankStr := os.Getenv("CICADA_RANK")
	if rankStr == "" {
		return cfg, errMissingEnv("CICADA_RANK")
	}
	rank, err := strconv.Atoi(rankStr)
	if err != nil {
		return cfg, errInvalidEnv("CICADA_RANK", err)
	}
	cfg.Rank = rank

	addr := os.Getenv("CICADA_ADDRESS")
	if addr == "" {
		return cfg, errMissingEnv("CICADA_ADDRESS")
	}
	cfg.Address = addr

	cfg.RootAddress = os.Getenv("CICADA_ROOT_ADDRESS")
	if cfg.RootAddress == "" && cfg.Rank == 0 {
		cfg.RootAddress = addr
	}

	if identity := os.Getenv("CICADA_IDENTITY"); identity != "" {
		cert, err := tls.LoadX509KeyPair(identity+".crt", identity+".key")
		if err == nil {
			if cfg.TLS == nil {
				cfg.TLS = &tls.Config{}
			}
			cfg.TLS.Certificates = []tls.Certificate{cert}
		}
	}
	if trusted := os.Getenv("CICADA_TRUSTED"); trusted != "" {
		_ = strings.Split(trusted, string(os.PathListSeparator))
		// The path list is split but no certificates are loaded from it:
		// trust roots on the returned Config's TLS field are left to the
		// caller to set.
	}

	return cfg, nil
}
