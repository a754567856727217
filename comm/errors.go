package comm

import (
	"fmt"

	"github.com/republicprotocol/cicada"
)

func errMissingEnv(name string) error {
	return cicada.New(cicada.KindPrecondition, "ConfigFromEnv", fmt.Errorf("missing required environment variable %s", name))
}

func errInvalidEnv(name string, cause error) error {
	return cicada.New(cicada.KindPrecondition, "ConfigFromEnv", fmt.Errorf("invalid environment variable %s: %w", name, cause))
}
