package shamirsuite_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestShamirsuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Shamirsuite Suite")
}
