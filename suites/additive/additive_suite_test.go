package additive_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAdditive(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Additive Suite")
}
