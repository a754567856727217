package active_test

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/republicprotocol/co-go"
	"github.com/republicprotocol/cicada"
	"github.com/republicprotocol/cicada/comm"
	"github.com/republicprotocol/cicada/encoding"
	"github.com/republicprotocol/cicada/field"
	"github.com/republicprotocol/cicada/suites/active"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func bootstrapWorld(n int, basePort int) []*comm.Communicator {
	addrs := make([]string, n)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("tcp://127.0.0.1:%d", basePort+i)
	}
	comms := make([]*comm.Communicator, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(rank int) {
			defer wg.Done()
			c, err := comm.BootstrapDirect(comm.Config{
				Addresses:        addrs,
				Rank:             rank,
				Timeout:          time.Second,
				BootstrapTimeout: 5 * time.Second,
				Name:             "active-test",
			})
			comms[rank] = c
			errs[rank] = err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		Expect(err).NotTo(HaveOccurred())
	}
	return comms
}

func freeAll(comms []*comm.Communicator) {
	for _, c := range comms {
		c.Free()
	}
}

func ranksOf(n int) []int {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i
	}
	return ranks
}

func buildSuites(comms []*comm.Communicator, f field.Field, k int) []*active.Suite {
	n := len(comms)
	suites := make([]*active.Suite, n)
	errs := make([]error, n)
	co.ParForAll(ranksOf(n), func(i int) {
		suites[i], errs[i] = active.New(comms[i], f, k)
	})
	for _, err := range errs {
		Expect(err).NotTo(HaveOccurred())
	}
	return suites
}

var _ = Describe("Active suite", func() {

	// spec.md §4.6's lockstep linear operations over a (k=2, n=5) active
	// suite: add 12 and 30, reveal 42.
	It("adds and reveals two shares in lockstep", func() {
		const n = 5
		const k = 2
		comms := bootstrapWorld(n, 19600)
		defer freeAll(comms)

		f := field.Default()
		suites := buildSuites(comms, f, k)
		ranks := ranksOf(n)

		shape := []int{1}
		as := make([]active.Share, n)
		bs := make([]active.Share, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			var ca, cb field.Array
			if i == 0 {
				ca = field.NewArray(f, shape, []*big.Int{big.NewInt(12)})
				cb = field.NewArray(f, shape, []*big.Int{big.NewInt(30)})
			}
			as[i], errs[i] = suites[i].Share(0, ca, shape)
			if errs[i] != nil {
				return
			}
			bs[i], errs[i] = suites[i].Share(0, cb, shape)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		sums := make([]active.Share, n)
		co.ParForAll(ranks, func(i int) {
			sums[i] = active.Add(as[i], bs[i])
		})

		revealed := make([]field.Array, n)
		co.ParForAll(ranks, func(i int) {
			revealed[i], errs[i] = suites[i].Reveal(sums[i], -1)
		})
		for i, err := range errs {
			Expect(err).NotTo(HaveOccurred())
			Expect(revealed[i].At(0).Cmp(big.NewInt(42))).To(Equal(0))
		}
	})

	// Checks lockstep multiply across both backing suites.
	It("multiplies two shares in lockstep", func() {
		const n = 5
		const k = 2
		comms := bootstrapWorld(n, 19620)
		defer freeAll(comms)

		f := field.Default()
		enc := encoding.NewFixedPoint(16)
		suites := buildSuites(comms, f, k)
		ranks := ranksOf(n)

		shape := []int{1}
		as := make([]active.Share, n)
		bs := make([]active.Share, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			var ca, cb field.Array
			if i == 0 {
				ca = enc.Encode(f, []float64{6.0})
				cb = enc.Encode(f, []float64{7.0})
			}
			as[i], errs[i] = suites[i].Share(0, ca, shape)
			if errs[i] != nil {
				return
			}
			bs[i], errs[i] = suites[i].Share(0, cb, shape)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		prods := make([]active.Share, n)
		co.ParForAll(ranks, func(i int) {
			prods[i], errs[i] = suites[i].Multiply(as[i], bs[i], enc)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		revealed := make([]field.Array, n)
		co.ParForAll(ranks, func(i int) {
			revealed[i], errs[i] = suites[i].Reveal(prods[i], -1)
		})
		for i, err := range errs {
			Expect(err).NotTo(HaveOccurred())
			got := enc.Decode(revealed[i])[0]
			Expect(got).To(BeNumerically("~", 42.0, 0.1))
		}
	})

	// spec.md §8 scenario 3's untampered case: share x=42, reveal yields
	// 42.0 (here as the raw field element 42, no encoding).
	It("reveals an untampered share without error", func() {
		const n = 3
		const k = 2
		comms := bootstrapWorld(n, 19640)
		defer freeAll(comms)

		f := field.Default()
		suites := buildSuites(comms, f, k)
		ranks := ranksOf(n)

		shape := []int{1}
		shares := make([]active.Share, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			var clear field.Array
			if i == 0 {
				clear = field.NewArray(f, shape, []*big.Int{big.NewInt(42)})
			}
			shares[i], errs[i] = suites[i].Share(0, clear, shape)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		revealed := make([]field.Array, n)
		co.ParForAll(ranks, func(i int) {
			revealed[i], errs[i] = suites[i].Reveal(shares[i], -1)
		})
		for i, err := range errs {
			Expect(err).NotTo(HaveOccurred())
			Expect(revealed[i].At(0).Cmp(big.NewInt(42))).To(Equal(0))
		}
	})

	// spec.md §8 scenario 3 and §9's tamper-detection contract: rank 1
	// reaches into its own active share's additive component and mutates
	// it directly (spec.md's "adversary-modified storage" pattern,
	// deliberately outside any exported op), and every player's
	// subsequent Reveal raises ConsistencyError instead of a mismatched
	// value.
	It("raises ConsistencyError when a share's additive half is tampered with", func() {
		const n = 3
		const k = 2
		comms := bootstrapWorld(n, 19660)
		defer freeAll(comms)

		f := field.Default()
		suites := buildSuites(comms, f, k)
		ranks := ranksOf(n)

		shape := []int{1}
		shares := make([]active.Share, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			var clear field.Array
			if i == 0 {
				clear = field.NewArray(f, shape, []*big.Int{big.NewInt(42)})
			}
			shares[i], errs[i] = suites[i].Share(0, clear, shape)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		co.ParForAll(ranks, func(i int) {
			if i != 1 {
				return
			}
			tampered := new(big.Int).Add(shares[i].Additive.Value.At(0), big.NewInt(65536))
			shares[i].Additive.Value = field.NewArray(f, shape, []*big.Int{tampered})
		})

		revealErrs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			_, revealErrs[i] = suites[i].Reveal(shares[i], -1)
		})

		for _, err := range revealErrs {
			Expect(err).To(HaveOccurred())
			var cerr *cicada.Error
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Kind).To(Equal(cicada.KindConsistencyError))
		}
	})
})
