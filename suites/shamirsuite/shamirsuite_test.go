package shamirsuite_test

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/republicprotocol/co-go"
	"github.com/republicprotocol/cicada/comm"
	"github.com/republicprotocol/cicada/encoding"
	"github.com/republicprotocol/cicada/field"
	"github.com/republicprotocol/cicada/suites/shamirsuite"

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
				Name:             "shamir-test",
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

var _ = Describe("Shamir suite", func() {

	// spec.md §4.5's linear operations (exercised here through Add) over a
	// (k=2, n=4) ShamirBasicSuite.
	It("supports linear operations on a basic suite", func() {
		const n = 4
		const k = 2
		comms := bootstrapWorld(n, 19500)
		defer freeAll(comms)

		f := field.Default()
		ranks := ranksOf(n)
		suites := make([]*shamirsuite.ShamirBasicSuite, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			suites[i], errs[i] = shamirsuite.NewBasic(comms[i], f, k)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		shape := []int{1}
		as := make([]shamirsuite.Share, n)
		bs := make([]shamirsuite.Share, n)
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

		sums := make([]shamirsuite.Share, n)
		co.ParForAll(ranks, func(i int) {
			sums[i] = shamirsuite.Add(as[i], bs[i])
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

	// spec.md §4.5's degree-reduction multiplication: (k=2, n=5)
	// satisfies 2k-1=3<=5, so the full ShamirSuite is constructible.
	It("multiplies via degree reduction", func() {
		const n = 5
		const k = 2
		comms := bootstrapWorld(n, 19520)
		defer freeAll(comms)

		f := field.Default()
		ranks := ranksOf(n)
		suites := make([]*shamirsuite.ShamirSuite, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			suites[i], errs[i] = shamirsuite.New(comms[i], f, k)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		shape := []int{1}
		as := make([]shamirsuite.Share, n)
		bs := make([]shamirsuite.Share, n)
		co.ParForAll(ranks, func(i int) {
			var ca, cb field.Array
			if i == 0 {
				ca = field.NewArray(f, shape, []*big.Int{big.NewInt(6)})
				cb = field.NewArray(f, shape, []*big.Int{big.NewInt(7)})
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

		prods := make([]shamirsuite.Share, n)
		co.ParForAll(ranks, func(i int) {
			prods[i], errs[i] = suites[i].FieldMultiply(as[i], bs[i])
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
			Expect(revealed[i].At(0).Cmp(big.NewInt(42))).To(Equal(0))
		}
	})

	// spec.md §4.4/§4.5 divide against a (k=2, n=5) suite: 10.0 / 4.0
	// should approximate 2.5.
	It("divides two shares", func() {
		const n = 5
		const k = 2
		comms := bootstrapWorld(n, 19540)
		defer freeAll(comms)

		f := field.Default()
		enc := encoding.NewFixedPoint(16)
		ranks := ranksOf(n)
		suites := make([]*shamirsuite.ShamirSuite, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			suites[i], errs[i] = shamirsuite.New(comms[i], f, k)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		shape := []int{1}
		as := make([]shamirsuite.Share, n)
		bs := make([]shamirsuite.Share, n)
		co.ParForAll(ranks, func(i int) {
			var ca, cb field.Array
			if i == 0 {
				ca = enc.Encode(f, []float64{10.0})
				cb = enc.Encode(f, []float64{4.0})
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

		quot := make([]shamirsuite.Share, n)
		co.ParForAll(ranks, func(i int) {
			quot[i], errs[i] = suites[i].Divide(as[i], bs[i], enc)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		revealed := make([]field.Array, n)
		co.ParForAll(ranks, func(i int) {
			revealed[i], errs[i] = suites[i].Reveal(quot[i], -1)
		})
		for i, err := range errs {
			Expect(err).NotTo(HaveOccurred())
			got := enc.Decode(revealed[i])[0]
			Expect(got).To(BeNumerically("~", 2.5, 0.1))
		}
	})

	// spec.md §4.5's construction constraints: a full ShamirSuite with
	// k=3, n=4 violates 2k-1<=n (5<=4 is false).
	It("rejects a construction that violates 2k-1<=n", func() {
		const n = 4
		comms := bootstrapWorld(n, 19560)
		defer freeAll(comms)

		f := field.Default()
		_, err := shamirsuite.New(comms[0], f, 3)
		Expect(err).To(HaveOccurred())
	})
})
