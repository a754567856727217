package additive_test

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/republicprotocol/co-go"
	"github.com/republicprotocol/cicada/comm"
	"github.com/republicprotocol/cicada/encoding"
	"github.com/republicprotocol/cicada/field"
	"github.com/republicprotocol/cicada/suites/additive"

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
				Name:             "additive-test",
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

func newSuites(comms []*comm.Communicator, f field.Field) []*additive.Suite {
	n := len(comms)
	suites := make([]*additive.Suite, n)
	errs := make([]error, n)
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i
	}
	co.ParForAll(ranks, func(i int) {
		suites[i], errs[i] = additive.New(comms[i], f)
	})
	for _, err := range errs {
		Expect(err).NotTo(HaveOccurred())
	}
	return suites
}

func freeAll(comms []*comm.Communicator) {
	for _, c := range comms {
		c.Free()
	}
}

var _ = Describe("Additive suite", func() {

	// spec.md §8 scenario 2: [1,2,3] . [4,5,6] = 32.0.
	It("computes a dot product", func() {
		const n = 3
		comms := bootstrapWorld(n, 19400)
		defer freeAll(comms)

		f := field.Default()
		enc := encoding.NewFixedPoint(16)
		suites := newSuites(comms, f)
		ranks := []int{0, 1, 2}

		xs := []float64{1, 2, 3}
		ys := []float64{4, 5, 6}
		shape := []int{1}

		as := make([][]additive.Share, n)
		bs := make([][]additive.Share, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			s := suites[i]
			as[i] = make([]additive.Share, len(xs))
			bs[i] = make([]additive.Share, len(ys))
			for j := range xs {
				var clear field.Array
				if i == 0 {
					clear = enc.Encode(f, []float64{xs[j]})
				}
				as[i][j], errs[i] = s.Share(0, clear, shape)
				if errs[i] != nil {
					return
				}
				var clearY field.Array
				if i == 0 {
					clearY = enc.Encode(f, []float64{ys[j]})
				}
				bs[i][j], errs[i] = s.Share(0, clearY, shape)
			}
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		dots := make([]additive.Share, n)
		co.ParForAll(ranks, func(i int) {
			dots[i], errs[i] = suites[i].Dot(as[i], bs[i], enc)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		revealed := make([]field.Array, n)
		co.ParForAll(ranks, func(i int) {
			revealed[i], errs[i] = suites[i].Reveal(dots[i], -1)
		})
		for i, err := range errs {
			Expect(err).NotTo(HaveOccurred())
			got := enc.Decode(revealed[i])[0]
			Expect(got).To(BeNumerically("~", 32.0, 0.1))
		}
	})

	// spec.md §8: field 251, FixedPoint(precision=4), secret 3.5
	// decomposes to [0,0,1,1,1,0,0,0].
	It("round-trips a bit decomposition", func() {
		const n = 2
		comms := bootstrapWorld(n, 19420)
		defer freeAll(comms)

		f := field.New(big.NewInt(251))
		enc := encoding.NewFixedPoint(4)
		suites := newSuites(comms, f)
		ranks := []int{0, 1}
		shape := []int{1}

		shares := make([]additive.Share, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			var clear field.Array
			if i == 0 {
				clear = enc.Encode(f, []float64{3.5})
			}
			shares[i], errs[i] = suites[i].Share(0, clear, shape)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		decomposed := make([]additive.Share, n)
		co.ParForAll(ranks, func(i int) {
			decomposed[i], errs[i] = suites[i].BitDecompose(shares[i], uint(f.Bits()))
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		revealed := make([]field.Array, n)
		co.ParForAll(ranks, func(i int) {
			revealed[i], errs[i] = suites[i].Reveal(decomposed[i], -1)
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		want := []int64{0, 0, 1, 1, 1, 0, 0, 0}
		for i := range revealed {
			Expect(revealed[i].Len()).To(Equal(len(want)))
			for b, w := range want {
				Expect(revealed[i].At(b).Cmp(big.NewInt(w))).To(Equal(0))
			}
		}
	})

	// spec.md §8 scenario 1: ranks 0/1/2 hold secret inputs 10/20/15; an
	// iterative Less-based running maximum reveals 20, rank 1's input, as
	// the winning value.
	It("solves a millionaires' problem via an iterative Less-based maximum", func() {
		const n = 3
		comms := bootstrapWorld(n, 19440)
		defer freeAll(comms)

		f := field.Default()
		enc := encoding.NewFixedPoint(16)
		suites := newSuites(comms, f)
		ranks := []int{0, 1, 2}
		shape := []int{1}
		values := []float64{10, 20, 15}

		shares := make([]additive.Share, n)
		errs := make([]error, n)
		co.ParForAll(ranks, func(i int) {
			bids := make([]additive.Share, n)
			for owner := 0; owner < n; owner++ {
				var clear field.Array
				if i == owner {
					clear = enc.Encode(f, []float64{values[owner]})
				}
				bids[owner], errs[i] = suites[i].Share(owner, clear, shape)
				if errs[i] != nil {
					return
				}
			}
			shares[i] = bids[0]
			for owner := 1; owner < n; owner++ {
				less, err := suites[i].Less(shares[i], bids[owner])
				if err != nil {
					errs[i] = err
					return
				}
				notLess := suites[i].LogicalNot(less)
				keepOld, err := suites[i].FieldMultiply(shares[i], notLess)
				if err != nil {
					errs[i] = err
					return
				}
				keepNew, err := suites[i].FieldMultiply(bids[owner], less)
				if err != nil {
					errs[i] = err
					return
				}
				shares[i] = additive.Add(keepOld, keepNew)
			}
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
			got := enc.Decode(revealed[i])[0]
			Expect(got).To(BeNumerically("~", 20.0, 0.1))
		}
	})
})
