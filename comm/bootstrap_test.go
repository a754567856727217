package comm_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/republicprotocol/co-go"
	"github.com/republicprotocol/cicada/comm"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// bootstrapWorld resolves each rank's own listen address independently from
// cfg.Addresses[rank], so every player needs a known port up front —
// ephemeral (:0) ports would create a chicken-and-egg problem in a Direct
// mesh test.
func bootstrapWorld(n int, timeout time.Duration) []*comm.Communicator {
	addrs := make([]string, n)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("tcp://127.0.0.1:%d", 19200+i)
	}

	comms := make([]*comm.Communicator, n)
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func(rank int) {
			defer wg.Done()
			c, err := comm.BootstrapDirect(comm.Config{
				Addresses:        addrs,
				Rank:             rank,
				Timeout:          timeout,
				BootstrapTimeout: 5 * time.Second,
				Name:             "test",
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
		if c != nil {
			c.Free()
		}
	}
}

var _ = Describe("Communicator", func() {

	It("bootstraps a direct mesh and exchanges a point-to-point message", func() {
		comms := bootstrapWorld(3, time.Second)
		defer freeAll(comms)

		for _, c := range comms {
			Expect(c.WorldSize()).To(Equal(3))
		}

		var wg sync.WaitGroup
		wg.Add(2)
		var recvErr, sendErr error
		var got []byte
		go func() {
			defer wg.Done()
			got, recvErr = comms[1].Recv(0, comm.FirstUserTag+42)
		}()
		go func() {
			defer wg.Done()
			sendErr = comms[0].Send(1, comm.FirstUserTag+42, []byte("hello"))
		}()
		wg.Wait()

		Expect(sendErr).NotTo(HaveOccurred())
		Expect(recvErr).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal("hello"))
	})

	It("preserves FIFO ordering per tag", func() {
		comms := bootstrapWorld(2, time.Second)
		defer freeAll(comms)

		const n = 20
		go func() {
			for i := 0; i < n; i++ {
				comms[0].Send(1, comm.FirstUserTag+7, []byte{byte(i)})
			}
		}()

		for i := 0; i < n; i++ {
			got, err := comms[1].Recv(0, comm.FirstUserTag+7)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]byte{byte(i)}))
		}
	})

	It("times out a Recv with no matching Send", func() {
		comms := bootstrapWorld(2, 50*time.Millisecond)
		defer freeAll(comms)

		_, err := comms[1].Recv(0, comm.FirstUserTag+99)
		Expect(err).To(HaveOccurred())
	})

	It("broadcasts a value from root to every other rank", func() {
		comms := bootstrapWorld(3, time.Second)
		defer freeAll(comms)

		ranks := []int{0, 1, 2}
		results := make([][]byte, 3)
		errs := make([]error, 3)
		co.ParForAll(ranks, func(i int) {
			if i == 0 {
				results[i], errs[i] = comms[i].Broadcast(0, []byte("payload"))
				return
			}
			results[i], errs[i] = comms[i].Broadcast(0, nil)
		})

		for i, err := range errs {
			Expect(err).NotTo(HaveOccurred())
			Expect(string(results[i])).To(Equal("payload"))
		}
	})

	It("all-gathers one value from every rank at every rank, ordered by rank", func() {
		comms := bootstrapWorld(3, time.Second)
		defer freeAll(comms)

		ranks := []int{0, 1, 2}
		results := make([][][]byte, 3)
		errs := make([]error, 3)
		co.ParForAll(ranks, func(i int) {
			results[i], errs[i] = comms[i].AllGather([]byte{byte(i)})
		})

		for i, rs := range results {
			Expect(errs[i]).NotTo(HaveOccurred())
			for j, v := range rs {
				Expect(v).To(Equal([]byte{byte(j)}))
			}
		}
	})

	It("gathers only a named subset of ranks with Gatherv", func() {
		comms := bootstrapWorld(4, time.Second)
		defer freeAll(comms)

		// Only ranks 0, 2, 3 participate; rank 1 sits this call out
		// entirely and must never be asked to send anything.
		sources := []int{0, 2, 3}
		results := make([][][]byte, 4)
		errs := make([]error, 4)
		co.ParForAll(sources, func(idx int) {
			rank := sources[idx]
			results[rank], errs[rank] = comms[rank].Gatherv(0, []byte{byte(rank)}, sources)
		})

		Expect(errs[0]).NotTo(HaveOccurred())
		Expect(results[0]).To(HaveLen(len(sources)))
		for idx, src := range sources {
			Expect(results[0][idx]).To(Equal([]byte{byte(src)}))
		}
		Expect(errs[2]).NotTo(HaveOccurred())
		Expect(results[2]).To(BeNil())
		Expect(errs[3]).NotTo(HaveOccurred())
		Expect(results[3]).To(BeNil())
	})

	It("scatters only to a named subset of ranks with Scatterv", func() {
		comms := bootstrapWorld(4, time.Second)
		defer freeAll(comms)

		// Root (0) distributes to 1 and 3 only; rank 2 never receives
		// a piece and never calls Scatterv.
		destinations := []int{0, 1, 3}
		values := [][]byte{{10}, {11}, {13}}

		var ownRoot, own1, own3 []byte
		var errRoot, err1, err3 error
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			ownRoot, errRoot = comms[0].Scatterv(0, values, destinations)
		}()
		go func() {
			defer wg.Done()
			own1, err1 = comms[1].Scatterv(0, nil, destinations)
		}()
		go func() {
			defer wg.Done()
			own3, err3 = comms[3].Scatterv(0, nil, destinations)
		}()
		wg.Wait()

		Expect(errRoot).NotTo(HaveOccurred())
		Expect(ownRoot).To(Equal([]byte{10}))
		Expect(err1).NotTo(HaveOccurred())
		Expect(own1).To(Equal([]byte{11}))
		Expect(err3).NotTo(HaveOccurred())
		Expect(own3).To(Equal([]byte{13}))
	})

	It("blocks every member at a barrier until all have arrived", func() {
		comms := bootstrapWorld(3, time.Second)
		defer freeAll(comms)

		ranks := []int{0, 1, 2}
		errs := make([]error, 3)
		co.ParForAll(ranks, func(i int) {
			errs[i] = comms[i].Barrier()
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("propagates a revocation to blocked peers", func() {
		comms := bootstrapWorld(2, time.Second)
		defer freeAll(comms)

		Expect(comms[0].Revoke()).NotTo(HaveOccurred())
		Expect(comms[0].Send(1, 1, nil)).To(HaveOccurred())
		_, err := comms[1].Recv(0, 1)
		Expect(err).To(HaveOccurred())
	})

	It("partitions members into sub-communicators by Split name", func() {
		comms := bootstrapWorld(4, 2*time.Second)
		defer freeAll(comms)

		names := []string{"a", "a", "b", ""}
		ranks := []int{0, 1, 2, 3}
		subs := make([]*comm.Communicator, 4)
		errs := make([]error, 4)
		co.ParForAll(ranks, func(i int) {
			subs[i], errs[i] = comms[i].Split(names[i])
		})
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
		defer freeAll(subs)

		Expect(subs[0]).NotTo(BeNil())
		Expect(subs[1]).NotTo(BeNil())
		Expect(subs[0].WorldSize()).To(Equal(2))
		Expect(subs[2]).NotTo(BeNil())
		Expect(subs[2].WorldSize()).To(Equal(1))
		Expect(subs[3]).To(BeNil())
	})
})
