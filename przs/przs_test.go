package przs_test

import (
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/republicprotocol/co-go"
	"github.com/republicprotocol/cicada/comm"
	"github.com/republicprotocol/cicada/field"
	"github.com/republicprotocol/cicada/przs"
)

func bootstrapWorld(t *testing.T, n int) []*comm.Communicator {
	t.Helper()
	addrs := make([]string, n)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("tcp://127.0.0.1:%d", 19300+i)
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
				Name:             "przs-test",
			})
			comms[rank] = c
			errs[rank] = err
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("rank %d bootstrap failed: %v", i, err)
		}
	}
	return comms
}

func TestPrzsCancellation(t *testing.T) {
	const n = 3
	comms := bootstrapWorld(t, n)
	defer func() {
		for _, c := range comms {
			c.Free()
		}
	}()

	f := field.New(big.NewInt(251))
	generators := make([]*przs.Przs, n)
	errs := make([]error, n)
	ranks := []int{0, 1, 2}
	co.ParForAll(ranks, func(i int) {
		generators[i], errs[i] = przs.Setup(comms[i], f)
	})
	for i, err := range errs {
		if err != nil {
			t.Fatalf("rank %d przs setup failed: %v", i, err)
		}
	}

	outputs := make([]field.Array, n)
	co.ParForAll(ranks, func(i int) {
		outputs[i] = generators[i].Next([]int{4})
	})

	sum := outputs[0]
	for i := 1; i < n; i++ {
		sum = field.Add(sum, outputs[i])
	}
	zero := field.Zeros(f, []int{4})
	if !field.Equal(sum, zero) {
		t.Fatalf("expected sum of przs outputs to be zero, got %v", sum)
	}
}
