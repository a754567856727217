package comm

import (
	"fmt"

	"github.com/republicprotocol/cicada"
)

// Broadcast sends value from root to every other rank, and returns value
// unchanged at root; non-root callers must pass a nil value and receive
// root's value back (spec.md §4.7). Every member must call Broadcast with
// the same root in the same relative order.
func (c *Communicator) Broadcast(root int, value []byte) ([]byte, error) {
	if err := c.checkAlive("Broadcast"); err != nil {
		return nil, err
	}
	if c.rank == root {
		err := fanOutRanks(c.otherRanks(), func(r int) error {
			return c.sendRaw(r, TagBroadcast, value)
		})
		if err != nil {
			return nil, cicada.New(cicada.KindTerminated, "Broadcast", err)
		}
		return value, nil
	}
	return c.recvRaw(root, TagBroadcast)
}

// Gather collects one value from every rank at root, ordered by rank. Non-
// root callers receive a nil slice.
func (c *Communicator) Gather(root int, value []byte) ([][]byte, error) {
	if err := c.checkAlive("Gather"); err != nil {
		return nil, err
	}
	if c.rank != root {
		if err := c.sendRaw(root, TagGather, value); err != nil {
			return nil, cicada.New(cicada.KindTerminated, "Gather", err)
		}
		return nil, nil
	}
	results := make([][]byte, c.worldSize)
	results[root] = value
	ranks := c.otherRanks()
	err := fanOutRanks(ranks, func(r int) error {
		v, err := c.recvRaw(r, TagGather)
		if err != nil {
			return err
		}
		results[r] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Gatherv is Gather restricted to a subset of the world: only the ranks
// listed in sources contribute a value, and only they (plus root) may call
// Gatherv for a given call — every other member sits it out (spec.md §4.7's
// gatherv(dst, value, sources)). The result is indexed the same way as
// sources, not by world rank, since non-member ranks never contributed a
// slot to begin with. Non-root callers must be listed in sources and
// receive a nil slice back.
func (c *Communicator) Gatherv(root int, value []byte, sources []int) ([][]byte, error) {
	if err := c.checkAlive("Gatherv"); err != nil {
		return nil, err
	}
	if c.rank != root {
		if err := c.sendRaw(root, TagGatherv, value); err != nil {
			return nil, cicada.New(cicada.KindTerminated, "Gatherv", err)
		}
		return nil, nil
	}
	results := make([][]byte, len(sources))
	fetch := make([]int, 0, len(sources))
	for i, r := range sources {
		if r == root {
			results[i] = value
			continue
		}
		fetch = append(fetch, r)
	}
	err := fanOutRanks(fetch, func(r int) error {
		v, err := c.recvRaw(r, TagGatherv)
		if err != nil {
			return err
		}
		for i, src := range sources {
			if src == r {
				results[i] = v
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// AllGather is Gather followed by Broadcast of the full result set to every
// member, implemented directly rather than as those two calls so it costs
// one round trip instead of two (spec.md §4.7).
func (c *Communicator) AllGather(value []byte) ([][]byte, error) {
	if err := c.checkAlive("AllGather"); err != nil {
		return nil, err
	}
	ranks := c.otherRanks()
	if err := fanOutRanks(ranks, func(r int) error {
		return c.sendRaw(r, TagAllgather, value)
	}); err != nil {
		return nil, cicada.New(cicada.KindTerminated, "AllGather", err)
	}
	results := make([][]byte, c.worldSize)
	results[c.rank] = value
	if err := fanOutRanks(ranks, func(r int) error {
		v, err := c.recvRaw(r, TagAllgather)
		if err != nil {
			return err
		}
		results[r] = v
		return nil
	}); err != nil {
		return nil, err
	}
	return results, nil
}

// Scatter distributes values (indexed by destination rank, called only at
// root; ignored elsewhere) one element per rank, and returns the caller's
// own share (spec.md §4.7).
func (c *Communicator) Scatter(root int, values [][]byte) ([]byte, error) {
	if err := c.checkAlive("Scatter"); err != nil {
		return nil, err
	}
	if c.rank != root {
		return c.recvRaw(root, TagScatter)
	}
	if len(values) != c.worldSize {
		return nil, cicada.New(cicada.KindPrecondition, "Scatter", fmt.Errorf("expected %d values, got %d", c.worldSize, len(values)))
	}
	ranks := c.otherRanks()
	if err := fanOutRanks(ranks, func(r int) error {
		return c.sendRaw(r, TagScatter, values[r])
	}); err != nil {
		return nil, cicada.New(cicada.KindTerminated, "Scatter", err)
	}
	return values[root], nil
}

// Scatterv is Scatter restricted to a subset of the world: values is
// indexed the same way as destinations (not by world rank), and only the
// ranks listed there receive a piece — every other member sits this call
// out (spec.md §4.7's scatterv(src, values, destinations)). Non-root
// callers must be listed in destinations. If root itself is not in
// destinations, root still performs the distribution but returns nil for
// its own piece.
func (c *Communicator) Scatterv(root int, values [][]byte, destinations []int) ([]byte, error) {
	if err := c.checkAlive("Scatterv"); err != nil {
		return nil, err
	}
	if c.rank != root {
		return c.recvRaw(root, TagScatterv)
	}
	if len(values) != len(destinations) {
		return nil, cicada.New(cicada.KindPrecondition, "Scatterv", fmt.Errorf("expected %d values, got %d", len(destinations), len(values)))
	}
	var own []byte
	fetch := make([]int, 0, len(destinations))
	for i, r := range destinations {
		if r == root {
			own = values[i]
			continue
		}
		fetch = append(fetch, r)
	}
	if err := fanOutRanks(fetch, func(r int) error {
		for i, dst := range destinations {
			if dst == r {
				return c.sendRaw(r, TagScatterv, values[i])
			}
		}
		return nil
	}); err != nil {
		return nil, cicada.New(cicada.KindTerminated, "Scatterv", err)
	}
	return own, nil
}

// Barrier blocks until every member has called Barrier, implemented as a
// gather-then-broadcast at rank 0 (spec.md §4.7).
func (c *Communicator) Barrier() error {
	if err := c.checkAlive("Barrier"); err != nil {
		return err
	}
	if _, err := c.Gather(0, nil); err != nil {
		return err
	}
	_, err := c.Broadcast(0, nil)
	return err
}

func (c *Communicator) otherRanks() []int {
	ranks := make([]int, 0, len(c.peers))
	for _, r := range c.orderedPeerRanks() {
		if r != c.rank {
			ranks = append(ranks, r)
		}
	}
	return ranks
}
