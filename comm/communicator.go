// Package comm implements Cicada's socket-based communicator: MPI-style
// point-to-point and collective messaging with timeouts, cancellation,
// failure detection, dynamic membership, and optional TLS (spec.md §4.7).
//
// Internally each peer connection is owned by one reader goroutine
// (peer.readLoop) draining netstring-framed messages into per-tag FIFO
// queues, following the one-I/O-thread-per-connection shape of the
// teacher's core/node package. The public API is entirely synchronous —
// there is no exposed async surface, matching spec.md §5.
package comm

import (
	"fmt"
	"log"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/republicprotocol/co-go"
	"github.com/republicprotocol/cicada"
)

// Communicator is one player's handle onto an MPI-style group. It is safe
// for concurrent use by multiple goroutines for distinct tags, but
// collectives must be called by every member in the same relative order
// (spec.md §5) — the Communicator does not itself serialize collectives
// against each other.
type Communicator struct {
	rank      int
	worldSize int
	peers     map[int]*peer
	listener  net.Listener
	name      string
	logger    *log.Logger

	timeoutMu sync.RWMutex
	timeout   time.Duration

	revoked int32
	freed   int32
}

// Rank returns this communicator's rank.
func (c *Communicator) Rank() int { return c.rank }

// WorldSize returns the number of players in the communicator.
func (c *Communicator) WorldSize() int { return c.worldSize }

// Name returns the communicator's human-readable label.
func (c *Communicator) Name() string { return c.name }

func (c *Communicator) checkAlive(op string) error {
	if atomic.LoadInt32(&c.freed) != 0 {
		return cicada.New(cicada.KindRevoked, op, fmt.Errorf("communicator %q is freed", c.name))
	}
	if atomic.LoadInt32(&c.revoked) != 0 {
		return cicada.New(cicada.KindRevoked, op, fmt.Errorf("communicator %q is revoked", c.name))
	}
	return nil
}

// Timeout returns the current default timeout. Zero means wait forever.
func (c *Communicator) Timeout() time.Duration {
	c.timeoutMu.RLock()
	defer c.timeoutMu.RUnlock()
	return c.timeout
}

// SetTimeout mutates the default timeout at runtime (spec.md §4.7).
func (c *Communicator) SetTimeout(d time.Duration) {
	c.timeoutMu.Lock()
	defer c.timeoutMu.Unlock()
	c.timeout = d
}

// WithTimeout runs fn with a scoped override of the default timeout,
// restoring the original value on every exit path including a panic —
// spec.md §4.7's RAII-like scoped override.
func (c *Communicator) WithTimeout(d time.Duration, fn func() error) error {
	prev := c.Timeout()
	c.SetTimeout(d)
	defer c.SetTimeout(prev)
	return fn()
}

func (c *Communicator) deadline() time.Time {
	d := c.Timeout()
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

func (c *Communicator) orderedPeerRanks() []int {
	ranks := make([]int, 0, len(c.peers))
	for r := range c.peers {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	return ranks
}

// Send enqueues value to dst under tag. It returns once the bytes are
// handed to the OS; it never blocks waiting for a matching receive
// (spec.md §4.7). tag must not be a reserved collective tag.
func (c *Communicator) Send(dst int, tag Tag, value []byte) error {
	if tag.IsReserved() {
		return cicada.New(cicada.KindPrecondition, "Send", fmt.Errorf("tag %d collides with a reserved tag", tag))
	}
	return c.sendRaw(dst, tag, value)
}

func (c *Communicator) sendRaw(dst int, tag Tag, value []byte) error {
	if err := c.checkAlive("Send"); err != nil {
		return err
	}
	if dst == c.rank {
		return cicada.New(cicada.KindPrecondition, "Send", fmt.Errorf("cannot send to self"))
	}
	p, ok := c.peers[dst]
	if !ok {
		return cicada.New(cicada.KindPrecondition, "Send", fmt.Errorf("no such peer: rank %d", dst))
	}
	if err := p.send(tag, c.rank, value); err != nil {
		return cicada.New(cicada.KindTerminated, "Send", err)
	}
	return nil
}

// Recv waits for a message from src with matching tag, up to the current
// timeout, raising Timeout otherwise (spec.md §4.7).
func (c *Communicator) Recv(src int, tag Tag) ([]byte, error) {
	if tag.IsReserved() {
		return nil, cicada.New(cicada.KindPrecondition, "Recv", fmt.Errorf("tag %d collides with a reserved tag", tag))
	}
	return c.recvRaw(src, tag)
}

// SendReserved and RecvReserved let other Cicada components (przs, the
// suites) ride the Communicator's reserved tag space for their own
// internal coordination — e.g. przs's one-time seed exchange — without
// opening that space to application Send/Recv calls.
func (c *Communicator) SendReserved(dst int, tag Tag, value []byte) error {
	return c.sendRaw(dst, tag, value)
}

func (c *Communicator) RecvReserved(src int, tag Tag) ([]byte, error) {
	return c.recvRaw(src, tag)
}

func (c *Communicator) recvRaw(src int, tag Tag) ([]byte, error) {
	if err := c.checkAlive("Recv"); err != nil {
		return nil, err
	}
	p, ok := c.peers[src]
	if !ok {
		return nil, cicada.New(cicada.KindPrecondition, "Recv", fmt.Errorf("no such peer: rank %d", src))
	}
	f, err := p.recv(tag, c.deadline())
	if err != nil {
		if err == errTimeoutLocal {
			return nil, cicada.New(cicada.KindTimeout, "Recv", err)
		}
		return nil, cicada.New(cicada.KindTerminated, "Recv", err)
	}
	if f.header.Tag == TagRevoke {
		atomic.StoreInt32(&c.revoked, 1)
		return nil, cicada.New(cicada.KindRevoked, "Recv", fmt.Errorf("peer %d revoked the communicator", src))
	}
	return f.payload, nil
}

// Revoke marks the communicator as unusable and notifies every peer with a
// single poison frame; subsequent operations by any player raise Revoked
// (spec.md §4.7).
func (c *Communicator) Revoke() error {
	if !atomic.CompareAndSwapInt32(&c.revoked, 0, 1) {
		return nil
	}
	c.logger.Printf("[info] (comm %s) rank %d revoking", c.name, c.rank)
	var firstErr error
	for _, r := range c.orderedPeerRanks() {
		if err := c.peers[r].send(TagRevoke, c.rank, nil); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Free closes every connection, releasing the communicator's resources.
// Free is idempotent (spec.md §4.7).
func (c *Communicator) Free() error {
	if !atomic.CompareAndSwapInt32(&c.freed, 0, 1) {
		return nil
	}
	var firstErr error
	for _, p := range c.peers {
		if err := p.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.listener != nil {
		if err := c.listener.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Communicator) startReaders() {
	for _, p := range c.peers {
		p := p
		go p.readLoop(func(rank int, err error) {
			c.logger.Printf("[error] (comm %s) connection to rank %d failed: %v", c.name, rank, err)
		})
	}
}

// fanOutRanks runs fn(rank) concurrently for every rank in ranks via
// co.ParForAll and, once all have finished, returns the first non-nil error
// in the order of ranks.
func fanOutRanks(ranks []int, fn func(rank int) error) error {
	errs := make([]error, len(ranks))
	co.ParForAll(ranks, func(i int) {
		errs[i] = fn(ranks[i])
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
