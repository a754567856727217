package comm

import (
	"bufio"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/republicprotocol/cicada"
)

// Bootstrap dispatches to BootstrapDirect or BootstrapRendezvous depending
// on whether cfg.Addresses (Direct) or cfg.RootAddress (Rendezvous) is
// populated.
func Bootstrap(cfg Config) (*Communicator, error) {
	if len(cfg.Addresses) > 0 {
		return BootstrapDirect(cfg)
	}
	if cfg.RootAddress != "" {
		return BootstrapRendezvous(cfg)
	}
	return nil, cicada.New(cicada.KindPrecondition, "Bootstrap", fmt.Errorf("neither Addresses nor RootAddress was provided"))
}

func bootstrapDeadline(cfg Config) time.Time {
	if cfg.BootstrapTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(cfg.BootstrapTimeout)
}

func acceptWithDeadline(l net.Listener, deadline time.Time) (net.Conn, error) {
	if tl, ok := l.(*net.TCPListener); ok && !deadline.IsZero() {
		tl.SetDeadline(deadline)
	}
	return l.Accept()
}

func dialWithDeadline(network, address string, tlsCfg *tls.Config, deadline time.Time) (net.Conn, error) {
	timeout := 10 * time.Second
	if !deadline.IsZero() {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, fmt.Errorf("comm: bootstrap deadline exceeded dialing %s", address)
		}
	}
	conn, err := net.DialTimeout(network, address, timeout)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		return wrapClientTLS(conn, tlsCfg)
	}
	return conn, nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func rankHandshake(conn net.Conn, rank int, deadline time.Time) (peerRank int, err error) {
	if !deadline.IsZero() {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(rank))
	if _, err := conn.Write(buf[:]); err != nil {
		return 0, err
	}
	var peerBuf [2]byte
	if _, err := fullRead(conn, peerBuf[:]); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(peerBuf[:])), nil
}

func fullRead(conn net.Conn, buf []byte) (int, error) {
	read := 0
	for read < len(buf) {
		n, err := conn.Read(buf[read:])
		if err != nil {
			return read, err
		}
		read += n
	}
	return read, nil
}

// BootstrapDirect builds a Communicator when every player already knows the
// complete address list. Every player listens on its own address; each
// pair of players opens a single connection, with the lower rank dialing
// the higher rank (spec.md §4.7).
func BootstrapDirect(cfg Config) (*Communicator, error) {
	n := len(cfg.Addresses)
	rank := cfg.Rank
	if rank < 0 || rank >= n {
		return nil, cicada.New(cicada.KindPrecondition, "BootstrapDirect", fmt.Errorf("rank %d out of range [0, %d)", rank, n))
	}

	network, address, err := parseAddress(cfg.Addresses[rank])
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapDirect", err)
	}
	l, err := listen(network, address)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapDirect", err)
	}

	return bootstrapDirectWithListener(cfg, l)
}

// bootstrapDirectWithListener runs the Direct mesh-forming handshake using
// an already-open listener. Split and Shrink use this directly: they bind
// their sub-communicator's listener before announcing its address to
// peers, since the parent communicator's own listener is still bound to
// the address a freshly-derived one would otherwise collide with.
func bootstrapDirectWithListener(cfg Config, l net.Listener) (*Communicator, error) {
	n := len(cfg.Addresses)
	rank := cfg.Rank
	deadline := bootstrapDeadline(cfg)

	c := &Communicator{
		rank:      rank,
		worldSize: n,
		peers:     map[int]*peer{},
		listener:  l,
		name:      nameOr(cfg.Name, "world"),
		logger:    cfg.logger(),
		timeout:   cfg.Timeout,
	}

	if err := completeMesh(c, cfg.Addresses, cfg.TLS, deadline); err != nil {
		return nil, err
	}

	c.startReaders()
	return c, nil
}

func listen(network, address string) (net.Listener, error) {
	return net.Listen(network, address)
}

// completeMesh opens the remaining pairwise connections of a Direct-style
// mesh given the full, rank-ordered address list: lower ranks dial higher
// ranks, higher ranks accept from lower ranks. Connections already present
// in c.peers (e.g. established during a Rendezvous handshake) are left
// untouched.
func completeMesh(c *Communicator, addresses []string, tlsCfg *tls.Config, deadline time.Time) error {
	n := len(addresses)
	rank := c.rank

	acceptFrom := 0
	for r := 0; r < rank; r++ {
		if _, ok := c.peers[r]; !ok {
			acceptFrom++
		}
	}

	type accepted struct {
		conn net.Conn
		rank int
	}
	acceptCh := make(chan accepted, acceptFrom)
	acceptErr := make(chan error, 1)

	go func() {
		for i := 0; i < acceptFrom; i++ {
			conn, err := acceptWithDeadline(c.listener, deadline)
			if err != nil {
				acceptErr <- err
				return
			}
			peerRank, err := rankHandshake(conn, rank, deadline)
			if err != nil {
				acceptErr <- err
				return
			}
			acceptCh <- accepted{conn: conn, rank: peerRank}
		}
	}()

	for r := rank + 1; r < n; r++ {
		if _, ok := c.peers[r]; ok {
			continue
		}
		network, addr, err := parseAddress(addresses[r])
		if err != nil {
			return cicada.New(cicada.KindBootstrapTimeout, "completeMesh", err)
		}
		conn, err := dialWithDeadline(network, addr, tlsCfg, deadline)
		if err != nil {
			return cicada.New(cicada.KindBootstrapTimeout, "completeMesh", err)
		}
		peerRank, err := rankHandshake(conn, rank, deadline)
		if err != nil {
			return cicada.New(cicada.KindBootstrapTimeout, "completeMesh", err)
		}
		if peerRank != r {
			return cicada.New(cicada.KindProtocolError, "completeMesh", fmt.Errorf("expected rank %d, peer claimed %d", r, peerRank))
		}
		if err := verifyTLSRank(conn, peerRank); err != nil {
			return cicada.New(cicada.KindAuthenticationFailed, "completeMesh", err)
		}
		c.peers[r] = newPeer(r, conn)
	}

	for i := 0; i < acceptFrom; i++ {
		select {
		case a := <-acceptCh:
			if err := verifyTLSRank(a.conn, a.rank); err != nil {
				return cicada.New(cicada.KindAuthenticationFailed, "completeMesh", err)
			}
			c.peers[a.rank] = newPeer(a.rank, a.conn)
		case err := <-acceptErr:
			return cicada.New(cicada.KindBootstrapTimeout, "completeMesh", err)
		}
	}
	return nil
}

// BootstrapRendezvous builds a Communicator when only the root's address is
// known in advance. Non-root players contact the root, which assigns ranks
// in contact order (root is always rank 0) and broadcasts the full address
// list; pairwise connections among the remaining players then follow as in
// BootstrapDirect (spec.md §4.7).
func BootstrapRendezvous(cfg Config) (*Communicator, error) {
	deadline := bootstrapDeadline(cfg)

	if cfg.Address == cfg.RootAddress {
		return bootstrapRendezvousRoot(cfg, deadline)
	}
	return bootstrapRendezvousNonRoot(cfg, deadline)
}

func bootstrapRendezvousRoot(cfg Config, deadline time.Time) (*Communicator, error) {
	if cfg.WorldSize <= 0 {
		return nil, cicada.New(cicada.KindPrecondition, "BootstrapRendezvous", fmt.Errorf("root requires WorldSize"))
	}
	n := cfg.WorldSize

	network, address, err := parseAddress(cfg.RootAddress)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
	}
	l, err := listen(network, address)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
	}

	c := &Communicator{
		rank:      0,
		worldSize: n,
		peers:     map[int]*peer{},
		listener:  l,
		name:      nameOr(cfg.Name, "world"),
		logger:    cfg.logger(),
		timeout:   cfg.Timeout,
	}

	addresses := make([]string, n)
	addresses[0] = cfg.RootAddress

	for i := 1; i < n; i++ {
		conn, err := acceptWithDeadline(l, deadline)
		if err != nil {
			return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
		}
		if !deadline.IsZero() {
			conn.SetDeadline(deadline)
		}
		r := bufio.NewReader(conn)
		peerAddr, err := readLengthPrefixedString(r)
		if err != nil {
			return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
		}
		addresses[i] = peerAddr
		if err := writeUint16(conn, uint16(i)); err != nil {
			return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
		}
		c.peers[i] = newPeer(i, conn)
	}

	for i := 1; i < n; i++ {
		if err := writeAddressList(c.peers[i].conn, addresses); err != nil {
			return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
		}
	}

	if err := completeMesh(c, addresses, cfg.TLS, deadline); err != nil {
		return nil, err
	}

	c.startReaders()
	return c, nil
}

func bootstrapRendezvousNonRoot(cfg Config, deadline time.Time) (*Communicator, error) {
	network, addr, err := parseAddress(cfg.RootAddress)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
	}
	conn, err := dialWithDeadline(network, addr, cfg.TLS, deadline)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
	}
	if !deadline.IsZero() {
		conn.SetDeadline(deadline)
	}

	if err := writeLengthPrefixedString(conn, cfg.Address); err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
	}
	r := bufio.NewReader(conn)
	rank, err := readUint16(r)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
	}
	addresses, err := readAddressList(r)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
	}

	myNetwork, myAddr, err := parseAddress(cfg.Address)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
	}
	l, err := listen(myNetwork, myAddr)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "BootstrapRendezvous", err)
	}

	c := &Communicator{
		rank:      int(rank),
		worldSize: len(addresses),
		peers:     map[int]*peer{0: newPeer(0, conn)},
		listener:  l,
		name:      nameOr(cfg.Name, "world"),
		logger:    cfg.logger(),
		timeout:   cfg.Timeout,
	}

	if err := completeMesh(c, addresses, cfg.TLS, deadline); err != nil {
		return nil, err
	}

	c.startReaders()
	return c, nil
}
