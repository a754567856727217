package comm

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/republicprotocol/co-go"
	"github.com/republicprotocol/cicada"
)

// membershipOffer is what a player announces to its peers when forming a
// new sub-communicator: its parent rank (used to order the new
// communicator's ranks) and the address it will listen on for the new
// group's own Direct bootstrap.
type membershipOffer struct {
	parentRank int
	address    string
}

func marshalOffer(o membershipOffer) []byte {
	return []byte(strconv.Itoa(o.parentRank) + "|" + o.address)
}

func unmarshalOffer(buf []byte) (membershipOffer, error) {
	parts := strings.SplitN(string(buf), "|", 2)
	if len(parts) != 2 {
		return membershipOffer{}, fmt.Errorf("comm: malformed membership offer")
	}
	rank, err := strconv.Atoi(parts[0])
	if err != nil {
		return membershipOffer{}, fmt.Errorf("comm: malformed membership offer rank: %w", err)
	}
	return membershipOffer{parentRank: rank, address: parts[1]}, nil
}

// Split partitions the communicator: every player supplies a group name, or
// the empty string to opt out. Players sharing a name form a new
// communicator with ranks assigned in ascending order of their parent
// ranks; opt-out players get back (nil, nil). A fresh Direct bootstrap runs
// inside each group (spec.md §4.7).
func (c *Communicator) Split(name string) (*Communicator, error) {
	if err := c.checkAlive("Split"); err != nil {
		return nil, err
	}

	var subListener net.Listener
	myAddr := listenerAddress(c.listener)
	if name != "" {
		fresh, err := freshEphemeralAddress(myAddr)
		if err != nil {
			return nil, cicada.New(cicada.KindBootstrapTimeout, "Split", err)
		}
		network, address, err := parseAddress(fresh)
		if err != nil {
			return nil, cicada.New(cicada.KindBootstrapTimeout, "Split", err)
		}
		subListener, err = listen(network, address)
		if err != nil {
			return nil, cicada.New(cicada.KindBootstrapTimeout, "Split", err)
		}
		myAddr = listenerAddress(subListener)
	}
	announce := name + "\x00" + marshalOfferString(c.rank, myAddr)

	raw, err := c.AllGather([]byte(announce))
	if err != nil {
		return nil, cicada.New(cicada.KindTerminated, "Split", err)
	}

	type member struct {
		parentRank int
		address    string
	}
	var members []member
	for _, b := range raw {
		if b == nil {
			continue
		}
		parts := strings.SplitN(string(b), "\x00", 2)
		if len(parts) != 2 || parts[0] != name || name == "" {
			continue
		}
		offer, err := unmarshalOffer([]byte(parts[1]))
		if err != nil {
			return nil, cicada.New(cicada.KindProtocolError, "Split", err)
		}
		members = append(members, member{parentRank: offer.parentRank, address: offer.address})
	}

	if name == "" {
		return nil, nil
	}

	sort.Slice(members, func(i, j int) bool { return members[i].parentRank < members[j].parentRank })

	addresses := make([]string, len(members))
	newRank := -1
	for i, m := range members {
		addresses[i] = m.address
		if m.parentRank == c.rank {
			newRank = i
		}
	}
	if newRank < 0 {
		return nil, cicada.New(cicada.KindProtocolError, "Split", fmt.Errorf("this player did not appear in its own group"))
	}

	sub, err := bootstrapDirectWithListener(Config{
		Addresses:        addresses,
		Rank:             newRank,
		Timeout:          c.Timeout(),
		BootstrapTimeout: c.Timeout(),
		Name:             name,
		Logger:           c.logger,
	}, subListener)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func marshalOfferString(rank int, addr string) string {
	return string(marshalOffer(membershipOffer{parentRank: rank, address: addr}))
}

// Shrink forms a new communicator from whatever subset of players responds
// within the current timeout, used to recover after a player failure
// (spec.md §4.7). Every live player announces its parent rank and listen
// address to every other live player under TagShrink; those that reply
// before the deadline become members, ranked in ascending parent-rank
// order. There is no guarantee every survivor is included.
func (c *Communicator) Shrink(name string) (*Communicator, error) {
	if err := c.checkAlive("Shrink"); err != nil {
		return nil, err
	}

	fresh, err := freshEphemeralAddress(listenerAddress(c.listener))
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "Shrink", err)
	}
	network, address, err := parseAddress(fresh)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "Shrink", err)
	}
	subListener, err := listen(network, address)
	if err != nil {
		return nil, cicada.New(cicada.KindBootstrapTimeout, "Shrink", err)
	}
	myAddr := listenerAddress(subListener)
	offer := marshalOffer(membershipOffer{parentRank: c.rank, address: myAddr})

	ranks := c.otherRanks()
	_ = fanOutRanks(ranks, func(r int) error {
		return c.sendRaw(r, TagShrink, offer)
	})

	type result struct {
		rank  int
		offer membershipOffer
		ok    bool
	}
	results := make([]result, len(ranks))
	co.ParForAll(ranks, func(i int) {
		r := ranks[i]
		buf, err := c.recvRaw(r, TagShrink)
		if err != nil {
			results[i] = result{rank: r, ok: false}
			return
		}
		o, err := unmarshalOffer(buf)
		if err != nil {
			results[i] = result{rank: r, ok: false}
			return
		}
		results[i] = result{rank: r, offer: o, ok: true}
	})

	type member struct {
		parentRank int
		address    string
	}
	members := []member{{parentRank: c.rank, address: myAddr}}
	for _, res := range results {
		if res.ok {
			members = append(members, member{parentRank: res.offer.parentRank, address: res.offer.address})
		}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].parentRank < members[j].parentRank })

	addresses := make([]string, len(members))
	newRank := -1
	for i, m := range members {
		addresses[i] = m.address
		if m.parentRank == c.rank {
			newRank = i
		}
	}

	return bootstrapDirectWithListener(Config{
		Addresses:        addresses,
		Rank:             newRank,
		Timeout:          c.Timeout(),
		BootstrapTimeout: c.Timeout(),
		Name:             name,
		Logger:           c.logger,
	}, subListener)
}
