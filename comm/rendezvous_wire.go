package comm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Rendezvous bootstrap (spec.md §4.7) needs to exchange a handful of short
// strings (addresses, an address list) before any Communicator exists to
// carry them over netstring framing. These helpers give that handshake its
// own minimal length-prefixed wire format: a uint32 byte count followed by
// the raw bytes, mirroring the length-prefix-then-payload shape of the
// regular frame format (comm/frame.go) without depending on it.

const maxRendezvousString = 1 << 16

func writeLengthPrefixedString(w io.Writer, s string) error {
	if len(s) > maxRendezvousString {
		return fmt.Errorf("comm: rendezvous string too long: %d bytes", len(s))
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readLengthPrefixedString(r *bufio.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxRendezvousString {
		return "", fmt.Errorf("comm: rendezvous string too long: %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint16(r *bufio.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func writeAddressList(w io.Writer, addresses []string) error {
	if err := writeUint16(w, uint16(len(addresses))); err != nil {
		return err
	}
	for _, addr := range addresses {
		if err := writeLengthPrefixedString(w, addr); err != nil {
			return err
		}
	}
	return nil
}

func readAddressList(r *bufio.Reader) ([]string, error) {
	n, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, n)
	for i := range addresses {
		addr, err := readLengthPrefixedString(r)
		if err != nil {
			return nil, err
		}
		addresses[i] = addr
	}
	return addresses, nil
}
