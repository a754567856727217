package comm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/republicprotocol/cicada/internal/netstring"
)

// Tag identifies the purpose of a message on the wire. Values below 1024
// are reserved for the core's own collectives (spec.md §4.7); user tags
// start at 1024.
type Tag uint16

// Reserved tags.
const (
	TagAllgather Tag = iota
	TagBarrier
	TagBroadcast
	TagGather
	TagGatherv
	TagRevoke
	TagScatter
	TagScatterv
	TagSplit
	TagShrink
	TagLogsync
	TagPrzsSeed
	TagSuiteShare
	TagSuiteOpen
	TagShamirShare
	TagShamirOpen
	TagShamirReduce
	reservedTagCount
)

// FirstUserTag is the smallest tag value an application may use for
// send/recv.
const FirstUserTag Tag = 1024

// IsReserved reports whether a tag lies in the range reserved for the
// core's own collectives, i.e. below FirstUserTag.
func (t Tag) IsReserved() bool {
	return t < FirstUserTag
}

// header is the fixed-size binary preamble of spec.md §6.
type header struct {
	Tag         Tag
	SrcRank     uint16
	Serial      uint64
	PayloadLen  uint32
}

const headerSize = 2 + 2 + 8 + 4

func (h header) marshal() []byte {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint16(buf[0:2], uint16(h.Tag))
	binary.BigEndian.PutUint16(buf[2:4], h.SrcRank)
	binary.BigEndian.PutUint64(buf[4:12], h.Serial)
	binary.BigEndian.PutUint32(buf[12:16], h.PayloadLen)
	return buf
}

func unmarshalHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, fmt.Errorf("comm: truncated header (%d bytes)", len(buf))
	}
	return header{
		Tag:        Tag(binary.BigEndian.Uint16(buf[0:2])),
		SrcRank:    binary.BigEndian.Uint16(buf[2:4]),
		Serial:     binary.BigEndian.Uint64(buf[4:12]),
		PayloadLen: binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}

// frame is a decoded on-wire message: a header plus its opaque payload.
type frame struct {
	header  header
	payload []byte
}

// writeFrame encodes and writes one frame as a netstring-wrapped
// (header||payload).
func writeFrame(w io.Writer, f frame) error {
	h := f.header
	h.PayloadLen = uint32(len(f.payload))
	buf := append(h.marshal(), f.payload...)
	return netstring.Write(w, buf)
}

// readFrame reads and decodes one frame from r.
func readFrame(r *bufio.Reader) (frame, error) {
	buf, err := netstring.Read(r)
	if err != nil {
		return frame{}, err
	}
	h, err := unmarshalHeader(buf)
	if err != nil {
		return frame{}, err
	}
	payload := buf[headerSize:]
	if uint32(len(payload)) != h.PayloadLen {
		return frame{}, fmt.Errorf("comm: payload length mismatch: header says %d, got %d", h.PayloadLen, len(payload))
	}
	return frame{header: h, payload: payload}, nil
}
