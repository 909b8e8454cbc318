package sctp

import (
	"encoding/binary"
	"fmt"
)

// forwardTSNStream names a stream whose sequence number has moved
// forward underneath abandoned (PR-SCTP) DATA chunks.
type forwardTSNStream struct {
	streamID  uint16
	streamSeq uint16
}

const forwardTSNFixedLength = 4

// chunkForwardTSN (RFC 3758 §3.2) moves the cumulative TSN ack point
// forward past chunks the sender has abandoned under a partial-
// reliability policy, so the receiver's reassembly queue doesn't wait
// forever for data that will never arrive.
type chunkForwardTSN struct {
	newCumulativeTSN uint32
	streams          []forwardTSNStream
}

func (c *chunkForwardTSN) Type() chunkType { return ctForwardTSN }

func (c *chunkForwardTSN) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctForwardTSN {
		return fmt.Errorf("sctp: expected FORWARD_TSN chunk, got %s", h.typ)
	}
	if len(h.raw) < forwardTSNFixedLength {
		return fmt.Errorf("sctp: FORWARD_TSN chunk too short")
	}

	c.newCumulativeTSN = binary.BigEndian.Uint32(h.raw[0:])
	c.streams = nil
	for i := forwardTSNFixedLength; i+4 <= len(h.raw); i += 4 {
		c.streams = append(c.streams, forwardTSNStream{
			streamID:  binary.BigEndian.Uint16(h.raw[i:]),
			streamSeq: binary.BigEndian.Uint16(h.raw[i+2:]),
		})
	}
	return nil
}

func (c *chunkForwardTSN) marshal() ([]byte, error) {
	raw := make([]byte, forwardTSNFixedLength+4*len(c.streams))
	binary.BigEndian.PutUint32(raw[0:], c.newCumulativeTSN)
	for i, s := range c.streams {
		off := forwardTSNFixedLength + 4*i
		binary.BigEndian.PutUint16(raw[off:], s.streamID)
		binary.BigEndian.PutUint16(raw[off+2:], s.streamSeq)
	}
	h := chunkHeader{typ: ctForwardTSN, raw: raw}
	return h.marshal(), nil
}
