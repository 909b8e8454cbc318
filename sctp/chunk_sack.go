package sctp

import (
	"encoding/binary"
	"fmt"
)

// gapAckBlock is one RFC 4960 §3.3.4 gap ack block: TSNs
// cumulativeTSNAck+start .. cumulativeTSNAck+end have been received.
type gapAckBlock struct {
	start uint16
	end   uint16
}

const sackFixedLength = 12

// chunkSack reports the cumulative TSN ack point plus any
// out-of-order gaps and duplicate TSNs seen since the last SACK.
type chunkSack struct {
	cumulativeTSNAck uint32
	advertisedRWND   uint32
	gapAckBlocks     []gapAckBlock
	duplicateTSNs    []uint32
}

func (c *chunkSack) Type() chunkType { return ctSack }

func (c *chunkSack) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctSack {
		return fmt.Errorf("sctp: expected SACK chunk, got %s", h.typ)
	}
	if len(h.raw) < sackFixedLength {
		return fmt.Errorf("sctp: SACK chunk value too short: %d bytes", len(h.raw))
	}

	c.cumulativeTSNAck = binary.BigEndian.Uint32(h.raw[0:])
	c.advertisedRWND = binary.BigEndian.Uint32(h.raw[4:])
	numGapBlocks := int(binary.BigEndian.Uint16(h.raw[8:]))
	numDupTSNs := int(binary.BigEndian.Uint16(h.raw[10:]))

	off := sackFixedLength
	c.gapAckBlocks = nil
	for i := 0; i < numGapBlocks; i++ {
		if off+4 > len(h.raw) {
			return fmt.Errorf("sctp: SACK gap ack blocks truncated")
		}
		c.gapAckBlocks = append(c.gapAckBlocks, gapAckBlock{
			start: binary.BigEndian.Uint16(h.raw[off:]),
			end:   binary.BigEndian.Uint16(h.raw[off+2:]),
		})
		off += 4
	}

	c.duplicateTSNs = nil
	for i := 0; i < numDupTSNs; i++ {
		if off+4 > len(h.raw) {
			return fmt.Errorf("sctp: SACK duplicate TSNs truncated")
		}
		c.duplicateTSNs = append(c.duplicateTSNs, binary.BigEndian.Uint32(h.raw[off:]))
		off += 4
	}
	return nil
}

func (c *chunkSack) marshal() ([]byte, error) {
	raw := make([]byte, sackFixedLength)
	binary.BigEndian.PutUint32(raw[0:], c.cumulativeTSNAck)
	binary.BigEndian.PutUint32(raw[4:], c.advertisedRWND)
	binary.BigEndian.PutUint16(raw[8:], uint16(len(c.gapAckBlocks)))
	binary.BigEndian.PutUint16(raw[10:], uint16(len(c.duplicateTSNs)))

	for _, b := range c.gapAckBlocks {
		entry := make([]byte, 4)
		binary.BigEndian.PutUint16(entry, b.start)
		binary.BigEndian.PutUint16(entry[2:], b.end)
		raw = append(raw, entry...)
	}
	for _, tsn := range c.duplicateTSNs {
		entry := make([]byte, 4)
		binary.BigEndian.PutUint32(entry, tsn)
		raw = append(raw, entry...)
	}

	h := chunkHeader{typ: ctSack, raw: raw}
	return h.marshal(), nil
}
