package sctp

import (
	"encoding/binary"
	"fmt"
	"time"
)

// PayloadProtocolID identifies a DATA chunk's payload framing, RFC
// 8831/8832's WebRTC-specific registrations.
type PayloadProtocolID uint32

const (
	PayloadTypeWebRTCDCEP        PayloadProtocolID = 50
	PayloadTypeWebRTCString      PayloadProtocolID = 51
	PayloadTypeWebRTCBinary      PayloadProtocolID = 53
	PayloadTypeWebRTCStringEmpty PayloadProtocolID = 56
	PayloadTypeWebRTCBinaryEmpty PayloadProtocolID = 57
)

const (
	dataFlagEnding    = 1 << 0
	dataFlagBeginning = 1 << 1
	dataFlagUnordered = 1 << 2
	dataFlagImmSack   = 1 << 3

	payloadDataHeaderSize = 12
)

// chunkPayloadData is the DATA chunk, RFC 4960 §3.3.1: a 32-bit TSN
// plus per-stream ordering (streamID, streamSequenceNumber unless
// unordered) wrapping the application payload.
type chunkPayloadData struct {
	unordered        bool
	beginningFragment bool
	endingFragment   bool
	immediateSack    bool

	tsn                  uint32
	streamID             uint16
	streamSequenceNumber uint16
	payloadType          PayloadProtocolID
	userData             []byte

	// expiresAt, when non-zero, is a PR-SCTP (RFC 3758) absolute
	// deadline in wall-clock Unix nanoseconds past which a still-unacked
	// chunk is abandoned rather than retransmitted. It is association-
	// local accounting, not carried on the wire.
	expiresAt int64

	// sentAt is when this chunk (or its most recent retransmission)
	// last went on the wire; the T3-rtx timer compares it against rto.
	// Association-local accounting, not carried on the wire.
	sentAt time.Time

	// retransmitted excludes this chunk from RTO sampling once it has
	// been resent, per Karn's algorithm (RFC 6298 §2.2): an ack arriving
	// after a retransmission can't be attributed to either attempt.
	retransmitted bool
}

func (c *chunkPayloadData) Type() chunkType { return ctPayloadData }

func (c *chunkPayloadData) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctPayloadData {
		return fmt.Errorf("sctp: expected DATA chunk, got %s", h.typ)
	}
	if len(h.raw) < payloadDataHeaderSize {
		return fmt.Errorf("sctp: DATA chunk value too short: %d bytes", len(h.raw))
	}

	c.immediateSack = h.flags&dataFlagImmSack != 0
	c.unordered = h.flags&dataFlagUnordered != 0
	c.beginningFragment = h.flags&dataFlagBeginning != 0
	c.endingFragment = h.flags&dataFlagEnding != 0

	c.tsn = binary.BigEndian.Uint32(h.raw[0:])
	c.streamID = binary.BigEndian.Uint16(h.raw[4:])
	c.streamSequenceNumber = binary.BigEndian.Uint16(h.raw[6:])
	c.payloadType = PayloadProtocolID(binary.BigEndian.Uint32(h.raw[8:]))
	c.userData = append([]byte{}, h.raw[payloadDataHeaderSize:]...)
	return nil
}

func (c *chunkPayloadData) marshal() ([]byte, error) {
	raw := make([]byte, payloadDataHeaderSize+len(c.userData))
	binary.BigEndian.PutUint32(raw[0:], c.tsn)
	binary.BigEndian.PutUint16(raw[4:], c.streamID)
	binary.BigEndian.PutUint16(raw[6:], c.streamSequenceNumber)
	binary.BigEndian.PutUint32(raw[8:], uint32(c.payloadType))
	copy(raw[payloadDataHeaderSize:], c.userData)

	var flags uint8
	if c.endingFragment {
		flags |= dataFlagEnding
	}
	if c.beginningFragment {
		flags |= dataFlagBeginning
	}
	if c.unordered {
		flags |= dataFlagUnordered
	}
	if c.immediateSack {
		flags |= dataFlagImmSack
	}

	h := chunkHeader{typ: ctPayloadData, flags: flags, raw: raw}
	return h.marshal(), nil
}
