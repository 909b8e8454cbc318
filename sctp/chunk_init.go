package sctp

import (
	"encoding/binary"
	"fmt"
)

const initCommonLength = 16

// initCommon is the fixed-field body shared by INIT and INIT ACK,
// RFC 4960 §3.3.2/§3.3.3.
type initCommon struct {
	initiateTag            uint32
	advertisedReceiverWindowCredit uint32
	numOutboundStreams     uint16
	numInboundStreams      uint16
	initialTSN             uint32
	params                 []paramHeader
}

func (i *initCommon) unmarshal(raw []byte) error {
	if len(raw) < initCommonLength {
		return fmt.Errorf("sctp: init chunk value too short: %d bytes", len(raw))
	}
	i.initiateTag = binary.BigEndian.Uint32(raw[0:])
	i.advertisedReceiverWindowCredit = binary.BigEndian.Uint32(raw[4:])
	i.numOutboundStreams = binary.BigEndian.Uint16(raw[8:])
	i.numInboundStreams = binary.BigEndian.Uint16(raw[10:])
	i.initialTSN = binary.BigEndian.Uint32(raw[12:])

	params, err := parseParams(raw[initCommonLength:])
	if err != nil {
		return err
	}
	i.params = params
	return nil
}

func (i *initCommon) marshal() []byte {
	raw := make([]byte, initCommonLength)
	binary.BigEndian.PutUint32(raw[0:], i.initiateTag)
	binary.BigEndian.PutUint32(raw[4:], i.advertisedReceiverWindowCredit)
	binary.BigEndian.PutUint16(raw[8:], i.numOutboundStreams)
	binary.BigEndian.PutUint16(raw[10:], i.numInboundStreams)
	binary.BigEndian.PutUint32(raw[12:], i.initialTSN)
	for _, p := range i.params {
		raw = append(raw, p.marshal()...)
	}
	return raw
}

type chunkInit struct {
	initCommon
}

func (c *chunkInit) Type() chunkType { return ctInit }

func (c *chunkInit) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctInit {
		return fmt.Errorf("sctp: expected INIT chunk, got %s", h.typ)
	}
	return c.initCommon.unmarshal(h.raw)
}

func (c *chunkInit) marshal() ([]byte, error) {
	h := chunkHeader{typ: ctInit, raw: c.initCommon.marshal()}
	return h.marshal(), nil
}

type chunkInitAck struct {
	initCommon
}

func (c *chunkInitAck) Type() chunkType { return ctInitAck }

func (c *chunkInitAck) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctInitAck {
		return fmt.Errorf("sctp: expected INIT_ACK chunk, got %s", h.typ)
	}
	return c.initCommon.unmarshal(h.raw)
}

func (c *chunkInitAck) marshal() ([]byte, error) {
	h := chunkHeader{typ: ctInitAck, raw: c.initCommon.marshal()}
	return h.marshal(), nil
}
