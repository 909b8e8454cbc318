package sctp

import "fmt"

// chunkAbort (RFC 4960 §3.3.7) closes the association immediately
// without the SHUTDOWN handshake, optionally carrying error-cause TLVs
// this stack doesn't need to decode beyond surfacing them as text.
type chunkAbort struct {
	reason string
}

func (c *chunkAbort) Type() chunkType { return ctAbort }

func (c *chunkAbort) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctAbort {
		return fmt.Errorf("sctp: expected ABORT chunk, got %s", h.typ)
	}
	c.reason = string(h.raw)
	return nil
}

func (c *chunkAbort) marshal() ([]byte, error) {
	h := chunkHeader{typ: ctAbort, raw: []byte(c.reason)}
	return h.marshal(), nil
}

type chunkShutdown struct {
	cumulativeTSNAck uint32
}

func (c *chunkShutdown) Type() chunkType { return ctShutdown }

func (c *chunkShutdown) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctShutdown || len(h.raw) < 4 {
		return fmt.Errorf("sctp: malformed SHUTDOWN chunk")
	}
	c.cumulativeTSNAck = beUint32(h.raw)
	return nil
}

func (c *chunkShutdown) marshal() ([]byte, error) {
	raw := make([]byte, 4)
	putBeUint32(raw, c.cumulativeTSNAck)
	h := chunkHeader{typ: ctShutdown, raw: raw}
	return h.marshal(), nil
}

type chunkShutdownAck struct{}

func (c *chunkShutdownAck) Type() chunkType { return ctShutdownAck }

func (c *chunkShutdownAck) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctShutdownAck {
		return fmt.Errorf("sctp: expected SHUTDOWN_ACK chunk, got %s", h.typ)
	}
	return nil
}

func (c *chunkShutdownAck) marshal() ([]byte, error) {
	h := chunkHeader{typ: ctShutdownAck}
	return h.marshal(), nil
}

type chunkShutdownComplete struct{}

func (c *chunkShutdownComplete) Type() chunkType { return ctShutdownComplete }

func (c *chunkShutdownComplete) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctShutdownComplete {
		return fmt.Errorf("sctp: expected SHUTDOWN_COMPLETE chunk, got %s", h.typ)
	}
	return nil
}

func (c *chunkShutdownComplete) marshal() ([]byte, error) {
	h := chunkHeader{typ: ctShutdownComplete}
	return h.marshal(), nil
}
