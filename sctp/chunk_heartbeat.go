package sctp

import "fmt"

// chunkHeartbeat/chunkHeartbeatAck carry an opaque heartbeat-info TLV
// (RFC 4960 §3.3.5/§3.3.6) that the sender stamps with whatever it
// needs to validate the round trip. This stack sends no HEARTBEAT of
// its own; it answers a peer's HEARTBEAT with a HEARTBEAT ACK that
// echoes the same info.
type chunkHeartbeat struct {
	info []byte
}

func (c *chunkHeartbeat) Type() chunkType { return ctHeartbeat }

func (c *chunkHeartbeat) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctHeartbeat {
		return fmt.Errorf("sctp: expected HEARTBEAT chunk, got %s", h.typ)
	}
	params, err := parseParams(h.raw)
	if err != nil {
		return err
	}
	if info, ok := findParam(params, paramHeartbeatInfo); ok {
		c.info = append([]byte{}, info...)
	}
	return nil
}

func (c *chunkHeartbeat) marshal() ([]byte, error) {
	ph := paramHeader{typ: paramHeartbeatInfo, raw: c.info}
	h := chunkHeader{typ: ctHeartbeat, raw: ph.marshal()}
	return h.marshal(), nil
}

type chunkHeartbeatAck struct {
	info []byte
}

func (c *chunkHeartbeatAck) Type() chunkType { return ctHeartbeatAck }

func (c *chunkHeartbeatAck) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctHeartbeatAck {
		return fmt.Errorf("sctp: expected HEARTBEAT_ACK chunk, got %s", h.typ)
	}
	params, err := parseParams(h.raw)
	if err != nil {
		return err
	}
	if info, ok := findParam(params, paramHeartbeatInfo); ok {
		c.info = append([]byte{}, info...)
	}
	return nil
}

func (c *chunkHeartbeatAck) marshal() ([]byte, error) {
	ph := paramHeader{typ: paramHeartbeatInfo, raw: c.info}
	h := chunkHeader{typ: ctHeartbeatAck, raw: ph.marshal()}
	return h.marshal(), nil
}
