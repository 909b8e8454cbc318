package sctp

import (
	"encoding/binary"
	"fmt"
)

// RE-CONFIG parameter types, RFC 6525 §4.
const (
	paramOutgoingSSNResetRequest paramType = 13
	paramIncomingSSNResetRequest paramType = 14
	paramReconfigResponse        paramType = 16
)

// streamResetResult mirrors RFC 6525 §4.4's Re-configuration Response
// result codes; three are named here, and this stack only ever sends
// reconfigResultSuccess.
type streamResetResult uint32

const (
	reconfigResultSuccess        streamResetResult = 1
	reconfigResultInProgress     streamResetResult = 0
	reconfigResultFailed         streamResetResult = 2
)

// outgoingSSNResetRequest asks the peer to reset the listed outgoing
// streams (RFC 6525 §4.1); the responder clears its reassembly state
// for them and starts their stream sequence numbers back at zero.
type outgoingSSNResetRequest struct {
	reconfigRequestSeq   uint32
	reconfigResponseSeq  uint32
	senderLastTSN        uint32
	streamIDs            []uint16
}

func (r *outgoingSSNResetRequest) marshal() []byte {
	raw := make([]byte, 12+2*len(r.streamIDs))
	binary.BigEndian.PutUint32(raw[0:], r.reconfigRequestSeq)
	binary.BigEndian.PutUint32(raw[4:], r.reconfigResponseSeq)
	binary.BigEndian.PutUint32(raw[8:], r.senderLastTSN)
	for i, id := range r.streamIDs {
		binary.BigEndian.PutUint16(raw[12+2*i:], id)
	}
	ph := paramHeader{typ: paramOutgoingSSNResetRequest, raw: raw}
	return ph.marshal()
}

func (r *outgoingSSNResetRequest) unmarshal(raw []byte) error {
	if len(raw) < 12 {
		return fmt.Errorf("sctp: outgoing reset request too short")
	}
	r.reconfigRequestSeq = binary.BigEndian.Uint32(raw[0:])
	r.reconfigResponseSeq = binary.BigEndian.Uint32(raw[4:])
	r.senderLastTSN = binary.BigEndian.Uint32(raw[8:])
	for i := 12; i+2 <= len(raw); i += 2 {
		r.streamIDs = append(r.streamIDs, binary.BigEndian.Uint16(raw[i:]))
	}
	return nil
}

// reconfigResponse answers an outgoingSSNResetRequest.
type reconfigResponse struct {
	reconfigResponseSeq uint32
	result              streamResetResult
}

func (r *reconfigResponse) marshal() []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint32(raw[0:], r.reconfigResponseSeq)
	binary.BigEndian.PutUint32(raw[4:], uint32(r.result))
	ph := paramHeader{typ: paramReconfigResponse, raw: raw}
	return ph.marshal()
}

func (r *reconfigResponse) unmarshal(raw []byte) error {
	if len(raw) < 8 {
		return fmt.Errorf("sctp: reconfig response too short")
	}
	r.reconfigResponseSeq = binary.BigEndian.Uint32(raw[0:])
	r.result = streamResetResult(binary.BigEndian.Uint32(raw[4:]))
	return nil
}

// chunkReconfig carries one or two RE-CONFIG parameters (RFC 6525
// §3.1); this stack only ever sends a single outgoing-reset-request or
// a single response per chunk.
type chunkReconfig struct {
	resetRequest *outgoingSSNResetRequest
	response     *reconfigResponse
}

func (c *chunkReconfig) Type() chunkType { return ctReconfig }

func (c *chunkReconfig) unmarshal(raw []byte) error {
	var h chunkHeader
	if err := h.unmarshal(raw); err != nil {
		return err
	}
	if h.typ != ctReconfig {
		return fmt.Errorf("sctp: expected RE_CONFIG chunk, got %s", h.typ)
	}

	params, err := parseParams(h.raw)
	if err != nil {
		return err
	}
	for _, p := range params {
		switch p.typ {
		case paramOutgoingSSNResetRequest:
			req := &outgoingSSNResetRequest{}
			if err := req.unmarshal(p.raw); err != nil {
				return err
			}
			c.resetRequest = req
		case paramReconfigResponse:
			resp := &reconfigResponse{}
			if err := resp.unmarshal(p.raw); err != nil {
				return err
			}
			c.response = resp
		}
	}
	return nil
}

func (c *chunkReconfig) marshal() ([]byte, error) {
	var body []byte
	if c.resetRequest != nil {
		body = append(body, c.resetRequest.marshal()...)
	}
	if c.response != nil {
		body = append(body, c.response.marshal()...)
	}
	h := chunkHeader{typ: ctReconfig, raw: body}
	return h.marshal(), nil
}
