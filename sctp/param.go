package sctp

import (
	"encoding/binary"
	"fmt"
)

// paramType is the SCTP chunk-parameter type field, RFC 4960 §3.2.1.
type paramType uint16

const (
	paramHeartbeatInfo        paramType = 1
	paramIPv4Address          paramType = 5
	paramIPv6Address          paramType = 6
	paramStateCookie          paramType = 7
	paramUnrecognizedParam    paramType = 8
	paramCookiePreservative   paramType = 9
	paramSupportedAddrTypes   paramType = 12
	paramRandom               paramType = 32770
	paramChunkList            paramType = 32771
	paramSupportedExtensions  paramType = 32776
	paramForwardTSNSupported  paramType = 49152
)

const paramHeaderSize = 4

type paramHeader struct {
	typ paramType
	raw []byte
}

func (h *paramHeader) unmarshal(raw []byte) (int, error) {
	if len(raw) < paramHeaderSize {
		return 0, fmt.Errorf("sctp: param header too short")
	}
	h.typ = paramType(binary.BigEndian.Uint16(raw))
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < paramHeaderSize || length > len(raw) {
		return 0, fmt.Errorf("sctp: param length %d inconsistent with %d bytes remaining", length, len(raw))
	}
	h.raw = raw[paramHeaderSize:length]
	return length + getPadding(length), nil
}

func (h *paramHeader) marshal() []byte {
	raw := make([]byte, paramHeaderSize+len(h.raw))
	binary.BigEndian.PutUint16(raw, uint16(h.typ))
	binary.BigEndian.PutUint16(raw[2:], uint16(paramHeaderSize+len(h.raw)))
	copy(raw[paramHeaderSize:], h.raw)
	for len(raw)%paddingMultiple != 0 {
		raw = append(raw, 0)
	}
	return raw
}

// parseParams splits the optional/variable-length parameter section
// of an INIT/INIT-ACK chunk into raw (type, value) pairs. Unknown
// parameter types are kept verbatim rather than rejected — RFC 4960
// requires only mandatory parameters to be understood.
func parseParams(raw []byte) ([]paramHeader, error) {
	var out []paramHeader
	for len(raw) > 0 {
		var h paramHeader
		n, err := h.unmarshal(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
		if n > len(raw) {
			break
		}
		raw = raw[n:]
	}
	return out, nil
}

func findParam(params []paramHeader, t paramType) ([]byte, bool) {
	for _, p := range params {
		if p.typ == t {
			return p.raw, true
		}
	}
	return nil, false
}
