package sctp

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const packetHeaderSize = 12

// packet is one SCTP packet: the 12-byte common header (ports plus the
// verification tag that guards against off-path blind injection) and
// its chunks, RFC 4960 §3.
type packet struct {
	sourcePort      uint16
	destinationPort uint16
	verificationTag uint32
	chunks          []chunk
}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

func checksum(raw []byte) uint32 {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	for i := 8; i < 12; i++ {
		cp[i] = 0
	}
	return crc32.Checksum(cp, crc32cTable)
}

func (p *packet) unmarshal(raw []byte) error {
	if len(raw) < packetHeaderSize {
		return fmt.Errorf("sctp: packet too short: %d bytes", len(raw))
	}

	p.sourcePort = binary.BigEndian.Uint16(raw[0:])
	p.destinationPort = binary.BigEndian.Uint16(raw[2:])
	p.verificationTag = binary.BigEndian.Uint32(raw[4:])

	theirSum := binary.LittleEndian.Uint32(raw[8:])
	if ourSum := checksum(raw); ourSum != theirSum {
		return fmt.Errorf("sctp: checksum mismatch: got %x want %x", theirSum, ourSum)
	}

	offset := packetHeaderSize
	for offset < len(raw) {
		if offset+chunkHeaderSize > len(raw) {
			return fmt.Errorf("sctp: truncated chunk header at offset %d", offset)
		}

		c, err := buildChunk(chunkType(raw[offset]))
		if err != nil {
			return err
		}
		if err := c.unmarshal(raw[offset:]); err != nil {
			return err
		}
		p.chunks = append(p.chunks, c)

		var h chunkHeader
		if err := h.unmarshal(raw[offset:]); err != nil {
			return err
		}
		offset += chunkHeaderSize + h.valueLength() + getPadding(chunkHeaderSize+h.valueLength())
	}
	return nil
}

func buildChunk(t chunkType) (chunk, error) {
	switch t {
	case ctInit:
		return &chunkInit{}, nil
	case ctInitAck:
		return &chunkInitAck{}, nil
	case ctSack:
		return &chunkSack{}, nil
	case ctHeartbeat:
		return &chunkHeartbeat{}, nil
	case ctHeartbeatAck:
		return &chunkHeartbeatAck{}, nil
	case ctAbort:
		return &chunkAbort{}, nil
	case ctShutdown:
		return &chunkShutdown{}, nil
	case ctShutdownAck:
		return &chunkShutdownAck{}, nil
	case ctShutdownComplete:
		return &chunkShutdownComplete{}, nil
	case ctCookieEcho:
		return &chunkCookieEcho{}, nil
	case ctCookieAck:
		return &chunkCookieAck{}, nil
	case ctPayloadData:
		return &chunkPayloadData{}, nil
	case ctReconfig:
		return &chunkReconfig{}, nil
	case ctForwardTSN:
		return &chunkForwardTSN{}, nil
	default:
		return nil, fmt.Errorf("sctp: unknown chunk type %s", t)
	}
}

func (p *packet) marshal() ([]byte, error) {
	raw := make([]byte, packetHeaderSize)
	binary.BigEndian.PutUint16(raw[0:], p.sourcePort)
	binary.BigEndian.PutUint16(raw[2:], p.destinationPort)
	binary.BigEndian.PutUint32(raw[4:], p.verificationTag)

	for _, c := range p.chunks {
		chunkRaw, err := c.marshal()
		if err != nil {
			return nil, err
		}
		raw = append(raw, chunkRaw...)
		if pad := getPadding(len(raw)); pad != 0 {
			raw = append(raw, make([]byte, pad)...)
		}
	}

	binary.LittleEndian.PutUint32(raw[8:], checksum(raw))
	return raw, nil
}
