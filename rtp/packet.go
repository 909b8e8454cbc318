// Package rtp implements RFC 3550 RTP packet marshal/unmarshal: the
// fixed header, optional CSRC list and one-byte/two-byte header
// extensions (RFC 8285), and the payload that follows.
package rtp

import (
	"encoding/binary"
	"fmt"
)

const (
	versionShift   = 6
	versionMask    = 0x3
	paddingShift   = 5
	paddingMask    = 0x1
	extensionShift = 4
	extensionMask  = 0x1
	ccMask         = 0xf
	markerShift    = 7
	markerMask     = 0x1
	ptMask         = 0x7f

	headerLength     = 4
	seqNumOffset     = 2
	seqNumLength     = 2
	timestampOffset  = 4
	timestampLength  = 4
	ssrcOffset       = 8
	ssrcLength       = 4
	csrcOffset       = 12
	csrcLength       = 4

	extensionHeaderLength = 4

	extensionProfileOneByte = 0xbede
	extensionProfileTwoByte = 0x1000
)

// Header is the fixed RTP header plus its variable-length CSRC list
// and header extension.
type Header struct {
	Version          uint8
	Padding          bool
	Extension        bool
	Marker           bool
	PayloadType      uint8
	SequenceNumber   uint16
	Timestamp        uint32
	SSRC             uint32
	CSRC             []uint32
	ExtensionProfile uint16
	Extensions       []Extension
}

// Extension is one RFC 8285 header extension element.
type Extension struct {
	ID      uint8
	Payload []byte
}

// Packet is a fully decoded RTP packet.
type Packet struct {
	Header
	Payload []byte
}

// MarshalSize returns the size, in bytes, Marshal would produce.
func (p *Packet) MarshalSize() int {
	size := headerLength + timestampLength + ssrcLength + len(p.CSRC)*csrcLength
	if p.Extension {
		size += extensionHeaderLength + p.extensionPayloadLen()
	}
	return size + len(p.Payload)
}

func (p *Packet) extensionPayloadLen() int {
	switch p.ExtensionProfile {
	case extensionProfileOneByte, extensionProfileTwoByte:
		n := 0
		for _, e := range p.Extensions {
			if p.ExtensionProfile == extensionProfileOneByte {
				n += 1 + len(e.Payload)
			} else {
				n += 2 + len(e.Payload)
			}
		}
		return roundTo4(n)
	default:
		n := 0
		for _, e := range p.Extensions {
			n += len(e.Payload)
		}
		return roundTo4(n)
	}
}

func roundTo4(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + (4 - n%4)
}

// Marshal encodes the packet to its wire representation.
func (p *Packet) Marshal() ([]byte, error) {
	buf := make([]byte, p.MarshalSize())

	buf[0] = p.Version << versionShift
	if p.Padding {
		buf[0] |= 1 << paddingShift
	}
	if p.Extension {
		buf[0] |= 1 << extensionShift
	}
	buf[0] |= uint8(len(p.CSRC)) & ccMask

	if p.Marker {
		buf[1] = 1 << markerShift
	}
	buf[1] |= p.PayloadType & ptMask

	binary.BigEndian.PutUint16(buf[seqNumOffset:], p.SequenceNumber)
	binary.BigEndian.PutUint32(buf[timestampOffset:], p.Timestamp)
	binary.BigEndian.PutUint32(buf[ssrcOffset:], p.SSRC)

	off := csrcOffset
	for _, csrc := range p.CSRC {
		binary.BigEndian.PutUint32(buf[off:], csrc)
		off += csrcLength
	}

	if p.Extension {
		extPayload := p.marshalExtensions()
		binary.BigEndian.PutUint16(buf[off:], p.ExtensionProfile)
		off += 2
		binary.BigEndian.PutUint16(buf[off:], uint16(len(extPayload)/4))
		off += 2
		copy(buf[off:], extPayload)
		off += len(extPayload)
	}

	copy(buf[off:], p.Payload)
	return buf, nil
}

func (p *Packet) marshalExtensions() []byte {
	var out []byte
	switch p.ExtensionProfile {
	case extensionProfileOneByte:
		for _, e := range p.Extensions {
			out = append(out, (e.ID<<4)|uint8(len(e.Payload)-1))
			out = append(out, e.Payload...)
		}
	case extensionProfileTwoByte:
		for _, e := range p.Extensions {
			out = append(out, e.ID, uint8(len(e.Payload)))
			out = append(out, e.Payload...)
		}
	default:
		for _, e := range p.Extensions {
			out = append(out, e.Payload...)
		}
	}
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// Unmarshal decodes raw into the packet.
func (p *Packet) Unmarshal(raw []byte) error {
	if len(raw) < headerLength+timestampLength+ssrcLength {
		return fmt.Errorf("rtp: header too short: %d bytes", len(raw))
	}

	p.Version = raw[0] >> versionShift & versionMask
	p.Padding = (raw[0]>>paddingShift)&paddingMask > 0
	p.Extension = (raw[0]>>extensionShift)&extensionMask > 0
	ccCount := int(raw[0] & ccMask)

	p.Marker = (raw[1]>>markerShift)&markerMask > 0
	p.PayloadType = raw[1] & ptMask

	p.SequenceNumber = binary.BigEndian.Uint16(raw[seqNumOffset:])
	p.Timestamp = binary.BigEndian.Uint32(raw[timestampOffset:])
	p.SSRC = binary.BigEndian.Uint32(raw[ssrcOffset:])

	off := csrcOffset + ccCount*csrcLength
	if len(raw) < off {
		return fmt.Errorf("rtp: truncated CSRC list: %d bytes, need %d", len(raw), off)
	}
	p.CSRC = make([]uint32, ccCount)
	for i := range p.CSRC {
		p.CSRC[i] = binary.BigEndian.Uint32(raw[csrcOffset+i*csrcLength:])
	}

	if p.Extension {
		if len(raw) < off+extensionHeaderLength {
			return fmt.Errorf("rtp: truncated extension header")
		}
		p.ExtensionProfile = binary.BigEndian.Uint16(raw[off:])
		off += 2
		extWords := int(binary.BigEndian.Uint16(raw[off:]))
		off += 2
		extLen := extWords * 4
		if len(raw) < off+extLen {
			return fmt.Errorf("rtp: truncated extension payload")
		}
		if err := p.unmarshalExtensions(raw[off : off+extLen]); err != nil {
			return err
		}
		off += extLen
	} else {
		p.Extensions = nil
	}

	p.Payload = raw[off:]
	return nil
}

func (p *Packet) unmarshalExtensions(buf []byte) error {
	p.Extensions = nil
	switch p.ExtensionProfile {
	case extensionProfileOneByte:
		for len(buf) > 0 {
			if buf[0] == 0 {
				buf = buf[1:]
				continue
			}
			id := buf[0] >> 4
			l := int(buf[0]&0x0f) + 1
			buf = buf[1:]
			if len(buf) < l {
				return fmt.Errorf("rtp: truncated one-byte extension")
			}
			p.Extensions = append(p.Extensions, Extension{ID: id, Payload: append([]byte{}, buf[:l]...)})
			buf = buf[l:]
		}
	case extensionProfileTwoByte:
		for len(buf) >= 2 {
			id := buf[0]
			l := int(buf[1])
			buf = buf[2:]
			if len(buf) < l {
				return fmt.Errorf("rtp: truncated two-byte extension")
			}
			p.Extensions = append(p.Extensions, Extension{ID: id, Payload: append([]byte{}, buf[:l]...)})
			buf = buf[l:]
		}
	default:
		p.Extensions = []Extension{{Payload: append([]byte{}, buf...)}}
	}
	return nil
}
