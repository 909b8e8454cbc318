// Package rtcp implements RFC 3550 §6 RTCP packet types: the common
// header, compound-packet assembly, sender/receiver reports, source
// description, goodbye, and the feedback messages used for congestion
// and loss signalling (RFC 4585 generic NACK, RFC 5104 FIR, and the
// REMB/transport-wide-CC feedback formats layered on top of PSFB/RTPFB).
package rtcp

import "encoding/binary"

// PacketType identifies the RTCP packet type carried in a Header.
type PacketType uint8

const (
	TypeSenderReport              PacketType = 200 // RFC 3550, 6.4.1
	TypeReceiverReport            PacketType = 201 // RFC 3550, 6.4.2
	TypeSourceDescription         PacketType = 202 // RFC 3550, 6.5
	TypeGoodbye                   PacketType = 203 // RFC 3550, 6.6
	TypeApplicationDefined        PacketType = 204 // RFC 3550, 6.7
	TypeTransportSpecificFeedback PacketType = 205 // RFC 4585, 6.2
	TypePayloadSpecificFeedback   PacketType = 206 // RFC 4585, 6.3
)

func (p PacketType) String() string {
	switch p {
	case TypeSenderReport:
		return "SR"
	case TypeReceiverReport:
		return "RR"
	case TypeSourceDescription:
		return "SDES"
	case TypeGoodbye:
		return "BYE"
	case TypeApplicationDefined:
		return "APP"
	case TypeTransportSpecificFeedback:
		return "TransportFeedback"
	case TypePayloadSpecificFeedback:
		return "PayloadFeedback"
	default:
		return "Unknown"
	}
}

// RTPFB (TypeTransportSpecificFeedback) formats.
const (
	FormatTLN PacketType = 1 // generic NACK, RFC 4585 6.2.1
	FormatRRR PacketType = 5 // rapid resync request, RFC 4585 6.2.2 via RFC 5104 4.3.2 convention
	FormatTWCC PacketType = 15
)

// PSFB (TypePayloadSpecificFeedback) formats.
const (
	FormatPLI  PacketType = 1 // RFC 4585 6.3.1
	FormatSLI  PacketType = 2 // RFC 4585 6.3.2
	FormatFIR  PacketType = 4 // RFC 5104 4.3.1
	FormatREMB PacketType = 15
)

const (
	headerLength = 4
	ssrcLength   = 4
	versionShift = 6
	versionMask  = 0x3
	paddingShift = 5
	paddingMask  = 0x1
	countShift   = 0
	countMask    = 0x1f
	countMax     = (1 << 5) - 1
	rtpVersion   = 2
)

// Header is the common 4-byte header shared by every RTCP packet.
type Header struct {
	Version uint8
	Padding bool
	Count   uint8
	Type    PacketType
	Length  uint16
}

func (h Header) Marshal() ([]byte, error) {
	raw := make([]byte, headerLength)

	if h.Version > 3 {
		return nil, errInvalidHeader
	}
	raw[0] |= h.Version << versionShift

	if h.Padding {
		raw[0] |= 1 << paddingShift
	}

	if h.Count > countMax {
		return nil, errInvalidHeader
	}
	raw[0] |= h.Count << countShift

	raw[1] = uint8(h.Type)
	binary.BigEndian.PutUint16(raw[2:], h.Length)
	return raw, nil
}

func (h *Header) Unmarshal(raw []byte) error {
	if len(raw) < headerLength {
		return errInvalidHeader
	}

	h.Version = raw[0] >> versionShift & versionMask
	h.Padding = (raw[0]>>paddingShift)&paddingMask > 0
	h.Count = raw[0] >> countShift & countMask
	h.Type = PacketType(raw[1])
	h.Length = binary.BigEndian.Uint16(raw[2:])
	return nil
}
