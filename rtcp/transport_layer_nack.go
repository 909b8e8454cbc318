package rtcp

import "encoding/binary"

// PacketBitmap is the bitmask of additionally-lost packets following a
// NackPair's PacketID; access it through PacketList rather than raw bits.
type PacketBitmap uint16

// NackPair names one lost packet plus a bitmask of further losses
// immediately following it, RFC 4585 §6.2.1's compact NACK encoding.
type NackPair struct {
	PacketID    uint16
	LostPackets PacketBitmap
}

// PacketList expands a NackPair into the full list of lost sequence numbers.
func (n NackPair) PacketList() []uint16 {
	out := make([]uint16, 1, 17)
	out[0] = n.PacketID
	for i := uint16(0); i < 16; i++ {
		if n.LostPackets&(1<<i) != 0 {
			out = append(out, n.PacketID+i+1)
		}
	}
	return out
}

const nackOffset = ssrcLength * 2

// TransportLayerNack (generic NACK, RFC 4585 §6.2.1) reports lost RTP
// sequence numbers for a transport-layer feedback loop.
type TransportLayerNack struct {
	SenderSSRC uint32
	MediaSSRC  uint32
	Nacks      []NackPair
}

func (p TransportLayerNack) Marshal() ([]byte, error) {
	if len(p.Nacks) > countMax {
		return nil, errTooManyReports
	}

	body := make([]byte, nackOffset+len(p.Nacks)*4)
	binary.BigEndian.PutUint32(body, p.SenderSSRC)
	binary.BigEndian.PutUint32(body[ssrcLength:], p.MediaSSRC)
	for i, n := range p.Nacks {
		binary.BigEndian.PutUint16(body[nackOffset+4*i:], n.PacketID)
		binary.BigEndian.PutUint16(body[nackOffset+4*i+2:], uint16(n.LostPackets))
	}

	h := Header{
		Count:  uint8(FormatTLN),
		Type:   TypeTransportSpecificFeedback,
		Length: uint16((headerLength+len(body))/4 - 1),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	return append(hData, body...), nil
}

func (p *TransportLayerNack) Unmarshal(raw []byte) error {
	var h Header
	if err := h.Unmarshal(raw); err != nil {
		return err
	}
	if h.Type != TypeTransportSpecificFeedback || PacketType(h.Count) != FormatTLN {
		return errWrongType
	}

	body := raw[headerLength:]
	if len(body) < nackOffset {
		return errPacketTooShort
	}
	p.SenderSSRC = binary.BigEndian.Uint32(body)
	p.MediaSSRC = binary.BigEndian.Uint32(body[ssrcLength:])

	p.Nacks = nil
	for i := nackOffset; i+4 <= len(body); i += 4 {
		p.Nacks = append(p.Nacks, NackPair{
			PacketID:    binary.BigEndian.Uint16(body[i:]),
			LostPackets: PacketBitmap(binary.BigEndian.Uint16(body[i+2:])),
		})
	}
	return nil
}

func (p *TransportLayerNack) Header() Header {
	return Header{Count: uint8(FormatTLN), Type: TypeTransportSpecificFeedback}
}

func (p *TransportLayerNack) DestinationSSRC() []uint32 {
	return []uint32{p.MediaSSRC}
}
