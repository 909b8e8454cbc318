package rtcp

// Packet is any RTCP packet type: the shared Header it carries, the
// SSRCs the application-layer logic should route it to, and
// Marshal/Unmarshal to its wire form.
type Packet interface {
	Header() Header
	DestinationSSRC() []uint32
	Marshal() ([]byte, error)
	Unmarshal(raw []byte) error
}

// Unmarshal decodes one RTCP packet, dispatching on its header's Type
// (and, for feedback types, its Count/FMT field) to the concrete type.
func Unmarshal(raw []byte) (Packet, error) {
	var h Header
	if err := h.Unmarshal(raw); err != nil {
		return nil, err
	}

	var p Packet
	switch h.Type {
	case TypeSenderReport:
		p = new(SenderReport)
	case TypeReceiverReport:
		p = new(ReceiverReport)
	case TypeSourceDescription:
		p = new(SourceDescription)
	case TypeGoodbye:
		p = new(Goodbye)
	case TypeTransportSpecificFeedback:
		switch PacketType(h.Count) {
		case FormatTLN:
			p = new(TransportLayerNack)
		case FormatTWCC:
			p = new(TransportLayerCC)
		default:
			return nil, errWrongType
		}
	case TypePayloadSpecificFeedback:
		switch PacketType(h.Count) {
		case FormatPLI:
			p = new(PictureLossIndication)
		case FormatFIR:
			p = new(FullIntraRequest)
		case FormatREMB:
			p = new(ReceiverEstimatedMaximumBitrate)
		default:
			return nil, errWrongType
		}
	default:
		return nil, errWrongType
	}

	if err := p.Unmarshal(raw); err != nil {
		return nil, err
	}
	return p, nil
}

// UnmarshalCompound splits a compound RTCP packet (RFC 3550 §6.1: one
// or more individual packets concatenated back to back) into its
// constituent Packets.
func UnmarshalCompound(raw []byte) ([]Packet, error) {
	var out []Packet
	for len(raw) > 0 {
		if len(raw) < headerLength {
			return nil, errPacketTooShort
		}
		var h Header
		if err := h.Unmarshal(raw); err != nil {
			return nil, err
		}
		packetLen := (int(h.Length) + 1) * 4
		if packetLen > len(raw) {
			return nil, errPacketTooShort
		}

		p, err := Unmarshal(raw[:packetLen])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		raw = raw[packetLen:]
	}
	return out, nil
}

// MarshalCompound concatenates packets into a single compound RTCP
// packet. The first packet SHOULD be a SenderReport or ReceiverReport
// per RFC 3550 §6.1; callers are responsible for that ordering.
func MarshalCompound(packets []Packet) ([]byte, error) {
	var out []byte
	for _, p := range packets {
		data, err := p.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}
