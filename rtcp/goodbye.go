package rtcp

import "encoding/binary"

// Goodbye (BYE) announces that one or more sources are leaving the
// session, optionally giving a human-readable reason.
type Goodbye struct {
	Sources []uint32
	Reason  string
}

func (g Goodbye) Marshal() ([]byte, error) {
	if len(g.Sources) > countMax {
		return nil, errTooManySources
	}

	body := make([]byte, len(g.Sources)*ssrcLength)
	for i, s := range g.Sources {
		binary.BigEndian.PutUint32(body[i*ssrcLength:], s)
	}

	if g.Reason != "" {
		reason := []byte(g.Reason)
		if len(reason) > 0xff {
			return nil, errReasonTooLong
		}
		body = append(body, uint8(len(reason)))
		body = append(body, reason...)
	}
	for len(body)%4 != 0 {
		body = append(body, 0)
	}

	h := Header{
		Count:  uint8(len(g.Sources)),
		Type:   TypeGoodbye,
		Length: uint16((headerLength+len(body))/4 - 1),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	return append(hData, body...), nil
}

func (g *Goodbye) Unmarshal(raw []byte) error {
	var h Header
	if err := h.Unmarshal(raw); err != nil {
		return err
	}
	if h.Type != TypeGoodbye {
		return errWrongType
	}

	body := raw[headerLength:]
	srcEnd := int(h.Count) * ssrcLength
	if srcEnd > len(body) {
		return errPacketTooShort
	}

	g.Sources = make([]uint32, h.Count)
	for i := range g.Sources {
		g.Sources[i] = binary.BigEndian.Uint32(body[i*ssrcLength:])
	}

	if srcEnd < len(body) {
		reasonLen := int(body[srcEnd])
		reasonEnd := srcEnd + 1 + reasonLen
		if reasonEnd > len(body) {
			return errPacketTooShort
		}
		g.Reason = string(body[srcEnd+1 : reasonEnd])
	}
	return nil
}

func (g *Goodbye) Header() Header {
	return Header{Count: uint8(len(g.Sources)), Type: TypeGoodbye}
}

func (g *Goodbye) DestinationSSRC() []uint32 {
	return g.Sources
}
