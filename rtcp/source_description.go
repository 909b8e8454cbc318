package rtcp

import "encoding/binary"

// SDES item types registered with IANA (RFC 3550 §6.5).
const (
	SDESEnd = iota
	SDESCNAME
	SDESName
	SDESEmail
	SDESPhone
	SDESLocation
	SDESTool
	SDESNote
	SDESPrivate
)

const (
	sdesSourceLen     = 4
	sdesTypeLen       = 1
	sdesOctetCountLen = 1
	sdesTextOffset    = sdesSourceLen // within a chunk, offset of the first item
)

// SourceDescription (SDES) carries per-source descriptive items (CNAME
// being the only one WebRTC media sessions always send).
type SourceDescription struct {
	Chunks []SourceDescriptionChunk
}

type SourceDescriptionChunk struct {
	Source uint32
	Items  []SourceDescriptionItem
}

type SourceDescriptionItem struct {
	Type uint8
	Text string
}

func (s SourceDescription) Marshal() ([]byte, error) {
	if len(s.Chunks) > countMax {
		return nil, errTooManyChunksSDES
	}

	var body []byte
	for _, c := range s.Chunks {
		data, err := c.marshal()
		if err != nil {
			return nil, err
		}
		body = append(body, data...)
	}

	h := Header{
		Count:  uint8(len(s.Chunks)),
		Type:   TypeSourceDescription,
		Length: uint16((headerLength+len(body))/4 - 1),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	return append(hData, body...), nil
}

func (s *SourceDescription) Unmarshal(raw []byte) error {
	var h Header
	if err := h.Unmarshal(raw); err != nil {
		return err
	}
	if h.Type != TypeSourceDescription {
		return errWrongType
	}

	body := raw[headerLength:]
	s.Chunks = nil
	for i := 0; i < len(body); {
		var c SourceDescriptionChunk
		n, err := c.unmarshal(body[i:])
		if err != nil {
			return err
		}
		s.Chunks = append(s.Chunks, c)
		i += n
	}
	return nil
}

func (c SourceDescriptionChunk) marshal() ([]byte, error) {
	body := make([]byte, sdesSourceLen)
	binary.BigEndian.PutUint32(body, c.Source)

	for _, it := range c.Items {
		data, err := it.marshal()
		if err != nil {
			return nil, err
		}
		body = append(body, data...)
	}
	body = append(body, SDESEnd) // null-octet terminator

	for len(body)%4 != 0 {
		body = append(body, 0)
	}
	return body, nil
}

func (c *SourceDescriptionChunk) unmarshal(raw []byte) (int, error) {
	if len(raw) < sdesSourceLen+sdesTypeLen {
		return 0, errPacketTooShort
	}
	c.Source = binary.BigEndian.Uint32(raw)

	i := sdesTextOffset
	for i < len(raw) {
		if raw[i] == SDESEnd {
			i++
			break
		}
		var it SourceDescriptionItem
		n, err := it.unmarshal(raw[i:])
		if err != nil {
			return 0, err
		}
		c.Items = append(c.Items, it)
		i += n
	}
	for i%4 != 0 {
		i++
	}
	return i, nil
}

func (it SourceDescriptionItem) marshal() ([]byte, error) {
	if it.Type == SDESEnd {
		return nil, errSDESMissingType
	}
	txt := []byte(it.Text)
	if len(txt) > 0xff {
		return nil, errSDESTextTooLong
	}
	body := make([]byte, sdesTypeLen+sdesOctetCountLen, sdesTypeLen+sdesOctetCountLen+len(txt))
	body[0] = it.Type
	body[1] = uint8(len(txt))
	body = append(body, txt...)
	return body, nil
}

func (it *SourceDescriptionItem) unmarshal(raw []byte) (int, error) {
	if len(raw) < sdesTypeLen+sdesOctetCountLen {
		return 0, errPacketTooShort
	}
	it.Type = raw[0]
	n := int(raw[1])
	if sdesTypeLen+sdesOctetCountLen+n > len(raw) {
		return 0, errPacketTooShort
	}
	it.Text = string(raw[sdesTypeLen+sdesOctetCountLen : sdesTypeLen+sdesOctetCountLen+n])
	return sdesTypeLen + sdesOctetCountLen + n, nil
}

func (s *SourceDescription) Header() Header {
	return Header{Count: uint8(len(s.Chunks)), Type: TypeSourceDescription}
}

func (s *SourceDescription) DestinationSSRC() []uint32 {
	out := make([]uint32, 0, len(s.Chunks))
	for _, c := range s.Chunks {
		out = append(out, c.Source)
	}
	return out
}
