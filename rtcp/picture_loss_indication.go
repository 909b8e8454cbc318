package rtcp

import "encoding/binary"

// PictureLossIndication (PLI, RFC 4585 §6.3.1) tells an encoder that an
// undefined amount of coded video data has been lost, with no further
// detail on which pictures. PLI carries no parameters: length is fixed.
type PictureLossIndication struct {
	SenderSSRC uint32
	MediaSSRC  uint32
}

const pliLength = 2

func (p PictureLossIndication) Marshal() ([]byte, error) {
	body := make([]byte, ssrcLength*2)
	binary.BigEndian.PutUint32(body, p.SenderSSRC)
	binary.BigEndian.PutUint32(body[ssrcLength:], p.MediaSSRC)

	h := Header{Count: uint8(FormatPLI), Type: TypePayloadSpecificFeedback, Length: pliLength}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	return append(hData, body...), nil
}

func (p *PictureLossIndication) Unmarshal(raw []byte) error {
	var h Header
	if err := h.Unmarshal(raw); err != nil {
		return err
	}
	if h.Type != TypePayloadSpecificFeedback || PacketType(h.Count) != FormatPLI {
		return errWrongType
	}
	body := raw[headerLength:]
	if len(body) < ssrcLength*2 {
		return errPacketTooShort
	}
	p.SenderSSRC = binary.BigEndian.Uint32(body)
	p.MediaSSRC = binary.BigEndian.Uint32(body[ssrcLength:])
	return nil
}

func (p *PictureLossIndication) Header() Header {
	return Header{Count: uint8(FormatPLI), Type: TypePayloadSpecificFeedback, Length: pliLength}
}

func (p *PictureLossIndication) DestinationSSRC() []uint32 {
	return []uint32{p.MediaSSRC}
}
