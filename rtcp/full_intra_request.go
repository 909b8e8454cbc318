package rtcp

import "encoding/binary"

// FIREntry is one per-source request within a FullIntraRequest packet.
type FIREntry struct {
	SSRC           uint32
	SequenceNumber uint8
}

const firEntryLength = 8

// FullIntraRequest (FIR, RFC 5104 §4.3.1) asks one or more media
// sources to send a new decoder-refresh point. Unlike PLI it names the
// sources explicitly and carries a sequence number to match requests
// with the resulting keyframes.
type FullIntraRequest struct {
	SenderSSRC uint32
	MediaSSRC  uint32
	FIR        []FIREntry
}

func (f FullIntraRequest) Marshal() ([]byte, error) {
	body := make([]byte, ssrcLength*2, ssrcLength*2+len(f.FIR)*firEntryLength)
	binary.BigEndian.PutUint32(body, f.SenderSSRC)
	binary.BigEndian.PutUint32(body[ssrcLength:], f.MediaSSRC)

	for _, e := range f.FIR {
		entry := make([]byte, firEntryLength)
		binary.BigEndian.PutUint32(entry, e.SSRC)
		entry[4] = e.SequenceNumber
		body = append(body, entry...)
	}

	h := Header{
		Count:  uint8(FormatFIR),
		Type:   TypePayloadSpecificFeedback,
		Length: uint16((headerLength+len(body))/4 - 1),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	return append(hData, body...), nil
}

func (f *FullIntraRequest) Unmarshal(raw []byte) error {
	var h Header
	if err := h.Unmarshal(raw); err != nil {
		return err
	}
	if h.Type != TypePayloadSpecificFeedback || PacketType(h.Count) != FormatFIR {
		return errWrongType
	}

	body := raw[headerLength:]
	if len(body) < ssrcLength*2 {
		return errPacketTooShort
	}
	f.SenderSSRC = binary.BigEndian.Uint32(body)
	f.MediaSSRC = binary.BigEndian.Uint32(body[ssrcLength:])

	f.FIR = nil
	for i := ssrcLength * 2; i+firEntryLength <= len(body); i += firEntryLength {
		f.FIR = append(f.FIR, FIREntry{
			SSRC:           binary.BigEndian.Uint32(body[i:]),
			SequenceNumber: body[i+4],
		})
	}
	return nil
}

func (f *FullIntraRequest) Header() Header {
	return Header{Count: uint8(FormatFIR), Type: TypePayloadSpecificFeedback}
}

func (f *FullIntraRequest) DestinationSSRC() []uint32 {
	out := make([]uint32, 0, len(f.FIR))
	for _, e := range f.FIR {
		out = append(out, e.SSRC)
	}
	return out
}
