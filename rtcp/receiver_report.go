package rtcp

import "encoding/binary"

// ReceiverReport (RR) is a SenderReport without the sender-side stats,
// sent by receivers that are not themselves active senders.
type ReceiverReport struct {
	SSRC    uint32
	Reports []ReceptionReport
}

func (r ReceiverReport) Marshal() ([]byte, error) {
	if len(r.Reports) > countMax {
		return nil, errTooManyReports
	}

	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, r.SSRC)
	for _, rp := range r.Reports {
		data, err := rp.Marshal()
		if err != nil {
			return nil, err
		}
		body = append(body, data...)
	}

	h := Header{
		Count:  uint8(len(r.Reports)),
		Type:   TypeReceiverReport,
		Length: uint16((headerLength+len(body))/4 - 1),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	return append(hData, body...), nil
}

func (r *ReceiverReport) Unmarshal(raw []byte) error {
	var h Header
	if err := h.Unmarshal(raw); err != nil {
		return err
	}
	if h.Type != TypeReceiverReport {
		return errWrongType
	}

	body := raw[headerLength:]
	if len(body) < 4 {
		return errPacketTooShort
	}
	r.SSRC = binary.BigEndian.Uint32(body)

	r.Reports = nil
	for i := 4; i+receptionReportLength <= len(body); i += receptionReportLength {
		var rr ReceptionReport
		if err := rr.Unmarshal(body[i:]); err != nil {
			return err
		}
		r.Reports = append(r.Reports, rr)
	}
	return nil
}

func (r *ReceiverReport) Header() Header {
	return Header{Count: uint8(len(r.Reports)), Type: TypeReceiverReport}
}

func (r *ReceiverReport) DestinationSSRC() []uint32 {
	out := make([]uint32, 0, len(r.Reports))
	for _, rp := range r.Reports {
		out = append(out, rp.SSRC)
	}
	return out
}
