package rtcp

import "encoding/binary"

const (
	senderReportLength = 24
	ntpTimeOffset      = 4
	rtpTimeOffset      = 12
	packetCountOffset  = 16
	octetCountOffset   = 20
)

// SenderReport (SR) gives reception-quality feedback plus the sender's
// own transmission stats and wallclock-to-RTP-timestamp mapping.
type SenderReport struct {
	SSRC        uint32
	NTPTime     uint64
	RTPTime     uint32
	PacketCount uint32
	OctetCount  uint32
	Reports     []ReceptionReport
}

func (r SenderReport) Marshal() ([]byte, error) {
	if len(r.Reports) > countMax {
		return nil, errTooManyReports
	}

	body := make([]byte, senderReportLength)
	binary.BigEndian.PutUint32(body, r.SSRC)
	binary.BigEndian.PutUint64(body[ntpTimeOffset:], r.NTPTime)
	binary.BigEndian.PutUint32(body[rtpTimeOffset:], r.RTPTime)
	binary.BigEndian.PutUint32(body[packetCountOffset:], r.PacketCount)
	binary.BigEndian.PutUint32(body[octetCountOffset:], r.OctetCount)

	for _, rp := range r.Reports {
		data, err := rp.Marshal()
		if err != nil {
			return nil, err
		}
		body = append(body, data...)
	}

	h := Header{
		Count:  uint8(len(r.Reports)),
		Type:   TypeSenderReport,
		Length: uint16((headerLength+len(body))/4 - 1),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	return append(hData, body...), nil
}

func (r *SenderReport) Unmarshal(raw []byte) error {
	var h Header
	if err := h.Unmarshal(raw); err != nil {
		return err
	}
	if h.Type != TypeSenderReport {
		return errWrongType
	}

	body := raw[headerLength:]
	if len(body) < senderReportLength {
		return errPacketTooShort
	}

	r.SSRC = binary.BigEndian.Uint32(body)
	r.NTPTime = binary.BigEndian.Uint64(body[ntpTimeOffset:])
	r.RTPTime = binary.BigEndian.Uint32(body[rtpTimeOffset:])
	r.PacketCount = binary.BigEndian.Uint32(body[packetCountOffset:])
	r.OctetCount = binary.BigEndian.Uint32(body[octetCountOffset:])

	r.Reports = nil
	for i := senderReportLength; i+receptionReportLength <= len(body); i += receptionReportLength {
		var rr ReceptionReport
		if err := rr.Unmarshal(body[i:]); err != nil {
			return err
		}
		r.Reports = append(r.Reports, rr)
	}
	return nil
}

func (r *SenderReport) Header() Header {
	return Header{Count: uint8(len(r.Reports)), Type: TypeSenderReport}
}

func (r *SenderReport) DestinationSSRC() []uint32 {
	out := make([]uint32, 0, len(r.Reports))
	for _, rp := range r.Reports {
		out = append(out, rp.SSRC)
	}
	return out
}
