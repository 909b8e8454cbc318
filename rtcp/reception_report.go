package rtcp

import "encoding/binary"

const receptionReportLength = 24

// ReceptionReport is one RFC 3550 §6.4.1 reception report block, carried
// inside both SenderReport and ReceiverReport packets.
type ReceptionReport struct {
	SSRC               uint32
	FractionLost       uint8
	TotalLost          uint32 // 24 bits on the wire
	LastSequenceNumber uint32
	Jitter             uint32
	LastSenderReport   uint32
	Delay              uint32 // delay since last SR, in 1/65536 seconds
}

func (r ReceptionReport) Marshal() ([]byte, error) {
	raw := make([]byte, receptionReportLength)

	if r.TotalLost > 0xffffff {
		return nil, errInvalidHeader
	}

	binary.BigEndian.PutUint32(raw, r.SSRC)
	raw[4] = r.FractionLost
	raw[5] = uint8(r.TotalLost >> 16)
	raw[6] = uint8(r.TotalLost >> 8)
	raw[7] = uint8(r.TotalLost)
	binary.BigEndian.PutUint32(raw[8:], r.LastSequenceNumber)
	binary.BigEndian.PutUint32(raw[12:], r.Jitter)
	binary.BigEndian.PutUint32(raw[16:], r.LastSenderReport)
	binary.BigEndian.PutUint32(raw[20:], r.Delay)
	return raw, nil
}

func (r *ReceptionReport) Unmarshal(raw []byte) error {
	if len(raw) < receptionReportLength {
		return errPacketTooShort
	}

	r.SSRC = binary.BigEndian.Uint32(raw)
	r.FractionLost = raw[4]
	r.TotalLost = uint32(raw[5])<<16 | uint32(raw[6])<<8 | uint32(raw[7])
	r.LastSequenceNumber = binary.BigEndian.Uint32(raw[8:])
	r.Jitter = binary.BigEndian.Uint32(raw[12:])
	r.LastSenderReport = binary.BigEndian.Uint32(raw[16:])
	r.Delay = binary.BigEndian.Uint32(raw[20:])
	return nil
}
