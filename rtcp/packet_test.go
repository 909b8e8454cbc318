package rtcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderReportRoundTrip(t *testing.T) {
	sr := &SenderReport{
		SSRC:        1,
		NTPTime:     0x1122334455667788,
		RTPTime:     42,
		PacketCount: 3,
		OctetCount:  1500,
		Reports: []ReceptionReport{
			{SSRC: 2, FractionLost: 10, TotalLost: 5, LastSequenceNumber: 100, Jitter: 7, LastSenderReport: 9, Delay: 11},
		},
	}

	raw, err := sr.Marshal()
	require.NoError(t, err)

	var out SenderReport
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, *sr, out)
}

func TestReceiverReportRoundTrip(t *testing.T) {
	rr := &ReceiverReport{
		SSRC: 9,
		Reports: []ReceptionReport{
			{SSRC: 2, FractionLost: 1, TotalLost: 0, LastSequenceNumber: 5, Jitter: 0, LastSenderReport: 0, Delay: 0},
			{SSRC: 3, FractionLost: 2, TotalLost: 1, LastSequenceNumber: 6, Jitter: 1, LastSenderReport: 1, Delay: 1},
		},
	}

	raw, err := rr.Marshal()
	require.NoError(t, err)

	var out ReceiverReport
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, *rr, out)
}

func TestGoodbyeRoundTrip(t *testing.T) {
	g := &Goodbye{Sources: []uint32{1, 2, 3}, Reason: "camera malfunction"}

	raw, err := g.Marshal()
	require.NoError(t, err)

	var out Goodbye
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, *g, out)
}

func TestSourceDescriptionRoundTrip(t *testing.T) {
	s := &SourceDescription{
		Chunks: []SourceDescriptionChunk{
			{Source: 1, Items: []SourceDescriptionItem{{Type: SDESCNAME, Text: "user@host"}}},
		},
	}

	raw, err := s.Marshal()
	require.NoError(t, err)

	var out SourceDescription
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, *s, out)
}

func TestPictureLossIndicationRoundTrip(t *testing.T) {
	p := &PictureLossIndication{SenderSSRC: 1, MediaSSRC: 2}

	raw, err := p.Marshal()
	require.NoError(t, err)

	var out PictureLossIndication
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, *p, out)
}

func TestFullIntraRequestRoundTrip(t *testing.T) {
	f := &FullIntraRequest{
		SenderSSRC: 1,
		MediaSSRC:  2,
		FIR:        []FIREntry{{SSRC: 2, SequenceNumber: 3}},
	}

	raw, err := f.Marshal()
	require.NoError(t, err)

	var out FullIntraRequest
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, *f, out)
}

func TestTransportLayerNackRoundTrip(t *testing.T) {
	n := &TransportLayerNack{
		SenderSSRC: 1,
		MediaSSRC:  2,
		Nacks:      []NackPair{{PacketID: 100, LostPackets: 0b101}},
	}

	raw, err := n.Marshal()
	require.NoError(t, err)

	var out TransportLayerNack
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, *n, out)
	assert.Equal(t, []uint16{100, 101, 103}, out.Nacks[0].PacketList())
}

func TestReceiverEstimatedMaximumBitrateRoundTrip(t *testing.T) {
	r := &ReceiverEstimatedMaximumBitrate{
		SenderSSRC: 1,
		Bitrate:    1000000,
		SSRCs:      []uint32{2, 3},
	}

	raw, err := r.Marshal()
	require.NoError(t, err)

	var out ReceiverEstimatedMaximumBitrate
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, r.SenderSSRC, out.SenderSSRC)
	assert.Equal(t, r.SSRCs, out.SSRCs)
	assert.InDelta(t, r.Bitrate, out.Bitrate, 4)
}

func TestUnmarshalCompound(t *testing.T) {
	sr := &SenderReport{SSRC: 1}
	g := &Goodbye{Sources: []uint32{1}}

	raw, err := MarshalCompound([]Packet{sr, g})
	require.NoError(t, err)

	packets, err := UnmarshalCompound(raw)
	require.NoError(t, err)
	require.Len(t, packets, 2)
	assert.IsType(t, &SenderReport{}, packets[0])
	assert.IsType(t, &Goodbye{}, packets[1])
}

func TestUnmarshalRejectsShortHeader(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2})
	require.Error(t, err)
}
