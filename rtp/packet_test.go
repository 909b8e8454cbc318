package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketMarshalUnmarshalRoundTrip(t *testing.T) {
	pkt := &Packet{
		Header: Header{
			Version:        2,
			Marker:         true,
			PayloadType:    96,
			SequenceNumber: 1234,
			Timestamp:      0xdeadbeef,
			SSRC:           0x01020304,
			CSRC:           []uint32{0x11111111, 0x22222222},
		},
		Payload: []byte{1, 2, 3, 4, 5},
	}

	raw, err := pkt.Marshal()
	require.NoError(t, err)
	require.Equal(t, pkt.MarshalSize(), len(raw))

	var out Packet
	require.NoError(t, out.Unmarshal(raw))
	assert.Equal(t, pkt.Header, out.Header)
	assert.Equal(t, pkt.Payload, out.Payload)
}

func TestPacketOneByteExtensionRoundTrip(t *testing.T) {
	pkt := &Packet{
		Header: Header{
			Version:          2,
			PayloadType:      111,
			SequenceNumber:   1,
			Timestamp:        1,
			SSRC:             1,
			Extension:        true,
			ExtensionProfile: extensionProfileOneByte,
			Extensions: []Extension{
				{ID: 1, Payload: []byte{0xaa, 0xbb}},
			},
		},
		Payload: []byte{9, 9, 9},
	}

	raw, err := pkt.Marshal()
	require.NoError(t, err)

	var out Packet
	require.NoError(t, out.Unmarshal(raw))
	require.Len(t, out.Extensions, 1)
	assert.Equal(t, uint8(1), out.Extensions[0].ID)
	assert.Equal(t, []byte{0xaa, 0xbb}, out.Extensions[0].Payload)
	assert.Equal(t, pkt.Payload, out.Payload)
}

func TestUnmarshalRejectsShortHeader(t *testing.T) {
	var p Packet
	err := p.Unmarshal([]byte{1, 2, 3})
	require.Error(t, err)
}
