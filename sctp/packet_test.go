package sctp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketRoundTrip(t *testing.T) {
	p := &packet{
		sourcePort:      5000,
		destinationPort: 5001,
		verificationTag: 0x11223344,
		chunks: []chunk{
			&chunkPayloadData{
				beginningFragment:    true,
				endingFragment:       true,
				tsn:                  42,
				streamID:             1,
				streamSequenceNumber: 0,
				payloadType:          PayloadTypeWebRTCString,
				userData:             []byte("hello"),
			},
		},
	}

	raw, err := p.marshal()
	require.NoError(t, err)

	var out packet
	require.NoError(t, out.unmarshal(raw))
	require.Equal(t, p.sourcePort, out.sourcePort)
	require.Equal(t, p.verificationTag, out.verificationTag)
	require.Len(t, out.chunks, 1)

	data, ok := out.chunks[0].(*chunkPayloadData)
	require.True(t, ok)
	require.Equal(t, uint32(42), data.tsn)
	require.Equal(t, []byte("hello"), data.userData)
}

func TestPacketRejectsBadChecksum(t *testing.T) {
	p := &packet{chunks: []chunk{&chunkCookieAck{}}}
	raw, err := p.marshal()
	require.NoError(t, err)
	raw[9] ^= 0xff

	var out packet
	require.Error(t, out.unmarshal(raw))
}

func TestChunkInitRoundTrip(t *testing.T) {
	in := &chunkInit{}
	in.initiateTag = 7
	in.advertisedReceiverWindowCredit = 1 << 16
	in.numOutboundStreams = 10
	in.numInboundStreams = 10
	in.initialTSN = 100
	in.params = []paramHeader{{typ: paramStateCookie, raw: []byte{1, 2, 3, 4}}}

	raw, err := in.marshal()
	require.NoError(t, err)

	out := &chunkInit{}
	require.NoError(t, out.unmarshal(raw))
	require.Equal(t, in.initiateTag, out.initiateTag)
	require.Equal(t, in.initialTSN, out.initialTSN)
	cookie, ok := findParam(out.params, paramStateCookie)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4}, cookie)
}

func TestChunkSackRoundTrip(t *testing.T) {
	in := &chunkSack{
		cumulativeTSNAck: 10,
		advertisedRWND:   2048,
		gapAckBlocks:     []gapAckBlock{{start: 2, end: 3}},
		duplicateTSNs:    []uint32{11},
	}
	raw, err := in.marshal()
	require.NoError(t, err)

	out := &chunkSack{}
	require.NoError(t, out.unmarshal(raw))
	require.Equal(t, in.cumulativeTSNAck, out.cumulativeTSNAck)
	require.Equal(t, in.gapAckBlocks, out.gapAckBlocks)
	require.Equal(t, in.duplicateTSNs, out.duplicateTSNs)
}

func TestChunkReconfigRoundTrip(t *testing.T) {
	in := &chunkReconfig{resetRequest: &outgoingSSNResetRequest{
		reconfigRequestSeq: 1,
		senderLastTSN:      99,
		streamIDs:          []uint16{3, 4},
	}}
	raw, err := in.marshal()
	require.NoError(t, err)

	out := &chunkReconfig{}
	require.NoError(t, out.unmarshal(raw))
	require.NotNil(t, out.resetRequest)
	require.Equal(t, []uint16{3, 4}, out.resetRequest.streamIDs)
}

func TestChunkForwardTSNRoundTrip(t *testing.T) {
	in := &chunkForwardTSN{
		newCumulativeTSN: 50,
		streams:          []forwardTSNStream{{streamID: 1, streamSeq: 2}},
	}
	raw, err := in.marshal()
	require.NoError(t, err)

	out := &chunkForwardTSN{}
	require.NoError(t, out.unmarshal(raw))
	require.Equal(t, in.newCumulativeTSN, out.newCumulativeTSN)
	require.Equal(t, in.streams, out.streams)
}
