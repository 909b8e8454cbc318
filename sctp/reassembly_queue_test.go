package sctp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReassemblyQueueUnorderedSingleChunk(t *testing.T) {
	q := newReassemblyQueue()
	msgs := q.push(&chunkPayloadData{
		unordered: true, beginningFragment: true, endingFragment: true,
		tsn: 1, streamID: 0, payloadType: PayloadTypeWebRTCString, userData: []byte("hi"),
	})
	require.Len(t, msgs, 1)
	require.Equal(t, []byte("hi"), msgs[0].userData)
}

func TestReassemblyQueueFragmentedMessage(t *testing.T) {
	q := newReassemblyQueue()
	require.Empty(t, q.push(&chunkPayloadData{
		unordered: true, beginningFragment: true, tsn: 1, userData: []byte("hel"),
	}))
	require.Empty(t, q.push(&chunkPayloadData{
		unordered: true, tsn: 2, userData: []byte("lo "),
	}))
	msgs := q.push(&chunkPayloadData{
		unordered: true, endingFragment: true, tsn: 3, userData: []byte("world"),
	})
	require.Len(t, msgs, 1)
	require.Equal(t, []byte("hello world"), msgs[0].userData)
}

func TestReassemblyQueueOrderedWaitsForSSN(t *testing.T) {
	q := newReassemblyQueue()
	// SSN 1 arrives before SSN 0: must not be delivered yet.
	require.Empty(t, q.push(&chunkPayloadData{
		beginningFragment: true, endingFragment: true, tsn: 2,
		streamID: 0, streamSequenceNumber: 1, userData: []byte("second"),
	}))

	msgs := q.push(&chunkPayloadData{
		beginningFragment: true, endingFragment: true, tsn: 1,
		streamID: 0, streamSequenceNumber: 0, userData: []byte("first"),
	})
	require.Len(t, msgs, 2)
	require.Equal(t, []byte("first"), msgs[0].userData)
	require.Equal(t, []byte("second"), msgs[1].userData)
}
