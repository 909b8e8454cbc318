package sctp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPayloadQueueOrdersAndPops(t *testing.T) {
	var q payloadQueue
	q.push(&chunkPayloadData{tsn: 3}, 0)
	q.push(&chunkPayloadData{tsn: 2}, 0)
	q.push(&chunkPayloadData{tsn: 1}, 0)

	c, ok := q.pop(1)
	require.True(t, ok)
	require.Equal(t, uint32(1), c.tsn)

	_, ok = q.pop(3)
	require.False(t, ok, "cannot pop out of order")

	c, ok = q.pop(2)
	require.True(t, ok)
	require.Equal(t, uint32(2), c.tsn)
}

func TestPayloadQueueDetectsDuplicates(t *testing.T) {
	var q payloadQueue
	q.push(&chunkPayloadData{tsn: 5}, 0)
	q.push(&chunkPayloadData{tsn: 5}, 0)
	require.Equal(t, []uint32{5}, q.popDuplicates())
}

func TestPayloadQueueGapAckBlocks(t *testing.T) {
	var q payloadQueue
	q.push(&chunkPayloadData{tsn: 12}, 10)
	q.push(&chunkPayloadData{tsn: 13}, 10)
	q.push(&chunkPayloadData{tsn: 16}, 10)

	blocks := q.gapAckBlocks(10)
	require.Equal(t, []gapAckBlock{{start: 2, end: 3}, {start: 6, end: 6}}, blocks)
}
