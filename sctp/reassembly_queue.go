package sctp

import "sort"

// reassembledMessage is one complete, in-order user message recovered
// from a run of unordered or ordered DATA chunk fragments.
type reassembledMessage struct {
	streamID    uint16
	payloadType PayloadProtocolID
	userData    []byte
}

// reassemblyQueue reassembles fragmented DATA chunks into whole
// messages per stream, respecting ordered delivery when requested.
//
// Unordered messages are reassembled and released the moment their
// beginning/ending fragments complete a run. Ordered messages must
// additionally wait for their streamSequenceNumber to be the next one
// expected on that stream, mirroring RFC 4960 §3.3.1's ordering rule.
type reassemblyQueue struct {
	unordered []*chunkPayloadData
	ordered   []*chunkPayloadData

	nextSSN map[uint16]uint16
}

func newReassemblyQueue() *reassemblyQueue {
	return &reassemblyQueue{nextSSN: map[uint16]uint16{}}
}

// push stores c and returns any messages it completed, in TSN order.
func (q *reassemblyQueue) push(c *chunkPayloadData) []reassembledMessage {
	if c.unordered {
		q.unordered = append(q.unordered, c)
		sort.Slice(q.unordered, func(i, j int) bool { return q.unordered[i].tsn < q.unordered[j].tsn })
		return q.drainUnordered()
	}

	q.ordered = append(q.ordered, c)
	sort.Slice(q.ordered, func(i, j int) bool {
		if q.ordered[i].streamID != q.ordered[j].streamID {
			return q.ordered[i].streamID < q.ordered[j].streamID
		}
		return q.ordered[i].tsn < q.ordered[j].tsn
	})
	return q.drainOrdered()
}

// drainUnordered pulls out every complete beginning..ending run
// present at the front of the unordered queue, in TSN order.
func (q *reassemblyQueue) drainUnordered() []reassembledMessage {
	var out []reassembledMessage
	for {
		msg, consumed, ok := completeRun(q.unordered)
		if !ok {
			return out
		}
		q.unordered = q.unordered[consumed:]
		out = append(out, msg)
	}
}

// drainOrdered releases completed runs only when the run's streamSeq
// is the next expected value for that stream.
func (q *reassemblyQueue) drainOrdered() []reassembledMessage {
	var out []reassembledMessage
	for {
		msg, consumed, ssn, streamID, ok := firstCompleteOrderedRun(q.ordered)
		if !ok {
			return out
		}
		want := q.nextSSN[streamID]
		if ssn != want {
			return out
		}
		q.ordered = removeRun(q.ordered, streamID, consumed)
		q.nextSSN[streamID] = want + 1
		out = append(out, msg)
	}
}

// completeRun looks for a beginning..ending fragment run starting at
// index 0 of chunks (which must already be TSN-sorted) and, if found,
// returns the assembled message and how many leading chunks it spans.
func completeRun(chunks []*chunkPayloadData) (reassembledMessage, int, bool) {
	if len(chunks) == 0 || !chunks[0].beginningFragment {
		return reassembledMessage{}, 0, false
	}
	for i, c := range chunks {
		if c.endingFragment {
			return assemble(chunks[:i+1]), i + 1, true
		}
		if i > 0 && c.tsn != chunks[i-1].tsn+1 {
			return reassembledMessage{}, 0, false
		}
	}
	return reassembledMessage{}, 0, false
}

// firstCompleteOrderedRun scans the ordered queue (sorted by stream
// then TSN) for the earliest complete run on any single stream.
func firstCompleteOrderedRun(chunks []*chunkPayloadData) (reassembledMessage, int, uint16, uint16, bool) {
	for start := 0; start < len(chunks); {
		streamID := chunks[start].streamID
		end := start
		for end < len(chunks) && chunks[end].streamID == streamID {
			end++
		}
		if msg, n, ok := completeRun(chunks[start:end]); ok {
			return msg, n, chunks[start].streamSequenceNumber, streamID, true
		}
		start = end
	}
	return reassembledMessage{}, 0, 0, 0, false
}

func removeRun(chunks []*chunkPayloadData, streamID uint16, n int) []*chunkPayloadData {
	start := 0
	for start < len(chunks) && chunks[start].streamID != streamID {
		start++
	}
	out := append([]*chunkPayloadData{}, chunks[:start]...)
	out = append(out, chunks[start+n:]...)
	return out
}

func assemble(run []*chunkPayloadData) reassembledMessage {
	msg := reassembledMessage{
		streamID:    run[0].streamID,
		payloadType: run[0].payloadType,
	}
	for _, c := range run {
		msg.userData = append(msg.userData, c.userData...)
	}
	return msg
}
