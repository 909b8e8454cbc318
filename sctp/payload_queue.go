package sctp

import "sort"

// payloadQueue holds DATA chunks received out of order, ahead of the
// cumulative TSN ack point, so SACK can report gap ack blocks for them
// per RFC 4960 §3.3.4 until the cumulative point catches up.
type payloadQueue struct {
	ordered []*chunkPayloadData
	dupTSNs []uint32
}

func (q *payloadQueue) search(tsn uint32) (*chunkPayloadData, bool) {
	i := sort.Search(len(q.ordered), func(i int) bool { return q.ordered[i].tsn >= tsn })
	if i < len(q.ordered) && q.ordered[i].tsn == tsn {
		return q.ordered[i], true
	}
	return nil, false
}

// push inserts p unless it is a duplicate of an already-queued chunk
// or is at/before the cumulative TSN ack point.
func (q *payloadQueue) push(p *chunkPayloadData, cumulativeTSNAck uint32) {
	if _, ok := q.search(p.tsn); ok || tsnLTE(p.tsn, cumulativeTSNAck) {
		q.dupTSNs = append(q.dupTSNs, p.tsn)
		return
	}
	q.ordered = append(q.ordered, p)
	sort.Slice(q.ordered, func(i, j int) bool { return q.ordered[i].tsn < q.ordered[j].tsn })
}

// pop removes and returns the head chunk if its TSN is exactly tsn —
// the caller advances the cumulative ack point one chunk at a time.
func (q *payloadQueue) pop(tsn uint32) (*chunkPayloadData, bool) {
	if len(q.ordered) > 0 && q.ordered[0].tsn == tsn {
		p := q.ordered[0]
		q.ordered = q.ordered[1:]
		return p, true
	}
	return nil, false
}

func (q *payloadQueue) popDuplicates() []uint32 {
	dups := q.dupTSNs
	q.dupTSNs = nil
	return dups
}

// gapAckBlocks computes RFC 4960 §3.3.4's gap ack blocks relative to
// cumulativeTSNAck from whatever out-of-order chunks are queued.
func (q *payloadQueue) gapAckBlocks(cumulativeTSNAck uint32) []gapAckBlock {
	if len(q.ordered) == 0 {
		return nil
	}

	var blocks []gapAckBlock
	var cur gapAckBlock
	for i, p := range q.ordered {
		diff := uint16(p.tsn - cumulativeTSNAck)
		if i == 0 {
			cur = gapAckBlock{start: diff, end: diff}
			continue
		}
		if cur.end+1 == diff {
			cur.end = diff
		} else {
			blocks = append(blocks, cur)
			cur = gapAckBlock{start: diff, end: diff}
		}
	}
	blocks = append(blocks, cur)
	return blocks
}

// tsnLTE reports whether a precedes or equals b under RFC 4960 §3.2.8
// serial-number arithmetic (TSNs wrap modulo 2^32).
func tsnLTE(a, b uint32) bool {
	return int32(a-b) <= 0
}

func tsnLT(a, b uint32) bool {
	return int32(a-b) < 0
}
