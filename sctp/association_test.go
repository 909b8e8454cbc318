package sctp

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAssociationHandshakeAndMessage(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	type result struct {
		assoc *Association
		err   error
	}
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)

	go func() {
		a, err := Client(Config{NetConn: clientConn})
		clientCh <- result{a, err}
	}()
	go func() {
		a, err := Server(Config{NetConn: serverConn})
		serverCh <- result{a, err}
	}()

	var client, server *Association
	select {
	case r := <-clientCh:
		require.NoError(t, r.err)
		client = r.assoc
	case <-time.After(2 * time.Second):
		t.Fatal("client handshake timed out")
	}
	select {
	case r := <-serverCh:
		require.NoError(t, r.err)
		server = r.assoc
	case <-time.After(2 * time.Second):
		t.Fatal("server handshake timed out")
	}

	require.Equal(t, stateEstablished, client.state)
	require.Equal(t, stateEstablished, server.state)

	stream, err := client.OpenStream(1, PayloadTypeWebRTCString)
	require.NoError(t, err)
	require.NoError(t, stream.WriteDataChannel([]byte("hello"), PayloadTypeWebRTCString))

	recv, err := server.AcceptStream()
	require.NoError(t, err)

	buf := make([]byte, 1024)
	n, _, err := recv.ReadDataChannel(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
}

// captureConn is a netConn that records every packet written to it and
// never yields anything to read; it lets these tests drive Association
// internals (inflight, rto, expiresAt) directly instead of waiting out
// real RTO timers over a lossy transport.
type captureConn struct {
	mu      sync.Mutex
	written [][]byte
}

func (c *captureConn) Read(p []byte) (int, error) { return 0, io.EOF }

func (c *captureConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte{}, p...))
	return len(p), nil
}

func (c *captureConn) packets(t *testing.T) []*packet {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	pkts := make([]*packet, len(c.written))
	for i, raw := range c.written {
		p := &packet{}
		require.NoError(t, p.unmarshal(raw))
		pkts[i] = p
	}
	return pkts
}

// TestT3RtxRetransmitsOldestChunk pins RFC 4960 §6.3.3: a chunk that
// has outlived rto without being acked is resent, and cwnd/ssthresh
// react to the implied loss.
func TestT3RtxRetransmitsOldestChunk(t *testing.T) {
	conn := &captureConn{}
	a := newAssociation(Config{NetConn: conn})
	a.state = stateEstablished
	a.peerVerificationTag = 42
	a.rto = 50 * time.Millisecond
	a.cwnd = 8 * defaultMTU

	const tsn = 500
	a.inflight[tsn] = &chunkPayloadData{tsn: tsn, streamID: 1, userData: []byte("data"), sentAt: time.Now().Add(-100 * time.Millisecond)}

	a.checkRetransmit()

	pkts := conn.packets(t)
	require.Len(t, pkts, 1)
	dc, ok := pkts[0].chunks[0].(*chunkPayloadData)
	require.True(t, ok)
	require.EqualValues(t, tsn, dc.tsn)
	require.EqualValues(t, defaultMTU, a.cwnd, "T3-rtx expiry must reset cwnd to one MTU")
}

// TestFastRetransmitAfterDuplicateSacks pins RFC 4960 §7.2.4: a TSN
// reported missing by dupAckThreshold consecutive SACKs is resent
// immediately, without waiting for T3-rtx.
func TestFastRetransmitAfterDuplicateSacks(t *testing.T) {
	conn := &captureConn{}
	a := newAssociation(Config{NetConn: conn})
	a.state = stateEstablished
	a.peerVerificationTag = 7

	const missingTSN = 100
	const ackedTSN = 101
	a.inflight[missingTSN] = &chunkPayloadData{tsn: missingTSN, sentAt: time.Now()}
	a.inflight[ackedTSN] = &chunkPayloadData{tsn: ackedTSN, sentAt: time.Now()}

	sack := &chunkSack{
		cumulativeTSNAck: missingTSN - 1,
		gapAckBlocks:     []gapAckBlock{{start: 2, end: 2}}, // acks ackedTSN, skips missingTSN
	}

	for i := 0; i < dupAckThreshold; i++ {
		require.NoError(t, a.handleSack(sack))
	}

	pkts := conn.packets(t)
	require.Len(t, pkts, 1, "fast retransmit should fire exactly once, on the %dth duplicate SACK", dupAckThreshold)
	dc, ok := pkts[0].chunks[0].(*chunkPayloadData)
	require.True(t, ok)
	require.EqualValues(t, missingTSN, dc.tsn)
}

// TestPRSCTPAbandonsExpiredChunk pins RFC 3758 §3.2: a chunk past its
// ttl-derived deadline is abandoned rather than retransmitted, and a
// FORWARD-TSN tells the peer to skip past it.
func TestPRSCTPAbandonsExpiredChunk(t *testing.T) {
	conn := &captureConn{}
	a := newAssociation(Config{NetConn: conn})
	a.state = stateEstablished
	a.peerVerificationTag = 9
	a.myNextTSN = 201
	a.peerCumulativeTSNAck = 199

	expired := &chunkPayloadData{
		tsn:                  200,
		streamID:             3,
		streamSequenceNumber: 1,
		sentAt:               time.Now(),
		expiresAt:            time.Now().Add(-time.Millisecond).UnixNano(),
	}
	a.inflight[expired.tsn] = expired

	a.checkRetransmit()

	_, stillInflight := a.inflight[expired.tsn]
	require.False(t, stillInflight, "expired chunk must be abandoned, not kept inflight")

	pkts := conn.packets(t)
	require.Len(t, pkts, 1)
	fwd, ok := pkts[0].chunks[0].(*chunkForwardTSN)
	require.True(t, ok)
	require.EqualValues(t, 200, fwd.newCumulativeTSN)
	require.Len(t, fwd.streams, 1)
	require.EqualValues(t, 3, fwd.streams[0].streamID)
	require.EqualValues(t, 1, fwd.streams[0].streamSeq)
}
