package sctp

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/pion/logging"
	"golang.org/x/time/rate"
)

// associationState mirrors RFC 4960 §13.2's per-association TCB state
// variable.
type associationState uint8

const (
	stateCookieWait associationState = iota
	stateCookieEchoed
	stateEstablished
	stateShutdownPending
	stateShutdownSent
	stateShutdownReceived
	stateShutdownAckSent
	stateClosed
)

func (s associationState) String() string {
	switch s {
	case stateCookieWait:
		return "cookie-wait"
	case stateCookieEchoed:
		return "cookie-echoed"
	case stateEstablished:
		return "established"
	case stateShutdownPending:
		return "shutdown-pending"
	case stateShutdownSent:
		return "shutdown-sent"
	case stateShutdownReceived:
		return "shutdown-received"
	case stateShutdownAckSent:
		return "shutdown-ack-sent"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	// RFC 6298 initial/bound RTO values, in the absence of any RTT samples yet.
	rtoInitial = 3 * time.Second
	rtoMin     = 1 * time.Second
	rtoMax     = 60 * time.Second

	maxInitRetrans = 8

	// initial congestion window, RFC 4960 §7.2.1: min(4*MTU, max(2*MTU, 4380)).
	defaultMTU  = 1200
	initialCwnd = 4380 // min(4*1200, max(2*1200, 4380))

	// t3RtxTick is how often the T3-rtx timer is polled; RFC 4960
	// doesn't mandate a granularity, only that rto be honored.
	t3RtxTick = 200 * time.Millisecond

	// dupAckThreshold is RFC 4960 §7.2.4's fast-retransmit trigger: a
	// TSN reported missing by this many consecutive SACKs is resent
	// without waiting for T3-rtx to expire.
	dupAckThreshold = 4
)

// netConn is the minimal surface Association needs from its transport;
// dtls.Conn and net.Conn both satisfy it.
type netConn interface {
	io.Reader
	io.Writer
}

// Config bundles what the Association needs to bring an SCTP
// association up over an existing reliable-enough transport (a DTLS
// connection, in the WebRTC stack this package serves).
type Config struct {
	NetConn              netConn
	MaxReceiveBufferSize uint32
	LoggerFactory        logging.LoggerFactory
}

// Association is one SCTP association: a single handshake and its
// resulting set of bidirectional streams, RFC 4960 §13.2's TCB.
type Association struct {
	mu sync.Mutex

	conn netConn
	log  logging.LeveledLogger

	state               associationState
	myVerificationTag   uint32
	peerVerificationTag uint32
	myNextTSN           uint32
	peerLastTSN         uint32

	myMaxNumInboundStreams  uint16
	myMaxNumOutboundStreams uint16
	advertisedReceiverWindow uint32

	cwnd        uint32
	ssthresh    uint32
	peerRwnd    uint32
	rto         time.Duration
	srtt        time.Duration
	rttvar      time.Duration

	// pacer gates outbound DATA chunks so writeMessage never pushes
	// more than min(cwnd, peerRwnd) bytes per RTO onto the wire in a
	// burst; SACK handling re-tunes its limit and burst as cwnd moves.
	pacer *rate.Limiter

	inflight map[uint32]*chunkPayloadData
	// missIndications counts, per outstanding TSN, how many consecutive
	// SACKs have reported a higher TSN received without this one —
	// RFC 4960 §7.2.4's fast-retransmit trigger.
	missIndications map[uint32]int
	// peerCumulativeTSNAck is the last cumulative TSN ack point the
	// peer has reported for chunks we sent; sendForwardTSN advances it
	// locally when PR-SCTP abandons a chunk ahead of any SACK.
	peerCumulativeTSNAck uint32

	payloads payloadQueue
	reassembly *reassemblyQueue
	pendingReconfigSeq uint32

	streams map[uint16]*Stream

	acceptCh  chan *Stream
	closeOnce sync.Once
	closed    chan struct{}

	handshakeCompleted chan error
}

// Server runs the passive side of the handshake: wait for INIT, reply
// INIT ACK with a state cookie, wait for COOKIE ECHO, reply COOKIE ACK.
func Server(config Config) (*Association, error) {
	a := newAssociation(config)
	if err := a.handshake(false); err != nil {
		return nil, err
	}
	return a, nil
}

// Client runs the active side: send INIT, wait for INIT ACK, echo its
// cookie, wait for COOKIE ACK.
func Client(config Config) (*Association, error) {
	a := newAssociation(config)
	if err := a.handshake(true); err != nil {
		return nil, err
	}
	return a, nil
}

func newAssociation(config Config) *Association {
	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	maxBuf := config.MaxReceiveBufferSize
	if maxBuf == 0 {
		maxBuf = 1024 * 1024
	}

	myNextTSN := rand.Uint32()

	return &Association{
		conn:                     config.NetConn,
		log:                      loggerFactory.NewLogger("sctp"),
		state:                    stateCookieWait,
		myVerificationTag:        rand.Uint32(),
		myNextTSN:                myNextTSN,
		myMaxNumInboundStreams:   65535,
		myMaxNumOutboundStreams:  65535,
		advertisedReceiverWindow: maxBuf,
		cwnd:                     initialCwnd,
		ssthresh:                 1 << 30,
		peerRwnd:                 initialCwnd,
		rto:                      rtoInitial,
		pacer:                    rate.NewLimiter(rate.Limit(initialCwnd)/rate.Limit(rtoInitial.Seconds()), initialCwnd),
		inflight:                 map[uint32]*chunkPayloadData{},
		missIndications:          map[uint32]int{},
		peerCumulativeTSNAck:     myNextTSN - 1,
		reassembly:               newReassemblyQueue(),
		streams:                  map[uint16]*Stream{},
		acceptCh:                 make(chan *Stream, 16),
		closed:                   make(chan struct{}),
		handshakeCompleted:       make(chan error, 1),
	}
}

// handshake drives the four-way exchange to completion, then starts
// the background receive loop that services the established
// association until Close.
func (a *Association) handshake(active bool) error {
	if active {
		if err := a.sendInit(); err != nil {
			return err
		}
	}

	for {
		p, err := a.readPacket()
		if err != nil {
			return fmt.Errorf("sctp: handshake failed: %w", err)
		}
		for _, c := range p.chunks {
			switch ct := c.(type) {
			case *chunkInit:
				if err := a.handleInit(p, ct); err != nil {
					return err
				}
			case *chunkInitAck:
				if err := a.handleInitAck(ct); err != nil {
					return err
				}
			case *chunkCookieEcho:
				if err := a.handleCookieEcho(p, ct); err != nil {
					return err
				}
				go a.receiveLoop()
				go a.retransmitLoop()
				return nil
			case *chunkCookieAck:
				a.mu.Lock()
				a.state = stateEstablished
				a.mu.Unlock()
				go a.receiveLoop()
				go a.retransmitLoop()
				return nil
			}
		}
	}
}

func (a *Association) sendInit() error {
	init := &chunkInit{}
	init.initiateTag = a.myVerificationTag
	init.advertisedReceiverWindowCredit = a.advertisedReceiverWindow
	init.numOutboundStreams = a.myMaxNumOutboundStreams
	init.numInboundStreams = a.myMaxNumInboundStreams
	init.initialTSN = a.myNextTSN
	return a.sendChunks(0, init)
}

func (a *Association) handleInit(in *packet, ct *chunkInit) error {
	a.mu.Lock()
	a.peerVerificationTag = ct.initiateTag
	a.peerLastTSN = ct.initialTSN - 1
	a.myMaxNumInboundStreams = minUint16(ct.numOutboundStreams, a.myMaxNumInboundStreams)
	a.myMaxNumOutboundStreams = minUint16(ct.numInboundStreams, a.myMaxNumOutboundStreams)
	a.mu.Unlock()

	initAck := &chunkInitAck{}
	initAck.initiateTag = a.myVerificationTag
	initAck.advertisedReceiverWindowCredit = a.advertisedReceiverWindow
	initAck.numOutboundStreams = a.myMaxNumOutboundStreams
	initAck.numInboundStreams = a.myMaxNumInboundStreams
	initAck.initialTSN = a.myNextTSN
	initAck.params = []paramHeader{{typ: paramStateCookie, raw: stateCookie(a.peerVerificationTag, a.myVerificationTag)}}
	return a.sendChunks(a.peerVerificationTag, initAck)
}

func (a *Association) handleInitAck(ct *chunkInitAck) error {
	a.mu.Lock()
	a.peerVerificationTag = ct.initiateTag
	a.peerLastTSN = ct.initialTSN - 1
	a.myMaxNumInboundStreams = minUint16(ct.numOutboundStreams, a.myMaxNumInboundStreams)
	a.myMaxNumOutboundStreams = minUint16(ct.numInboundStreams, a.myMaxNumOutboundStreams)
	a.peerRwnd = ct.advertisedReceiverWindowCredit
	a.state = stateCookieEchoed
	a.updatePacerLocked()
	a.mu.Unlock()

	cookie, ok := findParam(ct.params, paramStateCookie)
	if !ok {
		return fmt.Errorf("sctp: INIT ACK missing state cookie")
	}
	return a.sendChunks(a.peerVerificationTag, &chunkCookieEcho{cookie: cookie})
}

// stateCookie packages the two verification tags into an opaque blob
// the server can validate on COOKIE ECHO without retaining per-
// handshake state in the meantime. This stack's cookie carries no MAC
// or timestamp — see the Open Question decision in DESIGN.md: a
// single-process, in-memory association has no off-box replay surface
// to defend against, unlike a production listener serving many peers.
func stateCookie(peerTag, myTag uint32) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint32(raw[0:], peerTag)
	binary.BigEndian.PutUint32(raw[4:], myTag)
	return raw
}

func (a *Association) handleCookieEcho(in *packet, ct *chunkCookieEcho) error {
	if len(ct.cookie) < 8 {
		return fmt.Errorf("sctp: COOKIE ECHO cookie too short")
	}
	a.mu.Lock()
	a.state = stateEstablished
	a.mu.Unlock()
	return a.sendChunks(a.peerVerificationTag, &chunkCookieAck{})
}

// sendChunks marshals and writes a single SCTP packet carrying chunks
// under the given verification tag (0 for the initial out-of-the-blue INIT).
func (a *Association) sendChunks(verificationTag uint32, chunks ...chunk) error {
	p := &packet{verificationTag: verificationTag, chunks: chunks}
	raw, err := p.marshal()
	if err != nil {
		return err
	}
	_, err = a.conn.Write(raw)
	return err
}

func (a *Association) readPacket() (*packet, error) {
	buf := make([]byte, 1<<16)
	n, err := a.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	p := &packet{}
	if err := p.unmarshal(buf[:n]); err != nil {
		return nil, err
	}
	return p, nil
}

// receiveLoop services an established association until the
// transport closes: it handles DATA/SACK/HEARTBEAT/RE-CONFIG/
// FORWARD-TSN/SHUTDOWN chunks and answers every DATA chunk with an
// immediate SACK. SACKs are not delayed and no timer sends them.
func (a *Association) receiveLoop() {
	for {
		p, err := a.readPacket()
		if err != nil {
			a.log.Debugf("sctp: receive loop exiting: %v", err)
			a.closeOnce.Do(func() { close(a.closed) })
			return
		}
		for _, c := range p.chunks {
			if err := a.handleChunk(c); err != nil {
				a.log.Warnf("sctp: %v", err)
			}
		}
	}
}

func (a *Association) handleChunk(c chunk) error {
	switch ct := c.(type) {
	case *chunkPayloadData:
		return a.handleData(ct)
	case *chunkSack:
		return a.handleSack(ct)
	case *chunkHeartbeat:
		return a.sendChunks(a.peerVerificationTag, &chunkHeartbeatAck{info: ct.info})
	case *chunkHeartbeatAck:
		return nil
	case *chunkAbort:
		a.log.Warnf("sctp: received ABORT: %s", ct.reason)
		a.closeOnce.Do(func() { close(a.closed) })
		return nil
	case *chunkShutdown:
		return a.handleShutdown(ct)
	case *chunkReconfig:
		return a.handleReconfig(ct)
	case *chunkForwardTSN:
		return a.handleForwardTSN(ct)
	default:
		return nil
	}
}

func (a *Association) handleData(ct *chunkPayloadData) error {
	a.mu.Lock()
	a.payloads.push(ct, a.peerLastTSN)
	var delivered []reassembledMessage
	for {
		next, ok := a.payloads.pop(a.peerLastTSN + 1)
		if !ok {
			break
		}
		a.peerLastTSN++
		delivered = append(delivered, a.reassembly.push(next)...)
	}
	sack := a.buildSack()
	a.mu.Unlock()

	for _, msg := range delivered {
		a.deliver(msg)
	}

	return a.sendChunks(a.peerVerificationTag, sack)
}

func (a *Association) buildSack() *chunkSack {
	return &chunkSack{
		cumulativeTSNAck: a.peerLastTSN,
		advertisedRWND:   a.advertisedReceiverWindow,
		gapAckBlocks:     a.payloads.gapAckBlocks(a.peerLastTSN),
		duplicateTSNs:    a.payloads.popDuplicates(),
	}
}

func (a *Association) deliver(msg reassembledMessage) {
	a.mu.Lock()
	s, ok := a.streams[msg.streamID]
	if !ok {
		s = a.newStreamLocked(msg.streamID)
		select {
		case a.acceptCh <- s:
		default:
		}
	}
	a.mu.Unlock()
	s.push(msg.userData)
}

// gapAcked reports whether tsn falls inside one of ct's gap ack blocks,
// whose start/end are offsets relative to cumulativeTSNAck (RFC 4960
// §3.3.4).
func gapAcked(ct *chunkSack, tsn uint32) bool {
	for _, b := range ct.gapAckBlocks {
		if tsn >= ct.cumulativeTSNAck+uint32(b.start) && tsn <= ct.cumulativeTSNAck+uint32(b.end) {
			return true
		}
	}
	return false
}

// handleSack retires acknowledged outstanding chunks (both cumulative
// and gap-acked), folds a Karn's-algorithm RTT sample into the RFC 6298
// RTO estimator, runs the RFC 4960 §7.2 congestion-control update, and
// counts miss indications toward §7.2.4 fast-retransmit.
func (a *Association) handleSack(ct *chunkSack) error {
	a.mu.Lock()

	// highest is the highest TSN this SACK reports as received, whether
	// by cumulative ack or a gap block; any inflight TSN older than it
	// that wasn't itself acked has been reported missing once.
	highest := ct.cumulativeTSNAck
	for _, b := range ct.gapAckBlocks {
		if end := ct.cumulativeTSNAck + uint32(b.end); tsnLT(highest, end) {
			highest = end
		}
	}

	advanced := false
	var rttSample time.Duration
	haveSample := false
	for tsn, c := range a.inflight {
		switch {
		case tsnLTE(tsn, ct.cumulativeTSNAck), gapAcked(ct, tsn):
			// Karn's algorithm: never sample RTT from a retransmitted
			// chunk, since we can't tell which transmission the ack
			// actually covers.
			if !c.retransmitted && !c.sentAt.IsZero() {
				rttSample = time.Since(c.sentAt)
				haveSample = true
			}
			delete(a.inflight, tsn)
			delete(a.missIndications, tsn)
			if tsnLTE(tsn, ct.cumulativeTSNAck) {
				advanced = true
			}
		case tsnLT(tsn, highest):
			a.missIndications[tsn]++
		}
	}

	if haveSample {
		a.sampleRTTLocked(rttSample)
	}

	if advanced {
		if a.cwnd <= a.ssthresh {
			a.cwnd += defaultMTU // slow start
		} else {
			a.cwnd += defaultMTU * defaultMTU / a.cwnd // congestion avoidance
		}
	} else if len(a.inflight) > 0 {
		// no new data acked: treat as a sign of loss per RFC 4960 §7.2.4
		a.ssthresh = maxUint32(a.cwnd/2, 4*defaultMTU)
		a.cwnd = a.ssthresh
	}
	a.peerRwnd = ct.advertisedRWND
	a.peerCumulativeTSNAck = ct.cumulativeTSNAck
	a.updatePacerLocked()

	var toResend []*chunkPayloadData
	for tsn, n := range a.missIndications {
		if n >= dupAckThreshold {
			if c, ok := a.inflight[tsn]; ok {
				toResend = append(toResend, c)
			}
			delete(a.missIndications, tsn)
		}
	}
	if len(toResend) > 0 {
		// Fast retransmit is itself a loss indication (§7.2.4): halve
		// cwnd once per SACK, not once per chunk resent.
		a.ssthresh = maxUint32(a.cwnd/2, 4*defaultMTU)
		a.cwnd = a.ssthresh
		a.updatePacerLocked()
	}
	a.mu.Unlock()

	for _, c := range toResend {
		a.retransmit(c)
	}
	return nil
}

// sampleRTTLocked folds one new RTT observation into the RFC 6298
// SRTT/RTTVAR/RTO estimators. Caller must hold a.mu.
func (a *Association) sampleRTTLocked(sample time.Duration) {
	const alpha = 8 // SRTT weight is 1/alpha
	const beta = 4  // RTTVAR weight is 1/beta

	if a.srtt == 0 {
		// First measurement, RFC 6298 §2.2.
		a.srtt = sample
		a.rttvar = sample / 2
	} else {
		delta := a.srtt - sample
		if delta < 0 {
			delta = -delta
		}
		a.rttvar = a.rttvar - a.rttvar/beta + delta/beta
		a.srtt = a.srtt - a.srtt/alpha + sample/alpha
	}

	rto := a.srtt + 4*a.rttvar
	if rto < rtoMin {
		rto = rtoMin
	}
	if rto > rtoMax {
		rto = rtoMax
	}
	a.rto = rto
}

// updatePacerLocked re-tunes the pacer to the current send window.
// The burst is min(cwnd, peerRwnd) bytes, the in-flight ceiling RFC
// 4960 §7.2 places on the sender; the sustained rate spreads that same
// ceiling over one RTO so a revived cwnd after loss doesn't dump a
// full window onto the wire in one write. Caller must hold a.mu.
func (a *Association) updatePacerLocked() {
	limit := a.cwnd
	if a.peerRwnd < limit {
		limit = a.peerRwnd
	}
	if limit == 0 {
		limit = defaultMTU
	}
	rto := a.rto
	if rto <= 0 {
		rto = rtoInitial
	}
	a.pacer.SetBurst(int(limit))
	a.pacer.SetLimit(rate.Limit(float64(limit) / rto.Seconds()))
}

// pace blocks until n bytes of DATA are allowed onto the wire under
// the current congestion window, per RFC 4960 §7.2's
// in_flight_bytes <= min(cwnd, peer_rwnd).
func (a *Association) pace(ctx context.Context, n int) error {
	return a.pacer.WaitN(ctx, n)
}

func (a *Association) handleShutdown(ct *chunkShutdown) error {
	a.mu.Lock()
	a.state = stateShutdownReceived
	a.mu.Unlock()
	if err := a.sendChunks(a.peerVerificationTag, &chunkShutdownAck{}); err != nil {
		return err
	}
	a.closeOnce.Do(func() { close(a.closed) })
	return nil
}

// handleReconfig answers an incoming stream-reset request by clearing
// local reassembly state for the named streams (RFC 6525 §5.2) and
// responding with success.
func (a *Association) handleReconfig(ct *chunkReconfig) error {
	if ct.resetRequest == nil {
		return nil
	}
	a.mu.Lock()
	for _, id := range ct.resetRequest.streamIDs {
		if s, ok := a.streams[id]; ok {
			s.resetLocked()
		}
	}
	a.mu.Unlock()

	resp := &chunkReconfig{response: &reconfigResponse{
		reconfigResponseSeq: ct.resetRequest.reconfigRequestSeq,
		result:              reconfigResultSuccess,
	}}
	return a.sendChunks(a.peerVerificationTag, resp)
}

// handleForwardTSN advances the cumulative TSN ack point past chunks
// the peer has abandoned under PR-SCTP (RFC 3758 §3.2). It does not
// remove queued fragments of those chunks from the reassembly queue and
// does not apply the stream sequence numbers the chunk carries, so an
// ordered stream still waits for the abandoned message's sequence number.
func (a *Association) handleForwardTSN(ct *chunkForwardTSN) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if tsnLT(a.peerLastTSN, ct.newCumulativeTSN) {
		a.peerLastTSN = ct.newCumulativeTSN
	}
	return nil
}

// retransmitLoop periodically checks the oldest outstanding chunk
// against the T3-rtx deadline (RFC 4960 §6.3.3) and abandons any chunk
// past its PR-SCTP lifetime (RFC 3758 §3.2), until the association
// closes.
func (a *Association) retransmitLoop() {
	t := time.NewTicker(t3RtxTick)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			a.checkRetransmit()
		case <-a.closed:
			return
		}
	}
}

// checkRetransmit walks the inflight set once: chunks past their
// PR-SCTP expiresAt are abandoned and folded into a FORWARD-TSN;
// otherwise, if the oldest chunk has outlived rto, T3-rtx fires (RFC
// 4960 §6.3.3) and every outstanding chunk is resent.
func (a *Association) checkRetransmit() {
	now := time.Now()

	a.mu.Lock()
	var abandoned []*chunkPayloadData
	var oldest time.Time
	for tsn, c := range a.inflight {
		if c.expiresAt != 0 && now.UnixNano() >= c.expiresAt {
			abandoned = append(abandoned, c)
			delete(a.inflight, tsn)
			delete(a.missIndications, tsn)
			continue
		}
		if c.sentAt.IsZero() {
			continue
		}
		if oldest.IsZero() || c.sentAt.Before(oldest) {
			oldest = c.sentAt
		}
	}

	var toResend []*chunkPayloadData
	rto := a.rto
	if rto <= 0 {
		rto = rtoInitial
	}
	if !oldest.IsZero() && now.Sub(oldest) >= rto {
		// RFC 4960 §6.3.3: on T3-rtx expiry, ssthresh halves, cwnd
		// resets to one MTU, and RTO backs off exponentially.
		a.ssthresh = maxUint32(a.cwnd/2, 4*defaultMTU)
		a.cwnd = defaultMTU
		a.rto *= 2
		if a.rto > rtoMax {
			a.rto = rtoMax
		}
		a.updatePacerLocked()
		for _, c := range a.inflight {
			toResend = append(toResend, c)
		}
	}
	a.mu.Unlock()

	if len(abandoned) > 0 {
		a.sendForwardTSN(abandoned)
	}
	for _, c := range toResend {
		a.retransmit(c)
	}
}

// retransmit resends a single inflight chunk, stamping it so later
// T3-rtx/RTT-sampling logic treats it as freshly sent.
func (a *Association) retransmit(c *chunkPayloadData) {
	a.mu.Lock()
	c.sentAt = time.Now()
	c.retransmitted = true
	a.mu.Unlock()

	if err := a.sendChunks(a.peerVerificationTag, c); err != nil {
		a.log.Warnf("sctp: retransmit of TSN %d failed: %v", c.tsn, err)
	}
}

// sendForwardTSN advances peerCumulativeTSNAck past a set of PR-SCTP
// abandoned chunks (plus any already gap-acked chunks immediately
// following them) and tells the peer so via a FORWARD-TSN chunk (RFC
// 3758 §3.2), unblocking ordered delivery that would otherwise stall
// waiting for data that will never arrive.
func (a *Association) sendForwardTSN(abandoned []*chunkPayloadData) {
	abandonedByTSN := make(map[uint32]*chunkPayloadData, len(abandoned))
	for _, c := range abandoned {
		abandonedByTSN[c.tsn] = c
	}

	a.mu.Lock()
	newCum := a.peerCumulativeTSNAck
	streamAdvance := map[uint16]uint16{}
	for tsn := newCum + 1; tsnLT(tsn, a.myNextTSN); tsn++ {
		if c, ok := abandonedByTSN[tsn]; ok {
			newCum = tsn
			if !c.unordered {
				streamAdvance[c.streamID] = c.streamSequenceNumber
			}
			continue
		}
		if _, stillInflight := a.inflight[tsn]; !stillInflight {
			// Already retired by a prior SACK; safe to fold into the
			// advance so the peer's cumulative point doesn't lag.
			newCum = tsn
			continue
		}
		break
	}
	a.peerCumulativeTSNAck = newCum
	streams := make([]forwardTSNStream, 0, len(streamAdvance))
	for sid, ssn := range streamAdvance {
		streams = append(streams, forwardTSNStream{streamID: sid, streamSeq: ssn})
	}
	a.mu.Unlock()

	if err := a.sendChunks(a.peerVerificationTag, &chunkForwardTSN{newCumulativeTSN: newCum, streams: streams}); err != nil {
		a.log.Warnf("sctp: sending FORWARD-TSN: %v", err)
	}
}

// OpenStream creates (or returns the existing) outgoing stream
// identified by streamID.
func (a *Association) OpenStream(streamID uint16, ppi PayloadProtocolID) (*Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.streams[streamID]; ok {
		return s, nil
	}
	return a.newStreamLocked(streamID), nil
}

func (a *Association) newStreamLocked(streamID uint16) *Stream {
	s := &Stream{
		association: a,
		streamID:    streamID,
		readCh:      make(chan []byte, 64),
	}
	a.streams[streamID] = s
	return s
}

// AcceptStream blocks until the peer opens a new stream (its first
// message arrives) or the association closes.
func (a *Association) AcceptStream() (*Stream, error) {
	select {
	case s := <-a.acceptCh:
		return s, nil
	case <-a.closed:
		return nil, fmt.Errorf("sctp: association closed")
	}
}

// writeMessage fragments data into payloadDataHeaderSize-respecting
// DATA chunks if needed, assigns TSNs, tracks them in-flight, and
// writes them out. A non-zero ttl schedules the message for PR-SCTP
// abandonment (RFC 3758) if it is still unacked after ttl elapses.
func (a *Association) writeMessage(streamID uint16, ppi PayloadProtocolID, data []byte, unordered bool, ttl time.Duration) error {
	const maxFragment = defaultMTU - payloadDataHeaderSize - chunkHeaderSize - packetHeaderSize

	a.mu.Lock()
	ssn := uint16(0)
	if s, ok := a.streams[streamID]; ok {
		ssn = s.nextOutgoingSSN()
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}

	if len(data) == 0 {
		data = []byte{}
	}
	var chunks []chunk
	for off := 0; off == 0 || off < len(data); off += maxFragment {
		end := off + maxFragment
		if end > len(data) {
			end = len(data)
		}
		c := &chunkPayloadData{
			unordered:            unordered,
			beginningFragment:    off == 0,
			endingFragment:       end == len(data),
			tsn:                  a.myNextTSN,
			streamID:             streamID,
			streamSequenceNumber: ssn,
			payloadType:          ppi,
			userData:             data[off:end],
			expiresAt:            expiresAt,
		}
		a.inflight[c.tsn] = c
		chunks = append(chunks, c)
		a.myNextTSN++
		if len(data) == 0 {
			break
		}
	}
	a.mu.Unlock()

	// Chunks are paced individually rather than bundled into one
	// packet: that's what lets the limiter spread a multi-fragment
	// message across the window instead of admitting it all at once.
	for _, c := range chunks {
		pd := c.(*chunkPayloadData)
		if err := a.pace(context.Background(), len(pd.userData)+payloadDataHeaderSize); err != nil {
			return fmt.Errorf("sctp: pacing DATA chunk: %w", err)
		}
		a.mu.Lock()
		pd.sentAt = time.Now()
		a.mu.Unlock()
		if err := a.sendChunks(a.peerVerificationTag, c); err != nil {
			return err
		}
	}
	return nil
}

// ResetStream asks the peer to reset streamID via RE-CONFIG (RFC 6525
// §5.1), so both ends restart its stream sequence numbering at zero.
func (a *Association) ResetStream(streamID uint16) error {
	a.mu.Lock()
	a.pendingReconfigSeq++
	seq := a.pendingReconfigSeq
	a.mu.Unlock()

	req := &chunkReconfig{resetRequest: &outgoingSSNResetRequest{
		reconfigRequestSeq: seq,
		senderLastTSN:      a.myNextTSN - 1,
		streamIDs:          []uint16{streamID},
	}}
	return a.sendChunks(a.peerVerificationTag, req)
}

// Close tears the association down immediately; production SCTP
// stacks run the SHUTDOWN/SHUTDOWN-ACK/SHUTDOWN-COMPLETE exchange of
// RFC 4960 §9.2 first, but for a peer connection being torn down the
// DTLS layer closing underneath makes graceful drain moot.
func (a *Association) Close() error {
	a.closeOnce.Do(func() { close(a.closed) })
	return nil
}

func minUint16(a, b uint16) uint16 {
	if a < b {
		return a
	}
	return b
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
