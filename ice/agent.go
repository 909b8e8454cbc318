package ice

import (
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/rtcstack/stun"
)

const (
	// taLoopInterval is Ta, the period of the ordinary-check scheduler.
	taLoopInterval = 50 * time.Millisecond

	// consentFreshnessInterval is RFC 7675's keep-alive cadence.
	consentFreshnessInterval = 15 * time.Second

	// failedGrace is how long the agent waits with no new candidates
	// before declaring failure once every pair has failed.
	failedGrace = 5 * time.Second

	maxStunAttempts = 7
)

// AgentConfig collects Agent construction arguments into a single
// structure, replacing any process-wide toggle.
type AgentConfig struct {
	LocalUfrag    string
	LocalPwd      string
	IsControlling bool
	LoggerFactory logging.LoggerFactory
}

// command is a message-passing request delivered to the owning task:
// all interaction from outside the Agent is via message passing over
// bounded channels, never direct field access.
type command func(*Agent)

// Agent runs the RFC 8445 connectivity-check state machine. All mutable
// state is owned by the single goroutine started in Run; every other
// method only enqueues a command or reads from a channel.
type Agent struct {
	log logging.LeveledLogger

	localUfrag, localPwd   string
	remoteUfrag, remotePwd string
	isControlling          bool
	tiebreaker             uint64

	localCandidates  []*Candidate
	remoteCandidates []*Candidate

	// pairs is the stable-id arena.
	pairs   []*pair
	nextID  int

	selected *pair
	state    ConnectionState

	lastConsent    time.Time
	lastNewRemote  time.Time

	cmdCh   chan command
	recvCh  chan recvPacket
	Events  chan Event
	closeCh chan struct{}
	closed  bool

	// NonSTUN carries packets arriving on a gathered candidate's socket
	// that RFC 7983's first-byte classifier places outside [0,3]: per
	// RFC 5245 §4.1.3 / RFC 8445 §5.1.3, a WebRTC agent co-locates its
	// ICE, DTLS, and SRTP/SRTCP traffic on the same local port, and this
	// is the only place those sockets are reachable from once Gather
	// has taken them over. The transport layer wiring DTLS/SRTP on top
	// of this Agent is expected to drain this channel and feed raw
	// packets to the right demultiplexed consumer; onPacket drops
	// anything it can't deliver here (channel full, or Agent closed).
	NonSTUN chan RawPacket

	wg sync.WaitGroup
}

type recvPacket struct {
	conn net.PacketConn
	from net.Addr
	buf  []byte
}

// RawPacket is one non-STUN datagram lifted off a candidate socket, with
// enough context (which local socket it arrived on) to reply on it.
type RawPacket struct {
	Data []byte
	From net.Addr
	Conn net.PacketConn
}

// NewAgent constructs an Agent. Gathering and Run must be invoked
// separately: construction never blocks or touches the network.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if cfg.LoggerFactory == nil {
		return nil, fmt.Errorf("ice: %w", errNilLoggerFactory)
	}
	tb, err := randutil.NewMathRandomGenerator().GenerateCryptoRandomString(8, randutil.CharsetAlphaNum)
	if err != nil {
		return nil, err
	}
	var tiebreaker uint64
	for _, c := range tb {
		tiebreaker = tiebreaker<<8 | uint64(c)
	}

	a := &Agent{
		log:           cfg.LoggerFactory.NewLogger("ice"),
		localUfrag:    cfg.LocalUfrag,
		localPwd:      cfg.LocalPwd,
		isControlling: cfg.IsControlling,
		tiebreaker:    tiebreaker,
		cmdCh:         make(chan command, 16),
		recvCh:        make(chan recvPacket, 64),
		Events:        make(chan Event, 64),
		NonSTUN:       make(chan RawPacket, 256),
		closeCh:       make(chan struct{}),
		state:         ConnectionNew,
	}
	return a, nil
}

var errNilLoggerFactory = fmt.Errorf("LoggerFactory is required")

// Run starts the owning task. It returns once Close is called.
func (a *Agent) Run() {
	a.wg.Add(1)
	defer a.wg.Done()

	ta := time.NewTicker(taLoopInterval)
	defer ta.Stop()
	consent := time.NewTicker(consentFreshnessInterval)
	defer consent.Stop()
	grace := time.NewTimer(failedGrace)
	defer grace.Stop()

	a.setState(ConnectionChecking)

	for {
		select {
		case <-a.closeCh:
			return
		case cmd := <-a.cmdCh:
			cmd(a)
		case pkt := <-a.recvCh:
			a.onPacket(pkt)
		case <-ta.C:
			a.doOrdinaryCheck()
			a.retryStunChecks()
		case <-consent.C:
			a.sendConsent()
		case <-grace.C:
			a.checkFailure()
			grace.Reset(failedGrace)
		}
	}
}

// Close tears down the agent: cancels timers, signals any blocked
// readers, and stops accepting new candidates or commands.
func (a *Agent) Close() {
	select {
	case <-a.closeCh:
		return
	default:
		close(a.closeCh)
	}
	a.wg.Wait()
	close(a.NonSTUN)
}

// enqueue posts cmd to the owning task and blocks the caller only until
// the bounded channel accepts it, never until cmd runs.
func (a *Agent) enqueue(cmd command) {
	select {
	case a.cmdCh <- cmd:
	case <-a.closeCh:
	}
}

// DeliverPacket hands one inbound datagram to the agent. Called from each
// gathered socket's readLoop; onPacket handles STUN itself and passes
// anything else on to NonSTUN.
func (a *Agent) DeliverPacket(conn net.PacketConn, from net.Addr, buf []byte) {
	b := make([]byte, len(buf))
	copy(b, buf)
	select {
	case a.recvCh <- recvPacket{conn: conn, from: from, buf: b}:
	case <-a.closeCh:
	}
}

// SetRemoteCredentials records the credentials carried by the remote
// offer/answer.
func (a *Agent) SetRemoteCredentials(ufrag, pwd string) {
	a.enqueue(func(ag *Agent) {
		ag.remoteUfrag, ag.remotePwd = ufrag, pwd
	})
}

// AddLocalCandidate registers a gathered local candidate and pairs it
// against every compatible remote candidate already known.
func (a *Agent) AddLocalCandidate(c *Candidate) {
	a.enqueue(func(ag *Agent) {
		ag.localCandidates = append(ag.localCandidates, c)
		for _, r := range ag.remoteCandidates {
			ag.formPair(c, r)
		}
		ag.Events <- Event{Kind: EventCandidateGathered, Gathered: c}
	})
}

// EndOfLocalCandidates signals gathering completion.
func (a *Agent) EndOfLocalCandidates() {
	a.enqueue(func(ag *Agent) {
		ag.Events <- Event{Kind: EventCandidateGathered, Gathered: nil}
	})
}

// AddRemoteCandidate registers a remote candidate signaled out of band
// and pairs it against every known local candidate.
func (a *Agent) AddRemoteCandidate(c *Candidate) {
	a.enqueue(func(ag *Agent) {
		ag.remoteCandidates = append(ag.remoteCandidates, c)
		ag.lastNewRemote = time.Now()
		for _, l := range ag.localCandidates {
			ag.formPair(l, c)
		}
	})
}

// formPair implements RFC 8445 §6.1.2: pair with every local candidate
// of matching component and compatible family, compute priority, and
// freeze everything except the lowest-priority pair of each foundation.
func (a *Agent) formPair(local, remote *Candidate) {
	if local.Component != remote.Component || !sameFamily(local, remote) {
		return
	}
	for _, p := range a.pairs {
		if p.local == local && p.remote == remote {
			return
		}
	}

	var controllingPriority, controlledPriority uint32
	if a.isControlling {
		controllingPriority, controlledPriority = local.Priority, remote.Priority
	} else {
		controllingPriority, controlledPriority = remote.Priority, local.Priority
	}

	id := a.nextID
	a.nextID++
	p := newPair(id, local, remote, controllingPriority, controlledPriority)
	a.pairs = append(a.pairs, p)
	a.unfreezeFoundation(p.foundation())
}

// unfreezeFoundation implements the "lowest pair-priority waiting per
// foundation, rest frozen" rule and its re-evaluation after each
// successful check (RFC 8445 §6.1.2.6, §7.2.5.3.3).
func (a *Agent) unfreezeFoundation(foundation string) {
	var group []*pair
	for _, p := range a.pairs {
		if p.foundation() == foundation && p.state == PairFrozen {
			group = append(group, p)
		}
	}
	if len(group) == 0 {
		return
	}
	sort.Slice(group, func(i, j int) bool { return group[i].priority < group[j].priority })
	group[0].state = PairWaiting
}

// doOrdinaryCheck implements the Ta-scheduled "pick the highest-priority
// waiting pair" ordinary check (RFC 8445 §6.1.4.2).
func (a *Agent) doOrdinaryCheck() {
	var best *pair
	for _, p := range a.pairs {
		if p.state != PairWaiting {
			continue
		}
		if best == nil || p.priority > best.priority {
			best = p
		}
	}
	if best == nil {
		return
	}
	a.startCheck(best, false)
}

// retryStunChecks implements RFC 8445 §14's exponential-backoff
// retransmission: every Ta tick, a pair still waiting on a Binding
// Request response past its nextRTO is either retried (doubling
// nextRTO, as a naive SRTT-less RTO estimate) or, past
// maxStunAttempts, failed outright.
func (a *Agent) retryStunChecks() {
	for _, p := range a.pairs {
		if p.state != PairInProgress {
			continue
		}
		if time.Since(p.lastCheck) < p.nextRTO {
			continue
		}
		if p.attempts >= maxStunAttempts {
			p.state = PairFailed
			continue
		}
		p.nextRTO *= 2
		a.startCheck(p, p.pendingUseCandidate)
	}
}

func (a *Agent) startCheck(p *pair, useCandidate bool) {
	p.state = PairInProgress
	p.attempts++
	p.lastCheck = time.Now()
	p.pendingUseCandidate = useCandidate

	txID, err := stun.NewTransactionID()
	if err != nil {
		a.log.Warnf("ice: failed to build transaction id: %v", err)
		return
	}

	b := stun.NewBuilder(stun.Type{Class: stun.ClassRequest, Method: stun.MethodBinding}, txID)
	b.AddAttr(stun.AttrUsername, []byte(a.remoteUfrag+":"+a.localUfrag))
	b.AddUint32(stun.AttrPriority, peerReflexivePriority(p.local))
	if a.isControlling {
		b.AddUint64(stun.AttrIceControlling, a.tiebreaker)
		if useCandidate {
			b.AddAttr(stun.AttrUseCandidate, nil)
		}
	} else {
		b.AddUint64(stun.AttrIceControlled, a.tiebreaker)
	}
	raw := b.Build([]byte(a.remotePwd))

	conn := p.local.conn
	if conn == nil {
		return
	}
	if _, err := conn.WriteTo(raw, p.remote.addr()); err != nil {
		a.log.Warnf("ice: check send failed: %v", err)
	}
}

// peerReflexivePriority computes the PRIORITY attribute value a peer
// should use if it learns this pair's local candidate as peer-reflexive
// (RFC 8445 §5.1.1, type preference fixed to 110 for prflx).
func peerReflexivePriority(local *Candidate) uint32 {
	return ComputePriority(CandidateTypePeerReflexive, uint16(local.Priority>>8), local.Component)
}

// onPacket classifies one inbound datagram per RFC 7983's first-byte
// ranges. STUN [0,3] is handled inline; everything else (DTLS, SRTP/
// SRTCP) is handed to NonSTUN for the transport layer to demultiplex
// further, since this Agent is the only owner of the underlying socket.
func (a *Agent) onPacket(pkt recvPacket) {
	if len(pkt.buf) == 0 {
		return
	}
	if pkt.buf[0] > 3 {
		select {
		case a.NonSTUN <- RawPacket{Data: pkt.buf, From: pkt.from, Conn: pkt.conn}:
		default:
			a.log.Warnf("ice: dropping non-STUN packet, NonSTUN channel full")
		}
		return
	}

	m, err := stun.Parse(pkt.buf)
	if err != nil {
		a.log.Debugf("ice: dropping malformed STUN packet: %v", err)
		return
	}
	switch m.Type.Class {
	case stun.ClassRequest:
		a.handleBindingRequest(pkt, m)
	case stun.ClassSuccessResponse:
		a.handleBindingSuccess(pkt, m)
	case stun.ClassErrorResponse:
		a.handleBindingError(pkt, m)
	}
}

// handleBindingRequest implements inbound connectivity-check handling:
// integrity verification, peer-reflexive pair creation, role-conflict
// resolution, and USE-CANDIDATE nomination.
func (a *Agent) handleBindingRequest(pkt recvPacket, m *stun.Message) {
	if err := stun.VerifyIntegrity(m, []byte(a.localPwd)); err != nil {
		a.log.Debugf("ice: rejecting check with bad integrity: %v", err)
		return
	}

	if _, theirsControlling := m.Get(stun.AttrIceControlling); theirsControlling && a.isControlling {
		a.resolveRoleConflict(pkt, m, true)
		return
	}
	if _, theirsControlled := m.Get(stun.AttrIceControlled); theirsControlled && !a.isControlling {
		a.resolveRoleConflict(pkt, m, false)
		return
	}

	p := a.findOrCreatePairForSource(pkt)
	if p == nil {
		return
	}
	if p.state == PairFrozen {
		p.state = PairWaiting
	}

	a.respondBindingSuccess(pkt, m)

	_, useCandidate := m.Get(stun.AttrUseCandidate)
	if useCandidate && !a.isControlling {
		p.useCandidateRequested = true
		if p.state == PairSucceeded {
			a.nominate(p)
		}
	}
}

func (a *Agent) findOrCreatePairForSource(pkt recvPacket) *pair {
	for _, p := range a.pairs {
		if p.local.conn == pkt.conn && p.remote.addr().String() == pkt.from.String() {
			return p
		}
	}
	host, portStr, err := net.SplitHostPort(pkt.from.String())
	if err != nil {
		return nil
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)

	var localForConn *Candidate
	for _, l := range a.localCandidates {
		if l.conn == pkt.conn {
			localForConn = l
			break
		}
	}
	if localForConn == nil {
		return nil
	}

	remote := NewPeerReflexiveCandidate(fmt.Sprintf("prflx%d", a.nextID), host, port, peerReflexivePriority(localForConn))
	a.remoteCandidates = append(a.remoteCandidates, remote)
	a.formPair(localForConn, remote)
	for _, p := range a.pairs {
		if p.local == localForConn && p.remote == remote {
			return p
		}
	}
	return nil
}

func (a *Agent) respondBindingSuccess(pkt recvPacket, req *stun.Message) {
	b := stun.NewBuilder(stun.Type{Class: stun.ClassSuccessResponse, Method: stun.MethodBinding}, req.TransactionID)
	host, portStr, err := net.SplitHostPort(pkt.from.String())
	if err != nil {
		return
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	xor := stun.XORMappedAddress{IP: net.ParseIP(host), Port: port}
	b.AddAttr(stun.AttrXORMappedAddress, xor.Encode(req.TransactionID))
	raw := b.Build([]byte(a.localPwd))
	_, _ = pkt.conn.WriteTo(raw, pkt.from)
}

// resolveRoleConflict implements RFC 8445 §7.3.1.1's tiebreaker
// comparison: if ours is smaller, this agent switches role and processes
// the request; otherwise it answers with a 487 error, on which the peer
// switches its own role and repeats the check (handleBindingError).
func (a *Agent) resolveRoleConflict(pkt recvPacket, req *stun.Message, peerClaimsControlling bool) {
	var peerTiebreaker uint64
	attrName := stun.AttrIceControlling
	if !peerClaimsControlling {
		attrName = stun.AttrIceControlled
	}
	if attr, ok := req.Get(attrName); ok && len(attr.Value) == 8 {
		for _, c := range attr.Value {
			peerTiebreaker = peerTiebreaker<<8 | uint64(c)
		}
	}

	if a.tiebreaker >= peerTiebreaker {
		b := stun.NewBuilder(stun.Type{Class: stun.ClassErrorResponse, Method: stun.MethodBinding}, req.TransactionID)
		b.AddUint32(stun.AttrErrorCode, 4<<8|87) // class 4, number 87
		raw := b.Build([]byte(a.localPwd))
		_, _ = pkt.conn.WriteTo(raw, pkt.from)
		return
	}
	a.isControlling = !a.isControlling
	a.handleBindingRequest(pkt, req)
}

func (a *Agent) handleBindingSuccess(pkt recvPacket, m *stun.Message) {
	var p *pair
	for _, cand := range a.pairs {
		if cand.local.conn == pkt.conn && cand.remote.addr().String() == pkt.from.String() && cand.state == PairInProgress {
			p = cand
			break
		}
	}
	if p == nil {
		return
	}
	p.state = PairSucceeded
	a.lastConsent = time.Now()
	a.unfreezeFoundation(p.foundation())

	if a.isControlling && a.selected == nil {
		a.nominate(p)
	} else if p.useCandidateRequested {
		a.nominate(p)
	}
}

func (a *Agent) handleBindingError(pkt recvPacket, m *stun.Message) {
	for _, p := range a.pairs {
		if p.local.conn == pkt.conn && p.remote.addr().String() == pkt.from.String() {
			if attr, ok := m.Get(stun.AttrErrorCode); ok && len(attr.Value) >= 4 && attr.Value[2] == 4 && attr.Value[3] == 87 {
				a.isControlling = !a.isControlling
				a.startCheck(p, false)
				return
			}
			p.state = PairFailed
		}
	}
}

// nominate promotes p to the selected pair. The first nomination per
// component wins.
func (a *Agent) nominate(p *pair) {
	if !p.nominated {
		p.nominated = true
	}
	if a.isControlling && !p.useCandidateRequested {
		a.startCheck(p, true)
		return
	}
	if a.selected == nil {
		a.selected = p
		a.lastConsent = time.Now()
		a.Events <- Event{Kind: EventSelectedPairChange, LocalPair: p.local, RemotePair: p.remote}
		a.setState(ConnectionConnected)
	}
	a.maybeComplete()
}

func (a *Agent) maybeComplete() {
	for _, p := range a.pairs {
		if p.state == PairWaiting || p.state == PairInProgress {
			return
		}
	}
	if a.selected != nil {
		a.setState(ConnectionCompleted)
	}
}

func (a *Agent) checkFailure() {
	if a.selected != nil {
		if time.Since(a.lastConsent) > consentFreshnessInterval+failedGrace {
			a.setState(ConnectionDisconnected)
		}
		return
	}
	if len(a.pairs) == 0 {
		return
	}
	allFailed := true
	for _, p := range a.pairs {
		switch p.state {
		case PairFailed:
			continue
		default:
			allFailed = false
		}
		if p.attempts >= maxStunAttempts && p.state == PairInProgress {
			p.state = PairFailed
		}
	}
	if allFailed && time.Since(a.lastNewRemote) > failedGrace {
		a.setState(ConnectionFailed)
	}
}

// sendConsent implements RFC 7675: a Binding Request every 15s on the
// selected pair, independent of ordinary connectivity checks.
func (a *Agent) sendConsent() {
	if a.selected == nil {
		return
	}
	a.startCheck(a.selected, false)
	a.selected.state = PairSucceeded
}

func (a *Agent) setState(s ConnectionState) {
	if a.state == s {
		return
	}
	a.state = s
	a.Events <- Event{Kind: EventStateChange, State: s}
}

// Send writes buf to the remote address of the currently selected pair.
func (a *Agent) Send(buf []byte) error {
	done := make(chan error, 1)
	a.enqueue(func(ag *Agent) {
		if ag.selected == nil {
			done <- ErrNoSelectedPair
			return
		}
		_, err := ag.selected.local.conn.WriteTo(buf, ag.selected.remote.addr())
		done <- err
	})
	return <-done
}
