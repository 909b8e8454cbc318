package ice

import (
	"net"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/stretchr/testify/require"
)

// fakePacketConn counts outbound writes and never yields a read, so
// these tests can drive Agent/pair retransmission logic without a real
// socket or a peer to answer it.
type fakePacketConn struct {
	writes int
}

func (c *fakePacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	select {}
}
func (c *fakePacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	c.writes++
	return len(p), nil
}
func (c *fakePacketConn) Close() error                      { return nil }
func (c *fakePacketConn) LocalAddr() net.Addr                { return &net.UDPAddr{} }
func (c *fakePacketConn) SetDeadline(t time.Time) error      { return nil }
func (c *fakePacketConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakePacketConn) SetWriteDeadline(t time.Time) error { return nil }

// TestRetryStunChecksBacksOffAndFailsAfterMaxAttempts pins RFC 8445
// §14: a connectivity check that never gets a response is retried with
// doubling backoff, and the pair fails once it has tried
// maxStunAttempts times.
func TestRetryStunChecksBacksOffAndFailsAfterMaxAttempts(t *testing.T) {
	conn := &fakePacketConn{}
	local := NewHostCandidate("f", "127.0.0.1", 1000, 65535)
	local.conn = conn
	remote := NewHostCandidate("f", "127.0.0.1", 2000, 65535)

	a := &Agent{
		log:         logging.NewDefaultLoggerFactory().NewLogger("ice"),
		localUfrag:  "lu",
		localPwd:    "lp",
		remoteUfrag: "ru",
		remotePwd:   "rp",
	}
	p := newPair(0, local, remote, 1, 1)
	a.pairs = []*pair{p}

	a.startCheck(p, false)
	require.Equal(t, 1, p.attempts)
	require.Equal(t, PairInProgress, p.state)
	firstRTO := p.nextRTO

	p.lastCheck = time.Now().Add(-2 * firstRTO)
	a.retryStunChecks()
	require.Equal(t, 2, p.attempts, "a stale check must be retried")
	require.Equal(t, 2*firstRTO, p.nextRTO, "RTO must double on each retry")

	for p.attempts < maxStunAttempts {
		p.lastCheck = time.Now().Add(-2 * p.nextRTO)
		a.retryStunChecks()
	}
	require.Equal(t, maxStunAttempts, p.attempts)
	require.Equal(t, PairInProgress, p.state)
	require.Equal(t, maxStunAttempts, conn.writes)

	p.lastCheck = time.Now().Add(-2 * p.nextRTO)
	a.retryStunChecks()
	require.Equal(t, PairFailed, p.state, "pair must fail once retries exhaust maxStunAttempts")
	require.Equal(t, maxStunAttempts, conn.writes, "a failed pair must not send another check")
}

// TestRetryStunChecksLeavesFreshChecksAlone ensures a check that
// hasn't outlived its RTO yet is left untouched.
func TestRetryStunChecksLeavesFreshChecksAlone(t *testing.T) {
	conn := &fakePacketConn{}
	local := NewHostCandidate("f", "127.0.0.1", 1000, 65535)
	local.conn = conn
	remote := NewHostCandidate("f", "127.0.0.1", 2000, 65535)

	a := &Agent{
		log:         logging.NewDefaultLoggerFactory().NewLogger("ice"),
		localUfrag:  "lu",
		localPwd:    "lp",
		remoteUfrag: "ru",
		remotePwd:   "rp",
	}
	p := newPair(0, local, remote, 1, 1)
	a.pairs = []*pair{p}

	a.startCheck(p, false)
	require.Equal(t, 1, conn.writes)

	a.retryStunChecks()
	require.Equal(t, 1, p.attempts)
	require.Equal(t, 1, conn.writes, "a check still within its RTO must not be retried")
}
