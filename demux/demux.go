// Package demux multiplexes the single UDP socket a WebRTC agent
// sends and receives on across the protocols that share it, per
// RFC 7983's first-byte classifier.
package demux

import (
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v4/packetio"
)

const maxBufferSize = 1_000_000

// MatchFunc decides whether a packet belongs to the Endpoint it is
// registered against.
type MatchFunc func([]byte) bool

// MatchRange builds a MatchFunc from an inclusive first-byte range.
func MatchRange(lower, upper byte) MatchFunc {
	return func(buf []byte) bool {
		if len(buf) < 1 {
			return false
		}
		return buf[0] >= lower && buf[0] <= upper
	}
}

// RFC 7983 §7's classification ranges.
var (
	MatchSTUN = MatchRange(0, 3)
	MatchZRTP = MatchRange(16, 19)
	MatchDTLS = MatchRange(20, 63)
	MatchTURN = MatchRange(64, 79)
	MatchSRTP = MatchRange(128, 191)
)

// Conn is the minimal packet-socket surface Demuxer multiplexes over.
type Conn interface {
	net.PacketConn
}

// Demuxer reads packets from a single underlying Conn and routes each
// one to a registered Endpoint whose MatchFunc accepts it. Endpoints are
// kept in a map, so when several MatchFuncs accept the same packet,
// which of those Endpoints receives it is not defined.
type Demuxer struct {
	mu        sync.RWMutex
	conn      Conn
	endpoints map[*Endpoint]MatchFunc
	closed    chan struct{}
	log       logging.LeveledLogger
}

// New starts demultiplexing conn in a background goroutine.
func New(conn Conn, loggerFactory logging.LoggerFactory) *Demuxer {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	d := &Demuxer{
		conn:      conn,
		endpoints: map[*Endpoint]MatchFunc{},
		closed:    make(chan struct{}),
		log:       loggerFactory.NewLogger("demux"),
	}
	go d.readLoop()
	return d
}

// NewEndpoint registers a new classified sub-connection. Packets
// matching f are delivered to it until it is closed or removed.
func (d *Demuxer) NewEndpoint(f MatchFunc) *Endpoint {
	e := &Endpoint{demuxer: d, buffer: packetio.NewBuffer()}
	e.buffer.SetLimitSize(maxBufferSize)

	d.mu.Lock()
	d.endpoints[e] = f
	d.mu.Unlock()
	return e
}

func (d *Demuxer) removeEndpoint(e *Endpoint) {
	d.mu.Lock()
	delete(d.endpoints, e)
	d.mu.Unlock()
}

func (d *Demuxer) readLoop() {
	defer close(d.closed)
	buf := make([]byte, 1500)
	for {
		n, addr, err := d.conn.ReadFrom(buf)
		if err != nil {
			d.log.Debugf("demux: read loop exiting: %v", err)
			return
		}
		d.dispatch(buf[:n], addr)
	}
}

func (d *Demuxer) dispatch(buf []byte, addr net.Addr) {
	d.mu.RLock()
	var target *Endpoint
	for e, f := range d.endpoints {
		if f(buf) {
			target = e
			break
		}
	}
	d.mu.RUnlock()

	if target == nil {
		if len(buf) > 0 {
			d.log.Warnf("demux: no endpoint for packet starting with %d", buf[0])
		} else {
			d.log.Warnf("demux: no endpoint for zero-length packet")
		}
		return
	}

	target.mu.Lock()
	target.remoteAddr = addr
	target.mu.Unlock()
	if _, err := target.buffer.Write(buf); err != nil {
		d.log.Warnf("demux: endpoint buffer write failed: %v", err)
	}
}

// WriteTo writes raw directly to the underlying socket, addressed to addr.
func (d *Demuxer) WriteTo(raw []byte, addr net.Addr) (int, error) {
	return d.conn.WriteTo(raw, addr)
}

// Close closes every registered endpoint and the underlying socket.
func (d *Demuxer) Close() error {
	d.mu.Lock()
	for e := range d.endpoints {
		_ = e.close()
	}
	d.endpoints = map[*Endpoint]MatchFunc{}
	d.mu.Unlock()

	err := d.conn.Close()
	<-d.closed
	return err
}

// Endpoint is a net.PacketConn-like view onto the packets one
// MatchFunc accepted from the Demuxer's shared socket.
type Endpoint struct {
	demuxer *Demuxer
	buffer  *packetio.Buffer

	mu         sync.RWMutex
	remoteAddr net.Addr
}

func (e *Endpoint) close() error { return e.buffer.Close() }

// Close unregisters the endpoint and releases its buffer.
func (e *Endpoint) Close() error {
	if err := e.close(); err != nil {
		return err
	}
	e.demuxer.removeEndpoint(e)
	return nil
}

// Read reads the next demultiplexed packet's bytes.
func (e *Endpoint) Read(p []byte) (int, error) {
	return e.buffer.Read(p)
}

// Write sends p on the demuxer's shared socket to the endpoint's most
// recently observed remote address.
func (e *Endpoint) Write(p []byte) (int, error) {
	e.mu.RLock()
	addr := e.remoteAddr
	e.mu.RUnlock()
	if addr == nil {
		return 0, net.ErrClosed
	}
	return e.demuxer.WriteTo(p, addr)
}

func (e *Endpoint) LocalAddr() net.Addr { return e.demuxer.conn.LocalAddr() }

func (e *Endpoint) RemoteAddr() net.Addr {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.remoteAddr
}

func (e *Endpoint) SetDeadline(time.Time) error      { return nil }
func (e *Endpoint) SetReadDeadline(time.Time) error  { return nil }
func (e *Endpoint) SetWriteDeadline(time.Time) error { return nil }
