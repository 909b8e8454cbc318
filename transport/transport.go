// Package transport wires one selected ICE candidate pair to a DTLS
// association, and that association's record layer to one SCTP
// association (data channels) and one pair of SRTP/SRTCP contexts
// (media) co-located on the same socket per RFC 7983. It is
// intentionally thin: every protocol decision lives in ice, dtls,
// sctp, srtp, and datachannel — this package only plumbs bytes between
// them in the order RFC 8825's "Establishing a Connection" prescribes.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/rtcstack/datachannel"
	"github.com/pion/rtcstack/demux"
	"github.com/pion/rtcstack/dtls"
	"github.com/pion/rtcstack/ice"
	"github.com/pion/rtcstack/rtp"
	"github.com/pion/rtcstack/sctp"
	"github.com/pion/rtcstack/srtp"
)

// Sender is the outbound surface Transport needs from its ICE layer:
// write a datagram to whichever address the agent has selected.
// *ice.Agent satisfies this directly; tests can substitute a fake.
type Sender interface {
	Send(buf []byte) error
}

// Config collects what Transport needs to bring up DTLS, SCTP data
// channels, and an SRTP/SRTCP session on top of one already-Run ICE
// agent.
type Config struct {
	Agent         *ice.Agent
	DTLS          dtls.Config
	IsClient      bool
	LoggerFactory logging.LoggerFactory
}

// Transport is the module's owning wiring layer: it holds the DTLS
// conn, the SCTP association, and the two SRTP contexts (local for
// writes, remote for reads) a completed handshake produces, but runs none of
// their state machines itself.
type Transport struct {
	log    logging.LeveledLogger
	sender Sender

	dtlsConn *dtls.Conn
	Assoc    *sctp.Association

	localSRTP  *srtp.Context
	remoteSRTP *srtp.Context

	rtpRecv  chan []byte
	rtcpRecv chan []byte

	// Events re-exposes every ice.Event the agent emits, including the
	// selected-pair change New waits on, so callers can still watch ICE
	// connectivity-state changes after construction.
	Events chan ice.Event

	closeOnce sync.Once
	closed    chan struct{}
}

// New blocks until cfg.Agent reports a selected candidate pair, then
// drives the DTLS handshake, SRTP key derivation, and SCTP handshake
// to completion over it.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	t := &Transport{
		log:      cfg.LoggerFactory.NewLogger("transport"),
		sender:   cfg.Agent,
		rtpRecv:  make(chan []byte, 256),
		rtcpRecv: make(chan []byte, 64),
		Events:   make(chan ice.Event, 64),
		closed:   make(chan struct{}),
	}

	selectedCh := make(chan net.Addr, 1)
	go t.pumpEvents(cfg.Agent, selectedCh)

	var remote net.Addr
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case remote = <-selectedCh:
	}

	if err := t.establish(ctx, cfg, remote, cfg.Agent.NonSTUN); err != nil {
		return nil, err
	}
	return t, nil
}

// pumpEvents drains agent.Events for the lifetime of the Transport,
// surfacing the first selected-pair address on selectedCh and
// forwarding every event onward so Close doesn't strand a reader.
func (t *Transport) pumpEvents(agent *ice.Agent, selectedCh chan<- net.Addr) {
	sentSelected := false
	for ev := range agent.Events {
		if !sentSelected && ev.Kind == ice.EventSelectedPairChange && ev.RemotePair != nil {
			sentSelected = true
			selectedCh <- &net.UDPAddr{IP: net.ParseIP(ev.RemotePair.Address), Port: ev.RemotePair.Port}
		}
		select {
		case t.Events <- ev:
		default:
			t.log.Warnf("transport: dropping ICE event, Events channel full")
		}
	}
	close(t.Events)
}

// establish runs the DTLS/SRTP/SCTP bring-up described in the package
// doc comment. It is split out from New so tests can drive it with a
// fake Sender and a hand-fed NonSTUN channel instead of a running
// ice.Agent.
func (t *Transport) establish(ctx context.Context, cfg Config, remote net.Addr, nonSTUN <-chan ice.RawPacket) error {
	dtlsRecv := make(chan []byte, 64)
	go classifyNonSTUN(nonSTUN, dtlsRecv, t.rtpRecv, t.rtcpRecv, t.log)

	sock := &senderConn{sender: t.sender}
	dtlsCfg := cfg.DTLS
	if dtlsCfg.LoggerFactory == nil {
		dtlsCfg.LoggerFactory = cfg.LoggerFactory
	}

	conn, err := dtls.Handshake(ctx, cfg.IsClient, sock, remote, dtlsCfg, dtlsRecv)
	if err != nil {
		return fmt.Errorf("transport: dtls handshake: %w", err)
	}
	t.dtlsConn = conn

	localKey, localSalt, remoteKey, remoteSalt, _ := conn.ExportSRTPKeyingMaterial()

	localKeys, err := srtp.DeriveSessionKeys(localKey, localSalt)
	if err != nil {
		return fmt.Errorf("transport: derive local srtp keys: %w", err)
	}
	if t.localSRTP, err = srtp.NewContext(localKeys); err != nil {
		return fmt.Errorf("transport: local srtp context: %w", err)
	}

	remoteKeys, err := srtp.DeriveSessionKeys(remoteKey, remoteSalt)
	if err != nil {
		return fmt.Errorf("transport: derive remote srtp keys: %w", err)
	}
	if t.remoteSRTP, err = srtp.NewContext(remoteKeys); err != nil {
		return fmt.Errorf("transport: remote srtp context: %w", err)
	}

	sctpCfg := sctp.Config{NetConn: conn, LoggerFactory: cfg.LoggerFactory}
	if cfg.IsClient {
		t.Assoc, err = sctp.Client(sctpCfg)
	} else {
		t.Assoc, err = sctp.Server(sctpCfg)
	}
	if err != nil {
		return fmt.Errorf("transport: sctp handshake: %w", err)
	}
	return nil
}

// classifyNonSTUN applies RFC 7983's remaining first-byte ranges (DTLS
// vs SRTP/SRTCP) to whatever the ICE layer couldn't classify as STUN,
// then RFC 5761 §4's payload-type convention to tell SRTP from SRTCP
// on the muxed port. It closes every output channel once in drains dry
// so downstream Read calls see io.EOF instead of blocking forever.
func classifyNonSTUN(in <-chan ice.RawPacket, dtlsRecv, rtpRecv, rtcpRecv chan []byte, log logging.LeveledLogger) {
	defer close(dtlsRecv)
	defer close(rtpRecv)
	defer close(rtcpRecv)

	for pkt := range in {
		switch {
		case demux.MatchDTLS(pkt.Data):
			select {
			case dtlsRecv <- pkt.Data:
			default:
				log.Warnf("transport: dropping DTLS packet, receive buffer full")
			}
		case demux.MatchSRTP(pkt.Data):
			if isRTCP(pkt.Data) {
				select {
				case rtcpRecv <- pkt.Data:
				default:
					log.Warnf("transport: dropping SRTCP packet, receive buffer full")
				}
			} else {
				select {
				case rtpRecv <- pkt.Data:
				default:
					log.Warnf("transport: dropping SRTP packet, receive buffer full")
				}
			}
		default:
			log.Warnf("transport: unclassifiable non-STUN packet starting with %d", pkt.Data[0])
		}
	}
}

// isRTCP applies RFC 5761 §4's convention for telling RTCP apart from
// RTP on a muxed port: RTCP packet types occupy [192,223], a range RTP
// payload-type negotiation is required to avoid.
func isRTCP(pkt []byte) bool {
	return len(pkt) > 1 && pkt[1] >= 192 && pkt[1] <= 223
}

// OpenDataChannel opens a new outgoing SCTP stream and runs the client
// side of the DCEP handshake on it.
func (t *Transport) OpenDataChannel(id uint16, cfg *datachannel.Config) (*datachannel.DataChannel, error) {
	return datachannel.Dial(t.Assoc, id, cfg)
}

// AcceptDataChannel waits for the peer's next stream and runs the
// server side of the DCEP handshake on it.
func (t *Transport) AcceptDataChannel() (*datachannel.DataChannel, error) {
	return datachannel.Accept(t.Assoc)
}

// WriteRTP protects pkt under the local SRTP context and sends it.
func (t *Transport) WriteRTP(pkt *rtp.Packet) error {
	out, err := t.localSRTP.EncryptRTP(pkt)
	if err != nil {
		return err
	}
	return t.sender.Send(out)
}

// ReadRTP blocks for the next SRTP packet classified off the shared
// socket and unprotects it under the remote SRTP context.
func (t *Transport) ReadRTP() (*rtp.Packet, error) {
	buf, ok := <-t.rtpRecv
	if !ok {
		return nil, io.EOF
	}
	return t.remoteSRTP.DecryptRTP(buf)
}

// WriteRTCP protects a marshaled compound RTCP packet under the local
// SRTP context and sends it.
func (t *Transport) WriteRTCP(ssrc uint32, raw []byte) error {
	out, err := t.localSRTP.EncryptRTCP(ssrc, raw)
	if err != nil {
		return err
	}
	return t.sender.Send(out)
}

// ReadRTCP blocks for the next SRTCP packet and unprotects it under
// the remote SRTP context, returning the plaintext compound packet.
func (t *Transport) ReadRTCP() ([]byte, error) {
	buf, ok := <-t.rtcpRecv
	if !ok {
		return nil, io.EOF
	}
	return t.remoteSRTP.DecryptRTCP(buf)
}

// Close tears down the SCTP association and the DTLS conn. The ICE
// agent and its socket outlive Transport and are closed separately.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.Assoc != nil {
			err = t.Assoc.Close()
		}
		if t.dtlsConn != nil {
			if derr := t.dtlsConn.Close(); err == nil {
				err = derr
			}
		}
		close(t.closed)
	})
	return err
}

// senderConn adapts a Sender to the net.PacketConn shape dtls.Conn
// needs for its write path; dtls.Conn never reads from this directly,
// it receives via the channel passed to Handshake instead.
type senderConn struct {
	sender Sender
}

func (s *senderConn) WriteTo(b []byte, _ net.Addr) (int, error) {
	if err := s.sender.Send(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (s *senderConn) ReadFrom([]byte) (int, net.Addr, error) { return 0, nil, io.EOF }
func (s *senderConn) Close() error                           { return nil }
func (s *senderConn) LocalAddr() net.Addr                    { return nil }
func (s *senderConn) SetDeadline(time.Time) error            { return nil }
func (s *senderConn) SetReadDeadline(time.Time) error        { return nil }
func (s *senderConn) SetWriteDeadline(time.Time) error       { return nil }
