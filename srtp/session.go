package srtp

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/pion/logging"
)

// Session multiplexes one DTLS-protected UDP connection into per-SSRC
// RTP read streams, encrypting outbound packets with the local
// Context and decrypting/demuxing inbound ones through the remote
// Context. It mirrors the read/write-stream split of a conventional
// SRTP session without the stream owning any socket itself.
type Session struct {
	conn   net.Conn
	local  *Context
	remote *Context
	log    logging.LeveledLogger

	streams map[uint32]*ReadStream
}

// NewSession wraps conn (already DTLS-protected) with the local
// (encrypt) and remote (decrypt) SRTP contexts derived from the same
// DTLS handshake's exported keying material.
func NewSession(conn net.Conn, local, remote *Context, log logging.LeveledLogger) *Session {
	return &Session{
		conn:    conn,
		local:   local,
		remote:  remote,
		log:     log,
		streams: make(map[uint32]*ReadStream),
	}
}

// WriteRTP encrypts raw's RTP header/payload and writes the resulting
// SRTP packet to the underlying connection.
func (s *Session) WriteRTP(raw []byte) (int, error) {
	if len(raw) < 12 {
		return 0, fmt.Errorf("srtp: short rtp packet")
	}
	ssrc := binary.BigEndian.Uint32(raw[8:12])
	seq := binary.BigEndian.Uint16(raw[2:4])

	rs := s.local.rolloverFor(ssrc)
	roc := rs.updateROC(seq)
	nonce := gcmNonceRTP(s.local.keys.RTPSalt, roc, seq)
	sealed := s.local.rtpGCM.Seal(nil, nonce, raw[12:], raw[:12])

	return s.conn.Write(append(append([]byte{}, raw[:12]...), sealed...))
}

// WriteRTCP encrypts and writes a compound RTCP packet.
func (s *Session) WriteRTCP(raw []byte) (int, error) {
	if len(raw) < 8 {
		return 0, fmt.Errorf("srtp: short rtcp packet")
	}
	ssrc := binary.BigEndian.Uint32(raw[4:8])
	out, err := s.local.EncryptRTCP(ssrc, raw)
	if err != nil {
		return 0, err
	}
	return s.conn.Write(out)
}

// Accept reads one inbound SRTP packet from the connection, decrypts
// it, and delivers it to the matching ReadStream, creating one on
// first contact with a new SSRC.
func (s *Session) Accept() error {
	buf := make([]byte, 1500)
	n, err := s.conn.Read(buf)
	if err != nil {
		return err
	}

	pkt, err := s.remote.DecryptRTP(buf[:n])
	if err != nil {
		return fmt.Errorf("srtp: accept: %w", err)
	}

	rs := s.GetOrCreateReadStream(pkt.SSRC)
	encoded, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("srtp: accept: re-marshal: %w", err)
	}
	rs.push(encoded)
	return nil
}

// GetOrCreateReadStream returns the per-SSRC decrypted RTP read side,
// creating it on first use.
func (s *Session) GetOrCreateReadStream(ssrc uint32) *ReadStream {
	if rs, ok := s.streams[ssrc]; ok {
		return rs
	}
	rs := &ReadStream{ssrc: ssrc, decrypted: make(chan []byte, 32)}
	s.streams[ssrc] = rs
	return rs
}

// ReadStream delivers decrypted, re-marshaled RTP packets for a
// single SSRC to whatever goroutine owns that track.
type ReadStream struct {
	ssrc      uint32
	decrypted chan []byte
}

// SSRC returns the stream's source identifier.
func (r *ReadStream) SSRC() uint32 { return r.ssrc }

// Read blocks for the next decrypted packet.
func (r *ReadStream) Read(buf []byte) (int, error) {
	data, ok := <-r.decrypted
	if !ok {
		return 0, fmt.Errorf("srtp: stream closed")
	}
	if len(data) > len(buf) {
		return 0, fmt.Errorf("srtp: read buffer too small")
	}
	copy(buf, data)
	return len(data), nil
}

func (r *ReadStream) push(data []byte) {
	select {
	case r.decrypted <- data:
	default:
	}
}

// Close releases the stream's channel.
func (r *ReadStream) Close() error {
	close(r.decrypted)
	return nil
}
