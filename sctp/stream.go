package sctp

import (
	"fmt"
	"sync"
	"time"
)

// Stream is one bidirectional SCTP stream within an Association,
// addressed by its 16-bit stream identifier.
type Stream struct {
	association *Association
	streamID    uint16

	mu             sync.Mutex
	nextSSN        uint16
	unordered      bool
	defaultPPI     PayloadProtocolID
	reliabilityTTL time.Duration

	readCh chan []byte
	closed bool
}

// SetUnordered toggles whether subsequent WriteDataChannel calls send
// unordered DATA chunks (RFC 4960 §3.3.1's U flag).
func (s *Stream) SetUnordered(unordered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unordered = unordered
}

// SetReliabilityParams configures a PR-SCTP (RFC 3758) timed
// reliability policy: messages still unacknowledged after ttl is
// abandoned via FORWARD-TSN rather than retransmitted forever. A zero
// ttl means fully reliable delivery.
func (s *Stream) SetReliabilityParams(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reliabilityTTL = ttl
}

func (s *Stream) nextOutgoingSSN() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ssn := s.nextSSN
	s.nextSSN++
	return ssn
}

func (s *Stream) resetLocked() {
	s.mu.Lock()
	s.nextSSN = 0
	s.mu.Unlock()
}

// StreamIdentifier returns the stream's 16-bit identifier.
func (s *Stream) StreamIdentifier() uint16 { return s.streamID }

// WriteDataChannel sends one complete user message as ppi-tagged DATA
// chunks, fragmenting if it exceeds a single chunk's capacity.
func (s *Stream) WriteDataChannel(data []byte, ppi PayloadProtocolID) error {
	s.mu.Lock()
	unordered := s.unordered
	ttl := s.reliabilityTTL
	s.mu.Unlock()
	return s.association.writeMessage(s.streamID, ppi, data, unordered, ttl)
}

func (s *Stream) push(data []byte) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	select {
	case s.readCh <- data:
	default:
		// Receiver isn't keeping up; drop rather than block the
		// association's single receive loop.
	}
}

// ReadDataChannel blocks until the next complete message arrives on
// this stream, or the stream/association closes.
func (s *Stream) ReadDataChannel(buf []byte) (int, PayloadProtocolID, error) {
	data, ok := <-s.readCh
	if !ok {
		return 0, 0, fmt.Errorf("sctp: stream closed")
	}
	n := copy(buf, data)
	return n, s.defaultPPI, nil
}

// Close marks the stream closed; buffered reads still drain, but no
// further pushes are accepted.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.readCh)
	return nil
}
