package datachannel

import (
	"fmt"
	"time"

	"github.com/pion/rtcstack/sctp"
)

const receiveMTU = 8192

// Config describes the channel being negotiated, mirroring DCEP's
// DATA_CHANNEL_OPEN fields.
type Config struct {
	ChannelType          ChannelType
	Priority             uint16
	ReliabilityParameter uint32
	Label                string
	Protocol             string
}

// DataChannel is one negotiated WebRTC data channel: a DCEP handshake
// layered on top of an sctp.Stream.
type DataChannel struct {
	Config
	stream *sctp.Stream
}

// Dial opens a new outgoing stream on assoc and runs the client side
// of the DCEP handshake over it.
func Dial(assoc *sctp.Association, id uint16, config *Config) (*DataChannel, error) {
	stream, err := assoc.OpenStream(id, sctp.PayloadTypeWebRTCBinary)
	if err != nil {
		return nil, err
	}
	return client(stream, config)
}

func client(stream *sctp.Stream, config *Config) (*DataChannel, error) {
	applyReliability(stream, config.ChannelType, time.Duration(config.ReliabilityParameter)*time.Millisecond)

	msg := &ChannelOpen{
		ChannelType:          config.ChannelType,
		Priority:             config.Priority,
		ReliabilityParameter: config.ReliabilityParameter,
		Label:                []byte(config.Label),
		Protocol:             []byte(config.Protocol),
	}
	raw, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("datachannel: failed to marshal DATA_CHANNEL_OPEN: %w", err)
	}
	if err := stream.WriteDataChannel(raw, sctp.PayloadTypeWebRTCDCEP); err != nil {
		return nil, fmt.Errorf("datachannel: failed to send DATA_CHANNEL_OPEN: %w", err)
	}

	return &DataChannel{Config: *config, stream: stream}, nil
}

// Accept waits for the peer's next stream and runs the server side of
// the DCEP handshake on it.
func Accept(assoc *sctp.Association) (*DataChannel, error) {
	stream, err := assoc.AcceptStream()
	if err != nil {
		return nil, err
	}
	return server(stream)
}

func server(stream *sctp.Stream) (*DataChannel, error) {
	buf := make([]byte, receiveMTU)
	n, ppi, err := stream.ReadDataChannel(buf)
	if err != nil {
		return nil, err
	}
	if ppi != sctp.PayloadTypeWebRTCDCEP {
		return nil, fmt.Errorf("datachannel: expected DCEP message, got ppid %v", ppi)
	}

	msg, err := parse(buf[:n])
	if err != nil {
		return nil, fmt.Errorf("datachannel: failed to parse DATA_CHANNEL_OPEN: %w", err)
	}
	open, ok := msg.(*ChannelOpen)
	if !ok {
		return nil, fmt.Errorf("datachannel: expected DATA_CHANNEL_OPEN, got %T", msg)
	}

	applyReliability(stream, open.ChannelType, time.Duration(open.ReliabilityParameter)*time.Millisecond)

	dc := &DataChannel{
		Config: Config{
			ChannelType:          open.ChannelType,
			Priority:             open.Priority,
			ReliabilityParameter: open.ReliabilityParameter,
			Label:                string(open.Label),
			Protocol:             string(open.Protocol),
		},
		stream: stream,
	}
	if err := dc.sendAck(); err != nil {
		return nil, err
	}
	return dc, nil
}

// applyReliability maps a DCEP ChannelType onto the underlying
// sctp.Stream's ordering/PR-SCTP policy. Only the timed-partial-
// reliability variants carry a TTL; the rexmit-count variants are
// negotiated the same as fully reliable at the SCTP layer since this
// stack does not track per-chunk retransmit counts.
func applyReliability(stream *sctp.Stream, ct ChannelType, ttl time.Duration) {
	stream.SetUnordered(!ct.ordered())
	switch ct {
	case ChannelTypePartialReliableTimed, ChannelTypePartialReliableTimedUnordered:
		stream.SetReliabilityParams(ttl)
	default:
		stream.SetReliabilityParams(0)
	}
}

func (c *DataChannel) sendAck() error {
	raw, err := (&ChannelAck{}).Marshal()
	if err != nil {
		return err
	}
	return c.stream.WriteDataChannel(raw, sctp.PayloadTypeWebRTCDCEP)
}

// StreamIdentifier returns the underlying SCTP stream identifier.
func (c *DataChannel) StreamIdentifier() uint16 { return c.stream.StreamIdentifier() }

// Read reads the next message as binary data, transparently consuming
// (and acking) any DCEP control messages interleaved on the stream.
func (c *DataChannel) Read(p []byte) (int, error) {
	n, _, err := c.ReadDataChannel(p)
	return n, err
}

// ReadDataChannel reads the next message, reporting whether it was
// sent as a string payload.
func (c *DataChannel) ReadDataChannel(p []byte) (int, bool, error) {
	for {
		n, ppi, err := c.stream.ReadDataChannel(p)
		if err != nil {
			return 0, false, err
		}

		switch ppi {
		case sctp.PayloadTypeWebRTCDCEP:
			if err := c.handleDCEP(p[:n]); err != nil {
				return 0, false, err
			}
			continue
		case sctp.PayloadTypeWebRTCString, sctp.PayloadTypeWebRTCStringEmpty:
			return n, true, nil
		default:
			return n, false, nil
		}
	}
}

func (c *DataChannel) handleDCEP(data []byte) error {
	msg, err := parse(data)
	if err != nil {
		return fmt.Errorf("datachannel: failed to parse DCEP message: %w", err)
	}

	switch msg.(type) {
	case *ChannelOpen:
		return c.sendAck()
	case *ChannelAck:
		return nil
	default:
		return fmt.Errorf("datachannel: unhandled DCEP message %T", msg)
	}
}

// Write writes p as a binary message.
func (c *DataChannel) Write(p []byte) (int, error) {
	return c.WriteDataChannel(p, false)
}

// WriteDataChannel writes p, using the empty-message PPIDs (RFC 8831
// §6.6) when p has no bytes since SCTP cannot carry a zero-length
// user message.
func (c *DataChannel) WriteDataChannel(p []byte, isString bool) (int, error) {
	var ppi sctp.PayloadProtocolID
	switch {
	case !isString && len(p) > 0:
		ppi = sctp.PayloadTypeWebRTCBinary
	case !isString:
		ppi = sctp.PayloadTypeWebRTCBinaryEmpty
	case len(p) > 0:
		ppi = sctp.PayloadTypeWebRTCString
	default:
		ppi = sctp.PayloadTypeWebRTCStringEmpty
	}

	if err := c.stream.WriteDataChannel(p, ppi); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the underlying SCTP stream.
func (c *DataChannel) Close() error {
	return c.stream.Close()
}
