// Package datachannel implements the Data Channel Establishment
// Protocol (RFC 8832, DCEP) and a thin read/write wrapper around an
// sctp.Stream carrying WebRTC data channel payloads.
package datachannel

import "fmt"

// Message is a parsed DCEP message.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// MessageType is the first byte of every DCEP message.
type MessageType byte

const (
	messageTypeAck  MessageType = 0x02
	messageTypeOpen MessageType = 0x03
)

func (t MessageType) String() string {
	switch t {
	case messageTypeAck:
		return "DATA_CHANNEL_ACK"
	case messageTypeOpen:
		return "DATA_CHANNEL_OPEN"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// parse dispatches raw on its leading MessageType byte.
func parse(raw []byte) (Message, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("datachannel: message too short to carry a type")
	}

	var msg Message
	switch MessageType(raw[0]) {
	case messageTypeOpen:
		msg = &ChannelOpen{}
	case messageTypeAck:
		msg = &ChannelAck{}
	default:
		return nil, fmt.Errorf("datachannel: unknown message type %v", MessageType(raw[0]))
	}

	if err := msg.Unmarshal(raw); err != nil {
		return nil, err
	}
	return msg, nil
}
