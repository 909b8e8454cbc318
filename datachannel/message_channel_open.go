package datachannel

import (
	"encoding/binary"
	"fmt"
)

// ChannelType is DCEP's Channel Type field, RFC 8832 §8.1: it encodes
// both the reliability policy and whether delivery is ordered.
type ChannelType byte

const (
	ChannelTypeReliable                       ChannelType = 0x00
	ChannelTypeReliableUnordered               ChannelType = 0x80
	ChannelTypePartialReliableRexmit           ChannelType = 0x01
	ChannelTypePartialReliableRexmitUnordered  ChannelType = 0x81
	ChannelTypePartialReliableTimed            ChannelType = 0x02
	ChannelTypePartialReliableTimedUnordered   ChannelType = 0x82
)

func (c ChannelType) ordered() bool { return c&0x80 == 0 }

const channelOpenHeaderLength = 12

// ChannelOpen is the DATA_CHANNEL_OPEN message, RFC 8832 §5.1:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|  Message Type |  Channel Type |            Priority          |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Reliability Parameter                     |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|         Label Length         |       Protocol Length         |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                             Label                            |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                            Protocol                          |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type ChannelOpen struct {
	ChannelType          ChannelType
	Priority             uint16
	ReliabilityParameter uint32

	Label    []byte
	Protocol []byte
}

func (c *ChannelOpen) Marshal() ([]byte, error) {
	raw := make([]byte, channelOpenHeaderLength+len(c.Label)+len(c.Protocol))
	raw[0] = byte(messageTypeOpen)
	raw[1] = byte(c.ChannelType)
	binary.BigEndian.PutUint16(raw[2:], c.Priority)
	binary.BigEndian.PutUint32(raw[4:], c.ReliabilityParameter)
	binary.BigEndian.PutUint16(raw[8:], uint16(len(c.Label)))
	binary.BigEndian.PutUint16(raw[10:], uint16(len(c.Protocol)))
	copy(raw[channelOpenHeaderLength:], c.Label)
	copy(raw[channelOpenHeaderLength+len(c.Label):], c.Protocol)
	return raw, nil
}

func (c *ChannelOpen) Unmarshal(raw []byte) error {
	if len(raw) < channelOpenHeaderLength {
		return fmt.Errorf("datachannel: DATA_CHANNEL_OPEN too short: %d bytes", len(raw))
	}
	c.ChannelType = ChannelType(raw[1])
	c.Priority = binary.BigEndian.Uint16(raw[2:])
	c.ReliabilityParameter = binary.BigEndian.Uint32(raw[4:])

	labelLength := int(binary.BigEndian.Uint16(raw[8:]))
	protocolLength := int(binary.BigEndian.Uint16(raw[10:]))
	if len(raw) != channelOpenHeaderLength+labelLength+protocolLength {
		return fmt.Errorf("datachannel: label/protocol length mismatch in DATA_CHANNEL_OPEN")
	}

	c.Label = append([]byte{}, raw[channelOpenHeaderLength:channelOpenHeaderLength+labelLength]...)
	c.Protocol = append([]byte{}, raw[channelOpenHeaderLength+labelLength:]...)
	return nil
}
