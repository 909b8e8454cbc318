package datachannel

const channelAckLength = 4

// ChannelAck is the DATA_CHANNEL_ACK message, RFC 8832 §5.2: the
// message-type byte confirming a DATA_CHANNEL_OPEN, zero-padded to
// channelAckLength bytes on the wire.
type ChannelAck struct{}

func (c *ChannelAck) Marshal() ([]byte, error) {
	raw := make([]byte, channelAckLength)
	raw[0] = byte(messageTypeAck)
	return raw, nil
}

func (c *ChannelAck) Unmarshal(raw []byte) error {
	return nil
}
