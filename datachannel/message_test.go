package datachannel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelOpenRoundTrip(t *testing.T) {
	in := &ChannelOpen{
		ChannelType:          ChannelTypeReliable,
		Priority:             128,
		ReliabilityParameter: 0,
		Label:                []byte("chat"),
		Protocol:             []byte(""),
	}
	raw, err := in.Marshal()
	require.NoError(t, err)

	out := &ChannelOpen{}
	require.NoError(t, out.Unmarshal(raw))
	require.Equal(t, in.Label, out.Label)
	require.Equal(t, in.ChannelType, out.ChannelType)
	require.True(t, out.ChannelType.ordered())
}

func TestChannelAckRoundTrip(t *testing.T) {
	raw, err := (&ChannelAck{}).Marshal()
	require.NoError(t, err)

	msg, err := parse(raw)
	require.NoError(t, err)
	_, ok := msg.(*ChannelAck)
	require.True(t, ok)
}

func TestParseDispatchesOnType(t *testing.T) {
	open := &ChannelOpen{ChannelType: ChannelTypeReliableUnordered, Label: []byte("x")}
	raw, err := open.Marshal()
	require.NoError(t, err)

	msg, err := parse(raw)
	require.NoError(t, err)
	got, ok := msg.(*ChannelOpen)
	require.True(t, ok)
	require.False(t, got.ChannelType.ordered())
}

func TestParseRejectsUnknownType(t *testing.T) {
	_, err := parse([]byte{0xff})
	require.Error(t, err)
}
