package demux

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDemuxerRoutesByFirstByte(t *testing.T) {
	serverConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer serverConn.Close()

	clientConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer clientConn.Close()

	d := New(serverConn, nil)
	defer d.Close()

	stunEp := d.NewEndpoint(MatchSTUN)
	dtlsEp := d.NewEndpoint(MatchDTLS)

	_, err = clientConn.WriteTo([]byte{0x01, 0xaa}, serverConn.LocalAddr())
	require.NoError(t, err)
	_, err = clientConn.WriteTo([]byte{0x14, 0xbb}, serverConn.LocalAddr())
	require.NoError(t, err)

	buf := make([]byte, 16)
	stunEp.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := stunEp.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0xaa}, buf[:n])

	n, err = dtlsEp.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x14, 0xbb}, buf[:n])
}

func TestMatchRangeRejectsEmptyPacket(t *testing.T) {
	require.False(t, MatchSTUN(nil))
}
