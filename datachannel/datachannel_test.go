package datachannel

import (
	"net"
	"testing"
	"time"

	"github.com/pion/rtcstack/sctp"
	"github.com/stretchr/testify/require"
)

func TestDialAcceptHandshakeAndExchange(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	type assocResult struct {
		assoc *sctp.Association
		err   error
	}
	clientCh := make(chan assocResult, 1)
	serverCh := make(chan assocResult, 1)

	go func() {
		a, err := sctp.Client(sctp.Config{NetConn: clientConn})
		clientCh <- assocResult{a, err}
	}()
	go func() {
		a, err := sctp.Server(sctp.Config{NetConn: serverConn})
		serverCh <- assocResult{a, err}
	}()

	var clientAssoc, serverAssoc *sctp.Association
	select {
	case r := <-clientCh:
		require.NoError(t, r.err)
		clientAssoc = r.assoc
	case <-time.After(2 * time.Second):
		t.Fatal("client association handshake timed out")
	}
	select {
	case r := <-serverCh:
		require.NoError(t, r.err)
		serverAssoc = r.assoc
	case <-time.After(2 * time.Second):
		t.Fatal("server association handshake timed out")
	}

	type dcResult struct {
		dc  *DataChannel
		err error
	}
	dialCh := make(chan dcResult, 1)
	acceptCh := make(chan dcResult, 1)

	go func() {
		dc, err := Dial(clientAssoc, 1, &Config{ChannelType: ChannelTypeReliable, Label: "chat"})
		dialCh <- dcResult{dc, err}
	}()
	go func() {
		dc, err := Accept(serverAssoc)
		acceptCh <- dcResult{dc, err}
	}()

	var client, server *DataChannel
	select {
	case r := <-dialCh:
		require.NoError(t, r.err)
		client = r.dc
	case <-time.After(2 * time.Second):
		t.Fatal("dial timed out")
	}
	select {
	case r := <-acceptCh:
		require.NoError(t, r.err)
		server = r.dc
	case <-time.After(2 * time.Second):
		t.Fatal("accept timed out")
	}

	require.Equal(t, "chat", server.Label)

	n, err := client.Write([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	buf := make([]byte, 64)
	n, isString, err := server.ReadDataChannel(buf)
	require.NoError(t, err)
	require.False(t, isString)
	require.Equal(t, "ping", string(buf[:n]))
}
