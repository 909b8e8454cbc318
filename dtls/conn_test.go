package dtls

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func generateTestCert(t *testing.T) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "dtls-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der, key
}

// feedLoop reads datagrams off conn and forwards them to ch until conn
// closes; it mimics the classified delivery a demux.Endpoint provides.
func feedLoop(conn net.PacketConn, ch chan<- []byte) {
	buf := make([]byte, 2048)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			close(ch)
			return
		}
		cp := append([]byte{}, buf[:n]...)
		ch <- cp
	}
}

func TestHandshakeAndApplicationData(t *testing.T) {
	serverConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer serverConn.Close()
	clientConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer clientConn.Close()

	certDER, key := generateTestCert(t)

	recvClient := make(chan []byte, 16)
	recvServer := make(chan []byte, 16)
	go feedLoop(clientConn, recvClient)
	go feedLoop(serverConn, recvServer)

	serverCfg := Config{
		Certificate:            certDER,
		PrivateKey:             key,
		SRTPProtectionProfiles: []SRTPProtectionProfile{SRTP_AEAD_AES_128_GCM},
	}
	clientCfg := Config{
		SRTPProtectionProfiles: []SRTPProtectionProfile{SRTP_AEAD_AES_128_GCM},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		conn *Conn
		err  error
	}
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)

	go func() {
		c, err := Handshake(ctx, true, clientConn, serverConn.LocalAddr(), clientCfg, recvClient)
		clientCh <- result{c, err}
	}()
	go func() {
		c, err := Handshake(ctx, false, serverConn, clientConn.LocalAddr(), serverCfg, recvServer)
		serverCh <- result{c, err}
	}()

	clientRes := <-clientCh
	require.NoError(t, clientRes.err)
	serverRes := <-serverCh
	require.NoError(t, serverRes.err)

	clientDTLS, serverDTLS := clientRes.conn, serverRes.conn

	n, err := clientDTLS.Write([]byte("hello from client"))
	require.NoError(t, err)
	require.Equal(t, len("hello from client"), n)

	buf := make([]byte, 256)
	n, err = serverDTLS.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello from client", string(buf[:n]))

	n, err = serverDTLS.Write([]byte("hello from server"))
	require.NoError(t, err)
	require.Equal(t, len("hello from server"), n)

	n, err = clientDTLS.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello from server", string(buf[:n]))
}
