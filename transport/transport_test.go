package transport

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

	"github.com/pion/logging"
	"github.com/pion/rtcstack/datachannel"
	"github.com/pion/rtcstack/dtls"
	"github.com/pion/rtcstack/ice"
	"github.com/stretchr/testify/require"
)

type udpSender struct {
	conn net.PacketConn
	to   net.Addr
}

func (s *udpSender) Send(buf []byte) error {
	_, err := s.conn.WriteTo(buf, s.to)
	return err
}

// feedNonSTUN stands in for ice.Agent's onPacket classification: in
// this test every packet exchanged between the two bare UDP sockets is
// DTLS (or DTLS-carried SCTP), so it is handed to establish's NonSTUN
// input unclassified, exactly as onPacket would.
func feedNonSTUN(conn net.PacketConn, out chan<- ice.RawPacket) {
	buf := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			close(out)
			return
		}
		cp := append([]byte{}, buf[:n]...)
		out <- ice.RawPacket{Data: cp, From: addr, Conn: conn}
	}
}

func generateTransportTestCert(t *testing.T) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "transport-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der, key
}

func newTestTransport(sender Sender) *Transport {
	return &Transport{
		log:      logging.NewDefaultLoggerFactory().NewLogger("transport-test"),
		sender:   sender,
		rtpRecv:  make(chan []byte, 16),
		rtcpRecv: make(chan []byte, 16),
		Events:   make(chan ice.Event, 1),
		closed:   make(chan struct{}),
	}
}

// TestEstablishWiresDTLSAndSCTP exercises establish directly (bypassing
// ICE negotiation and New's Events pump) over two bare UDP sockets,
// then confirms a data channel opened on top of the resulting SCTP
// association round-trips a message end to end.
func TestEstablishWiresDTLSAndSCTP(t *testing.T) {
	clientSock, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer clientSock.Close()
	serverSock, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer serverSock.Close()

	clientNonSTUN := make(chan ice.RawPacket, 64)
	serverNonSTUN := make(chan ice.RawPacket, 64)
	go feedNonSTUN(clientSock, clientNonSTUN)
	go feedNonSTUN(serverSock, serverNonSTUN)

	certDER, key := generateTransportTestCert(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		tr  *Transport
		err error
	}
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)

	go func() {
		tr := newTestTransport(&udpSender{conn: clientSock, to: serverSock.LocalAddr()})
		cfg := Config{
			IsClient: true,
			DTLS: dtls.Config{
				SRTPProtectionProfiles: []dtls.SRTPProtectionProfile{dtls.SRTP_AEAD_AES_128_GCM},
			},
		}
		err := tr.establish(ctx, cfg, serverSock.LocalAddr(), clientNonSTUN)
		clientCh <- result{tr, err}
	}()
	go func() {
		tr := newTestTransport(&udpSender{conn: serverSock, to: clientSock.LocalAddr()})
		cfg := Config{
			IsClient: false,
			DTLS: dtls.Config{
				Certificate:            certDER,
				PrivateKey:             key,
				SRTPProtectionProfiles: []dtls.SRTPProtectionProfile{dtls.SRTP_AEAD_AES_128_GCM},
			},
		}
		err := tr.establish(ctx, cfg, clientSock.LocalAddr(), serverNonSTUN)
		serverCh <- result{tr, err}
	}()

	clientRes := <-clientCh
	require.NoError(t, clientRes.err)
	serverRes := <-serverCh
	require.NoError(t, serverRes.err)

	clientTr, serverTr := clientRes.tr, serverRes.tr
	defer clientTr.Close()
	defer serverTr.Close()

	go func() {
		dc, err := clientTr.OpenDataChannel(1, &datachannel.Config{ChannelType: datachannel.ChannelTypeReliable, Label: "chat"})
		if err == nil {
			_, _ = dc.Write([]byte("ping"))
		}
	}()

	serverDC, err := serverTr.AcceptDataChannel()
	require.NoError(t, err)

	buf := make([]byte, 32)
	n, isString, err := serverDC.ReadDataChannel(buf)
	require.NoError(t, err)
	require.False(t, isString)
	require.Equal(t, "ping", string(buf[:n]))
}
