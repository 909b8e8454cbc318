package srtp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pion/rtcstack/rtp"
)

func testKeys(t *testing.T) SessionKeys {
	t.Helper()
	masterKey := make([]byte, 16)
	masterSalt := make([]byte, 12)
	for i := range masterKey {
		masterKey[i] = byte(i)
	}
	for i := range masterSalt {
		masterSalt[i] = byte(i + 100)
	}
	keys, err := DeriveSessionKeys(masterKey, masterSalt)
	require.NoError(t, err)
	return keys
}

func TestEncryptDecryptRTPRoundTrip(t *testing.T) {
	keys := testKeys(t)
	enc, err := NewContext(keys)
	require.NoError(t, err)
	dec, err := NewContext(keys)
	require.NoError(t, err)

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    111,
			SequenceNumber: 42,
			Timestamp:      1234,
			SSRC:           0xdeadbeef,
		},
		Payload: []byte("hello srtp"),
	}

	encrypted, err := enc.EncryptRTP(pkt)
	require.NoError(t, err)

	decrypted, err := dec.DecryptRTP(encrypted)
	require.NoError(t, err)
	require.Equal(t, pkt.Payload, decrypted.Payload)
	require.Equal(t, pkt.SSRC, decrypted.SSRC)
	require.Equal(t, pkt.SequenceNumber, decrypted.SequenceNumber)
}

func TestDecryptRTPRejectsReplay(t *testing.T) {
	keys := testKeys(t)
	enc, err := NewContext(keys)
	require.NoError(t, err)
	dec, err := NewContext(keys)
	require.NoError(t, err)

	pkt := &rtp.Packet{
		Header:  rtp.Header{Version: 2, SequenceNumber: 7, SSRC: 1},
		Payload: []byte("x"),
	}
	encrypted, err := enc.EncryptRTP(pkt)
	require.NoError(t, err)

	_, err = dec.DecryptRTP(encrypted)
	require.NoError(t, err)

	_, err = dec.DecryptRTP(encrypted)
	require.Error(t, err)
}

// TestDecryptRTPRetriesAdjacentROCOnAuthFailure pins RFC 3711 §3.3.1's
// guess-and-retry: a receiver that hasn't seen enough history to infer
// the sender's rollover count still decrypts correctly by trying
// roc-1/roc+1 once the naive guess fails GCM authentication.
func TestDecryptRTPRetriesAdjacentROCOnAuthFailure(t *testing.T) {
	keys := testKeys(t)
	enc, err := NewContext(keys)
	require.NoError(t, err)
	dec, err := NewContext(keys)
	require.NoError(t, err)

	pkt := &rtp.Packet{
		Header:  rtp.Header{Version: 2, SequenceNumber: 100, SSRC: 5},
		Payload: []byte("payload"),
	}

	// Force the sender one rollover ahead of what the receiver, seeing
	// this as its first packet from this SSRC, will guess (0).
	enc.rolloverFor(pkt.SSRC).roc = 1

	encrypted, err := enc.EncryptRTP(pkt)
	require.NoError(t, err)

	decrypted, err := dec.DecryptRTP(encrypted)
	require.NoError(t, err, "decrypt must fall back to roc+1 rather than giving up")
	require.Equal(t, pkt.Payload, decrypted.Payload)
}

func TestEncryptDecryptRTCPRoundTrip(t *testing.T) {
	keys := testKeys(t)
	enc, err := NewContext(keys)
	require.NoError(t, err)
	dec, err := NewContext(keys)
	require.NoError(t, err)

	raw := make([]byte, 16)
	raw[1] = 200 // PT=SR
	raw[4], raw[5], raw[6], raw[7] = 0, 0, 0, 1 // SSRC=1

	encrypted, err := enc.EncryptRTCP(1, raw)
	require.NoError(t, err)

	decrypted, err := dec.DecryptRTCP(encrypted)
	require.NoError(t, err)
	require.Equal(t, raw, decrypted)
}
