package srtp

import (
	"encoding/binary"
	"fmt"

	"github.com/pion/transport/v4/replaydetector"
)

const srtcpIndexEBit = 1 << 31

// gcmNonceRTCP builds the 12-byte AES-GCM nonce for an SRTCP packet
// per RFC 7714 §9.1: the salt XORed with the 32-bit SRTCP index
// (E-bit cleared) placed in the low-order bits.
func gcmNonceRTCP(salt []byte, index uint32) []byte {
	nonce := make([]byte, 12)
	copy(nonce, salt)

	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index&^srtcpIndexEBit)
	for i := 0; i < 4; i++ {
		nonce[8+i] ^= idx[i]
	}
	return nonce
}

// EncryptRTCP transforms a compound RTCP packet into its SRTCP form:
// ciphertext for the packet body after the first 8-byte SSRC-bearing
// header, with the 4-byte E-bit|index trailer RFC 3711 §3.4 appends
// after the authentication tag.
func (c *Context) EncryptRTCP(ssrc uint32, raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("srtp: rtcp packet too short to protect")
	}

	index := c.srtcpIndexBySSRC[ssrc] + 1
	c.srtcpIndexBySSRC[ssrc] = index

	aad := raw[:8]
	plaintext := raw[8:]

	nonce := gcmNonceRTCP(c.keys.RTCPSalt, index)
	sealed := c.rtcpGCM.Seal(nil, nonce, plaintext, aad)

	trailer := make([]byte, 4)
	binary.BigEndian.PutUint32(trailer, index|srtcpIndexEBit)

	out := append(append([]byte{}, aad...), sealed...)
	return append(out, trailer...), nil
}

// DecryptRTCP reverses EncryptRTCP: it trusts the sender-carried index
// rather than tracking its own rollover counter, since RTCP has no
// sequence-number wraparound ambiguity to resolve.
func (c *Context) DecryptRTCP(raw []byte) ([]byte, error) {
	if len(raw) < 12 {
		return nil, fmt.Errorf("srtp: rtcp packet too short")
	}

	trailer := binary.BigEndian.Uint32(raw[len(raw)-4:])
	index := trailer &^ srtcpIndexEBit

	ssrc := binary.BigEndian.Uint32(raw[4:8])
	aad := raw[:8]
	ciphertext := raw[8 : len(raw)-4]

	rs := c.rtcpReplayFor(ssrc)
	accept, ok := rs.Check(uint64(index))
	if !ok {
		return nil, fmt.Errorf("srtp: replayed rtcp packet, ssrc %d index %d", ssrc, index)
	}

	nonce := gcmNonceRTCP(c.keys.RTCPSalt, index)
	plaintext, err := c.rtcpGCM.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("srtp: rtcp gcm open: %w", err)
	}
	accept()

	return append(append([]byte{}, aad...), plaintext...), nil
}

func (c *Context) rtcpReplayFor(ssrc uint32) replaydetector.ReplayDetector {
	if c.rtcpReplay == nil {
		c.rtcpReplay = make(map[uint32]replaydetector.ReplayDetector)
	}
	w, ok := c.rtcpReplay[ssrc]
	if !ok {
		w = replaydetector.New(srtpReplayWindowSize, srtpMaxIndex)
		c.rtcpReplay[ssrc] = w
	}
	return w
}
