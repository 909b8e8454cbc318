package srtp

import (
	"encoding/binary"
	"fmt"

	"github.com/pion/rtcstack/rtp"
)

// gcmNonceRTP builds the 12-byte AES-GCM nonce for an SRTP packet per
// RFC 7714 §8.1: the 12-byte salt XORed with the 48-bit ROC||sequence
// number placed in the low-order bits of a zero-extended field.
func gcmNonceRTP(salt []byte, roc uint32, seq uint16) []byte {
	nonce := make([]byte, 12)
	copy(nonce, salt)

	var idx [6]byte
	binary.BigEndian.PutUint32(idx[0:4], roc)
	binary.BigEndian.PutUint16(idx[4:6], seq)

	for i := 0; i < 6; i++ {
		nonce[6+i] ^= idx[i]
	}
	return nonce
}

// EncryptRTP transforms a plaintext RTP packet into its SRTP form: the
// header is sent unencrypted as GCM associated data, and the tag is
// appended after the ciphertext payload per RFC 7714 §8.3.
func (c *Context) EncryptRTP(pkt *rtp.Packet) ([]byte, error) {
	header := pkt.Header
	headerBytes := make([]byte, pkt.MarshalSize()-len(pkt.Payload))
	hdrPkt := rtp.Packet{Header: header}
	raw, err := hdrPkt.Marshal()
	if err != nil {
		return nil, fmt.Errorf("srtp: marshal rtp header: %w", err)
	}
	copy(headerBytes, raw)

	rs := c.rolloverFor(header.SSRC)
	roc := rs.updateROC(header.SequenceNumber)

	nonce := gcmNonceRTP(c.keys.RTPSalt, roc, header.SequenceNumber)
	sealed := c.rtpGCM.Seal(nil, nonce, pkt.Payload, headerBytes)

	return append(headerBytes, sealed...), nil
}

// DecryptRTP reverses EncryptRTP, validating the GCM tag and the
// replay window before handing back the plaintext packet. updateROC's
// guess is a single inference from the sequence-number gap; a packet
// arriving right at a rollover boundary can make that guess wrong by
// one, so a GCM auth failure is retried against roc-1 and roc+1 before
// the packet is dropped (RFC 3711 §3.3.1).
func (c *Context) DecryptRTP(raw []byte) (*rtp.Packet, error) {
	var hdr rtp.Packet
	if err := hdr.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("srtp: unmarshal rtp header: %w", err)
	}

	headerLen := len(raw) - len(hdr.Payload)
	headerBytes := raw[:headerLen]
	ciphertext := raw[headerLen:]

	rs := c.rolloverFor(hdr.SSRC)
	guess := rs.updateROC(hdr.SequenceNumber)

	candidates := make([]uint32, 0, 3)
	candidates = append(candidates, guess)
	if guess > 0 {
		candidates = append(candidates, guess-1)
	}
	candidates = append(candidates, guess+1)

	var lastErr error
	for _, roc := range candidates {
		index := uint64(roc)<<16 | uint64(hdr.SequenceNumber)
		accept, ok := rs.replay.Check(index)
		if !ok {
			lastErr = fmt.Errorf("srtp: replayed packet, ssrc %d seq %d", hdr.SSRC, hdr.SequenceNumber)
			continue
		}

		nonce := gcmNonceRTP(c.keys.RTPSalt, roc, hdr.SequenceNumber)
		plaintext, err := c.rtpGCM.Open(nil, nonce, ciphertext, headerBytes)
		if err != nil {
			lastErr = err
			continue
		}

		accept()
		hdr.Payload = plaintext
		return &hdr, nil
	}
	return nil, fmt.Errorf("srtp: gcm open failed at roc %d (and roc±1): %w", guess, lastErr)
}
