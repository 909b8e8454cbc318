// Package srtp implements RFC 3711 SRTP/SRTCP with the RFC 7714
// AES-128-GCM/AES-256-GCM transform: per-SSRC session key derivation,
// packet encryption/decryption, and the 48-bit rollover-counter replay
// window RFC 3711 §3.3.1 requires on the receive side.
package srtp

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/pion/transport/v4/replaydetector"
)

// srtpReplayWindowSize is RFC 3711 §3.3.2's 64-entry anti-replay bitmap
// width; srtpMaxIndex bounds the 48-bit rollover-corrected packet index
// space both RTP (roc<<16|seq) and RTCP (31-bit index) indices live in.
const (
	srtpReplayWindowSize = 64
	srtpMaxIndex         = uint64(1)<<48 - 1
)

// RFC 3711 §4.3.2 key-derivation labels, carried over unchanged by
// RFC 7714 §8.1 for the GCM transform.
const (
	labelRTPEncryption   = 0x00
	labelRTPSalt         = 0x02
	labelRTCPEncryption  = 0x03
	labelRTCPSalt        = 0x05
)

const ivFieldLen = 14 // AES block size minus the 2-byte counter suffix

// deriveSessionKey implements RFC 3711 §4.3.1's KDF specialized to a
// key-derivation-rate of zero (every session lives for one DTLS
// association, so indices never roll the derivation forward): the
// label and a zero index are XORed into the master salt, and the
// result seeds AES-CTR keystream generation for outLen bytes.
func deriveSessionKey(masterKey, masterSalt []byte, label byte, outLen int) ([]byte, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("srtp: key derivation cipher: %w", err)
	}

	x := make([]byte, ivFieldLen)
	copy(x, masterSalt)
	x[ivFieldLen-1] ^= label

	iv := append(append([]byte{}, x...), 0x00, 0x00)

	out := make([]byte, outLen)
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(out, out)
	return out, nil
}

// SessionKeys are the derived per-direction AES-GCM key and salt pairs
// exported to RTP and RTCP contexts from a single DTLS-exported master
// key/salt per RFC 5764's EXTRACTOR-dtls_srtp.
type SessionKeys struct {
	RTPKey    []byte
	RTPSalt   []byte
	RTCPKey   []byte
	RTCPSalt  []byte
}

// DeriveSessionKeys runs the RFC 3711/7714 KDF for all four session
// keys from one master key/salt pair.
func DeriveSessionKeys(masterKey, masterSalt []byte) (SessionKeys, error) {
	keyLen := len(masterKey)

	rtpKey, err := deriveSessionKey(masterKey, masterSalt, labelRTPEncryption, keyLen)
	if err != nil {
		return SessionKeys{}, err
	}
	rtpSalt, err := deriveSessionKey(masterKey, masterSalt, labelRTPSalt, len(masterSalt))
	if err != nil {
		return SessionKeys{}, err
	}
	rtcpKey, err := deriveSessionKey(masterKey, masterSalt, labelRTCPEncryption, keyLen)
	if err != nil {
		return SessionKeys{}, err
	}
	rtcpSalt, err := deriveSessionKey(masterKey, masterSalt, labelRTCPSalt, len(masterSalt))
	if err != nil {
		return SessionKeys{}, err
	}

	return SessionKeys{
		RTPKey:   rtpKey,
		RTPSalt:  rtpSalt,
		RTCPKey:  rtcpKey,
		RTCPSalt: rtcpSalt,
	}, nil
}

// Context holds one direction's (local or remote) derived GCM ciphers
// plus the per-SSRC rollover-counter state RTP needs to reconstruct a
// 48-bit packet index from the 16-bit wire sequence number.
type Context struct {
	keys SessionKeys

	rtpGCM  cipher.AEAD
	rtcpGCM cipher.AEAD

	rocBySSRC        map[uint32]*rolloverState
	srtcpIndexBySSRC map[uint32]uint32
	rtcpReplay       map[uint32]replaydetector.ReplayDetector
}

type rolloverState struct {
	roc        uint32
	lastSeq    uint16
	initalized bool
	replay     replaydetector.ReplayDetector
}

// NewContext builds a Context from a derived SessionKeys; masterKey
// length picks AES-128 vs AES-256 GCM.
func NewContext(keys SessionKeys) (*Context, error) {
	rtpBlock, err := aes.NewCipher(keys.RTPKey)
	if err != nil {
		return nil, fmt.Errorf("srtp: rtp cipher: %w", err)
	}
	rtpGCM, err := cipher.NewGCM(rtpBlock)
	if err != nil {
		return nil, fmt.Errorf("srtp: rtp gcm: %w", err)
	}

	rtcpBlock, err := aes.NewCipher(keys.RTCPKey)
	if err != nil {
		return nil, fmt.Errorf("srtp: rtcp cipher: %w", err)
	}
	rtcpGCM, err := cipher.NewGCM(rtcpBlock)
	if err != nil {
		return nil, fmt.Errorf("srtp: rtcp gcm: %w", err)
	}

	return &Context{
		keys:             keys,
		rtpGCM:           rtpGCM,
		rtcpGCM:          rtcpGCM,
		rocBySSRC:        make(map[uint32]*rolloverState),
		srtcpIndexBySSRC: make(map[uint32]uint32),
	}, nil
}

func (c *Context) rolloverFor(ssrc uint32) *rolloverState {
	rs, ok := c.rocBySSRC[ssrc]
	if !ok {
		rs = &rolloverState{replay: replaydetector.New(srtpReplayWindowSize, srtpMaxIndex)}
		c.rocBySSRC[ssrc] = rs
	}
	return rs
}

// updateROC implements RFC 3711 §3.3.1's guess-then-correct rollover
// tracking: a wrap is inferred when the new sequence number is far
// below the last one seen (past the 2^15 half-cycle threshold).
func (rs *rolloverState) updateROC(seq uint16) uint32 {
	if !rs.initalized {
		rs.initalized = true
		rs.lastSeq = seq
		return rs.roc
	}

	roc := rs.roc
	switch {
	case rs.lastSeq > 0xc000 && seq < 0x4000:
		roc = rs.roc + 1
	case rs.lastSeq < 0x4000 && seq > 0xc000 && rs.roc > 0:
		roc = rs.roc - 1
	}
	if seq > rs.lastSeq || roc != rs.roc {
		rs.roc = roc
		rs.lastSeq = seq
	}
	return roc
}
