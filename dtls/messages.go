package dtls

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// clientHelloBody is the subset of ClientHello fields this stack needs:
// protocol version, 32-byte random, a session-id-less resumption (always
// empty), the cookie (empty on F1, populated on F3), our single cipher
// suite, and the extended_master_secret + use_srtp extensions.
type clientHelloBody struct {
	Random   [32]byte
	Cookie   []byte
	UseEMS   bool
	Profiles []SRTPProtectionProfile
}

func newRandom32() ([32]byte, error) {
	var r [32]byte
	_, err := rand.Read(r[:])
	return r, err
}

func (c *clientHelloBody) Marshal() []byte {
	buf := []byte{}
	buf = append(buf, dtlsVersion[:]...)
	buf = append(buf, c.Random[:]...)
	buf = append(buf, 0) // session_id length = 0
	buf = append(buf, byte(len(c.Cookie)))
	buf = append(buf, c.Cookie...)
	// cipher_suites: length(2) + one suite(2)
	buf = append(buf, 0, 2, byte(TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256>>8), byte(TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256))
	buf = append(buf, 1, 0) // compression_methods: length 1, null
	// extensions
	var ext []byte
	if c.UseEMS {
		ext = appendExtension(ext, extIDExtendedMasterSecret, nil)
	}
	if len(c.Profiles) > 0 {
		var body []byte
		body = append(body, 0, byte(len(c.Profiles)*2))
		for _, p := range c.Profiles {
			body = append(body, byte(p>>8), byte(p))
		}
		body = append(body, 0) // srtp_mki length
		ext = appendExtension(ext, extIDUseSRTP, body)
	}
	extLen := make([]byte, 2)
	binary.BigEndian.PutUint16(extLen, uint16(len(ext)))
	buf = append(buf, extLen...)
	buf = append(buf, ext...)
	return buf
}

const (
	extIDExtendedMasterSecret uint16 = 23
	extIDUseSRTP              uint16 = 14
)

func appendExtension(buf []byte, id uint16, body []byte) []byte {
	buf = append(buf, byte(id>>8), byte(id))
	buf = append(buf, byte(len(body)>>8), byte(len(body)))
	return append(buf, body...)
}

func parseClientHello(buf []byte) (*clientHelloBody, error) {
	if len(buf) < 2+32+1 {
		return nil, fmt.Errorf("dtls: %w: short ClientHello", ErrBadRecord)
	}
	off := 2
	var c clientHelloBody
	copy(c.Random[:], buf[off:off+32])
	off += 32
	sidLen := int(buf[off])
	off += 1 + sidLen
	if off >= len(buf) {
		return nil, fmt.Errorf("dtls: %w: short ClientHello cookie", ErrBadRecord)
	}
	cookieLen := int(buf[off])
	off++
	c.Cookie = append([]byte{}, buf[off:off+cookieLen]...)
	off += cookieLen

	if off+2 > len(buf) {
		return &c, nil
	}
	csLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
	off += 2 + csLen
	if off >= len(buf) {
		return &c, nil
	}
	compLen := int(buf[off])
	off += 1 + compLen
	if off+2 > len(buf) {
		return &c, nil
	}
	extTotal := int(binary.BigEndian.Uint16(buf[off : off+2]))
	off += 2
	end := off + extTotal
	if end > len(buf) {
		end = len(buf)
	}
	for off+4 <= end {
		id := binary.BigEndian.Uint16(buf[off : off+2])
		l := int(binary.BigEndian.Uint16(buf[off+2 : off+4]))
		off += 4
		body := buf[off : off+l]
		switch id {
		case extIDExtendedMasterSecret:
			c.UseEMS = true
		case extIDUseSRTP:
			if len(body) >= 2 {
				n := int(binary.BigEndian.Uint16(body[0:2]))
				for i := 0; i+2 <= n && 2+i+2 <= len(body); i += 2 {
					c.Profiles = append(c.Profiles, SRTPProtectionProfile(binary.BigEndian.Uint16(body[2+i:4+i])))
				}
			}
		}
		off += l
	}
	return &c, nil
}

// serverHelloBody mirrors clientHelloBody for the server's response.
type serverHelloBody struct {
	Random  [32]byte
	UseEMS  bool
	Profile SRTPProtectionProfile
}

func (s *serverHelloBody) Marshal() []byte {
	buf := []byte{}
	buf = append(buf, dtlsVersion[:]...)
	buf = append(buf, s.Random[:]...)
	buf = append(buf, 0) // session_id
	buf = append(buf, byte(TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256>>8), byte(TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256))
	buf = append(buf, 0) // compression method: null

	var ext []byte
	if s.UseEMS {
		ext = appendExtension(ext, extIDExtendedMasterSecret, nil)
	}
	if s.Profile != 0 {
		body := []byte{0, 2, byte(s.Profile >> 8), byte(s.Profile), 0}
		ext = appendExtension(ext, extIDUseSRTP, body)
	}
	extLen := make([]byte, 2)
	binary.BigEndian.PutUint16(extLen, uint16(len(ext)))
	buf = append(buf, extLen...)
	buf = append(buf, ext...)
	return buf
}

func parseServerHello(buf []byte) (*serverHelloBody, error) {
	if len(buf) < 2+32+1+2+1 {
		return nil, fmt.Errorf("dtls: %w: short ServerHello", ErrBadRecord)
	}
	var s serverHelloBody
	off := 2
	copy(s.Random[:], buf[off:off+32])
	off += 32
	sidLen := int(buf[off])
	off += 1 + sidLen
	off += 2 // cipher suite (fixed, not re-validated beyond presence)
	off += 1 // compression method

	if off+2 > len(buf) {
		return &s, nil
	}
	extTotal := int(binary.BigEndian.Uint16(buf[off : off+2]))
	off += 2
	end := off + extTotal
	if end > len(buf) {
		end = len(buf)
	}
	for off+4 <= end {
		id := binary.BigEndian.Uint16(buf[off : off+2])
		l := int(binary.BigEndian.Uint16(buf[off+2 : off+4]))
		off += 4
		body := buf[off : off+l]
		switch id {
		case extIDExtendedMasterSecret:
			s.UseEMS = true
		case extIDUseSRTP:
			if len(body) >= 4 {
				s.Profile = SRTPProtectionProfile(binary.BigEndian.Uint16(body[2:4]))
			}
		}
		off += l
	}
	return &s, nil
}

// helloVerifyRequestBody carries just the server-chosen cookie.
func marshalHelloVerifyRequest(cookie []byte) []byte {
	buf := append([]byte{}, dtlsVersion[:]...)
	buf = append(buf, byte(len(cookie)))
	return append(buf, cookie...)
}

func parseHelloVerifyRequestCookie(buf []byte) ([]byte, error) {
	if len(buf) < 3 {
		return nil, fmt.Errorf("dtls: %w: short HelloVerifyRequest", ErrBadRecord)
	}
	n := int(buf[2])
	if len(buf) < 3+n {
		return nil, fmt.Errorf("dtls: %w: truncated cookie", ErrBadRecord)
	}
	return buf[3 : 3+n], nil
}

// certificateMessage wraps a single DER certificate in the
// Certificate handshake message's length-prefixed list format.
func marshalCertificate(der []byte) []byte {
	inner := make([]byte, 3)
	putUint24(inner, len(der))
	inner = append(inner, der...)
	outer := make([]byte, 3)
	putUint24(outer, len(inner))
	return append(outer, inner...)
}

func parseCertificate(buf []byte) ([]byte, error) {
	if len(buf) < 6 {
		return nil, fmt.Errorf("dtls: %w: short Certificate", ErrBadRecord)
	}
	listLen := getUint24(buf[0:3])
	if listLen+3 > len(buf) {
		return nil, fmt.Errorf("dtls: %w: truncated Certificate list", ErrBadRecord)
	}
	certLen := getUint24(buf[3:6])
	if 6+certLen > len(buf) {
		return nil, fmt.Errorf("dtls: %w: truncated Certificate", ErrBadRecord)
	}
	return buf[6 : 6+certLen], nil
}

// marshalServerKeyExchange appends the signature to the server params.
func marshalServerKeyExchange(serverParams, signature []byte) []byte {
	sigLen := make([]byte, 2)
	binary.BigEndian.PutUint16(sigLen, uint16(len(signature)))
	// signature_and_hash_algorithm (2 bytes: hash=sha256(4), sig=ecdsa(3)) + length + signature
	out := append([]byte{}, serverParams...)
	out = append(out, 4, 3)
	out = append(out, sigLen...)
	return append(out, signature...)
}

func parseServerKeyExchange(buf []byte) (curve NamedCurve, pub, signature []byte, err error) {
	curve, pub, err = parseServerParams(buf)
	if err != nil {
		return 0, nil, nil, err
	}
	off := 4 + len(pub)
	if off+4 > len(buf) {
		return 0, nil, nil, fmt.Errorf("dtls: %w: short ServerKeyExchange signature", ErrBadRecord)
	}
	off += 2 // signature_and_hash_algorithm
	sigLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
	off += 2
	if off+sigLen > len(buf) {
		return 0, nil, nil, fmt.Errorf("dtls: %w: truncated signature", ErrBadRecord)
	}
	return curve, pub, buf[off : off+sigLen], nil
}

// marshalClientKeyExchange for ECDHE carries just the client's public
// point, length-prefixed.
func marshalClientKeyExchange(pub []byte) []byte {
	return append([]byte{byte(len(pub))}, pub...)
}

func parseClientKeyExchange(buf []byte) ([]byte, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("dtls: %w: short ClientKeyExchange", ErrBadRecord)
	}
	n := int(buf[0])
	if len(buf) < 1+n {
		return nil, fmt.Errorf("dtls: %w: truncated ClientKeyExchange", ErrBadRecord)
	}
	return buf[1 : 1+n], nil
}
