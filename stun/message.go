// Package stun implements the subset of RFC 5389 (and the RFC 8445 ICE
// attribute extensions) that the ICE agent needs to run connectivity
// checks: message encode/decode, the attributes used during checks, and
// the two integrity/fingerprint primitives every message must carry.
package stun

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // required by RFC 5389 MESSAGE-INTEGRITY
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Class is the two-bit STUN message class.
type Class uint8

const (
	ClassRequest         Class = 0x00
	ClassIndication      Class = 0x01
	ClassSuccessResponse Class = 0x02
	ClassErrorResponse   Class = 0x03
)

// Method is the 12-bit STUN method.
type Method uint16

const (
	MethodBinding Method = 0x001
)

// Type is the 14-bit (class, method) pair packed into the header.
type Type struct {
	Class  Class
	Method Method
}

// Value packs Type into the 16-bit on-wire message type field.
func (t Type) Value() uint16 {
	m := uint16(t.Method)
	c := uint16(t.Class)
	return (m & 0x0f80 << 2) | (m & 0x0070 << 1) | (m & 0x000f) |
		(c & 0x02 << 7) | (c & 0x01 << 4)
}

func typeFromValue(v uint16) Type {
	m := (v & 0x3e00 >> 2) | (v & 0x00e0 >> 1) | (v & 0x000f)
	c := (v & 0x0100 >> 7) | (v & 0x0010 >> 4)
	return Type{Class: Class(c), Method: Method(m)}
}

// magicCookie is the fixed RFC 5389 cookie, also used to XOR addresses.
const magicCookie = 0x2112A442

const headerLength = 20

// attribute types used by ICE connectivity checks (RFC 5389 + RFC 8445).
const (
	AttrMappedAddress     uint16 = 0x0001
	AttrUsername          uint16 = 0x0006
	AttrMessageIntegrity  uint16 = 0x0008
	AttrErrorCode         uint16 = 0x0009
	AttrXORMappedAddress  uint16 = 0x0020
	AttrPriority          uint16 = 0x0024
	AttrUseCandidate      uint16 = 0x0025
	AttrFingerprint       uint16 = 0x8028
	AttrIceControlled     uint16 = 0x8029
	AttrIceControlling    uint16 = 0x802A
	AttrSoftware          uint16 = 0x8022
)

// Attribute is a raw, decoded STUN attribute.
type Attribute struct {
	Type  uint16
	Value []byte
}

// Message is a decoded STUN message. TransactionID is always 12 bytes.
type Message struct {
	Type          Type
	TransactionID [12]byte
	Attributes    []Attribute

	// Raw holds the exact bytes parsed, used as the base for
	// MESSAGE-INTEGRITY / FINGERPRINT verification.
	Raw []byte
}

var (
	ErrMessageTooShort  = errors.New("stun: message shorter than header")
	ErrBadMagicCookie   = errors.New("stun: magic cookie mismatch")
	ErrTruncatedAttr    = errors.New("stun: truncated attribute")
	ErrIntegrityFailed  = errors.New("stun: MESSAGE-INTEGRITY mismatch")
	ErrFingerprintFailed = errors.New("stun: FINGERPRINT mismatch")
	ErrNoResponse        = errors.New("stun: no response after final retransmission")
)

// Get returns the first attribute of the given type, if present.
func (m *Message) Get(t uint16) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Type == t {
			return a, true
		}
	}
	return Attribute{}, false
}

// Parse decodes a STUN message from buf. buf is retained (not copied)
// as Raw, since integrity/fingerprint checks operate on the original bytes.
func Parse(buf []byte) (*Message, error) {
	if len(buf) < headerLength {
		return nil, ErrMessageTooShort
	}
	typeVal := binary.BigEndian.Uint16(buf[0:2])
	length := binary.BigEndian.Uint16(buf[2:4])
	cookie := binary.BigEndian.Uint32(buf[4:8])
	if cookie != magicCookie {
		return nil, ErrBadMagicCookie
	}
	if int(length)+headerLength > len(buf) {
		return nil, ErrTruncatedAttr
	}

	m := &Message{Type: typeFromValue(typeVal), Raw: buf[:headerLength+int(length)]}
	copy(m.TransactionID[:], buf[8:20])

	off := headerLength
	end := headerLength + int(length)
	for off+4 <= end {
		at := binary.BigEndian.Uint16(buf[off : off+2])
		al := binary.BigEndian.Uint16(buf[off+2 : off+4])
		off += 4
		if off+int(al) > end {
			return nil, ErrTruncatedAttr
		}
		val := buf[off : off+int(al)]
		m.Attributes = append(m.Attributes, Attribute{Type: at, Value: val})
		off += int(al)
		if pad := al % 4; pad != 0 {
			off += int(4 - pad)
		}
	}
	return m, nil
}

// Builder assembles an outbound STUN message attribute-by-attribute, then
// appends MESSAGE-INTEGRITY and FINGERPRINT as the final two steps per
// RFC 5389 §15 (order matters: integrity is computed with the length
// field set as if FINGERPRINT followed it, then FINGERPRINT is computed
// over everything including the MESSAGE-INTEGRITY attribute).
type Builder struct {
	typ   Type
	txID  [12]byte
	attrs []Attribute
}

// NewBuilder starts a message of the given type with a transaction ID.
func NewBuilder(t Type, txID [12]byte) *Builder {
	return &Builder{typ: t, txID: txID}
}

// AddAttr appends a raw attribute.
func (b *Builder) AddAttr(t uint16, v []byte) *Builder {
	b.attrs = append(b.attrs, Attribute{Type: t, Value: v})
	return b
}

// AddUint32 appends a 4-byte big-endian attribute (e.g. PRIORITY).
func (b *Builder) AddUint32(t uint16, v uint32) *Builder {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return b.AddAttr(t, buf)
}

// AddUint64 appends an 8-byte big-endian attribute (ICE-CONTROLLING/-LED tiebreaker).
func (b *Builder) AddUint64(t uint16, v uint64) *Builder {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return b.AddAttr(t, buf)
}

func encodeHeader(typ Type, length uint16, txID [12]byte) []byte {
	buf := make([]byte, headerLength)
	binary.BigEndian.PutUint16(buf[0:2], typ.Value())
	binary.BigEndian.PutUint16(buf[2:4], length)
	binary.BigEndian.PutUint32(buf[4:8], magicCookie)
	copy(buf[8:20], txID[:])
	return buf
}

func appendAttr(buf []byte, t uint16, v []byte) []byte {
	head := make([]byte, 4)
	binary.BigEndian.PutUint16(head[0:2], t)
	binary.BigEndian.PutUint16(head[2:4], uint16(len(v)))
	buf = append(buf, head...)
	buf = append(buf, v...)
	if pad := len(v) % 4; pad != 0 {
		buf = append(buf, make([]byte, 4-pad)...)
	}
	return buf
}

// Build serializes the message. If key is non-nil, a MESSAGE-INTEGRITY
// attribute keyed by key is appended before FINGERPRINT.
func (b *Builder) Build(key []byte) []byte {
	var body []byte
	for _, a := range b.attrs {
		body = appendAttr(body, a.Type, a.Value)
	}

	if key != nil {
		// Length as if MESSAGE-INTEGRITY (24 bytes with header) were present.
		withMI := uint16(len(body) + 24)
		head := encodeHeader(b.typ, withMI, b.txID)
		mac := hmac.New(sha1.New, key)
		mac.Write(head)
		mac.Write(body)
		sum := mac.Sum(nil)
		body = appendAttr(body, AttrMessageIntegrity, sum)
	}

	withFP := uint16(len(body) + 8)
	head := encodeHeader(b.typ, withFP, b.txID)
	crc := crc32.ChecksumIEEE(append(head, body...)) ^ 0x5354554e
	fp := make([]byte, 4)
	binary.BigEndian.PutUint32(fp, crc)
	body = appendAttr(body, AttrFingerprint, fp)

	return append(head, body...)
}

// VerifyIntegrity recomputes MESSAGE-INTEGRITY over m.Raw using key and
// compares it to the attribute present in the message. The comparison
// reconstructs the header length as it was when integrity was computed
// (i.e. excluding any attributes after MESSAGE-INTEGRITY, namely FINGERPRINT).
func VerifyIntegrity(m *Message, key []byte) error {
	attr, ok := m.Get(AttrMessageIntegrity)
	if !ok {
		return ErrIntegrityFailed
	}
	// Locate offset of MESSAGE-INTEGRITY attribute header within Raw.
	off := headerLength
	total := len(m.Raw)
	for off+4 <= total {
		at := binary.BigEndian.Uint16(m.Raw[off : off+2])
		al := binary.BigEndian.Uint16(m.Raw[off+2 : off+4])
		if at == AttrMessageIntegrity {
			break
		}
		off += 4 + int(al)
		if pad := al % 4; pad != 0 {
			off += int(4 - pad)
		}
	}
	if off+4 > total {
		return ErrIntegrityFailed
	}
	bodyLen := uint16(off - headerLength + 24)
	head := encodeHeader(m.Type, bodyLen, m.TransactionID)
	mac := hmac.New(sha1.New, key)
	mac.Write(head)
	mac.Write(m.Raw[headerLength:off])
	sum := mac.Sum(nil)
	if !hmac.Equal(sum, attr.Value) {
		return ErrIntegrityFailed
	}
	return nil
}

// VerifyFingerprint recomputes FINGERPRINT over m.Raw (excluding the
// FINGERPRINT attribute itself) and compares it.
func VerifyFingerprint(m *Message) error {
	attr, ok := m.Get(AttrFingerprint)
	if !ok {
		return ErrFingerprintFailed
	}
	if len(m.Raw) < 8 {
		return ErrFingerprintFailed
	}
	body := m.Raw[:len(m.Raw)-8]
	crc := crc32.ChecksumIEEE(body) ^ 0x5354554e
	want := binary.BigEndian.Uint32(attr.Value)
	if crc != want {
		return ErrFingerprintFailed
	}
	return nil
}
