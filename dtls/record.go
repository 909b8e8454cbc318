package dtls

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// ContentType is the DTLS record's content_type field.
type ContentType uint8

const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
)

const recordHeaderLength = 13 // type(1) version(2) epoch(2) seq(6) length(2)

// dtlsVersion is the wire value for DTLS 1.2 (RFC 6347 §4.1).
var dtlsVersion = [2]byte{0xfe, 0xfd}

// RecordLayer is the single record-layer implementation this stack
// carries; it owns the per-epoch sequence counter, while AEAD state for
// one direction is held by the caller (Conn keeps one RecordLayer per
// direction via distinct epoch/cipher fields, see conn.go).
type RecordLayer struct {
	epoch   uint16
	writeSeq uint64 // 48-bit
}

// NextHeader returns the header for the next outbound record of length n
// at the current epoch, advancing the sequence number. write_seq resets
// to 0 whenever SetEpoch bumps the epoch.
func (r *RecordLayer) NextHeader(ct ContentType, n int) []byte {
	hdr := make([]byte, recordHeaderLength)
	hdr[0] = byte(ct)
	hdr[1], hdr[2] = dtlsVersion[0], dtlsVersion[1]
	binary.BigEndian.PutUint16(hdr[3:5], r.epoch)
	putUint48(hdr[5:11], r.writeSeq)
	binary.BigEndian.PutUint16(hdr[11:13], uint16(n))
	r.writeSeq++
	return hdr
}

// SetEpoch advances the write epoch: epoch is monotonic non-decreasing
// and write_seq resets to 0 on every epoch change.
func (r *RecordLayer) SetEpoch(e uint16) {
	if e < r.epoch {
		panic("dtls: epoch must be monotonically non-decreasing")
	}
	r.epoch = e
	r.writeSeq = 0
}

func (r *RecordLayer) Epoch() uint16 { return r.epoch }

func putUint48(b []byte, v uint64) {
	b[0] = byte(v >> 40)
	b[1] = byte(v >> 32)
	b[2] = byte(v >> 24)
	b[3] = byte(v >> 16)
	b[4] = byte(v >> 8)
	b[5] = byte(v)
}

func getUint48(b []byte) uint64 {
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

// ParsedRecord is one decoded (but not yet decrypted) DTLS record.
type ParsedRecord struct {
	Type    ContentType
	Epoch   uint16
	Seq     uint64
	Payload []byte // ciphertext if epoch > 0, plaintext fragment if epoch == 0
}

// ParseRecords splits a single UDP datagram into its (possibly
// coalesced) DTLS records.
func ParseRecords(buf []byte) ([]ParsedRecord, error) {
	var out []ParsedRecord
	for len(buf) > 0 {
		if len(buf) < recordHeaderLength {
			return nil, fmt.Errorf("dtls: %w: truncated record header", ErrBadRecord)
		}
		length := int(binary.BigEndian.Uint16(buf[11:13]))
		if len(buf) < recordHeaderLength+length {
			return nil, fmt.Errorf("dtls: %w: truncated record body", ErrBadRecord)
		}
		out = append(out, ParsedRecord{
			Type:    ContentType(buf[0]),
			Epoch:   binary.BigEndian.Uint16(buf[3:5]),
			Seq:     getUint48(buf[5:11]),
			Payload: buf[recordHeaderLength : recordHeaderLength+length],
		})
		buf = buf[recordHeaderLength+length:]
	}
	return out, nil
}

// gcmNonce builds the 12-byte AES-GCM nonce per RFC 5288's TLS1.2 GCM
// record layer: the 4-byte implicit write IV concatenated with the
// 8-byte explicit part (epoch||seq).
func gcmNonce(iv [4]byte, epoch uint16, seq uint64) [12]byte {
	var nonce [12]byte
	copy(nonce[:4], iv[:])
	binary.BigEndian.PutUint16(nonce[4:6], epoch)
	putUint48(nonce[6:12], seq)
	return nonce
}

// sealRecord AEAD-encrypts plaintext as the fragment of a record whose
// AAD is the record header (type, version, epoch, seq, length-of-ciphertext).
func sealRecord(gcm cipher.AEAD, iv [4]byte, ct ContentType, epoch uint16, seq uint64, plaintext []byte) []byte {
	nonce := gcmNonce(iv, epoch, seq)
	aad := make([]byte, recordHeaderLength)
	aad[0] = byte(ct)
	aad[1], aad[2] = dtlsVersion[0], dtlsVersion[1]
	binary.BigEndian.PutUint16(aad[3:5], epoch)
	putUint48(aad[5:11], seq)
	binary.BigEndian.PutUint16(aad[11:13], uint16(len(plaintext)+gcm.Overhead()))
	return gcm.Seal(nil, nonce[:], plaintext, aad)
}

func openRecord(gcm cipher.AEAD, iv [4]byte, rec ParsedRecord) ([]byte, error) {
	nonce := gcmNonce(iv, rec.Epoch, rec.Seq)
	aad := make([]byte, recordHeaderLength)
	aad[0] = byte(rec.Type)
	aad[1], aad[2] = dtlsVersion[0], dtlsVersion[1]
	binary.BigEndian.PutUint16(aad[3:5], rec.Epoch)
	putUint48(aad[5:11], rec.Seq)
	binary.BigEndian.PutUint16(aad[11:13], uint16(len(rec.Payload)))
	pt, err := gcm.Open(nil, nonce[:], rec.Payload, aad)
	if err != nil {
		return nil, fmt.Errorf("dtls: %w", ErrBadRecord)
	}
	return pt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
