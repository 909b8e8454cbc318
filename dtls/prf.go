package dtls

import (
	"crypto/hmac"
	"crypto/sha256"
)

// pHash implements RFC 5246 §5's P_hash(secret, seed) expansion with
// HMAC-SHA256, used by every PRF call in this package (master secret,
// key block, Finished verify_data, and the SRTP key exporter all share
// this single implementation).
func pHash(secret, seed []byte, outLen int) []byte {
	out := make([]byte, 0, outLen)
	mac := hmac.New(sha256.New, secret)
	mac.Write(seed)
	a := mac.Sum(nil)

	for len(out) < outLen {
		mac.Reset()
		mac.Write(a)
		mac.Write(seed)
		out = append(out, mac.Sum(nil)...)

		mac.Reset()
		mac.Write(a)
		a = mac.Sum(nil)
	}
	return out[:outLen]
}

// prf is the RFC 5246 §5 PRF (TLS 1.2 uses only the SHA-256 branch).
func prf(secret []byte, label string, seed []byte, outLen int) []byte {
	full := append([]byte(label), seed...)
	return pHash(secret, full, outLen)
}

const masterSecretLength = 48

// deriveMasterSecretPlain implements the non-EMS branch of RFC 5246 §8.1:
// master_secret = PRF(pre_master, "master secret", client_random||server_random, 48)
func deriveMasterSecretPlain(preMaster, clientRandom, serverRandom []byte) []byte {
	seed := append(append([]byte{}, clientRandom...), serverRandom...)
	return prf(preMaster, "master secret", seed, masterSecretLength)
}

// deriveMasterSecretEMS implements RFC 7627's Extended Master Secret:
// master_secret = PRF(pre_master, "extended master secret",
//   hash(handshake_messages through ClientKeyExchange), 48)
//
// The caller MUST NOT invoke this until ClientKeyExchange has already
// been appended to the handshake buffer — see handshakeSessionHash and
// its call site in conn.go.
func deriveMasterSecretEMS(preMaster []byte, sessionHash []byte) []byte {
	return prf(preMaster, "extended master secret", sessionHash, masterSecretLength)
}

func handshakeSessionHash(buf []byte) []byte {
	sum := sha256.Sum256(buf)
	return sum[:]
}

// keyBlock is RFC 5246 §6.3's key_expansion output, split into
// client/server write key/IV. GCM suites use 4-byte implicit IVs and
// no separate MAC keys.
type keyBlock struct {
	ClientWriteKey []byte
	ServerWriteKey []byte
	ClientWriteIV  [4]byte
	ServerWriteIV  [4]byte
}

func deriveKeyBlock(masterSecret, clientRandom, serverRandom []byte, keyLen int) keyBlock {
	seed := append(append([]byte{}, serverRandom...), clientRandom...)
	needed := 2*keyLen + 2*4
	raw := prf(masterSecret, "key expansion", seed, needed)

	var kb keyBlock
	off := 0
	kb.ClientWriteKey = raw[off : off+keyLen]
	off += keyLen
	kb.ServerWriteKey = raw[off : off+keyLen]
	off += keyLen
	copy(kb.ClientWriteIV[:], raw[off:off+4])
	off += 4
	copy(kb.ServerWriteIV[:], raw[off:off+4])
	return kb
}

// verifyData implements RFC 5246 §7.4.9's Finished computation:
// PRF(master_secret, label, hash(handshake_buffer), 12). The caller
// supplies the handshake buffer snapshot appropriate to the side and
// direction being computed/verified.
func verifyData(masterSecret []byte, label string, handshakeBuf []byte) []byte {
	h := handshakeSessionHash(handshakeBuf)
	return prf(masterSecret, label, h, 12)
}

const (
	finishedLabelClient = "client finished"
	finishedLabelServer = "server finished"
)

// SRTP key-length/salt-length pairs for the profiles names.
const (
	srtpKeyLenAES128  = 16
	srtpKeyLenAES256  = 32
	srtpSaltLenCTR    = 14
	srtpSaltLenGCM    = 12
)

// ExportSRTPKeyingMaterial implements RFC 5764 §4.2's EXTRACTOR-dtls_srtp:
// keying_material = PRF(master_secret, "EXTRACTOR-dtls_srtp",
//   client_random||server_random, 2*(key_len+salt_len))
// split as client_write_key | server_write_key | client_write_salt | server_write_salt.
func ExportSRTPKeyingMaterial(masterSecret, clientRandom, serverRandom []byte, keyLen, saltLen int) SRTPKeyingMaterial {
	seed := append(append([]byte{}, clientRandom...), serverRandom...)
	total := 2 * (keyLen + saltLen)
	raw := prf(masterSecret, "EXTRACTOR-dtls_srtp", seed, total)

	off := 0
	ckey := raw[off : off+keyLen]
	off += keyLen
	skey := raw[off : off+keyLen]
	off += keyLen
	csalt := raw[off : off+saltLen]
	off += saltLen
	ssalt := raw[off : off+saltLen]

	return SRTPKeyingMaterial{
		ClientWriteKey:  ckey,
		ServerWriteKey:  skey,
		ClientWriteSalt: csalt,
		ServerWriteSalt: ssalt,
	}
}

// SRTPKeyingMaterial is the split EXTRACTOR-dtls_srtp output.
type SRTPKeyingMaterial struct {
	ClientWriteKey  []byte
	ServerWriteKey  []byte
	ClientWriteSalt []byte
	ServerWriteSalt []byte
}
