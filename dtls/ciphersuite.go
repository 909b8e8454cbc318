package dtls

// CipherSuite identifies a negotiated TLS/DTLS cipher suite. This stack
// implements the single suite needed for the WebRTC-relevant handshake:
// ECDHE-ECDSA-AES128-GCM-SHA256. There is deliberately no second,
// divergent cipher-suite table.
type CipherSuite uint16

const (
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256 CipherSuite = 0xc02b
)

const gcmKeyLen = 16 // AES-128

// SRTPProtectionProfile identifiers negotiated in the use_srtp extension.
type SRTPProtectionProfile uint16

const (
	SRTP_AES128_CM_HMAC_SHA1_80 SRTPProtectionProfile = 0x0001
	SRTP_AES128_CM_HMAC_SHA1_32 SRTPProtectionProfile = 0x0002
	SRTP_AEAD_AES_128_GCM       SRTPProtectionProfile = 0x0007
	SRTP_AEAD_AES_256_GCM       SRTPProtectionProfile = 0x0008
)

// SRTPKeySaltLen returns (keyLen, saltLen) for the given profile. Only
// the AEAD GCM profiles are given full cipher-layer support by this
// stack; the CM/HMAC profiles are recognized for negotiation parity
// with peers but srtp.Session only implements the GCM transform.
func SRTPKeySaltLen(p SRTPProtectionProfile) (keyLen, saltLen int) {
	switch p {
	case SRTP_AEAD_AES_128_GCM:
		return srtpKeyLenAES128, srtpSaltLenGCM
	case SRTP_AEAD_AES_256_GCM:
		return srtpKeyLenAES256, srtpSaltLenGCM
	default:
		return srtpKeyLenAES128, srtpSaltLenCTR
	}
}
