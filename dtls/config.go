package dtls

import (
	"crypto/ecdsa"
	"time"

	"github.com/pion/logging"
)

// Config collects Conn construction arguments into a single structure,
// replacing any process-wide debug/feature toggle.
type Config struct {
	// Certificate is exactly one self-signed ECDSA certificate (DER)
	// plus its private key; fingerprint verification happens above this
	// package, at the façade.
	Certificate    []byte
	PrivateKey     *ecdsa.PrivateKey

	// SRTPProtectionProfiles is the set offered/accepted in the
	// use_srtp extension, in preference order.
	SRTPProtectionProfiles []SRTPProtectionProfile

	// ClientAuth is carried in the configuration but not read by the
	// handshake: the server never sends CertificateRequest and the
	// client never sends a Certificate.
	ClientAuth bool

	// FlightInitialRTO/FlightMaxRTO bound the exponential-backoff
	// retransmission timer: default 1s doubling to a 60s cap.
	FlightInitialRTO time.Duration
	FlightMaxRTO     time.Duration
	// FlightMaxRetransmits bounds total transmissions of one flight
	// before the handshake aborts.
	FlightMaxRetransmits int

	LoggerFactory logging.LoggerFactory
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.FlightInitialRTO == 0 {
		out.FlightInitialRTO = time.Second
	}
	if out.FlightMaxRTO == 0 {
		out.FlightMaxRTO = 60 * time.Second
	}
	if out.FlightMaxRetransmits == 0 {
		out.FlightMaxRetransmits = 8
	}
	if out.LoggerFactory == nil {
		out.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if len(out.SRTPProtectionProfiles) == 0 {
		out.SRTPProtectionProfiles = []SRTPProtectionProfile{SRTP_AEAD_AES_128_GCM}
	}
	return out
}
