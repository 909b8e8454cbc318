package dtls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// NamedCurve is the RFC 8422 named curve identifier used in
// ServerKeyExchange/ClientKeyExchange.
type NamedCurve uint16

const (
	CurveX25519 NamedCurve = 29
	CurveP256   NamedCurve = 23
)

const eccCurveTypeNamedCurve = 3

// ecdheKeyPair holds one side's ephemeral key-exchange key pair. X25519
// is preferred; P-256 is the fallback.
type ecdheKeyPair struct {
	curve   NamedCurve
	priv    []byte // x25519 scalar, or P-256 private scalar bytes
	pub     []byte
	p256Key *ecdsa.PrivateKey // set only when curve == CurveP256
}

func generateX25519KeyPair() (*ecdheKeyPair, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, err
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	return &ecdheKeyPair{curve: CurveX25519, priv: priv[:], pub: pub}, nil
}

func generateP256KeyPair() (*ecdheKeyPair, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	pub := elliptic.Marshal(elliptic.P256(), key.X, key.Y)
	return &ecdheKeyPair{curve: CurveP256, pub: pub, p256Key: key}, nil
}

// serverParams encodes ECCurveType.named_curve || curve_id || pubkey_len || pubkey.
func (kp *ecdheKeyPair) serverParams() []byte {
	out := []byte{eccCurveTypeNamedCurve}
	out = append(out, byte(kp.curve>>8), byte(kp.curve))
	out = append(out, byte(len(kp.pub)))
	out = append(out, kp.pub...)
	return out
}

func parseServerParams(buf []byte) (NamedCurve, []byte, error) {
	if len(buf) < 4 || buf[0] != eccCurveTypeNamedCurve {
		return 0, nil, fmt.Errorf("dtls: %w", ErrUnsupportedCurve)
	}
	curve := NamedCurve(uint16(buf[1])<<8 | uint16(buf[2]))
	n := int(buf[3])
	if len(buf) < 4+n {
		return 0, nil, fmt.Errorf("dtls: %w", ErrUnsupportedCurve)
	}
	return curve, buf[4 : 4+n], nil
}

// computeSharedSecret is the pre_master_secret for ECDHE: the X25519
// shared value, or the X coordinate of the shared P-256 point.
func (kp *ecdheKeyPair) computeSharedSecret(peerPub []byte) ([]byte, error) {
	switch kp.curve {
	case CurveX25519:
		return curve25519.X25519(kp.priv, peerPub)
	case CurveP256:
		x, y := elliptic.Unmarshal(elliptic.P256(), peerPub)
		if x == nil {
			return nil, fmt.Errorf("dtls: %w", ErrUnsupportedCurve)
		}
		sx, _ := elliptic.P256().ScalarMult(x, y, kp.p256Key.D.Bytes())
		return sx.Bytes(), nil
	default:
		return nil, fmt.Errorf("dtls: %w", ErrUnsupportedCurve)
	}
}

// signServerParams signs client_random||server_random||server_params
// with ECDSA-SHA256.
func signServerParams(key *ecdsa.PrivateKey, clientRandom, serverRandom, serverParams []byte) ([]byte, error) {
	h := sha256.New()
	h.Write(clientRandom)
	h.Write(serverRandom)
	h.Write(serverParams)
	return ecdsa.SignASN1(rand.Reader, key, h.Sum(nil))
}

func verifyServerParams(pub *ecdsa.PublicKey, clientRandom, serverRandom, serverParams, sig []byte) bool {
	h := sha256.New()
	h.Write(clientRandom)
	h.Write(serverRandom)
	h.Write(serverParams)
	return ecdsa.VerifyASN1(pub, h.Sum(nil), sig)
}
