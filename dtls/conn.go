package dtls

import (
	"context"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v4/deadline"
	"github.com/pion/transport/v4/replaydetector"
)

// dtlsReplayWindowSize mirrors RFC 6347 §4.1.2.6's recommended anti-replay
// bitmap width; dtlsMaxSeq bounds the 48-bit record sequence space.
const (
	dtlsReplayWindowSize = 64
	dtlsMaxSeq           = uint64(1)<<48 - 1
)

// state is the per-connection DTLS handshake state: randoms, secrets,
// negotiated suite/curve/profile, and the accumulated handshake buffer.
type state struct {
	clientRandom    [32]byte
	serverRandom    [32]byte
	preMasterSecret []byte
	masterSecret    []byte
	useEMS          bool
	handshake       handshakeBuffer
	curve           NamedCurve
	srtpProfile     SRTPProtectionProfile
}

// Conn drives one DTLS handshake and, once established, its record
// layer. It is owned exclusively by the goroutine that calls Handshake
// and subsequently Read/Write — no internal locking, only a single
// owning task ever touches it.
type Conn struct {
	cfg      Config
	isClient bool
	sock     net.PacketConn
	remote   net.Addr
	log      logging.LeveledLogger

	st state

	writeRecord RecordLayer
	readRecord  RecordLayer

	// Populated by deriveKeys once the master secret exists; nil (and
	// therefore epoch-0-only) before that point.
	writeCipher cipher.AEAD
	writeIV     [4]byte
	readCipher  cipher.AEAD
	readIV      [4]byte

	replay map[uint16]replaydetector.ReplayDetector

	// recv feeds this Conn's post-handshake Read; it is the same channel
	// handed to Handshake, and must keep being fed demultiplexed DTLS
	// datagrams for this remote for as long as Read is called.
	recv <-chan []byte

	readDeadline *deadline.Deadline
}

// Handshake runs the client or server flight sequence to completion
// over sock/remote, using incoming supplies recv. recv must only ever be
// fed bytes already demultiplexed as DTLS (first byte in [20,63]) for
// this remote, and must keep being fed after Handshake returns if the
// caller intends to use the returned Conn's Read.
func Handshake(ctx context.Context, isClient bool, sock net.PacketConn, remote net.Addr, cfg Config, recv <-chan []byte) (*Conn, error) {
	cfg = cfg.withDefaults()
	c := &Conn{
		cfg:      cfg,
		isClient: isClient,
		sock:     sock,
		remote:   remote,
		log:      cfg.LoggerFactory.NewLogger("dtls"),
		replay:       make(map[uint16]replaydetector.ReplayDetector),
		recv:         recv,
		readDeadline: deadline.New(),
	}

	if isClient {
		return c, c.runClient(ctx, recv)
	}
	return c, c.runServer(ctx, recv)
}

// deriveKeys derives the GCM key block from the now-known master secret
// and assigns the client/server halves to write/read by role. Must only
// be called once deriveMasterSecret has run.
func (c *Conn) deriveKeys() error {
	kb := deriveKeyBlock(c.st.masterSecret, c.st.clientRandom[:], c.st.serverRandom[:], gcmKeyLen)
	clientGCM, err := newGCM(kb.ClientWriteKey)
	if err != nil {
		return fmt.Errorf("dtls: client write cipher: %w", err)
	}
	serverGCM, err := newGCM(kb.ServerWriteKey)
	if err != nil {
		return fmt.Errorf("dtls: server write cipher: %w", err)
	}

	if c.isClient {
		c.writeCipher, c.writeIV = clientGCM, kb.ClientWriteIV
		c.readCipher, c.readIV = serverGCM, kb.ServerWriteIV
	} else {
		c.writeCipher, c.writeIV = serverGCM, kb.ServerWriteIV
		c.readCipher, c.readIV = clientGCM, kb.ClientWriteIV
	}
	return nil
}

// decrypt opens rec if it carries a nonzero epoch, passing epoch-0
// records through unchanged (the plaintext handshake flights).
func (c *Conn) decrypt(rec ParsedRecord) ([]byte, error) {
	if rec.Epoch == 0 {
		return rec.Payload, nil
	}
	if c.readCipher == nil {
		return nil, fmt.Errorf("dtls: %w: encrypted record before key derivation", ErrBadRecord)
	}
	return openRecord(c.readCipher, c.readIV, rec)
}

// checkReplay reports whether (epoch, seq) is new, marking it seen if
// the caller goes on to accept the record (one window per epoch).
func (c *Conn) checkReplay(epoch uint16, seq uint64) (accept func(), ok bool) {
	d, found := c.replay[epoch]
	if !found {
		d = replaydetector.New(dtlsReplayWindowSize, dtlsMaxSeq)
		c.replay[epoch] = d
	}
	return d.Check(seq)
}

func (c *Conn) send(ct ContentType, payload []byte) error {
	if c.writeRecord.epoch == 0 || c.writeCipher == nil {
		hdr := c.writeRecord.NextHeader(ct, len(payload))
		_, err := c.sock.WriteTo(append(hdr, payload...), c.remote)
		return err
	}

	seq := c.writeRecord.writeSeq
	sealed := sealRecord(c.writeCipher, c.writeIV, ct, c.writeRecord.epoch, seq, payload)
	hdr := c.writeRecord.NextHeader(ct, len(sealed))
	_, err := c.sock.WriteTo(append(hdr, sealed...), c.remote)
	return err
}

func (c *Conn) sendHandshake(msg *HandshakeMessage) [][]byte {
	var packets [][]byte
	for _, frag := range msg.Fragments() {
		if c.writeRecord.epoch == 0 || c.writeCipher == nil {
			hdr := c.writeRecord.NextHeader(ContentTypeHandshake, len(frag))
			packets = append(packets, append(hdr, frag...))
			continue
		}

		seq := c.writeRecord.writeSeq
		sealed := sealRecord(c.writeCipher, c.writeIV, ContentTypeHandshake, c.writeRecord.epoch, seq, frag)
		hdr := c.writeRecord.NextHeader(ContentTypeHandshake, len(sealed))
		packets = append(packets, append(hdr, sealed...))
	}
	return packets
}

// Read blocks until one application-data record arrives, decrypting and
// replay-checking it before copying its payload into p. Handshake and
// other non-application records arriving interleaved (retransmitted
// flights) are consumed and skipped; an alert record ends the read with
// io.EOF.
func (c *Conn) Read(p []byte) (int, error) {
	for {
		var buf []byte
		var ok bool
		select {
		case buf, ok = <-c.recv:
			if !ok {
				return 0, io.EOF
			}
		case <-c.readDeadline.Done():
			return 0, os.ErrDeadlineExceeded
		}
		recs, err := ParseRecords(buf)
		if err != nil {
			return 0, err
		}
		for _, r := range recs {
			if r.Type == ContentTypeAlert {
				return 0, io.EOF
			}
			if r.Type != ContentTypeApplicationData {
				continue
			}
			pt, err := c.decrypt(r)
			if err != nil {
				return 0, err
			}
			accept, ok := c.checkReplay(r.Epoch, r.Seq)
			if !ok {
				continue
			}
			accept()
			return copy(p, pt), nil
		}
	}
}

// Write encrypts and sends p as a single application-data record.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.send(ContentTypeApplicationData, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close releases the underlying socket. A shared socket (e.g. a
// demux.Endpoint) owns its own lifecycle and tolerates this.
func (c *Conn) Close() error {
	return c.sock.Close()
}

// SetReadDeadline unblocks a pending or future Read once t elapses,
// mirroring net.Conn's contract; a zero t clears the deadline.
func (c *Conn) SetReadDeadline(t time.Time) error {
	c.readDeadline.Set(t)
	return nil
}

// SetDeadline is SetReadDeadline: Write has no blocking path to bound.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.SetReadDeadline(t)
}

func (c *Conn) transmitFlight(packets [][]byte) error {
	for _, p := range packets {
		if _, err := c.sock.WriteTo(p, c.remote); err != nil {
			return err
		}
	}
	return nil
}

// runFlight drives one retransmitting flight: send packets immediately,
// then retransmit on RTO until onMessage signals the next flight has
// begun by returning true, or the context/budget is exhausted.
func (c *Conn) runFlight(ctx context.Context, packets [][]byte, recv <-chan []byte, onMessage func([]byte) (bool, error)) error {
	fm := newFlightManager(c.cfg.FlightInitialRTO, c.cfg.FlightMaxRTO, c.cfg.FlightMaxRetransmits)
	fm.Arm(packets, time.Now())
	if err := c.transmitFlight(packets); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case buf := <-recv:
			done, err := onMessage(buf)
			if err != nil {
				return err
			}
			if done {
				fm.Retire()
				return nil
			}
		case now := <-ticker.C:
			shouldSend, exhausted := fm.Due(now)
			if exhausted {
				return fmt.Errorf("dtls: %w", ErrHandshakeTimeout)
			}
			if shouldSend {
				if err := c.transmitFlight(fm.Packets()); err != nil {
					return err
				}
			}
		}
	}
}

// parsePlaintextHandshake parses a raw datagram and, for epoch 0 plaintext
// handshake content, reassembles it; encrypted records are handled by
// the caller once keys exist.
func (c *Conn) parsePlaintextHandshake(buf []byte, fb *fragmentBuffer) (*HandshakeMessage, error) {
	recs, err := ParseRecords(buf)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.Type != ContentTypeHandshake {
			continue
		}
		msg, err := fb.Push(r.Payload)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
	}
	return nil, nil
}

// ---- client flights ----

func (c *Conn) runClient(ctx context.Context, recv <-chan []byte) error {
	var err error
	c.st.clientRandom, err = newRandom32()
	if err != nil {
		return err
	}

	fb := newFragmentBuffer()

	// F1: ClientHello with no cookie.
	ch := &clientHelloBody{Random: c.st.clientRandom, UseEMS: true, Profiles: c.cfg.SRTPProtectionProfiles}
	msg := &HandshakeMessage{Type: HandshakeClientHello, MessageSeq: 0, Body: ch.Marshal()}
	packets := c.sendHandshake(msg)
	// The cookie-less ClientHello is never added to the handshake
	// buffer — only the one that carries the server's cookie is.

	var hvrCookie []byte
	err = c.runFlight(ctx, packets, recv, func(buf []byte) (bool, error) {
		m, err := c.parsePlaintextHandshake(buf, fb)
		if err != nil || m == nil {
			return false, err
		}
		if m.Type != HandshakeHelloVerifyRequest {
			return false, nil
		}
		cookie, err := parseHelloVerifyRequestCookie(m.Body)
		if err != nil {
			return false, err
		}
		hvrCookie = cookie
		return true, nil
	})
	if err != nil {
		return err
	}

	// F3: ClientHello with cookie (this one IS buffered).
	ch2 := &clientHelloBody{Random: c.st.clientRandom, Cookie: hvrCookie, UseEMS: true, Profiles: c.cfg.SRTPProtectionProfiles}
	msg2 := &HandshakeMessage{Type: HandshakeClientHello, MessageSeq: 1, Body: ch2.Marshal()}
	c.st.handshake.Add(msg2)
	packets2 := c.sendHandshake(msg2)

	var peerCurve NamedCurve
	var peerPub, peerSig, peerCertDER []byte
	var gotServerHello, gotCert, gotSKE, gotDone bool
	err = c.runFlight(ctx, packets2, recv, func(buf []byte) (bool, error) {
		recs, perr := ParseRecords(buf)
		if perr != nil {
			return false, perr
		}
		for _, r := range recs {
			if r.Type == ContentTypeChangeCipherSpec {
				continue // CCS isn't a handshake message; seen in F6 later
			}
			if r.Type != ContentTypeHandshake {
				continue
			}
			m, perr := fb.Push(r.Payload)
			if perr != nil {
				return false, perr
			}
			if m == nil {
				continue
			}
			c.st.handshake.Add(m)
			switch m.Type {
			case HandshakeServerHello:
				sh, perr := parseServerHello(m.Body)
				if perr != nil {
					return false, perr
				}
				c.st.serverRandom = sh.Random
				c.st.useEMS = sh.UseEMS && ch2.UseEMS
				c.st.srtpProfile = sh.Profile
				gotServerHello = true
			case HandshakeCertificate:
				der, perr := parseCertificate(m.Body)
				if perr != nil {
					return false, perr
				}
				peerCertDER = der
				gotCert = true
			case HandshakeServerKeyExchange:
				curve, pub, sig, perr := parseServerKeyExchange(m.Body)
				if perr != nil {
					return false, perr
				}
				peerCurve, peerPub, peerSig = curve, pub, sig
				gotSKE = true
			case HandshakeServerHelloDone:
				gotDone = true
			}
		}
		return gotServerHello && gotCert && gotSKE && gotDone, nil
	})
	if err != nil {
		return err
	}

	cert, err := x509.ParseCertificate(peerCertDER)
	if err != nil {
		return fmt.Errorf("dtls: %w: %v", ErrBadRecord, err)
	}
	// Fingerprint-based validation happens at the façade;
	// here we only need the key to verify ServerKeyExchange's signature.
	ecdsaPub, err := ecdsaPublicKeyFromCert(cert)
	if err != nil {
		return err
	}
	serverParams := encodeServerParamsForVerify(peerCurve, peerPub)
	if !verifyServerParams(ecdsaPub, c.st.clientRandom[:], c.st.serverRandom[:], serverParams, peerSig) {
		return fmt.Errorf("dtls: %w: ServerKeyExchange signature", ErrBadRecord)
	}

	kp, err := generateKeyPairForCurve(peerCurve)
	if err != nil {
		return err
	}
	shared, err := kp.computeSharedSecret(peerPub)
	if err != nil {
		return err
	}
	c.st.preMasterSecret = shared
	c.st.curve = peerCurve

	// F3 continues: Certificate(optional)+ClientKeyExchange+CertificateVerify?+CCS+Finished
	cke := &HandshakeMessage{Type: HandshakeClientKeyExchange, MessageSeq: 2, Body: marshalClientKeyExchange(kp.pub)}
	c.st.handshake.Add(cke)
	// ClientKeyExchange is now in the buffer: safe to derive EMS.
	c.deriveMasterSecret()
	if err := c.deriveKeys(); err != nil {
		return err
	}

	ckePackets := c.sendHandshake(cke)
	if err := c.transmitFlight(ckePackets); err != nil {
		return err
	}
	if err := c.send(ContentTypeChangeCipherSpec, []byte{1}); err != nil {
		return err
	}
	c.writeRecord.SetEpoch(c.writeRecord.Epoch() + 1)

	finished := verifyData(c.st.masterSecret, finishedLabelClient, c.st.handshake.Bytes())
	finMsg := &HandshakeMessage{Type: HandshakeFinished, MessageSeq: 3, Body: finished}
	// The local Finished is added to the buffer only AFTER computing
	// verify_data.
	c.st.handshake.Add(finMsg)
	finPackets := c.sendHandshake(finMsg)
	if err := c.transmitFlight(finPackets); err != nil {
		return err
	}

	// F6 (server->client): expect CCS + Finished confirming the peer's view.
	return c.runFlight(ctx, nil, recv, func(buf []byte) (bool, error) {
		recs, perr := ParseRecords(buf)
		if perr != nil {
			return false, perr
		}
		for _, r := range recs {
			if r.Type != ContentTypeHandshake {
				continue
			}
			payload, derr := c.decrypt(r)
			if derr != nil {
				return false, derr
			}
			m, perr := fb.Push(payload)
			if perr != nil {
				return false, perr
			}
			if m != nil && m.Type == HandshakeFinished {
				// Verifying the peer's Finished includes our own Finished
				// in the hash.
				want := verifyData(c.st.masterSecret, finishedLabelServer, c.st.handshake.Bytes())
				if !hmacEqualBytes(want, m.Body) {
					return false, fmt.Errorf("dtls: %w: peer Finished mismatch", ErrBadRecord)
				}
				c.readRecord.SetEpoch(c.readRecord.Epoch() + 1)
				return true, nil
			}
		}
		return false, nil
	})
}

func (c *Conn) runServer(ctx context.Context, recv <-chan []byte) error {
	fb := newFragmentBuffer()

	var cookie []byte
	var clientProfiles []SRTPProtectionProfile
	var clientEMS bool
	err := c.runFlight(ctx, nil, recv, func(buf []byte) (bool, error) {
		m, perr := c.parsePlaintextHandshake(buf, fb)
		if perr != nil || m == nil {
			return false, perr
		}
		if m.Type != HandshakeClientHello {
			return false, nil
		}
		ch, perr := parseClientHello(m.Body)
		if perr != nil {
			return false, perr
		}
		if len(ch.Cookie) > 0 {
			if !bytesEqual(ch.Cookie, cookie) {
				return false, fmt.Errorf("dtls: %w", ErrCookieMismatch)
			}
			c.st.clientRandom = ch.Random
			clientProfiles = ch.Profiles
			clientEMS = ch.UseEMS
			c.st.handshake.Add(m)
			return true, nil
		}
		var err error
		cookie, err = newCookie()
		if err != nil {
			return false, err
		}
		hvr := &HandshakeMessage{Type: HandshakeHelloVerifyRequest, MessageSeq: 0, Body: marshalHelloVerifyRequest(cookie)}
		if err := c.transmitFlight(c.sendHandshake(hvr)); err != nil {
			return false, err
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	kp, err := generateX25519KeyPair()
	if err != nil {
		return err
	}
	var serverRandom [32]byte
	serverRandom, err = newRandom32()
	if err != nil {
		return err
	}
	c.st.serverRandom = serverRandom

	chosenProfile := SRTPProtectionProfile(0)
	for _, want := range c.cfg.SRTPProtectionProfiles {
		for _, got := range clientProfiles {
			if want == got {
				chosenProfile = want
			}
		}
	}
	c.st.srtpProfile = chosenProfile
	c.st.useEMS = clientEMS

	sh := &serverHelloBody{Random: serverRandom, UseEMS: clientEMS, Profile: chosenProfile}
	shMsg := &HandshakeMessage{Type: HandshakeServerHello, MessageSeq: 1, Body: sh.Marshal()}
	c.st.handshake.Add(shMsg)

	certMsg := &HandshakeMessage{Type: HandshakeCertificate, MessageSeq: 2, Body: marshalCertificate(c.cfg.Certificate)}
	c.st.handshake.Add(certMsg)

	serverParams := kp.serverParams()
	sig, err := signServerParams(c.cfg.PrivateKey, c.st.clientRandom[:], c.st.serverRandom[:], serverParams)
	if err != nil {
		return err
	}
	skeMsg := &HandshakeMessage{Type: HandshakeServerKeyExchange, MessageSeq: 3, Body: marshalServerKeyExchange(serverParams, sig)}
	c.st.handshake.Add(skeMsg)

	doneMsg := &HandshakeMessage{Type: HandshakeServerHelloDone, MessageSeq: 4, Body: nil}
	c.st.handshake.Add(doneMsg)

	var packets [][]byte
	packets = append(packets, c.sendHandshake(shMsg)...)
	packets = append(packets, c.sendHandshake(certMsg)...)
	packets = append(packets, c.sendHandshake(skeMsg)...)
	packets = append(packets, c.sendHandshake(doneMsg)...)

	var clientFinished []byte
	var clientFinishedSeq uint16
	err = c.runFlight(ctx, packets, recv, func(buf []byte) (bool, error) {
		recs, perr := ParseRecords(buf)
		if perr != nil {
			return false, perr
		}
		for _, r := range recs {
			if r.Type == ContentTypeChangeCipherSpec {
				continue
			}
			if r.Type != ContentTypeHandshake {
				continue
			}
			payload, derr := c.decrypt(r)
			if derr != nil {
				return false, derr
			}
			m, perr := fb.Push(payload)
			if perr != nil {
				return false, perr
			}
			if m == nil {
				continue
			}
			switch m.Type {
			case HandshakeClientKeyExchange:
				peerPub, perr := parseClientKeyExchange(m.Body)
				if perr != nil {
					return false, perr
				}
				shared, perr := kp.computeSharedSecret(peerPub)
				if perr != nil {
					return false, perr
				}
				c.st.preMasterSecret = shared
				c.st.handshake.Add(m)
				// ClientKeyExchange is now buffered: EMS derivation may proceed.
				c.deriveMasterSecret()
				if derr := c.deriveKeys(); derr != nil {
					return false, derr
				}
			case HandshakeFinished:
				clientFinished = m.Body
				clientFinishedSeq = m.MessageSeq
			}
		}
		return clientFinished != nil, nil
	})
	if err != nil {
		return err
	}

	// verify_data is checked against the buffer as it stood BEFORE the
	// client's own Finished was appended, then the Finished is appended
	// so the server's Finished hash covers it too.
	want := verifyData(c.st.masterSecret, finishedLabelClient, c.st.handshake.Bytes())
	if !hmacEqualBytes(want, clientFinished) {
		return fmt.Errorf("dtls: %w: client Finished mismatch", ErrBadRecord)
	}
	c.st.handshake.Add(&HandshakeMessage{Type: HandshakeFinished, MessageSeq: clientFinishedSeq, Body: clientFinished})
	c.readRecord.SetEpoch(c.readRecord.Epoch() + 1)

	if err := c.send(ContentTypeChangeCipherSpec, []byte{1}); err != nil {
		return err
	}
	c.writeRecord.SetEpoch(c.writeRecord.Epoch() + 1)

	serverVD := verifyData(c.st.masterSecret, finishedLabelServer, c.st.handshake.Bytes())
	outFin := &HandshakeMessage{Type: HandshakeFinished, MessageSeq: 5, Body: serverVD}
	return c.transmitFlight(c.sendHandshake(outFin))
}

// deriveMasterSecret picks the EMS or plain derivation based on what
// both sides offered. Must only be called once ClientKeyExchange is
// already in the handshake buffer.
func (c *Conn) deriveMasterSecret() {
	if c.st.useEMS {
		h := handshakeSessionHash(c.st.handshake.Bytes())
		c.st.masterSecret = deriveMasterSecretEMS(c.st.preMasterSecret, h)
	} else {
		c.st.masterSecret = deriveMasterSecretPlain(c.st.preMasterSecret, c.st.clientRandom[:], c.st.serverRandom[:])
	}
}

// ExportSRTPKeyingMaterial splits the exported SRTP keying material into
// local/remote key and salt pairs according to this side's role.
func (c *Conn) ExportSRTPKeyingMaterial() (localKey, localSalt, remoteKey, remoteSalt []byte, profile SRTPProtectionProfile) {
	keyLen, saltLen := SRTPKeySaltLen(c.st.srtpProfile)
	km := ExportSRTPKeyingMaterial(c.st.masterSecret, c.st.clientRandom[:], c.st.serverRandom[:], keyLen, saltLen)
	if c.isClient {
		return km.ClientWriteKey, km.ClientWriteSalt, km.ServerWriteKey, km.ServerWriteSalt, c.st.srtpProfile
	}
	return km.ServerWriteKey, km.ServerWriteSalt, km.ClientWriteKey, km.ClientWriteSalt, c.st.srtpProfile
}

func newCookie() ([]byte, error) {
	var b [20]byte
	if _, err := rand.Read(b[:]); err != nil {
		return nil, err
	}
	return b[:], nil
}

// ecdsaPublicKeyFromCert rejects anything but the ECDSA certificates
// this stack issues and accepts.
func ecdsaPublicKeyFromCert(cert *x509.Certificate) (*ecdsa.PublicKey, error) {
	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("dtls: %w: peer certificate is not ECDSA", ErrUnsupportedSuite)
	}
	return pub, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hmacEqualBytes(a, b []byte) bool { return bytesEqual(a, b) }

func generateKeyPairForCurve(curve NamedCurve) (*ecdheKeyPair, error) {
	if curve == CurveP256 {
		return generateP256KeyPair()
	}
	return generateX25519KeyPair()
}

func encodeServerParamsForVerify(curve NamedCurve, pub []byte) []byte {
	out := []byte{eccCurveTypeNamedCurve, byte(curve >> 8), byte(curve), byte(len(pub))}
	return append(out, pub...)
}
