// Package sctp implements RFC 4960 SCTP (packet/chunk/parameter codec
// plus a single-association state machine) specialized to the
// subset WebRTC data channels need: one local/remote verification-tag
// pair negotiated through the four-way INIT/INIT-ACK/COOKIE-ECHO/
// COOKIE-ACK handshake, ordered and unordered DATA delivery with
// RFC 3758 partial-reliability (PR-SCTP) expiry, and stream reset via
// RFC 6525 RE-CONFIG.
package sctp

import "encoding/binary"

const paddingMultiple = 4

func getPadding(n int) int {
	return (paddingMultiple - (n % paddingMultiple)) % paddingMultiple
}

func beUint32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

func putBeUint32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
