package stun

import (
	"encoding/binary"
	"errors"
	"net"
)

// ErrBadAddrFamily is returned when an (X)ORMappedAddress attribute carries
// an unrecognized family byte.
var ErrBadAddrFamily = errors.New("stun: unsupported address family")

const (
	familyIPv4 = 0x01
	familyIPv6 = 0x02
)

// XORMappedAddress is the decoded form of the XOR-MAPPED-ADDRESS attribute.
type XORMappedAddress struct {
	IP   net.IP
	Port int
}

// Encode XOR-obfuscates the address per RFC 5389 §15.2, keyed by the
// message's transaction ID (and magic cookie for the port/first 4 bytes).
func (a XORMappedAddress) Encode(txID [12]byte) []byte {
	ip4 := a.IP.To4()
	family := familyIPv4
	addr := ip4
	if ip4 == nil {
		family = familyIPv6
		addr = a.IP.To16()
	}

	buf := make([]byte, 4+len(addr))
	buf[1] = byte(family)
	xport := uint16(a.Port) ^ uint16(magicCookie>>16)
	binary.BigEndian.PutUint16(buf[2:4], xport)

	var key []byte
	key = append(key, byte(magicCookie>>24), byte(magicCookie>>16), byte(magicCookie>>8), byte(magicCookie))
	key = append(key, txID[:]...)
	for i, b := range addr {
		buf[4+i] = b ^ key[i]
	}
	return buf
}

// DecodeXORMappedAddress parses an XOR-MAPPED-ADDRESS attribute value.
func DecodeXORMappedAddress(v []byte, txID [12]byte) (XORMappedAddress, error) {
	if len(v) < 4 {
		return XORMappedAddress{}, ErrTruncatedAttr
	}
	family := v[1]
	xport := binary.BigEndian.Uint16(v[2:4])
	port := int(xport ^ uint16(magicCookie>>16))

	var key []byte
	key = append(key, byte(magicCookie>>24), byte(magicCookie>>16), byte(magicCookie>>8), byte(magicCookie))
	key = append(key, txID[:]...)

	var addr net.IP
	switch family {
	case familyIPv4:
		if len(v) < 8 {
			return XORMappedAddress{}, ErrTruncatedAttr
		}
		b := make([]byte, 4)
		for i := 0; i < 4; i++ {
			b[i] = v[4+i] ^ key[i]
		}
		addr = net.IP(b)
	case familyIPv6:
		if len(v) < 20 {
			return XORMappedAddress{}, ErrTruncatedAttr
		}
		b := make([]byte, 16)
		for i := 0; i < 16; i++ {
			b[i] = v[4+i] ^ key[i]
		}
		addr = net.IP(b)
	default:
		return XORMappedAddress{}, ErrBadAddrFamily
	}
	return XORMappedAddress{IP: addr, Port: port}, nil
}
