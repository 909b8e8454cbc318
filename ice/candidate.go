// Package ice implements the subset of RFC 8445 (Interactive Connectivity
// Establishment) this stack drives a WebRTC session with: candidate
// gathering, pairing, the connectivity-check state machine, nomination
// and consent freshness. It speaks the wire format implemented in the
// sibling stun package.
package ice

import (
	"fmt"
	"net"
)

// CandidateType is the RFC 8445 §4.1 candidate type.
type CandidateType int

const (
	CandidateTypeHost CandidateType = iota
	CandidateTypeServerReflexive
	CandidateTypePeerReflexive
	CandidateTypeRelay
)

func (t CandidateType) String() string {
	switch t {
	case CandidateTypeHost:
		return "host"
	case CandidateTypeServerReflexive:
		return "srflx"
	case CandidateTypePeerReflexive:
		return "prflx"
	case CandidateTypeRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// typePreference implements RFC 8445 §5.1.2.2's recommended values.
func (t CandidateType) typePreference() uint32 {
	switch t {
	case CandidateTypeHost:
		return 126
	case CandidateTypePeerReflexive:
		return 110
	case CandidateTypeServerReflexive:
		return 100
	case CandidateTypeRelay:
		return 0
	default:
		return 0
	}
}

// NetworkTransport is the candidate's transport protocol.
type NetworkTransport int

const (
	TransportUDP NetworkTransport = iota
	TransportTCP
)

// Candidate is one ICE candidate: a transport address together with its
// type, priority and the foundation used for pairing/unfreezing.
type Candidate struct {
	Foundation     string
	Component      uint16 // always 1: the core only runs RTP/RTCP-muxed single-component sessions
	Transport      NetworkTransport
	Priority       uint32
	Address        string
	Port           int
	Type           CandidateType
	RelatedAddress string
	RelatedPort    int
	TCPType        string
	Generation     uint32
	Ufrag          string

	// conn is the local socket this candidate was gathered on; only
	// set for local candidates.
	conn net.PacketConn
}

// ComputePriority implements RFC 8445 §5.1.2.1:
// priority = (2^24)*type_pref + (2^8)*local_pref + (256-component)
func ComputePriority(t CandidateType, localPref uint16, component uint16) uint32 {
	return (1<<24)*t.typePreference() + (1<<8)*uint32(localPref) + uint32(256-component)
}

// NewHostCandidate builds a host candidate and computes its priority.
func NewHostCandidate(foundation, address string, port int, localPref uint16) *Candidate {
	return &Candidate{
		Foundation: foundation,
		Component:  1,
		Transport:  TransportUDP,
		Priority:   ComputePriority(CandidateTypeHost, localPref, 1),
		Address:    address,
		Port:       port,
		Type:       CandidateTypeHost,
	}
}

// NewServerReflexiveCandidate builds an srflx candidate discovered via a
// STUN Binding Request to url, related to the host candidate base.
func NewServerReflexiveCandidate(foundation, address string, port int, localPref uint16, relatedAddr string, relatedPort int) *Candidate {
	return &Candidate{
		Foundation:     foundation,
		Component:      1,
		Transport:      TransportUDP,
		Priority:       ComputePriority(CandidateTypeServerReflexive, localPref, 1),
		Address:        address,
		Port:           port,
		Type:           CandidateTypeServerReflexive,
		RelatedAddress: relatedAddr,
		RelatedPort:    relatedPort,
	}
}

// NewRelayCandidate builds a relay candidate from a TURN allocation.
func NewRelayCandidate(foundation, address string, port int, localPref uint16, relatedAddr string, relatedPort int) *Candidate {
	return &Candidate{
		Foundation:     foundation,
		Component:      1,
		Transport:      TransportUDP,
		Priority:       ComputePriority(CandidateTypeRelay, localPref, 1),
		Address:        address,
		Port:           port,
		Type:           CandidateTypeRelay,
		RelatedAddress: relatedAddr,
		RelatedPort:    relatedPort,
	}
}

// NewPeerReflexiveCandidate builds a prflx candidate discovered from the
// source address of an incoming connectivity check, using the priority
// value the peer signaled in its PRIORITY attribute.
func NewPeerReflexiveCandidate(foundation, address string, port int, priority uint32) *Candidate {
	return &Candidate{
		Foundation: foundation,
		Component:  1,
		Transport:  TransportUDP,
		Priority:   priority,
		Address:    address,
		Port:       port,
		Type:       CandidateTypePeerReflexive,
	}
}

func (c *Candidate) addr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(c.Address), Port: c.Port}
}

func (c *Candidate) String() string {
	return fmt.Sprintf("%s:%d/%s/%s(%d)", c.Address, c.Port, c.Type, c.Foundation, c.Priority)
}

// sameFamily reports whether two candidates' addresses belong to the
// same IP family, a pairing precondition per RFC 8445 §6.1.2.2.
func sameFamily(a, b *Candidate) bool {
	ia := net.ParseIP(a.Address)
	ib := net.ParseIP(b.Address)
	if ia == nil || ib == nil {
		return false
	}
	return (ia.To4() != nil) == (ib.To4() != nil)
}
