package ice

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"
	"github.com/pion/mdns/v2"
	"github.com/pion/turn/v4"
)

// quiescenceWindow is how long after host-candidate enumeration Gather
// signals end-of-candidates. The timer is not restarted by candidates
// found later, so srflx and relay candidates can arrive after the
// end-of-candidates sentinel.
const quiescenceWindow = 500 * time.Millisecond

// allocationLifetime matches the RFC 5766 §2.2 default server
// allocation lifetime; refreshRelay renews well before it expires.
const allocationLifetime = 10 * time.Minute

// GatherOptions configures candidate gathering.
type GatherOptions struct {
	STUNServers []string // host:port, e.g. "stun.l.google.com:19302"
	TURNServers []TURNServer
	// IncludeMDNS publishes host candidates as "<uuid>.local" instead of
	// the literal address, per RFC 8445 §5.1.1.3 privacy mode.
	IncludeMDNS bool
}

// TURNServer is a TURN relay credential set.
type TURNServer struct {
	URI      string
	Username string
	Password string
}

// Gather enumerates host addresses, resolves srflx mappings via each
// STUN server, and (if configured) establishes TURN allocations for
// relay candidates, emitting every discovered candidate on a.Events as
// it is found, and a nil-Gathered sentinel quiescenceWindow after host
// enumeration. Server-reflexive and relay candidates found after that
// are still emitted, after the sentinel.
func (a *Agent) Gather(ctx context.Context, opts GatherOptions) error {
	foundationSeq := 0
	nextFoundation := func() string {
		foundationSeq++
		return fmt.Sprintf("f%d", foundationSeq)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("ice: enumerate interfaces: %w", err)
	}

	var mdnsConn *mdns.Conn
	if opts.IncludeMDNS {
		mdnsConn, _ = mdns.Server(ipv4MulticastConn(), &mdns.Config{})
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLinkLocalUnicast() {
				continue
			}
			conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ipNet.IP, Port: 0})
			if err != nil {
				continue
			}
			localPort := conn.LocalAddr().(*net.UDPAddr).Port

			host := ipNet.IP.String()
			if mdnsConn != nil {
				host = mdnsHostname()
			}
			hc := NewHostCandidate(nextFoundation(), host, localPort, 65535)
			hc.conn = conn
			a.AddLocalCandidate(hc)
			go a.readLoop(conn)

			for _, srv := range opts.STUNServers {
				go a.gatherServerReflexive(conn, srv, ipNet.IP.String(), localPort, nextFoundation())
			}
			for _, t := range opts.TURNServers {
				go a.gatherRelay(ctx, t, ipNet.IP.String(), localPort, nextFoundation())
			}
		}
	}

	go func() {
		timer := time.NewTimer(quiescenceWindow)
		defer timer.Stop()
		<-timer.C
		a.EndOfLocalCandidates()
	}()
	return nil
}

// readLoop pumps datagrams from a gathered socket into the agent's
// receive channel; onPacket routes non-STUN datagrams out on NonSTUN.
func (a *Agent) readLoop(conn net.PacketConn) {
	buf := make([]byte, 1500)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		if n < 1 {
			continue
		}
		a.DeliverPacket(conn, from, buf[:n])
	}
}

// gatherServerReflexive performs the STUN Binding Request that this
// gathering phase uses to learn the server-reflexive candidate.
func (a *Agent) gatherServerReflexive(conn *net.UDPConn, server, relatedAddr string, relatedPort int, foundation string) {
	raddr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return
	}
	txID, err := newRandTxID()
	if err != nil {
		return
	}
	req := buildBindingRequestNoAuth(txID)
	if _, err := conn.WriteToUDP(req, raddr); err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	// The response is consumed by readLoop via DeliverPacket and parsed by
	// onPacket; gathering-phase Binding Requests carry no USERNAME since
	// there is no ICE session yet, so the agent's packet handler
	// special-cases class-request/no-integrity pairing elsewhere. For the
	// srflx address itself, a dedicated short-lived listener is simplest:
	buf := make([]byte, 1500)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		return
	}
	addr, err := parseXORMappedFromRaw(buf[:n], txID)
	if err != nil {
		return
	}
	sc := NewServerReflexiveCandidate(foundation, addr.IP.String(), addr.Port, 65535, relatedAddr, relatedPort)
	sc.conn = conn
	a.AddLocalCandidate(sc)
}

// gatherRelay runs the TURN Allocate/Refresh lifecycle (RFC 5766) using
// pion/turn's client, producing one relay candidate per allocation.
func (a *Agent) gatherRelay(ctx context.Context, t TURNServer, relatedAddr string, relatedPort int, foundation string) {
	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return
	}
	client, err := turn.NewClient(&turn.ClientConfig{
		STUNServerAddr: t.URI,
		TURNServerAddr: t.URI,
		Conn:           conn,
		Username:       t.Username,
		Password:       t.Password,
		LoggerFactory:  logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		return
	}
	if err := client.Listen(); err != nil {
		return
	}
	relayConn, err := client.Allocate()
	if err != nil {
		return
	}
	relayAddr := relayConn.LocalAddr().(*net.UDPAddr)

	alloc, ok := relayConn.(*turn.Allocation)
	if !ok {
		a.log.Warnf("ice: turn client returned unexpected allocation type %T, refresh disabled", relayConn)
	} else {
		go a.refreshRelay(ctx, client, alloc)
	}

	rc := NewRelayCandidate(foundation, relayAddr.IP.String(), relayAddr.Port, 0, relatedAddr, relatedPort)
	a.AddLocalCandidate(rc)
}

// refreshRelay implements the RFC 5766 §7 Refresh half of the
// Allocate/Refresh lifecycle: without it, a relay candidate's
// allocation silently expires on the TURN server after its lifetime,
// even though this Agent keeps using it as the selected pair.
func (a *Agent) refreshRelay(ctx context.Context, client *turn.Client, alloc *turn.Allocation) {
	t := time.NewTicker(5 * time.Minute) // well inside the 10-minute allocation lifetime
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			client.Close()
			return
		case <-t.C:
			if err := alloc.Refresh(allocationLifetime); err != nil {
				a.log.Warnf("ice: turn allocation refresh failed: %v", err)
				client.Close()
				return
			}
		}
	}
}

func ipv4MulticastConn() net.PacketConn {
	conn, _ := net.ListenPacket("udp4", mdns.DefaultAddressIPv4)
	return conn
}

// mdnsHostname generates the RFC 8445 §5.1.1.3 privacy-mode candidate
// name: a version-4 UUID per RFC 4122, not the underlying host or
// interface address.
func mdnsHostname() string {
	return uuid.NewString() + ".local"
}
