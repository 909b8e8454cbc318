package dtls

import "time"

// flightManager retransmits the current outgoing flight with exponential
// backoff (1s, 2s, 4s, ... capped at 60s) until retired by arrival of
// the next flight's first message. It owns no network I/O itself;
// Conn's run loop calls Due()/Arm()/Retire() on its own timer tick,
// keeping all mutation on the single owning task.
type flightManager struct {
	packets      [][]byte // raw datagrams of the current flight, sent as a burst
	rto          time.Duration
	maxRTO       time.Duration
	transmits    int
	maxRetransmits int
	deadline     time.Time
}

func newFlightManager(initialRTO, maxRTO time.Duration, maxRetransmits int) *flightManager {
	return &flightManager{rto: initialRTO, maxRTO: maxRTO, maxRetransmits: maxRetransmits}
}

// Arm replaces the current flight with packets and resets the backoff.
// A flightManager is constructed fresh per flight (newFlightManager),
// so rto already holds the configured initial value here. The caller's
// initial send counts as the first of maxRetransmits transmissions.
func (f *flightManager) Arm(packets [][]byte, now time.Time) {
	f.packets = packets
	f.transmits = 1
	f.deadline = now.Add(f.rto)
}

// Due reports whether the flight should be retransmitted now, and
// whether the retransmit budget is exhausted.
func (f *flightManager) Due(now time.Time) (shouldSend bool, exhausted bool) {
	if f.packets == nil {
		return false, false
	}
	if now.Before(f.deadline) {
		return false, false
	}
	if f.transmits >= f.maxRetransmits {
		return false, true
	}
	f.transmits++
	f.rto *= 2
	if f.rto > f.maxRTO {
		f.rto = f.maxRTO
	}
	f.deadline = now.Add(f.rto)
	return true, false
}

// Retire stops retransmitting: the next flight's first message has arrived.
func (f *flightManager) Retire() {
	f.packets = nil
}

func (f *flightManager) Packets() [][]byte { return f.packets }
