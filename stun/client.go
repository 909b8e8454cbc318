package stun

import (
	"context"
	"time"

	"github.com/pion/randutil"
)

// RetransmitSchedule is the exponential-backoff schedule used for STUN
// Binding Request retransmission, both in ICE connectivity checks
// and in gathering-phase srflx lookups.
func RetransmitSchedule(initialRTO time.Duration, maxAttempts int) []time.Duration {
	sched := make([]time.Duration, maxAttempts)
	rto := initialRTO
	for i := range sched {
		sched[i] = rto
		rto *= 2
	}
	return sched
}

// NewTransactionID generates a random 12-byte STUN transaction ID.
func NewTransactionID() ([12]byte, error) {
	var id [12]byte
	randGen := randutil.NewMathRandomGenerator()
	b, err := randGen.GenerateCryptoRandomString(12, randutil.CharsetAlphaNum)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// Transaction drives a single request/response exchange with
// exponential-backoff retransmission over an externally supplied send
// function, matching the task-owned timer model: all state mutation
// happens on the caller's goroutine, the only suspension points are
// the retransmit ticker and the response channel.
type Transaction struct {
	send     func([]byte) error
	schedule []time.Duration
}

// NewTransaction builds a retransmitting request sender.
func NewTransaction(send func([]byte) error, schedule []time.Duration) *Transaction {
	return &Transaction{send: send, schedule: schedule}
}

// Run transmits raw repeatedly per the schedule until resp fires or ctx
// is done, returning ErrNoResponse if every attempt was exhausted.
func (t *Transaction) Run(ctx context.Context, raw []byte, resp <-chan *Message) (*Message, error) {
	for i, wait := range t.schedule {
		if err := t.send(raw); err != nil {
			return nil, err
		}
		timer := time.NewTimer(wait)
		select {
		case m := <-resp:
			timer.Stop()
			return m, nil
		case <-timer.C:
			if i == len(t.schedule)-1 {
				return nil, ErrNoResponse
			}
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, ErrNoResponse
}
