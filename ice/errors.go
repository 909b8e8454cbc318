package ice

import "errors"

// Error kinds this package returns.
var (
	ErrClosed         = errors.New("ice: agent closed")
	ErrStunProtocol   = errors.New("ice: malformed STUN message")
	ErrTimeout        = errors.New("ice: all candidate pairs failed")
	ErrNoSelectedPair = errors.New("ice: no selected pair yet")
)
