package rtcp

import "errors"

var (
	errInvalidHeader   = errors.New("rtcp: invalid header")
	errPacketTooShort  = errors.New("rtcp: packet too short")
	errWrongType       = errors.New("rtcp: wrong packet type")
	errTooManyReports    = errors.New("rtcp: too many reports")
	errTooManySources    = errors.New("rtcp: too many sources")
	errTooManyChunksSDES = errors.New("rtcp: too many sdes chunks")
	errReasonTooLong   = errors.New("rtcp: reason text too long")
	errSDESTextTooLong = errors.New("rtcp: sdes item text too long")
	errSDESMissingType = errors.New("rtcp: sdes item missing type")
)
