package fm

import "errors"

// Sentinel errors for expected failure modes.
var (
	ErrChannelRange    = errors.New("channel out of range")
	ErrInstrumentRange = errors.New("instrument out of range")
	ErrInvalidSong     = errors.New("invalid song")
	ErrBadMagic        = errors.New("bad magic")
	ErrBadVersion      = errors.New("unsupported version")
	ErrTooLarge        = errors.New("declared length exceeds limit")
	ErrTrailingData    = errors.New("trailing data after final block")
	ErrUnknownEffect   = errors.New("unknown effect type")
)
