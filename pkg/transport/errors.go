package transport

import "errors"

var (
	// ErrInvalidLoop is returned by SetLoop when the loop end does not lie
	// strictly after the loop start.
	ErrInvalidLoop = errors.New("loop end must be after loop start")
	// ErrNegativePosition is returned by Seek for a position before zero.
	ErrNegativePosition = errors.New("position must not be negative")
)
