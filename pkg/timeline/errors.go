package timeline

import "errors"

var (
	// ErrOrderViolation is returned by an increasing timeline when a write
	// lands before the most recently stored event.
	ErrOrderViolation = errors.New("the time must be greater than or equal to the last scheduled time")
)
