package audioctx

import "errors"

var (
	// ErrClosed is returned when operating on a closed context.
	ErrClosed = errors.New("audio context is closed")
	// ErrSuspended is returned by Advance while the context is suspended.
	ErrSuspended = errors.New("audio context is suspended")
	// ErrRunaway is returned by Advance when callbacks keep rescheduling
	// themselves at the current time.
	ErrRunaway = errors.New("too many callbacks at a single instant")
)
