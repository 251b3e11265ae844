package source

import "errors"

var (
	// ErrStartOrder is returned when an unsynced start lands on an active
	// span at or before that span's own start time.
	ErrStartOrder = errors.New("start time must be strictly greater than previous start time")
	// ErrContextNotRunning is returned by an unsynced start while the audio
	// context is suspended or closed.
	ErrContextNotRunning = errors.New("audio context is not running")
	// ErrDisposed is returned by every scheduling call after Dispose.
	ErrDisposed = errors.New("source is disposed")
)
