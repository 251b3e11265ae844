package session

import "errors"

var (
	// ErrUnknownSource is returned when a source name has not been created.
	ErrUnknownSource = errors.New("unknown source")
	// ErrEmptyName is returned when creating a source without a name.
	ErrEmptyName = errors.New("source name must not be empty")
)
