package script

import "errors"

var (
	// ErrNotFunction is returned when at() is given something that is not
	// callable.
	ErrNotFunction = errors.New("callback is not a function")
	// ErrScriptNotFound is returned when the script file does not exist.
	ErrScriptNotFound = errors.New("script not found")
)
