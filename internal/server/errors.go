package server

import "errors"

var (
	// ErrNoSecret is returned when serving without an RPC secret.
	ErrNoSecret = errors.New("an RPC secret is required")
	// ErrNoPushChannel is returned by session.subscribe outside a websocket
	// connection.
	ErrNoPushChannel = errors.New("subscriptions need a websocket connection")
)
