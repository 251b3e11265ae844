// Package clock declares the time sources a playback scheduler consumes: an
// audio context running on free real time and a transport running on logical
// time that can start, pause, loop and seek on its own.
//
// The interfaces are implemented by package audioctx and package transport,
// and by any host that embeds sources into its own engine.
package clock

import "github.com/warpdl/cueline/pkg/timeline"

// Seconds is a point in time, or a length of time, in seconds.
type Seconds = timeline.Seconds

// ContextState is the run state of an audio context.
type ContextState string

const (
	Running   ContextState = "running"
	Suspended ContextState = "suspended"
	Closed    ContextState = "closed"
)

// TransportEvent names a transport lifecycle event.
type TransportEvent string

const (
	EventStart     TransportEvent = "start"
	EventStop      TransportEvent = "stop"
	EventPause     TransportEvent = "pause"
	EventLoopStart TransportEvent = "loopStart"
	EventLoopEnd   TransportEvent = "loopEnd"
)

// AllEvents lists every transport lifecycle event.
var AllEvents = []TransportEvent{EventStart, EventStop, EventPause, EventLoopStart, EventLoopEnd}

// EventID identifies a callback scheduled on a transport.
type EventID uint64

// ListenerID identifies a listener registration on a transport.
type ListenerID uint64

// Listener receives transport lifecycle events.
//
// time is the context time of the event. offset is the transport position
// the event starts from; it is only meaningful for EventStart and
// EventLoopStart.
type Listener interface {
	TransportEvent(ev TransportEvent, time, offset Seconds)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev TransportEvent, time, offset Seconds)

// TransportEvent calls f(ev, time, offset).
func (f ListenerFunc) TransportEvent(ev TransportEvent, time, offset Seconds) {
	f(ev, time, offset)
}

// Transport is a shared logical clock.
type Transport interface {
	// Seconds returns the current logical position.
	Seconds() Seconds
	// State returns started, stopped or paused.
	State() timeline.State
	// SecondsAtTime converts a context time to a logical position.
	SecondsAtTime(t Seconds) Seconds
	// Schedule registers cb to run whenever the transport reaches the
	// logical time at. cb receives the context time it fired at.
	Schedule(cb func(Seconds), at Seconds) EventID
	// Clear cancels a scheduled callback. Unknown ids are ignored.
	Clear(id EventID)
	// On registers l for ev and returns a token for Off.
	On(ev TransportEvent, l Listener) ListenerID
	// Off removes a registration. Unknown ids are ignored.
	Off(id ListenerID)
}

// Context is an audio engine clock.
type Context interface {
	// CurrentTime returns the engine's current time.
	CurrentTime() Seconds
	// Now returns CurrentTime plus the scheduling lookahead.
	Now() Seconds
	// SampleTime returns the duration of a single sample.
	SampleTime() Seconds
	// State returns the context's run state.
	State() ContextState
	// Transport returns the transport shared by sources on this context.
	Transport() Transport
}
