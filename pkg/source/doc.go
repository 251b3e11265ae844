// Package source schedules playback-state transitions for a single
// audio-producing unit.
//
// A Source records every start and stop intent on its own StateTimeline and
// calls the unit's hooks at the decided instants. Unsynced sources schedule
// against the audio context's free-running clock and call the hooks right
// away. Synced sources schedule against the shared transport: each intent
// becomes a transport callback that re-validates the source state when it
// fires, and transport lifecycle events (start, stop, pause, loop) resume or
// halt the unit mid-flight.
//
// A Source is not safe for concurrent use. Hosts that drive sources from
// several goroutines serialize access themselves.
package source
