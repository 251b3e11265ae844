// Package timeline provides StateTimeline, an ordered time-indexed log of
// discrete playback-state events.
//
// A StateTimeline answers two questions: which state is in effect at time T,
// and when is the next change to a given state after T. Events are kept in
// non-decreasing time order in a slice and located by binary search. Callers
// that re-state their intent from time T forward first Cancel(T), so the
// timeline never holds two incompatible futures.
//
// The package knows nothing about audio, transports or wall clocks; times are
// plain seconds on whatever clock the caller schedules against.
package timeline
