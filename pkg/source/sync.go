package source

import (
	"math"

	"github.com/warpdl/cueline/pkg/clock"
	"github.com/warpdl/cueline/pkg/timeline"
)

// syncListener is the capability a synced Source registers on the
// transport.
type syncListener struct{ s *Source }

func (l syncListener) TransportEvent(ev clock.TransportEvent, time, offset Seconds) {
	switch ev {
	case clock.EventStart, clock.EventLoopStart:
		l.s.syncedStart(time, offset)
	case clock.EventStop, clock.EventPause, clock.EventLoopEnd:
		l.s.syncedStop(time)
	}
}

// Sync makes start and stop times refer to the transport's logical clock.
// Calling Sync on a synced source is a no-op.
func (s *Source) Sync() error {
	if s.disposed {
		return ErrDisposed
	}
	if s.synced {
		return nil
	}
	s.synced = true
	tr := s.ctx.Transport()
	l := syncListener{s}
	for _, ev := range clock.AllEvents {
		s.listeners = append(s.listeners, tr.On(ev, l))
	}
	return nil
}

// Unsync detaches the source from the transport, cancels every scheduled
// callback, clears the timeline and stops the unit at time zero. It is safe
// to call on a source that was never synced.
func (s *Source) Unsync() error {
	if s.disposed {
		return ErrDisposed
	}
	s.unsync()
	return nil
}

func (s *Source) unsync() {
	tr := s.ctx.Transport()
	if s.synced {
		for _, id := range s.listeners {
			tr.Off(id)
		}
	}
	s.listeners = nil
	s.synced = false
	for _, in := range s.scheduled {
		tr.Clear(in.id)
	}
	s.scheduled = nil
	s.state.Cancel(0)
	s.unit.Stop(0)
}

// syncedStart resumes a unit whose span was already under way when the
// transport started or looped at offset. Spans whose end lies behind the
// transport are left silent rather than started late.
func (s *Source) syncedStart(time, offset Seconds) {
	if !timeline.GT(offset, 0) {
		return
	}
	ev, ok := s.state.Get(offset)
	if !ok || ev.State != timeline.Started || timeline.EQ(ev.Time, offset) {
		return
	}
	elapsed := offset - ev.Time
	end := math.Inf(1)
	var duration Seconds
	if ev.Duration > 0 {
		duration = ev.Duration - elapsed
		end = ev.Time + ev.Duration
	}
	if end <= s.ctx.Transport().Seconds() {
		s.log.Debug("source %s: span %.6f-%.6f already elapsed, not resuming", s.id, ev.Time, end)
		return
	}
	s.unit.Start(time, ev.Offset+elapsed, duration)
}

// syncedStop stops the unit when the transport halts or wraps while the
// source was playing just before time.
func (s *Source) syncedStop(time Seconds) {
	seconds := s.ctx.Transport().SecondsAtTime(math.Max(time-s.ctx.SampleTime(), 0))
	if s.state.ValueAtTime(seconds) == timeline.Started {
		s.unit.Stop(time)
	}
}
