package source

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/warpdl/cueline/pkg/clock"
	"github.com/warpdl/cueline/pkg/logger"
	"github.com/warpdl/cueline/pkg/timeline"
)

// Seconds is an alias of clock.Seconds.
type Seconds = clock.Seconds

// DefaultMemory is the default number of timeline events a Source retains.
const DefaultMemory = 100

// Unit is the audio-producing unit a Source drives.
//
// A zero duration means the unit plays until it is stopped.
type Unit interface {
	Start(time, offset, duration Seconds)
	Stop(time Seconds)
	Restart(time, offset, duration Seconds)
}

// Options configures a Source. The zero value is usable.
type Options struct {
	// ID labels the source in logs. Empty picks a random "a<n>" id.
	ID string
	// Memory is the timeline retention. Zero means DefaultMemory.
	Memory int
	// OnStop is handed to NotifyStopped callers.
	OnStop func(*Source)
	// Logger receives scheduling traces at debug level and blocked starts
	// at warning level. Nil discards them.
	Logger logger.Logger
}

// scheduledIntent is a transport callback standing for the timeline event
// recorded at the same logical time.
type scheduledIntent struct {
	id clock.EventID
	at Seconds
}

// Source schedules start, stop and restart of a Unit on an audio context,
// optionally synced to the context's transport.
type Source struct {
	ctx   clock.Context
	unit  Unit
	state *timeline.StateTimeline
	log   logger.Logger

	id        string
	synced    bool
	scheduled []scheduledIntent
	listeners []clock.ListenerID
	onStop    func(*Source)
	disposed  bool
}

// New returns a stopped, unsynced Source. opts may be nil.
func New(ctx clock.Context, unit Unit, opts *Options) *Source {
	if opts == nil {
		opts = &Options{}
	}
	s := &Source{
		ctx:    ctx,
		unit:   unit,
		id:     opts.ID,
		onStop: opts.OnStop,
		log:    opts.Logger,
	}
	if s.id == "" {
		s.id = "a" + strconv.Itoa(rand.Intn(100))
	}
	if s.log == nil {
		s.log = logger.NewNopLogger()
	}
	memory := opts.Memory
	if memory <= 0 {
		memory = DefaultMemory
	}
	s.state = timeline.New(timeline.Stopped)
	s.state.Memory = memory
	s.state.Increasing = true
	return s
}

func (s *Source) ID() string { return s.id }

func (s *Source) SetID(id string) { s.id = id }

// Synced reports whether the source schedules against the transport.
func (s *Source) Synced() bool { return s.synced }

// Disposed reports whether Dispose has been called.
func (s *Source) Disposed() bool { return s.disposed }

// SetOnStop replaces the stop callback.
func (s *Source) SetOnStop(fn func(*Source)) { s.onStop = fn }

// State returns the playback state now. A synced source is stopped whenever
// the transport is not running.
func (s *Source) State() timeline.State {
	if s.synced {
		tr := s.ctx.Transport()
		if tr.State() == timeline.Started {
			return s.state.ValueAtTime(tr.Seconds())
		}
		return timeline.Stopped
	}
	return s.state.ValueAtTime(s.ctx.Now())
}

// StateAtTime returns the recorded state at t on the scheduling clock.
func (s *Source) StateAtTime(t Seconds) timeline.State {
	return s.state.ValueAtTime(t)
}

// Timeline returns a copy of the recorded events.
func (s *Source) Timeline() []timeline.Event {
	return s.state.Events()
}

// NextStart returns the first recorded start strictly after t.
func (s *Source) NextStart(t Seconds) (timeline.Event, bool) {
	return s.state.NextState(timeline.Started, t)
}

// clockNow is the current time on the scheduling clock.
func (s *Source) clockNow() Seconds {
	if s.synced {
		return s.ctx.Transport().Seconds()
	}
	return s.ctx.Now()
}

func (s *Source) resolve(at Time) Seconds {
	switch at.kind {
	case kindAt:
		return at.value
	case kindIn:
		return s.clockNow() + at.value
	}
	return s.clockNow()
}

// resolveClamped resolves at and, for an unsynced source, raises it to the
// context's current time.
func (s *Source) resolveClamped(at Time) Seconds {
	t := s.resolve(at)
	if !s.synced {
		t = math.Max(t, s.ctx.CurrentTime())
	}
	return t
}

// Start schedules playback at at from offset for duration.
//
// An unsynced start landing on an active span restarts the unit and must be
// strictly later than that span's start, or ErrStartOrder is returned. An
// unsynced fresh start requires a running context. Starts are recorded in
// non-decreasing time order; an earlier fresh start returns
// timeline.ErrOrderViolation. Failed calls change nothing.
func (s *Source) Start(at Time, offset, duration Seconds) error {
	if s.disposed {
		return ErrDisposed
	}
	t := s.resolveClamped(at)
	meta := timeline.Meta{Offset: offset, Duration: duration}

	if !s.synced && s.state.ValueAtTime(t) == timeline.Started {
		active, _ := s.state.Get(t)
		if !timeline.GT(t, active.Time) {
			return fmt.Errorf("source %s: %w: %.6f <= %.6f", s.id, ErrStartOrder, t, active.Time)
		}
		s.log.Debug("source.restart %s %.6f", s.id, t)
		s.cancelFrom(t)
		if err := s.state.SetStateAtTime(timeline.Started, t, meta); err != nil {
			return fmt.Errorf("source %s: restart at %.6f: %w", s.id, t, err)
		}
		s.unit.Restart(t, offset, duration)
		return nil
	}

	if !s.synced && s.ctx.State() != clock.Running {
		return fmt.Errorf("source %s: %w (%s)", s.id, ErrContextNotRunning, s.ctx.State())
	}
	s.log.Debug("source.start %s %.6f", s.id, t)
	if err := s.state.SetStateAtTime(timeline.Started, t, meta); err != nil {
		return fmt.Errorf("source %s: start at %.6f: %w", s.id, t, err)
	}
	if !s.synced {
		s.unit.Start(t, offset, duration)
		return nil
	}

	tr := s.ctx.Transport()
	s.schedule(func(fired Seconds) {
		if state := s.State(); state != timeline.Started {
			s.log.Warning("source %s: start at %.6f blocked, source is %s", s.id, t, state)
			return
		}
		s.unit.Start(fired, offset, duration)
	}, t)

	// a time the transport has already passed gets no callback this pass
	if tr.State() == timeline.Started && timeline.GT(tr.SecondsAtTime(s.ctx.CurrentTime()), t) {
		s.syncedStart(s.ctx.Now(), tr.Seconds())
	}
	return nil
}

// Stop schedules the end of playback at at. It is a no-op unless the
// source is started at that time or a later start is pending. Every
// recorded intent at or after the stop time is discarded.
func (s *Source) Stop(at Time) error {
	if s.disposed {
		return ErrDisposed
	}
	t := s.resolveClamped(at)
	_, pending := s.state.NextState(timeline.Started, t)
	if s.state.ValueAtTime(t) != timeline.Started && !pending {
		return nil
	}
	s.log.Debug("source.stop %s %.6f", s.id, t)
	s.cancelFrom(t)
	if err := s.state.SetStateAtTime(timeline.Stopped, t, timeline.Meta{}); err != nil {
		return fmt.Errorf("source %s: stop at %.6f: %w", s.id, t, err)
	}
	if s.synced {
		s.schedule(func(fired Seconds) {
			s.unit.Stop(fired)
		}, t)
	} else {
		s.unit.Stop(t)
	}
	return nil
}

// Restart restarts an active unit at at with a new offset and duration.
// Recorded intents after at are discarded; the active start stands. It is a
// no-op when the source is not started at at.
func (s *Source) Restart(at Time, offset, duration Seconds) error {
	if s.disposed {
		return ErrDisposed
	}
	t := s.resolve(at)
	if s.state.ValueAtTime(t) != timeline.Started {
		return nil
	}
	active, _ := s.state.Get(t)
	s.state.Cancel(t)
	if timeline.EQ(active.Time, t) {
		if err := s.state.SetStateAtTime(active.State, active.Time, active.Meta); err != nil {
			return fmt.Errorf("source %s: restart at %.6f: %w", s.id, t, err)
		}
		// the active start keeps its callback
		s.clearScheduled(func(when Seconds) bool { return timeline.GT(when, t) })
	} else {
		s.clearScheduled(func(when Seconds) bool { return timeline.GTE(when, t) })
	}
	s.log.Debug("source.restart %s %.6f", s.id, t)
	s.unit.Restart(t, offset, duration)
	return nil
}

// NotifyStopped is called by the unit when playback has ended at context
// time at. When implicit is true and the source is started at that time, an
// implicit-end stop is recorded. The stop callback runs either way.
func (s *Source) NotifyStopped(at Seconds, implicit bool) {
	if s.disposed {
		return
	}
	if implicit {
		t := at
		if s.synced {
			t = s.ctx.Transport().SecondsAtTime(at)
		}
		if s.state.ValueAtTime(t) == timeline.Started {
			s.cancelFrom(t)
			if err := s.state.SetStateAtTime(timeline.Stopped, t, timeline.Meta{ImplicitEnd: true}); err != nil {
				s.log.Error("source %s: implicit end at %.6f: %s", s.id, t, err.Error())
			}
		}
	}
	if s.onStop != nil {
		s.onStop(s)
	}
}

// Dispose unsyncs the source, silences the unit and releases the timeline.
// Later scheduling calls return ErrDisposed. Disposing twice is a no-op.
func (s *Source) Dispose() {
	if s.disposed {
		return
	}
	s.unsync()
	s.onStop = nil
	s.state.Dispose()
	s.disposed = true
}

// schedule registers fn on the transport at the logical time t.
func (s *Source) schedule(fn func(Seconds), t Seconds) {
	id := s.ctx.Transport().Schedule(fn, t)
	s.scheduled = append(s.scheduled, scheduledIntent{id: id, at: t})
}

// cancelFrom discards every intent at or after t, both the timeline events
// and their transport callbacks.
func (s *Source) cancelFrom(t Seconds) {
	s.state.Cancel(t)
	s.clearScheduled(func(when Seconds) bool { return timeline.GTE(when, t) })
}

// clearScheduled removes the transport callbacks whose time matches drop.
func (s *Source) clearScheduled(drop func(at Seconds) bool) {
	if len(s.scheduled) == 0 {
		return
	}
	tr := s.ctx.Transport()
	kept := s.scheduled[:0]
	for _, in := range s.scheduled {
		if drop(in.at) {
			tr.Clear(in.id)
			continue
		}
		kept = append(kept, in)
	}
	s.scheduled = kept
}
