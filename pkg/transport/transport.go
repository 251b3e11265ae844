// Package transport implements a reference logical clock that can be
// started, stopped, paused, looped and seeked independently of the context
// clock driving it.
//
// A Transport does not read any clock on its own. The owning context calls
// Next to learn when the transport needs attention and Process to hand it
// control at that context time. Scheduled callbacks stay registered until
// they are cleared, so a callback inside a loop window fires once per pass.
package transport

import (
	"math"
	"sort"

	"github.com/warpdl/cueline/internal/eventq"
	"github.com/warpdl/cueline/pkg/clock"
	"github.com/warpdl/cueline/pkg/logger"
	"github.com/warpdl/cueline/pkg/timeline"
)

// Seconds is an alias of clock.Seconds.
type Seconds = clock.Seconds

// historyMemory bounds the retained position anchors. Every loop pass adds
// one, so the bound only affects queries far in the past.
const historyMemory = 1000

// maxSteps bounds the work done in a single Process call. It is only hit
// when callbacks keep rescheduling themselves at the current position.
const maxSteps = 10000

type event struct {
	id   clock.EventID
	at   Seconds
	cb   func(Seconds)
	once bool
}

type registration struct {
	id clock.ListenerID
	ev clock.TransportEvent
	l  clock.Listener
}

type request struct {
	kind      timeline.State
	at        Seconds
	offset    Seconds
	hasOffset bool
}

// Transport is a logical clock driven by an audio context.
// A Transport is not safe for concurrent use.
type Transport struct {
	log logger.Logger

	now     Seconds
	states  *timeline.StateTimeline
	pending []request

	loop      bool
	loopStart Seconds
	loopEnd   Seconds

	scheduled []*event
	pass      eventq.Queue
	lastEvent clock.EventID

	listeners    []registration
	lastListener clock.ListenerID
}

// New returns a stopped transport positioned at zero. A nil log discards
// messages.
func New(log logger.Logger) *Transport {
	if log == nil {
		log = logger.NewNopLogger()
	}
	states := timeline.New(timeline.Stopped)
	states.Increasing = true
	states.Memory = historyMemory
	return &Transport{log: log, states: states}
}

// State returns the transport state at the last processed context time.
func (tr *Transport) State() timeline.State {
	return tr.states.ValueAtTime(tr.now)
}

// Seconds returns the position at the last processed context time.
func (tr *Transport) Seconds() Seconds {
	return tr.SecondsAtTime(tr.now)
}

// SecondsAtTime converts context time t into a transport position. Pending
// start, stop and pause requests after the last processed time are not
// taken into account; loop wraps are.
func (tr *Transport) SecondsAtTime(t Seconds) Seconds {
	ev, ok := tr.states.Get(t)
	if !ok {
		return 0
	}
	if ev.State != timeline.Started {
		return ev.Offset
	}
	pos := ev.Offset + (t - ev.Time)
	if tr.loop && pos >= tr.loopEnd {
		wrapAt := ev.Time + math.Max(0, tr.loopEnd-ev.Offset)
		pos = tr.loopStart + math.Mod(t-wrapAt, tr.loopEnd-tr.loopStart)
	}
	return pos
}

// Loop reports the loop window and whether looping is enabled.
func (tr *Transport) Loop() (start, end Seconds, enabled bool) {
	return tr.loopStart, tr.loopEnd, tr.loop
}

// SetLoop enables looping over [start, end).
func (tr *Transport) SetLoop(start, end Seconds) error {
	if !timeline.GT(end, start) {
		return ErrInvalidLoop
	}
	tr.loop = true
	tr.loopStart = start
	tr.loopEnd = end
	return nil
}

// DisableLoop turns looping off. The loop window is kept.
func (tr *Transport) DisableLoop() {
	tr.loop = false
}

// Start starts the transport at context time at, resuming from the position
// it holds at that time. Times at or before the last processed time take
// effect immediately.
func (tr *Transport) Start(at Seconds) {
	tr.submit(request{kind: timeline.Started, at: at})
}

// StartFrom starts the transport at context time at from position offset.
func (tr *Transport) StartFrom(at, offset Seconds) {
	tr.submit(request{kind: timeline.Started, at: at, offset: offset, hasOffset: true})
}

// Stop stops the transport at context time at and rewinds it to zero.
func (tr *Transport) Stop(at Seconds) {
	tr.submit(request{kind: timeline.Stopped, at: at})
}

// Pause pauses the transport at context time at, holding its position.
func (tr *Transport) Pause(at Seconds) {
	tr.submit(request{kind: timeline.Paused, at: at})
}

// Seek moves the transport to pos at the last processed time. A running
// transport emits stop followed by start.
func (tr *Transport) Seek(pos Seconds) error {
	if pos < 0 {
		return ErrNegativePosition
	}
	state := tr.State()
	if state != timeline.Started {
		tr.setState(state, tr.now, pos)
		return nil
	}
	tr.emit(clock.EventStop, tr.now, 0)
	tr.setState(timeline.Started, tr.now, pos)
	tr.rearm(pos)
	tr.emit(clock.EventStart, tr.now, pos)
	return nil
}

func (tr *Transport) submit(req request) {
	if !timeline.GT(req.at, tr.now) {
		tr.apply(req, tr.now)
		return
	}
	i := sort.Search(len(tr.pending), func(i int) bool {
		return tr.pending[i].at > req.at
	})
	tr.pending = append(tr.pending, request{})
	copy(tr.pending[i+1:], tr.pending[i:])
	tr.pending[i] = req
}

func (tr *Transport) apply(req request, t Seconds) {
	current := tr.states.ValueAtTime(t)
	switch req.kind {
	case timeline.Started:
		offset := req.offset
		if !req.hasOffset {
			offset = tr.SecondsAtTime(t)
		}
		tr.setState(timeline.Started, t, offset)
		tr.rearm(offset)
		tr.emit(clock.EventStart, t, offset)
	case timeline.Stopped:
		if current == timeline.Stopped {
			return
		}
		tr.setState(timeline.Stopped, t, 0)
		tr.pass.Reset()
		tr.emit(clock.EventStop, t, 0)
	case timeline.Paused:
		if current != timeline.Started {
			return
		}
		tr.setState(timeline.Paused, t, tr.SecondsAtTime(t))
		tr.pass.Reset()
		tr.emit(clock.EventPause, t, 0)
	}
}

func (tr *Transport) setState(state timeline.State, t, offset Seconds) {
	if err := tr.states.SetStateAtTime(state, t, timeline.Meta{Offset: offset}); err != nil {
		tr.log.Error("transport: recording %s at %.6f: %s", state, t, err.Error())
	}
}

// rearm refills the pass queue with every callback at or after pos.
func (tr *Transport) rearm(pos Seconds) {
	tr.pass.Reset()
	for _, ev := range tr.scheduled {
		if timeline.GTE(ev.at, pos) {
			tr.pass.Push(&eventq.Item{ID: uint64(ev.id), At: ev.at, Fn: ev.cb})
		}
	}
}

// Schedule registers cb to run whenever the transport reaches position at.
func (tr *Transport) Schedule(cb func(Seconds), at Seconds) clock.EventID {
	return tr.add(cb, at, false)
}

// ScheduleOnce registers cb to run the first time the transport reaches
// position at. The callback is cleared after it fires.
func (tr *Transport) ScheduleOnce(cb func(Seconds), at Seconds) clock.EventID {
	return tr.add(cb, at, true)
}

func (tr *Transport) add(cb func(Seconds), at Seconds, once bool) clock.EventID {
	tr.lastEvent++
	ev := &event{id: tr.lastEvent, at: at, cb: cb, once: once}
	tr.scheduled = append(tr.scheduled, ev)
	if tr.State() == timeline.Started && timeline.GTE(at, tr.Seconds()) {
		tr.pass.Push(&eventq.Item{ID: uint64(ev.id), At: at, Fn: cb})
	}
	return ev.id
}

// Clear cancels a scheduled callback. Unknown ids are ignored.
func (tr *Transport) Clear(id clock.EventID) {
	for i, ev := range tr.scheduled {
		if ev.id == id {
			tr.scheduled = append(tr.scheduled[:i], tr.scheduled[i+1:]...)
			break
		}
	}
	tr.pass.Remove(uint64(id))
}

// Scheduled returns the number of registered callbacks.
func (tr *Transport) Scheduled() int { return len(tr.scheduled) }

func (tr *Transport) lookup(id clock.EventID) (*event, bool) {
	for _, ev := range tr.scheduled {
		if ev.id == id {
			return ev, true
		}
	}
	return nil, false
}

// On registers l for ev.
func (tr *Transport) On(ev clock.TransportEvent, l clock.Listener) clock.ListenerID {
	tr.lastListener++
	tr.listeners = append(tr.listeners, registration{id: tr.lastListener, ev: ev, l: l})
	return tr.lastListener
}

// Off removes a listener registration. Unknown ids are ignored.
func (tr *Transport) Off(id clock.ListenerID) {
	for i, r := range tr.listeners {
		if r.id == id {
			tr.listeners = append(tr.listeners[:i], tr.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of live listener registrations.
func (tr *Transport) Listeners() int { return len(tr.listeners) }

func (tr *Transport) registered(id clock.ListenerID) bool {
	for _, r := range tr.listeners {
		if r.id == id {
			return true
		}
	}
	return false
}

// emit delivers ev to a snapshot of its listeners. Listeners removed by an
// earlier listener in the same emission are skipped.
func (tr *Transport) emit(ev clock.TransportEvent, t, offset Seconds) {
	tr.log.Debug("transport: %s at %.6f offset %.6f", ev, t, offset)
	var targets []registration
	for _, r := range tr.listeners {
		if r.ev == ev {
			targets = append(targets, r)
		}
	}
	for _, r := range targets {
		if tr.registered(r.id) {
			r.l.TransportEvent(ev, t, offset)
		}
	}
}

// Next returns the earliest context time, between the last processed time
// and limit inclusive, at which the transport has work to do.
func (tr *Transport) Next(limit Seconds) (Seconds, bool) {
	next := math.Inf(1)
	if len(tr.pending) > 0 {
		next = tr.pending[0].at
	}
	if anchor, ok := tr.anchor(); ok {
		if tr.loop {
			next = math.Min(next, anchor.Time+(tr.loopEnd-anchor.Offset))
		}
		if it, ok := tr.pass.Peek(); ok && (!tr.loop || timeline.LT(it.At, tr.loopEnd)) {
			next = math.Min(next, anchor.Time+(it.At-anchor.Offset))
		}
	}
	next = math.Max(next, tr.now)
	if timeline.GT(next, limit) {
		return 0, false
	}
	return math.Min(next, limit), true
}

// anchor returns the started event in effect at the last processed time.
func (tr *Transport) anchor() (timeline.Event, bool) {
	ev, ok := tr.states.Get(tr.now)
	if !ok || ev.State != timeline.Started {
		return timeline.Event{}, false
	}
	return ev, true
}

// Process advances the transport to context time t, applying due requests,
// loop wraps and callbacks. Callbacks that came due at t run after any
// request due at t, so they observe the state it produced.
func (tr *Transport) Process(t Seconds) {
	if t > tr.now {
		tr.now = t
	}
	for step := 0; step < maxSteps; step++ {
		due := tr.popDue(t)
		applied := tr.applyPending(t)
		for _, ev := range due {
			if ev.once {
				tr.Clear(ev.id)
			}
			ev.cb(t)
		}
		wrapped := tr.wrap(t)
		if len(due) == 0 && !applied && !wrapped {
			return
		}
	}
	tr.log.Error("transport: gave up processing at %.6f after %d steps", t, maxSteps)
}

func (tr *Transport) popDue(t Seconds) []*event {
	anchor, ok := tr.anchor()
	if !ok {
		return nil
	}
	pos := anchor.Offset + (t - anchor.Time)
	var due []*event
	for {
		it, ok := tr.pass.Peek()
		if !ok || timeline.GT(it.At, pos) || (tr.loop && timeline.GTE(it.At, tr.loopEnd)) {
			break
		}
		tr.pass.Pop()
		if ev, ok := tr.lookup(clock.EventID(it.ID)); ok {
			due = append(due, ev)
		}
	}
	return due
}

func (tr *Transport) applyPending(t Seconds) bool {
	applied := false
	for len(tr.pending) > 0 && !timeline.GT(tr.pending[0].at, t) {
		req := tr.pending[0]
		tr.pending = tr.pending[1:]
		tr.apply(req, t)
		applied = true
	}
	return applied
}

func (tr *Transport) wrap(t Seconds) bool {
	if !tr.loop {
		return false
	}
	anchor, ok := tr.anchor()
	if !ok || timeline.LT(anchor.Offset+(t-anchor.Time), tr.loopEnd) {
		return false
	}
	tr.emit(clock.EventLoopEnd, t, 0)
	if tr.State() != timeline.Started || !tr.loop {
		return true
	}
	tr.setState(timeline.Started, t, tr.loopStart)
	tr.rearm(tr.loopStart)
	tr.emit(clock.EventLoopStart, t, tr.loopStart)
	return true
}

// Dispose drops every callback, listener and pending request and rewinds
// the transport.
func (tr *Transport) Dispose() {
	tr.scheduled = nil
	tr.pass.Reset()
	tr.listeners = nil
	tr.pending = nil
	tr.states.Dispose()
}

var _ clock.Transport = (*Transport)(nil)
