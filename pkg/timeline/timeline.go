package timeline

import (
	"fmt"
	"sort"
)

// Seconds is a point in time, or a length of time, in seconds.
type Seconds = float64

// State is a discrete playback state recorded on a timeline.
type State string

const (
	Started State = "started"
	Stopped State = "stopped"
	Paused  State = "paused"
)

func (s State) String() string { return string(s) }

// Meta holds the optional fields attached to an event when it is written.
type Meta struct {
	// Offset is the playback offset into the unit's content at the moment
	// it starts.
	Offset Seconds
	// Duration is the intended play duration. Zero means the unit plays
	// until it is explicitly stopped.
	Duration Seconds
	// ImplicitEnd marks a stop caused by the content running out rather
	// than an explicit stop call.
	ImplicitEnd bool
}

// Event is a single state change on a StateTimeline.
type Event struct {
	Time  Seconds
	State State
	Meta
}

// StateTimeline is an ordered log of state events.
//
// A StateTimeline is not safe for concurrent use.
type StateTimeline struct {
	// Memory bounds the number of retained events. When an insert pushes
	// the length past Memory, the oldest events are dropped. Zero keeps
	// every event.
	Memory int
	// Increasing rejects writes that land before the last stored event.
	Increasing bool

	initial State
	events  []Event
}

// New returns an empty timeline whose value before the first event is
// initial.
func New(initial State) *StateTimeline {
	return &StateTimeline{initial: initial}
}

// Initial returns the state reported before any event.
func (t *StateTimeline) Initial() State { return t.initial }

// Len returns the number of retained events.
func (t *StateTimeline) Len() int { return len(t.events) }

// SetStateAtTime records state at time with the given metadata.
//
// Events at the same time keep their write order, so the most recent write
// wins a point query. On an increasing timeline a time earlier than the last
// stored event returns ErrOrderViolation and leaves the timeline untouched.
func (t *StateTimeline) SetStateAtTime(state State, time Seconds, meta Meta) error {
	ev := Event{Time: time, State: state, Meta: meta}
	if t.Increasing && len(t.events) > 0 {
		last := t.events[len(t.events)-1]
		if LT(time, last.Time) {
			return fmt.Errorf("%w: %.6f < %.6f", ErrOrderViolation, time, last.Time)
		}
		t.events = append(t.events, ev)
	} else {
		idx := t.search(time) + 1
		t.events = append(t.events, Event{})
		copy(t.events[idx+1:], t.events[idx:])
		t.events[idx] = ev
	}
	t.trim()
	return nil
}

// trim enforces the retention bound.
func (t *StateTimeline) trim() {
	if t.Memory <= 0 || len(t.events) <= t.Memory {
		return
	}
	diff := len(t.events) - t.Memory
	t.events = append(t.events[:0], t.events[diff:]...)
}

// search returns the index of the last event at or before time, or -1.
func (t *StateTimeline) search(time Seconds) int {
	i := sort.Search(len(t.events), func(i int) bool {
		return GT(t.events[i].Time, time)
	})
	return i - 1
}

// Get returns the event in effect at time.
func (t *StateTimeline) Get(time Seconds) (Event, bool) {
	idx := t.search(time)
	if idx < 0 {
		return Event{}, false
	}
	return t.events[idx], true
}

// ValueAtTime returns the state in effect at time, or the initial state
// when time precedes every event.
func (t *StateTimeline) ValueAtTime(time Seconds) State {
	ev, ok := t.Get(time)
	if !ok {
		return t.initial
	}
	return ev.State
}

// NextState returns the first event strictly after time whose state is
// state.
func (t *StateTimeline) NextState(state State, time Seconds) (Event, bool) {
	for i := t.search(time) + 1; i < len(t.events); i++ {
		if t.events[i].State == state {
			return t.events[i], true
		}
	}
	return Event{}, false
}

// LastState returns the most recent event at or before time whose state is
// state.
func (t *StateTimeline) LastState(state State, time Seconds) (Event, bool) {
	for i := t.search(time); i >= 0; i-- {
		if t.events[i].State == state {
			return t.events[i], true
		}
	}
	return Event{}, false
}

// Cancel removes every event at or after time.
func (t *StateTimeline) Cancel(time Seconds) {
	i := sort.Search(len(t.events), func(i int) bool {
		return GTE(t.events[i].Time, time)
	})
	for j := i; j < len(t.events); j++ {
		t.events[j] = Event{}
	}
	t.events = t.events[:i]
}

// CancelBefore removes every event at or before time.
func (t *StateTimeline) CancelBefore(time Seconds) {
	idx := t.search(time)
	if idx < 0 {
		return
	}
	t.events = append(t.events[:0], t.events[idx+1:]...)
}

// Events returns a copy of the retained events in time order.
func (t *StateTimeline) Events() []Event {
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Dispose discards every event.
func (t *StateTimeline) Dispose() {
	t.events = nil
}
