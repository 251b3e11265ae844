package session

import (
	"fmt"

	"github.com/warpdl/cueline/pkg/clock"
)

// Hook kinds.
const (
	HookStart   = "start"
	HookStop    = "stop"
	HookRestart = "restart"
)

// Hook is one unit hook invocation.
type Hook struct {
	Seq      int           `json:"seq"`
	Source   string        `json:"source"`
	Kind     string        `json:"kind"`
	Time     clock.Seconds `json:"time"`
	Offset   clock.Seconds `json:"offset"`
	Duration clock.Seconds `json:"duration"`
	// Context is the context time the hook was invoked at.
	Context clock.Seconds `json:"context"`
	// Position is the transport position at invocation.
	Position clock.Seconds `json:"position"`
}

func (h Hook) String() string {
	switch h.Kind {
	case HookStop:
		return fmt.Sprintf("#%d %s %s @%.3f", h.Seq, h.Source, h.Kind, h.Time)
	default:
		return fmt.Sprintf("#%d %s %s @%.3f offset=%.3f duration=%.3f", h.Seq, h.Source, h.Kind, h.Time, h.Offset, h.Duration)
	}
}

// Observer is notified of every hook invocation.
type Observer interface {
	Observe(h Hook)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Hook)

func (f ObserverFunc) Observe(h Hook) { f(h) }

// traceUnit is the unit behind every session source. It records each hook
// call instead of producing sound.
type traceUnit struct {
	s    *Session
	name string
}

func (u traceUnit) Start(time, offset, duration clock.Seconds) {
	u.s.record(Hook{Source: u.name, Kind: HookStart, Time: time, Offset: offset, Duration: duration})
}

func (u traceUnit) Stop(time clock.Seconds) {
	u.s.record(Hook{Source: u.name, Kind: HookStop, Time: time})
}

func (u traceUnit) Restart(time, offset, duration clock.Seconds) {
	u.s.record(Hook{Source: u.name, Kind: HookRestart, Time: time, Offset: offset, Duration: duration})
}
