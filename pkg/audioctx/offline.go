// Package audioctx provides the audio contexts sources schedule against.
//
// Offline is a deterministic context whose clock only moves when Advance is
// called. It owns a reference transport and a queue of context-time timers.
// Root holds the current context for an application, and Driver moves an
// Offline context along with the wall clock.
package audioctx

import (
	"math"

	"github.com/warpdl/cueline/internal/eventq"
	"github.com/warpdl/cueline/pkg/clock"
	"github.com/warpdl/cueline/pkg/logger"
	"github.com/warpdl/cueline/pkg/transport"
)

// Seconds is an alias of clock.Seconds.
type Seconds = clock.Seconds

const (
	// DefaultSampleRate is used when Options.SampleRate is zero.
	DefaultSampleRate = 44100
	// DefaultLookAhead is the default gap between CurrentTime and Now.
	DefaultLookAhead Seconds = 0.1
)

const maxAdvanceSteps = 100000

// Options configures an Offline context.
type Options struct {
	// SampleRate in Hz. Zero means DefaultSampleRate.
	SampleRate float64
	// LookAhead is added to CurrentTime by Now. Negative values disable
	// the lookahead; zero means DefaultLookAhead.
	LookAhead Seconds
	// Suspended creates the context in the suspended state.
	Suspended bool
	// Logger receives context and transport messages.
	Logger logger.Logger
}

// Offline is a manually advanced audio context.
// An Offline context is not safe for concurrent use.
type Offline struct {
	sampleRate float64
	lookAhead  Seconds
	state      clock.ContextState
	now        Seconds

	transport *transport.Transport
	timers    eventq.Queue
	lastTimer uint64
	log       logger.Logger
}

// NewOffline returns a context at time zero. opts may be nil.
func NewOffline(opts *Options) *Offline {
	if opts == nil {
		opts = &Options{}
	}
	o := &Offline{
		sampleRate: opts.SampleRate,
		lookAhead:  opts.LookAhead,
		state:      clock.Running,
		log:        opts.Logger,
	}
	if o.sampleRate <= 0 {
		o.sampleRate = DefaultSampleRate
	}
	switch {
	case o.lookAhead == 0:
		o.lookAhead = DefaultLookAhead
	case o.lookAhead < 0:
		o.lookAhead = 0
	}
	if opts.Suspended {
		o.state = clock.Suspended
	}
	if o.log == nil {
		o.log = logger.NewNopLogger()
	}
	o.transport = transport.New(o.log)
	return o
}

func (o *Offline) CurrentTime() Seconds { return o.now }

func (o *Offline) Now() Seconds { return o.now + o.lookAhead }

func (o *Offline) SampleTime() Seconds { return 1 / o.sampleRate }

func (o *Offline) SampleRate() float64 { return o.sampleRate }

func (o *Offline) LookAhead() Seconds { return o.lookAhead }

func (o *Offline) State() clock.ContextState { return o.state }

func (o *Offline) Transport() clock.Transport { return o.transport }

// Control returns the concrete transport for start, stop, loop and seek.
func (o *Offline) Control() *transport.Transport { return o.transport }

// At runs fn when the context reaches time t. fn receives the time it
// fired at. Times in the past fire on the next Advance.
func (o *Offline) At(t Seconds, fn func(Seconds)) uint64 {
	o.lastTimer++
	o.timers.Push(&eventq.Item{ID: o.lastTimer, At: t, Fn: fn})
	return o.lastTimer
}

// ClearTimer cancels a timer registered with At.
func (o *Offline) ClearTimer(id uint64) {
	o.timers.Remove(id)
}

// Pending returns the number of timers that have not fired.
func (o *Offline) Pending() int { return o.timers.Len() }

// Advance moves the context to time to, firing timers and driving the
// transport at every instant something is due along the way. Times at or
// before CurrentTime only flush work that is already due.
func (o *Offline) Advance(to Seconds) error {
	switch o.state {
	case clock.Closed:
		return ErrClosed
	case clock.Suspended:
		return ErrSuspended
	}
	if to < o.now {
		to = o.now
	}
	for step := 0; ; step++ {
		if step == maxAdvanceSteps {
			o.log.Error("audioctx: runaway callbacks at %.6f", o.now)
			return ErrRunaway
		}
		next, ok := o.next(to)
		if !ok {
			break
		}
		o.now = next
		o.fireTimers(next)
		o.transport.Process(next)
		if next >= to && !o.due(to) {
			break
		}
	}
	o.now = to
	o.transport.Process(to)
	return nil
}

func (o *Offline) next(limit Seconds) (Seconds, bool) {
	next := math.Inf(1)
	if it, ok := o.timers.Peek(); ok {
		next = math.Max(it.At, o.now)
	}
	if t, ok := o.transport.Next(limit); ok {
		next = math.Min(next, t)
	}
	if next > limit {
		return 0, false
	}
	return next, true
}

// due reports whether a timer is waiting at or before t.
func (o *Offline) due(t Seconds) bool {
	it, ok := o.timers.Peek()
	return ok && it.At <= t
}

func (o *Offline) fireTimers(t Seconds) {
	for {
		it, ok := o.timers.Peek()
		if !ok || it.At > t {
			return
		}
		o.timers.Pop()
		it.Fn(t)
	}
}

// Resume moves a suspended context to running.
func (o *Offline) Resume() error {
	if o.state == clock.Closed {
		return ErrClosed
	}
	o.state = clock.Running
	return nil
}

// Suspend freezes the context clock.
func (o *Offline) Suspend() error {
	if o.state == clock.Closed {
		return ErrClosed
	}
	o.state = clock.Suspended
	return nil
}

// Close releases the transport and drops pending timers. Closing twice is a
// no-op.
func (o *Offline) Close() error {
	if o.state == clock.Closed {
		return nil
	}
	o.state = clock.Closed
	o.timers.Reset()
	o.transport.Dispose()
	return nil
}

var _ clock.Context = (*Offline)(nil)
