// Package session bundles one offline audio context, its transport and a set
// of named sources whose hook calls are traced.
//
// A Session is the unit of work shared by the CLI, cue scripts and the
// JSON-RPC server. It is not safe for concurrent use; Guard serializes
// access for hosts that drive it from several goroutines.
package session

import (
	"fmt"
	"sync"

	"github.com/warpdl/cueline/pkg/audioctx"
	"github.com/warpdl/cueline/pkg/clock"
	"github.com/warpdl/cueline/pkg/logger"
	"github.com/warpdl/cueline/pkg/source"
	"github.com/warpdl/cueline/pkg/transport"
)

// Options configures a Session. The zero value is usable.
type Options struct {
	// Context configures the offline context.
	Context *audioctx.Options
	// Memory is the timeline retention of every source.
	Memory int
	// Logger receives hook traces at info level.
	Logger logger.Logger
	// Observers are notified of every hook call.
	Observers []Observer
}

// Session owns a context and the sources scheduled on it.
type Session struct {
	ctx       *audioctx.Offline
	log       logger.Logger
	memory    int
	sources   map[string]*source.Source
	order     []string
	trace     []Hook
	observers []Observer
}

// New returns a session with a fresh offline context. opts may be nil.
func New(opts *Options) *Session {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctxOpts := audioctx.Options{}
	if opts.Context != nil {
		ctxOpts = *opts.Context
	}
	if ctxOpts.Logger == nil {
		ctxOpts.Logger = log
	}
	return &Session{
		ctx:       audioctx.NewOffline(&ctxOpts),
		log:       log,
		memory:    opts.Memory,
		sources:   make(map[string]*source.Source),
		observers: append([]Observer(nil), opts.Observers...),
	}
}

// Context returns the session's audio context.
func (s *Session) Context() *audioctx.Offline { return s.ctx }

// Transport returns the session's transport.
func (s *Session) Transport() *transport.Transport { return s.ctx.Control() }

// AddObserver registers o for hook notifications.
func (s *Session) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Source returns the source called name, creating it on first use.
func (s *Session) Source(name string) (*source.Source, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if src, ok := s.sources[name]; ok {
		return src, nil
	}
	src := source.New(s.ctx, traceUnit{s: s, name: name}, &source.Options{
		ID:     name,
		Memory: s.memory,
		Logger: s.log,
	})
	s.sources[name] = src
	s.order = append(s.order, name)
	return src, nil
}

// Lookup returns an existing source.
func (s *Session) Lookup(name string) (*source.Source, error) {
	src, ok := s.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return src, nil
}

// Remove disposes and forgets a source.
func (s *Session) Remove(name string) error {
	src, err := s.Lookup(name)
	if err != nil {
		return err
	}
	src.Dispose()
	delete(s.sources, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Names returns the source names in creation order.
func (s *Session) Names() []string {
	return append([]string(nil), s.order...)
}

// Trace returns a copy of every hook call so far.
func (s *Session) Trace() []Hook {
	return append([]Hook(nil), s.trace...)
}

func (s *Session) CurrentTime() clock.Seconds { return s.ctx.CurrentTime() }

// Advance moves the context, and with it the transport, to time to.
func (s *Session) Advance(to clock.Seconds) error {
	return s.ctx.Advance(to)
}

func (s *Session) record(h Hook) {
	h.Seq = len(s.trace) + 1
	h.Context = s.ctx.CurrentTime()
	h.Position = s.ctx.Transport().Seconds()
	s.trace = append(s.trace, h)
	s.log.Info("hook %s", h)
	for _, o := range s.observers {
		o.Observe(h)
	}
}

// Close disposes every source and closes the context.
func (s *Session) Close() error {
	for _, name := range s.order {
		s.sources[name].Dispose()
	}
	return s.ctx.Close()
}

// Guard serializes access to a Session.
type Guard struct {
	mu sync.Mutex
	s  *Session
}

// NewGuard wraps s.
func NewGuard(s *Session) *Guard {
	return &Guard{s: s}
}

// Do runs fn with exclusive access to the session.
func (g *Guard) Do(fn func(*Session) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.s)
}

func (g *Guard) CurrentTime() clock.Seconds {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.CurrentTime()
}

// Advance advances the session under the lock.
func (g *Guard) Advance(to clock.Seconds) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.Advance(to)
}

var _ audioctx.Advancer = (*Guard)(nil)
