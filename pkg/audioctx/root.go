package audioctx

import (
	"sync"

	"github.com/warpdl/cueline/pkg/clock"
)

// Context is a clock.Context whose lifecycle can be controlled.
type Context interface {
	clock.Context
	Resume() error
	Close() error
}

// Root holds the current context of an application. Components that are not
// handed a context explicitly ask the Root for one, and the Root creates it
// lazily on first use.
//
// A Root is safe for concurrent use.
type Root struct {
	mu      sync.Mutex
	current Context
	factory func() Context
}

// NewRoot returns a Root that creates its first context with factory. A nil
// factory creates a default Offline context.
func NewRoot(factory func() Context) *Root {
	if factory == nil {
		factory = func() Context { return NewOffline(nil) }
	}
	return &Root{factory: factory}
}

// Context returns the current context, creating it if needed.
func (r *Root) Context() Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		r.current = r.factory()
	}
	return r.current
}

// Set replaces the current context. When disposeOld is true the previous
// context is closed.
func (r *Root) Set(ctx Context, disposeOld bool) error {
	r.mu.Lock()
	old := r.current
	r.current = ctx
	r.mu.Unlock()
	if disposeOld && old != nil && old != ctx {
		return old.Close()
	}
	return nil
}

// Resume resumes the current context, creating it if needed.
func (r *Root) Resume() error {
	return r.Context().Resume()
}

// Close closes the current context, if any, and forgets it.
func (r *Root) Close() error {
	r.mu.Lock()
	old := r.current
	r.current = nil
	r.mu.Unlock()
	if old == nil {
		return nil
	}
	return old.Close()
}
