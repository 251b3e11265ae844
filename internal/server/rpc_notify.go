package server

import (
	"context"
	"sort"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/warpdl/cueline/internal/session"
	"github.com/warpdl/cueline/pkg/logger"
)

// RPCNotifier tracks the websocket clients of a session and pushes hook
// calls to them. A client may narrow its pushes to a set of sources with
// session.subscribe.
type RPCNotifier struct {
	mu      sync.RWMutex
	clients map[*jrpc2.Server]*subscription
	log     logger.Logger
}

// subscription is the source filter of one client. A nil set matches every
// source.
type subscription struct {
	sources map[string]struct{}
}

func (sub *subscription) wants(name string) bool {
	if sub.sources == nil {
		return true
	}
	_, ok := sub.sources[name]
	return ok
}

// NewRPCNotifier creates a notifier. l may be nil.
func NewRPCNotifier(l logger.Logger) *RPCNotifier {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &RPCNotifier{
		clients: make(map[*jrpc2.Server]*subscription),
		log:     l,
	}
}

// Register adds a client receiving every hook. Registering twice keeps the
// existing filter.
func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.clients[srv]; !ok {
		n.clients[srv] = &subscription{}
	}
}

// Unregister forgets a client.
func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.clients, srv)
}

// Subscribe limits the hooks pushed to srv to the named sources. An empty
// list restores every source. srv must be registered.
func (n *RPCNotifier) Subscribe(srv *jrpc2.Server, sources []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	sub, ok := n.clients[srv]
	if !ok {
		return ErrNoPushChannel
	}
	if len(sources) == 0 {
		sub.sources = nil
		return nil
	}
	sub.sources = make(map[string]struct{}, len(sources))
	for _, name := range sources {
		sub.sources[name] = struct{}{}
	}
	return nil
}

// Subscription returns the sources srv is subscribed to, sorted, or nil when
// it receives every source.
func (n *RPCNotifier) Subscription(srv *jrpc2.Server) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	sub, ok := n.clients[srv]
	if !ok || sub.sources == nil {
		return nil
	}
	out := make([]string, 0, len(sub.sources))
	for name := range sub.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Broadcast pushes method to every client regardless of its filter.
func (n *RPCNotifier) Broadcast(method string, params any) {
	n.push(method, params, func(*subscription) bool { return true })
}

// Observe pushes h as a unit.hook notification to the clients subscribed to
// its source.
func (n *RPCNotifier) Observe(h session.Hook) {
	n.push(HookNotification, h, func(sub *subscription) bool { return sub.wants(h.Source) })
}

// push notifies the matching clients. Clients whose push fails are
// dropped.
func (n *RPCNotifier) push(method string, params any, match func(*subscription) bool) {
	n.mu.RLock()
	targets := make([]*jrpc2.Server, 0, len(n.clients))
	for srv, sub := range n.clients {
		if match(sub) {
			targets = append(targets, srv)
		}
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range targets {
		if err := srv.Notify(context.Background(), method, params); err != nil {
			n.log.Warning("rpc: push %s failed: %s", method, err.Error())
			failed = append(failed, srv)
		}
	}
	if len(failed) == 0 {
		return
	}
	n.mu.Lock()
	for _, srv := range failed {
		delete(n.clients, srv)
	}
	n.mu.Unlock()
}

// Count returns the number of connected clients.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.clients)
}

var _ session.Observer = (*RPCNotifier)(nil)
