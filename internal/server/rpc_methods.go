package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/cueline/internal/session"
	"github.com/warpdl/cueline/pkg/audioctx"
	"github.com/warpdl/cueline/pkg/logger"
	"github.com/warpdl/cueline/pkg/source"
	"github.com/warpdl/cueline/pkg/timeline"
	"github.com/warpdl/cueline/pkg/transport"
)

// Custom JSON-RPC error codes for scheduling operations.
const (
	codeUnknownSource     = jrpc2.Code(-32001)
	codeDisposed          = jrpc2.Code(-32002)
	codeOrdering          = jrpc2.Code(-32003)
	codeContextNotRunning = jrpc2.Code(-32004)
	codeNoPushChannel     = jrpc2.Code(-32005)
	codeInvalidParams     = jrpc2.Code(-32602)
)

// HookNotification is the push method sent for every unit hook call.
const HookNotification = "unit.hook"

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // Auth token (required -- empty means every request is rejected)
	Version   string
	Commit    string
	BuildType string
}

// RPCServer exposes a session over JSON-RPC 2.0.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	guard     *session.Guard
	notifier  *RPCNotifier
	log       logger.Logger
	secret    string
	version   string
	commit    string
	buildType string
}

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// ClockResult describes the context and transport clocks.
type ClockResult struct {
	CurrentTime float64 `json:"currentTime"`
	Position    float64 `json:"position"`
	Transport   string  `json:"transport"`
	Context     string  `json:"context"`
}

// AdvanceParams is the input for context.advance.
type AdvanceParams struct {
	To float64 `json:"to"`
}

// TransportParams is the input for transport.start, transport.stop and
// transport.pause. A missing time means the context's Now.
type TransportParams struct {
	Time   *float64 `json:"time,omitempty"`
	Offset *float64 `json:"offset,omitempty"`
}

// SeekParams is the input for transport.seek.
type SeekParams struct {
	Position float64 `json:"position"`
}

// LoopParams is the input for transport.loop.
type LoopParams struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SourceParams is the input for the source.* methods. A missing time means
// the source's scheduling clock now.
type SourceParams struct {
	Name     string   `json:"name"`
	Time     *float64 `json:"time,omitempty"`
	Offset   float64  `json:"offset,omitempty"`
	Duration float64  `json:"duration,omitempty"`
}

// SourceResult describes one source.
type SourceResult struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Synced bool   `json:"synced"`
}

// SourceListResult is the response for source.list.
type SourceListResult struct {
	Sources []*SourceResult `json:"sources"`
}

// EventItem is one timeline event.
type EventItem struct {
	Time        float64 `json:"time"`
	State       string  `json:"state"`
	Offset      float64 `json:"offset,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	ImplicitEnd bool    `json:"implicitEnd,omitempty"`
}

// TimelineResult is the response for source.timeline.
type TimelineResult struct {
	Name   string       `json:"name"`
	Events []*EventItem `json:"events"`
}

// TraceResult is the response for session.trace.
type TraceResult struct {
	Hooks []session.Hook `json:"hooks"`
}

// SubscribeParams is the input for session.subscribe. An empty list
// subscribes to every source.
type SubscribeParams struct {
	Sources []string `json:"sources"`
}

// SubscribeResult lists the sources a client receives hooks for. An empty
// list means every source.
type SubscribeResult struct {
	Sources []string `json:"sources"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}

// NewRPCServer creates an RPCServer over g. Hook calls are pushed through n
// when it is not nil.
func NewRPCServer(cfg *RPCConfig, g *session.Guard, n *RPCNotifier, l logger.Logger) *RPCServer {
	if l == nil {
		l = logger.NewNopLogger()
	}
	rs := &RPCServer{
		guard:     g,
		notifier:  n,
		log:       l,
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
	}

	rs.methods = handler.Map{
		"system.getVersion": handler.New(rs.systemGetVersion),
		"context.time":      handler.New(rs.contextTime),
		"context.advance":   handler.New(rs.contextAdvance),
		"context.suspend":   handler.New(rs.contextSuspend),
		"context.resume":    handler.New(rs.contextResume),
		"transport.start":   handler.New(rs.transportStart),
		"transport.stop":    handler.New(rs.transportStop),
		"transport.pause":   handler.New(rs.transportPause),
		"transport.seek":    handler.New(rs.transportSeek),
		"transport.loop":    handler.New(rs.transportLoop),
		"transport.noLoop":  handler.New(rs.transportNoLoop),
		"source.create":     handler.New(rs.sourceCreate),
		"source.start":      handler.New(rs.sourceStart),
		"source.stop":       handler.New(rs.sourceStop),
		"source.restart":    handler.New(rs.sourceRestart),
		"source.sync":       handler.New(rs.sourceSync),
		"source.unsync":     handler.New(rs.sourceUnsync),
		"source.dispose":    handler.New(rs.sourceDispose),
		"source.state":      handler.New(rs.sourceState),
		"source.timeline":   handler.New(rs.sourceTimeline),
		"source.list":       handler.New(rs.sourceList),
		"session.trace":     handler.New(rs.sessionTrace),
		"session.subscribe": handler.New(rs.sessionSubscribe),
	}

	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// Handler returns the HTTP handler serving /jsonrpc and /jsonrpc/ws, both
// behind bearer token authentication.
func (rs *RPCServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/jsonrpc", rs.authorize(rs.bridge))
	mux.Handle("/jsonrpc/ws", rs.authorize(http.HandlerFunc(rs.serveWS)))
	return mux
}

// rpcError maps a scheduling error onto a JSON-RPC error.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	code := jrpc2.Code(0)
	switch {
	case errors.Is(err, session.ErrUnknownSource):
		code = codeUnknownSource
	case errors.Is(err, source.ErrDisposed):
		code = codeDisposed
	case errors.Is(err, timeline.ErrOrderViolation), errors.Is(err, source.ErrStartOrder):
		code = codeOrdering
	case errors.Is(err, source.ErrContextNotRunning),
		errors.Is(err, audioctx.ErrSuspended),
		errors.Is(err, audioctx.ErrClosed):
		code = codeContextNotRunning
	case errors.Is(err, ErrNoPushChannel):
		code = codeNoPushChannel
	case errors.Is(err, session.ErrEmptyName),
		errors.Is(err, transport.ErrInvalidLoop),
		errors.Is(err, transport.ErrNegativePosition):
		code = codeInvalidParams
	default:
		return err
	}
	return &jrpc2.Error{Code: code, Message: err.Error()}
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*VersionResult, error) {
	return &VersionResult{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.buildType,
	}, nil
}

func clockOf(s *session.Session) *ClockResult {
	return &ClockResult{
		CurrentTime: s.CurrentTime(),
		Position:    s.Transport().Seconds(),
		Transport:   s.Transport().State().String(),
		Context:     string(s.Context().State()),
	}
}

// contextTime reports both clocks.
func (rs *RPCServer) contextTime(_ context.Context) (*ClockResult, error) {
	var res *ClockResult
	_ = rs.guard.Do(func(s *session.Session) error {
		res = clockOf(s)
		return nil
	})
	return res, nil
}

// contextAdvance moves the context to p.To. Times in the past are ignored.
func (rs *RPCServer) contextAdvance(_ context.Context, p *AdvanceParams) (*ClockResult, error) {
	var res *ClockResult
	err := rs.guard.Do(func(s *session.Session) error {
		if err := s.Advance(p.To); err != nil {
			return err
		}
		res = clockOf(s)
		return nil
	})
	return res, rpcError(err)
}

func (rs *RPCServer) contextSuspend(_ context.Context) (*EmptyResult, error) {
	err := rs.guard.Do(func(s *session.Session) error {
		return s.Context().Suspend()
	})
	return &EmptyResult{}, rpcError(err)
}

func (rs *RPCServer) contextResume(_ context.Context) (*EmptyResult, error) {
	err := rs.guard.Do(func(s *session.Session) error {
		return s.Context().Resume()
	})
	return &EmptyResult{}, rpcError(err)
}

// ctxTime returns t, or the context's Now when t is missing.
func ctxTime(s *session.Session, t *float64) float64 {
	if t == nil {
		return s.Context().Now()
	}
	return *t
}

func (rs *RPCServer) transportStart(_ context.Context, p *TransportParams) (*ClockResult, error) {
	var res *ClockResult
	_ = rs.guard.Do(func(s *session.Session) error {
		at := ctxTime(s, p.Time)
		if p.Offset != nil {
			s.Transport().StartFrom(at, *p.Offset)
		} else {
			s.Transport().Start(at)
		}
		res = clockOf(s)
		return nil
	})
	return res, nil
}

func (rs *RPCServer) transportStop(_ context.Context, p *TransportParams) (*ClockResult, error) {
	var res *ClockResult
	_ = rs.guard.Do(func(s *session.Session) error {
		s.Transport().Stop(ctxTime(s, p.Time))
		res = clockOf(s)
		return nil
	})
	return res, nil
}

func (rs *RPCServer) transportPause(_ context.Context, p *TransportParams) (*ClockResult, error) {
	var res *ClockResult
	_ = rs.guard.Do(func(s *session.Session) error {
		s.Transport().Pause(ctxTime(s, p.Time))
		res = clockOf(s)
		return nil
	})
	return res, nil
}

func (rs *RPCServer) transportSeek(_ context.Context, p *SeekParams) (*ClockResult, error) {
	var res *ClockResult
	err := rs.guard.Do(func(s *session.Session) error {
		if err := s.Transport().Seek(p.Position); err != nil {
			return err
		}
		res = clockOf(s)
		return nil
	})
	return res, rpcError(err)
}

func (rs *RPCServer) transportLoop(_ context.Context, p *LoopParams) (*EmptyResult, error) {
	err := rs.guard.Do(func(s *session.Session) error {
		return s.Transport().SetLoop(p.Start, p.End)
	})
	return &EmptyResult{}, rpcError(err)
}

func (rs *RPCServer) transportNoLoop(_ context.Context) (*EmptyResult, error) {
	_ = rs.guard.Do(func(s *session.Session) error {
		s.Transport().DisableLoop()
		return nil
	})
	return &EmptyResult{}, nil
}

func srcTime(t *float64) source.Time {
	if t == nil {
		return source.Now
	}
	return source.At(*t)
}

func describe(name string, src *source.Source) *SourceResult {
	return &SourceResult{Name: name, State: src.State().String(), Synced: src.Synced()}
}

// withSource runs fn on the named source under the session lock.
func (rs *RPCServer) withSource(name string, fn func(*source.Source) error, adjust ...func(*SourceResult, *source.Source)) (*SourceResult, error) {
	var res *SourceResult
	err := rs.guard.Do(func(s *session.Session) error {
		src, err := s.Lookup(name)
		if err != nil {
			return err
		}
		if err := fn(src); err != nil {
			return err
		}
		res = describe(name, src)
		for _, a := range adjust {
			a(res, src)
		}
		return nil
	})
	return res, rpcError(err)
}

// sourceCreate creates a source, or returns the existing one of that name.
func (rs *RPCServer) sourceCreate(_ context.Context, p *SourceParams) (*SourceResult, error) {
	var res *SourceResult
	err := rs.guard.Do(func(s *session.Session) error {
		src, err := s.Source(p.Name)
		if err != nil {
			return err
		}
		res = describe(p.Name, src)
		return nil
	})
	return res, rpcError(err)
}

func (rs *RPCServer) sourceStart(_ context.Context, p *SourceParams) (*SourceResult, error) {
	return rs.withSource(p.Name, func(src *source.Source) error {
		return src.Start(srcTime(p.Time), p.Offset, p.Duration)
	})
}

func (rs *RPCServer) sourceStop(_ context.Context, p *SourceParams) (*SourceResult, error) {
	return rs.withSource(p.Name, func(src *source.Source) error {
		return src.Stop(srcTime(p.Time))
	})
}

func (rs *RPCServer) sourceRestart(_ context.Context, p *SourceParams) (*SourceResult, error) {
	return rs.withSource(p.Name, func(src *source.Source) error {
		return src.Restart(srcTime(p.Time), p.Offset, p.Duration)
	})
}

func (rs *RPCServer) sourceSync(_ context.Context, p *SourceParams) (*SourceResult, error) {
	return rs.withSource(p.Name, func(src *source.Source) error {
		return src.Sync()
	})
}

func (rs *RPCServer) sourceUnsync(_ context.Context, p *SourceParams) (*SourceResult, error) {
	return rs.withSource(p.Name, func(src *source.Source) error {
		return src.Unsync()
	})
}

// sourceDispose disposes the source and forgets its name.
func (rs *RPCServer) sourceDispose(_ context.Context, p *SourceParams) (*EmptyResult, error) {
	err := rs.guard.Do(func(s *session.Session) error {
		return s.Remove(p.Name)
	})
	return &EmptyResult{}, rpcError(err)
}

// sourceState reports the current state, or the recorded state at p.Time.
func (rs *RPCServer) sourceState(_ context.Context, p *SourceParams) (*SourceResult, error) {
	return rs.withSource(p.Name, func(*source.Source) error { return nil }, func(res *SourceResult, src *source.Source) {
		if p.Time != nil {
			res.State = src.StateAtTime(*p.Time).String()
		}
	})
}

func (rs *RPCServer) sourceTimeline(_ context.Context, p *SourceParams) (*TimelineResult, error) {
	var res *TimelineResult
	err := rs.guard.Do(func(s *session.Session) error {
		src, err := s.Lookup(p.Name)
		if err != nil {
			return err
		}
		evs := src.Timeline()
		res = &TimelineResult{Name: p.Name, Events: make([]*EventItem, 0, len(evs))}
		for _, ev := range evs {
			res.Events = append(res.Events, &EventItem{
				Time:        ev.Time,
				State:       ev.State.String(),
				Offset:      ev.Offset,
				Duration:    ev.Duration,
				ImplicitEnd: ev.ImplicitEnd,
			})
		}
		return nil
	})
	return res, rpcError(err)
}

func (rs *RPCServer) sourceList(_ context.Context) (*SourceListResult, error) {
	res := &SourceListResult{Sources: []*SourceResult{}}
	_ = rs.guard.Do(func(s *session.Session) error {
		for _, name := range s.Names() {
			src, err := s.Lookup(name)
			if err != nil {
				continue
			}
			res.Sources = append(res.Sources, describe(name, src))
		}
		return nil
	})
	return res, nil
}

// sessionTrace returns every hook call so far.
func (rs *RPCServer) sessionTrace(_ context.Context) (*TraceResult, error) {
	res := &TraceResult{}
	_ = rs.guard.Do(func(s *session.Session) error {
		res.Hooks = s.Trace()
		return nil
	})
	if res.Hooks == nil {
		res.Hooks = []session.Hook{}
	}
	return res, nil
}

// sessionSubscribe narrows the unit.hook pushes of the calling websocket
// client to p.Sources.
func (rs *RPCServer) sessionSubscribe(ctx context.Context, p *SubscribeParams) (*SubscribeResult, error) {
	if rs.notifier == nil {
		return nil, rpcError(ErrNoPushChannel)
	}
	srv := jrpc2.ServerFromContext(ctx)
	if err := rs.notifier.Subscribe(srv, p.Sources); err != nil {
		return nil, rpcError(err)
	}
	res := &SubscribeResult{Sources: rs.notifier.Subscription(srv)}
	if res.Sources == nil {
		res.Sources = []string{}
	}
	return res, nil
}

// Close shuts down the jrpc2 bridge, releasing internal goroutines.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
}
