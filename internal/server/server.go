// Package server exposes a session over JSON-RPC 2.0 and drives it in real
// time while serving.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/warpdl/cueline/internal/scheduler"
	"github.com/warpdl/cueline/internal/session"
	"github.com/warpdl/cueline/pkg/audioctx"
	"github.com/warpdl/cueline/pkg/clock"
	"github.com/warpdl/cueline/pkg/logger"
)

// DefaultAddr is the listen address used when Config.Addr is empty.
const DefaultAddr = "127.0.0.1:9440"

// Config configures a Server.
type Config struct {
	Addr string
	RPC  *RPCConfig
	// Tick is the realtime driver interval. Zero means audioctx.DefaultTick.
	Tick time.Duration
	// Cues are cron expressions. The transport restarts from zero at every
	// occurrence.
	Cues []string
}

// Server serves one session over HTTP and advances it with the wall clock.
type Server struct {
	log      logger.Logger
	cfg      Config
	guard    *session.Guard
	rpc      *RPCServer
	notifier *RPCNotifier
	cues     []scheduler.Cue

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	closed   bool
}

// NewServer wires s to a JSON-RPC server. Hook calls on s are pushed to
// websocket clients from now on. Invalid cue expressions are reported here.
func NewServer(cfg *Config, s *session.Session, l logger.Logger) (*Server, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	c := *cfg
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.RPC == nil {
		c.RPC = &RPCConfig{}
	}
	if c.RPC.Secret == "" {
		return nil, ErrNoSecret
	}

	cues := make([]scheduler.Cue, 0, len(c.Cues))
	for i, expr := range c.Cues {
		cue, err := scheduler.NewCronCue(fmt.Sprintf("cue-%d", i+1), expr, time.Now())
		if err != nil {
			return nil, err
		}
		cues = append(cues, cue)
	}

	n := NewRPCNotifier(l)
	s.AddObserver(n)
	g := session.NewGuard(s)
	return &Server{
		log:      l,
		cfg:      c,
		guard:    g,
		rpc:      NewRPCServer(c.RPC, g, n, l),
		notifier: n,
		cues:     cues,
	}, nil
}

// Guard returns the lock shared by the RPC methods and the driver.
func (s *Server) Guard() *session.Guard { return s.guard }

// Handler returns the HTTP handler of the RPC endpoints.
func (s *Server) Handler() http.Handler { return s.rpc.Handler() }

// Addr returns the bound address once Start is listening, or the configured
// one before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Listen binds the configured address, a TCP host:port or a UnixPrefix
// path. Start calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	l, err := listen(s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Start serves until ctx is cancelled. While serving, the session context is
// advanced with the wall clock and every cue restarts the transport.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	s.server = &http.Server{Handler: s.Handler()}
	srv, l := s.server, s.listener
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		err := srv.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	go func() {
		err := audioctx.NewDriver(newLiveClock(s.guard), s.cfg.Tick, s.log).Run(ctx, 0, nil)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		errCh <- err
	}()
	if len(s.cues) > 0 {
		sch := scheduler.New(ctx, s.onCue)
		for _, c := range s.cues {
			sch.Add(c)
		}
	}
	s.log.Info("serving JSON-RPC on %s", l.Addr().String())

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	cancel()
	if serr := s.Shutdown(); err == nil {
		err = serr
	}
	return err
}

// liveClock feeds wall-clock time to the session. Time spent suspended is
// skipped, so the context resumes where it stopped.
type liveClock struct {
	g    *session.Guard
	last clock.Seconds
	lag  clock.Seconds
}

func newLiveClock(g *session.Guard) *liveClock {
	return &liveClock{g: g, last: g.CurrentTime()}
}

func (c *liveClock) CurrentTime() clock.Seconds { return c.last }

func (c *liveClock) Advance(to clock.Seconds) error {
	return c.g.Do(func(s *session.Session) error {
		if s.Context().State() == clock.Suspended {
			c.lag += to - c.last
			c.last = to
			return nil
		}
		c.last = to
		return s.Advance(to - c.lag)
	})
}

// onCue restarts the transport from zero at the current context time.
func (s *Server) onCue(name string, at time.Time) {
	_ = s.guard.Do(func(sess *session.Session) error {
		now := sess.CurrentTime()
		s.log.Info("cue %s (%s): restarting transport at %.3f", name, at.Format(time.RFC3339), now)
		tr := sess.Transport()
		tr.Stop(now)
		tr.StartFrom(now, 0)
		return nil
	})
}

// Shutdown stops the HTTP server and releases the RPC bridge.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Error("shutting down web server: %s", err.Error())
		}
		s.server = nil
		s.listener = nil
	} else if s.listener != nil {
		err = s.listener.Close()
		s.listener = nil
	}
	s.rpc.Close()
	return err
}
