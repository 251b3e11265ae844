package source

import (
	"math"
	"testing"

	"github.com/warpdl/cueline/pkg/audioctx"
	"github.com/warpdl/cueline/pkg/logger"
)

type call struct {
	kind     string
	time     Seconds
	offset   Seconds
	duration Seconds
}

// recUnit records every hook invocation.
type recUnit struct {
	calls []call
}

func (u *recUnit) Start(time, offset, duration Seconds) {
	u.calls = append(u.calls, call{"start", time, offset, duration})
}

func (u *recUnit) Stop(time Seconds) {
	u.calls = append(u.calls, call{kind: "stop", time: time})
}

func (u *recUnit) Restart(time, offset, duration Seconds) {
	u.calls = append(u.calls, call{"restart", time, offset, duration})
}

func (u *recUnit) kinds(kind string) []call {
	var out []call
	for _, c := range u.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// fixture is an offline context without lookahead plus one source.
type fixture struct {
	ctx  *audioctx.Offline
	unit *recUnit
	log  *logger.MockLogger
	src  *Source
}

func newFixture(t *testing.T, opts *audioctx.Options) *fixture {
	t.Helper()
	if opts == nil {
		opts = &audioctx.Options{}
	}
	if opts.LookAhead == 0 {
		opts.LookAhead = -1
	}
	f := &fixture{ctx: audioctx.NewOffline(opts), unit: &recUnit{}, log: logger.NewMockLogger()}
	f.src = New(f.ctx, f.unit, &Options{ID: "src", Logger: f.log})
	return f
}

func (f *fixture) advance(t *testing.T, to Seconds) {
	t.Helper()
	if err := f.ctx.Advance(to); err != nil {
		t.Fatalf("Advance(%v): %v", to, err)
	}
}

func near(a, b Seconds) bool { return math.Abs(a-b) < 1e-9 }

func expectCalls(t *testing.T, got []call, want []call) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d hook calls %+v, got %d: %+v", len(want), want, len(got), got)
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.kind != w.kind || !near(g.time, w.time) || !near(g.offset, w.offset) || !near(g.duration, w.duration) {
			t.Errorf("call %d = %+v, want %+v", i, g, w)
		}
	}
}
