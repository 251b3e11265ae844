package source

import (
	"testing"

	"github.com/warpdl/cueline/pkg/timeline"
)

func TestSyncIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	_ = f.src.Sync()
	if !f.src.Synced() {
		t.Fatal("expected synced source")
	}
	if n := f.ctx.Control().Listeners(); n != 5 {
		t.Errorf("expected 5 listener registrations, got %d", n)
	}
}

func TestSyncedStartFiresOnTransport(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	if err := f.src.Start(At(1), 0.25, 2); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(f.unit.calls) != 0 {
		t.Fatalf("expected nothing before the transport runs, got %+v", f.unit.calls)
	}

	f.ctx.Control().StartFrom(0.5, 0)
	f.advance(t, 2)
	expectCalls(t, f.unit.calls, []call{{kind: "start", time: 1.5, offset: 0.25, duration: 2}})
	if f.src.State() != timeline.Started {
		t.Errorf("expected started, got %s", f.src.State())
	}
}

func TestSyncedStateFollowsTransport(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	_ = f.src.Start(At(0), 0, 0)
	if f.src.State() != timeline.Stopped {
		t.Errorf("expected stopped while the transport is stopped, got %s", f.src.State())
	}
}

func TestSyncedOmittedTimeUsesTransportSeconds(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.Control().Start(0)
	f.advance(t, 2)
	_ = f.src.Sync()

	if err := f.src.Start(Now, 0, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.advance(t, 2)
	expectCalls(t, f.unit.calls, []call{{kind: "start", time: 2}})
}

func TestTransportStartMidSpanResumes(t *testing.T) {
	tests := []struct {
		name     string
		duration Seconds
		want     []call
	}{
		{"bounded span still running", 10, []call{{kind: "start", time: 0, offset: 3, duration: 7}}},
		{"unbounded span", 0, []call{{kind: "start", time: 0, offset: 3}}},
		{"span already over", 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_ = f.src.Sync()
			if err := f.src.Start(At(2), 0, tt.duration); err != nil {
				t.Fatalf("Start: %v", err)
			}
			f.ctx.Control().StartFrom(0, 5)
			f.advance(t, 1)
			expectCalls(t, f.unit.calls, tt.want)
		})
	}
}

func TestStartBehindRunningTransportResumesImmediately(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.Control().Start(0)
	f.advance(t, 5)
	_ = f.src.Sync()

	if err := f.src.Start(At(2), 0, 10); err != nil {
		t.Fatalf("Start: %v", err)
	}
	expectCalls(t, f.unit.calls, []call{{kind: "start", time: 5, offset: 3, duration: 7}})

	f.advance(t, 6)
	if n := len(f.unit.kinds("start")); n != 1 {
		t.Errorf("expected no second start from the passed callback, got %d", n)
	}
}

func TestPauseAtScheduledInstantBlocksStart(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	_ = f.src.Start(At(2), 0, 0)

	tr := f.ctx.Control()
	tr.Start(0)
	tr.Pause(2)
	f.advance(t, 3)

	if len(f.unit.calls) != 0 {
		t.Errorf("expected blocked start and no stop, got %+v", f.unit.calls)
	}
	if len(f.log.WarningCalls) != 1 {
		t.Errorf("expected one warning for the blocked start, got %v", f.log.WarningCalls)
	}
}

func TestTransportPauseStopsPlayingUnit(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	_ = f.src.Start(At(1), 0, 0)

	tr := f.ctx.Control()
	tr.Start(0)
	f.advance(t, 1.5)
	tr.Pause(2)
	f.advance(t, 2.5)

	expectCalls(t, f.unit.calls, []call{
		{kind: "start", time: 1},
		{kind: "stop", time: 2},
	})
}

func TestTransportStopBeforeStartDoesNotStop(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	_ = f.src.Start(At(3), 0, 0)

	tr := f.ctx.Control()
	tr.Start(0)
	tr.Stop(1)
	f.advance(t, 4)
	if len(f.unit.calls) != 0 {
		t.Errorf("expected no hooks, got %+v", f.unit.calls)
	}
}

func TestLoopReplaysSpan(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	_ = f.src.Start(At(1), 0, 0)
	_ = f.src.Stop(At(3))

	tr := f.ctx.Control()
	if err := tr.SetLoop(0, 4); err != nil {
		t.Fatalf("SetLoop: %v", err)
	}
	tr.Start(0)
	f.advance(t, 9.5)

	expectCalls(t, f.unit.calls, []call{
		{kind: "start", time: 1},
		{kind: "stop", time: 3},
		{kind: "start", time: 5},
		{kind: "stop", time: 7},
		{kind: "start", time: 9},
	})
}

func TestLoopEndStopsSpanCrossingTheBoundary(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	_ = f.src.Start(At(1), 0, 0)

	tr := f.ctx.Control()
	_ = tr.SetLoop(0, 2)
	tr.Start(0)
	f.advance(t, 2.5)

	expectCalls(t, f.unit.calls, []call{
		{kind: "start", time: 1},
		{kind: "stop", time: 2},
	})
}

func TestUnsync(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	_ = f.src.Start(At(1), 0, 0)
	_ = f.src.Stop(At(2))

	if err := f.src.Unsync(); err != nil {
		t.Fatalf("Unsync: %v", err)
	}
	if f.src.Synced() {
		t.Error("expected unsynced source")
	}
	if len(f.src.Timeline()) != 0 {
		t.Errorf("expected empty timeline, got %+v", f.src.Timeline())
	}
	for _, at := range []Seconds{0, 1, 1.5, 100} {
		if got := f.src.StateAtTime(at); got != timeline.Stopped {
			t.Errorf("StateAtTime(%v) = %s after Unsync", at, got)
		}
	}
	tr := f.ctx.Control()
	if tr.Scheduled() != 0 || tr.Listeners() != 0 {
		t.Errorf("expected registrations released, got %d callbacks %d listeners", tr.Scheduled(), tr.Listeners())
	}
	expectCalls(t, f.unit.calls, []call{{kind: "stop", time: 0}})

	tr.Start(0)
	f.advance(t, 3)
	if len(f.unit.calls) != 1 {
		t.Errorf("expected cancelled callbacks not to fire, got %+v", f.unit.calls)
	}
}

func TestUnsyncNeverSynced(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.src.Unsync(); err != nil {
		t.Fatalf("Unsync: %v", err)
	}
	expectCalls(t, f.unit.calls, []call{{kind: "stop", time: 0}})
}

// intent is one scheduling call on a synced source.
type intent struct {
	stop bool
	at   Seconds
}

func TestRewrittenSyncedIntents(t *testing.T) {
	tests := []struct {
		name    string
		intents []intent
		loop    Seconds
		until   Seconds
		want    []call
		stateAt map[Seconds]timeline.State
	}{
		{
			name:    "earlier stop replaces a later one",
			intents: []intent{{false, 1}, {true, 5}, {true, 3}},
			until:   6,
			want:    []call{{kind: "start", time: 1}, {kind: "stop", time: 3}},
			stateAt: map[Seconds]timeline.State{2: timeline.Started, 4: timeline.Stopped, 5.5: timeline.Stopped},
		},
		{
			name:    "start after a replacing stop",
			intents: []intent{{false, 1}, {true, 5}, {true, 3}, {false, 4}, {true, 6}},
			until:   7,
			want: []call{
				{kind: "start", time: 1},
				{kind: "stop", time: 3},
				{kind: "start", time: 4},
				{kind: "stop", time: 6},
			},
			stateAt: map[Seconds]timeline.State{5.5: timeline.Started, 6.5: timeline.Stopped},
		},
		{
			name:    "earlier stop replaces a later stop after a restart",
			intents: []intent{{false, 1}, {true, 3}, {false, 4}, {true, 6}, {true, 5}},
			until:   7,
			want: []call{
				{kind: "start", time: 1},
				{kind: "stop", time: 3},
				{kind: "start", time: 4},
				{kind: "stop", time: 5},
			},
			stateAt: map[Seconds]timeline.State{4.5: timeline.Started, 5.5: timeline.Stopped},
		},
		{
			name:    "stop discards a pending start",
			intents: []intent{{false, 1}, {true, 2}, {false, 4}, {true, 3}},
			until:   6,
			want:    []call{{kind: "start", time: 1}, {kind: "stop", time: 2}, {kind: "stop", time: 3}},
			stateAt: map[Seconds]timeline.State{4.5: timeline.Stopped},
		},
		{
			name:    "loop replays only the surviving intents",
			intents: []intent{{false, 1}, {true, 5}, {true, 3}},
			loop:    6,
			until:   10,
			want: []call{
				{kind: "start", time: 1},
				{kind: "stop", time: 3},
				{kind: "start", time: 7},
				{kind: "stop", time: 9},
			},
			stateAt: map[Seconds]timeline.State{5: timeline.Stopped},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_ = f.src.Sync()
			for _, in := range tt.intents {
				var err error
				if in.stop {
					err = f.src.Stop(At(in.at))
				} else {
					err = f.src.Start(At(in.at), 0, 0)
				}
				if err != nil {
					t.Fatalf("intent %+v: %v", in, err)
				}
			}

			tr := f.ctx.Control()
			if tt.loop > 0 {
				if err := tr.SetLoop(0, tt.loop); err != nil {
					t.Fatalf("SetLoop: %v", err)
				}
			}
			if n, want := tr.Scheduled(), len(f.src.Timeline()); n != want {
				t.Errorf("expected one callback per recorded intent (%d), got %d", want, n)
			}
			tr.Start(0)
			f.advance(t, tt.until)

			expectCalls(t, f.unit.calls, tt.want)
			for at, want := range tt.stateAt {
				if got := f.src.StateAtTime(at); got != want {
					t.Errorf("StateAtTime(%v) = %s, want %s", at, got, want)
				}
			}
		})
	}
}

func TestRestartDropsLaterSyncedCallbacks(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.src.Sync()
	_ = f.src.Start(At(1), 0, 0)
	_ = f.src.Stop(At(4))
	tr := f.ctx.Control()
	tr.Start(0)
	f.advance(t, 2)

	if err := f.src.Restart(At(1), 0.5, 0); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if n := tr.Scheduled(); n != 1 {
		t.Fatalf("expected only the active start's callback, got %d", n)
	}
	f.advance(t, 5)
	expectCalls(t, f.unit.calls, []call{
		{kind: "start", time: 1},
		{kind: "restart", time: 1, offset: 0.5},
	})
}
