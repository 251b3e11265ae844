package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/warpdl/cueline/internal/session"
	"github.com/warpdl/cueline/pkg/audioctx"
	"github.com/warpdl/cueline/pkg/logger"
	"github.com/warpdl/cueline/pkg/source"
)

func openTemp(t *testing.T, run string) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, run, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j, path
}

func TestRecordAndEntries(t *testing.T) {
	j, _ := openTemp(t, "run-1")
	j.now = func() time.Time { return time.UnixMilli(1000) }

	hooks := []session.Hook{
		{Seq: 1, Source: "kick", Kind: session.HookStart, Time: 1, Offset: 0.5, Duration: 2, Context: 1, Position: 1},
		{Seq: 2, Source: "kick", Kind: session.HookStop, Time: 3, Context: 3, Position: 3},
	}
	for _, h := range hooks {
		if err := j.Record(h); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := j.Entries(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Hook != hooks[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e.Hook, hooks[i])
		}
		if e.Run != "run-1" || !e.Recorded.Equal(time.UnixMilli(1000)) {
			t.Errorf("entry %d has run %q recorded %v", i, e.Run, e.Recorded)
		}
	}
}

func TestRunsAcrossReopen(t *testing.T) {
	j, path := openTemp(t, "first")
	_ = j.Record(session.Hook{Seq: 1, Source: "a", Kind: session.HookStart})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := Open(path, "second", nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()
	_ = j2.Record(session.Hook{Seq: 1, Source: "b", Kind: session.HookStart})
	_ = j2.Record(session.Hook{Seq: 2, Source: "b", Kind: session.HookStop})

	runs, err := j2.Runs(context.Background())
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].Name != "first" || runs[0].Hooks != 1 || runs[1].Name != "second" || runs[1].Hooks != 2 {
		t.Errorf("unexpected runs %+v", runs)
	}

	all, err := j2.Entries(context.Background(), "")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 entries across runs, got %d", len(all))
	}
}

func TestObserveSession(t *testing.T) {
	j, _ := openTemp(t, "")
	if j.RunName() == "" {
		t.Fatal("expected a generated run name")
	}
	s := session.New(&session.Options{
		Context:   &audioctx.Options{LookAhead: -1},
		Observers: []session.Observer{j},
	})
	src, _ := s.Source("pad")
	_ = src.Start(source.At(1), 0, 0)
	_ = src.Stop(source.At(2))

	entries, err := j.Entries(context.Background(), j.RunName())
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Kind != session.HookStart || entries[1].Kind != session.HookStop {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestClosedJournal(t *testing.T) {
	j, _ := openTemp(t, "x")
	mock := logger.NewMockLogger()
	j.log = mock
	_ = j.Close()
	_ = j.Close()

	if err := j.Record(session.Hook{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := j.Entries(context.Background(), ""); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	j.Observe(session.Hook{})
	if len(mock.ErrorCalls) != 1 {
		t.Errorf("expected Observe to log the failure, got %v", mock.ErrorCalls)
	}
}

func TestNewRunName(t *testing.T) {
	got := NewRunName(time.Date(2024, 3, 1, 12, 30, 45, 123e6, time.UTC))
	if got != "20240301T123045.123Z" {
		t.Errorf("unexpected run name %q", got)
	}
}
