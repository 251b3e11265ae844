package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder collects fired cue names.
type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) trigger(name string, _ time.Time) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func (r *recorder) fired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestScheduler_AddAndFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	s := New(ctx, rec.trigger)
	s.Add(Cue{Name: "restart", TriggerAt: time.Now().Add(100 * time.Millisecond)})

	time.Sleep(300 * time.Millisecond)

	if got := rec.fired(); len(got) != 1 || got[0] != "restart" {
		t.Fatalf("expected restart to fire once, got %v", got)
	}
}

func TestScheduler_RemoveBeforeFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	s := New(ctx, rec.trigger)
	s.Add(Cue{Name: "a", TriggerAt: time.Now().Add(200 * time.Millisecond)})
	s.Add(Cue{Name: "a", TriggerAt: time.Now().Add(250 * time.Millisecond)})
	s.Remove("a")
	s.Remove("missing")

	time.Sleep(400 * time.Millisecond)

	if got := rec.fired(); len(got) != 0 {
		t.Fatalf("expected removed cues not to fire, got %v", got)
	}
}

func TestScheduler_FiresInTimeOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	s := New(ctx, rec.trigger)
	now := time.Now()
	s.Add(Cue{Name: "third", TriggerAt: now.Add(150 * time.Millisecond)})
	s.Add(Cue{Name: "first", TriggerAt: now.Add(50 * time.Millisecond)})
	s.Add(Cue{Name: "second", TriggerAt: now.Add(100 * time.Millisecond)})

	time.Sleep(400 * time.Millisecond)

	got := rec.fired()
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestScheduler_PastCueFiresImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	s := New(ctx, rec.trigger)
	s.Add(Cue{Name: "late", TriggerAt: time.Now().Add(-time.Hour)})

	time.Sleep(100 * time.Millisecond)

	if got := rec.fired(); len(got) != 1 {
		t.Fatalf("expected past cue to fire, got %v", got)
	}
}

func TestScheduler_ShutdownViaContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	rec := &recorder{}
	s := New(ctx, rec.trigger)
	s.Add(Cue{Name: "never", TriggerAt: time.Now().Add(200 * time.Millisecond)})
	cancel()

	// Add and Remove must not block once the context is done
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Add(Cue{Name: "x", TriggerAt: time.Now()})
			s.Remove("x")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Add/Remove blocked after shutdown")
	}

	time.Sleep(400 * time.Millisecond)
	for _, name := range rec.fired() {
		if name == "never" {
			t.Fatal("expected no cue to fire after shutdown")
		}
	}
}

func TestScheduler_RecurringCueStaysArmed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	s := New(ctx, rec.trigger)
	s.Add(Cue{
		Name:      "every-minute",
		TriggerAt: time.Now().Add(100 * time.Millisecond),
		CronExpr:  "* * * * *",
	})

	time.Sleep(300 * time.Millisecond)

	if got := rec.fired(); len(got) < 1 {
		t.Fatal("expected recurring cue to fire at least once")
	}
	if n := s.Pending(); n != 1 {
		t.Errorf("expected the cue to be armed again, got %d pending", n)
	}
}

func TestNewCronCue(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewCronCue("restart", "0 2 * * *", now)
	if err != nil {
		t.Fatalf("NewCronCue: %v", err)
	}
	if c.Name != "restart" || c.CronExpr != "0 2 * * *" {
		t.Errorf("unexpected cue %+v", c)
	}
	if c.TriggerAt.Hour() != 2 || c.TriggerAt.Minute() != 0 || !c.TriggerAt.After(now) {
		t.Errorf("expected next 02:00 after now, got %v", c.TriggerAt)
	}

	if _, err := NewCronCue("bad", "bad-expr", now); !errors.Is(err, ErrInvalidCron) {
		t.Errorf("expected ErrInvalidCron, got %v", err)
	}
}

func TestNextCronOccurrence(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	next, err := nextCronOccurrence("*/15 * * * *", now)
	if err != nil {
		t.Fatalf("expected no error: %v", err)
	}
	if !next.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("expected 00:15, got %v", next)
	}
	if _, err := nextCronOccurrence("bad-expr", now); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestHasOccurrenceWithinYear(t *testing.T) {
	if !hasOccurrenceWithinYear("0 2 * * *", time.Now()) {
		t.Error("expected daily cron to have an occurrence in the next year")
	}
	if hasOccurrenceWithinYear("bad-cron", time.Now()) {
		t.Error("invalid cron should return false")
	}
}

func TestScheduler_PendingAndRemove(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, (&recorder{}).trigger)
	base := time.Now().Add(time.Hour)
	s.Add(Cue{Name: "c", TriggerAt: base.Add(3 * time.Hour)})
	s.Add(Cue{Name: "a", TriggerAt: base.Add(1 * time.Hour)})
	s.Add(Cue{Name: "b", TriggerAt: base.Add(2 * time.Hour)})
	s.Add(Cue{Name: "b", TriggerAt: base.Add(4 * time.Hour)})

	if n := s.Pending(); n != 4 {
		t.Fatalf("expected 4 armed cues, got %d", n)
	}
	if n := s.Remove("b"); n != 2 {
		t.Fatalf("expected to remove 2 cues, got %d", n)
	}
	if n := s.Remove("zzz"); n != 0 {
		t.Errorf("expected nothing removed for an unknown name, got %d", n)
	}
	if n := s.Pending(); n != 2 {
		t.Fatalf("expected 2 armed cues, got %d", n)
	}
}

func TestScheduler_AddFromTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	var s *Scheduler
	ready := make(chan struct{})
	s = New(ctx, func(name string, at time.Time) {
		<-ready
		rec.trigger(name, at)
		if name == "first" {
			s.Add(Cue{Name: "second", TriggerAt: time.Now()})
		}
	})
	s.Add(Cue{Name: "first", TriggerAt: time.Now()})
	close(ready)

	time.Sleep(200 * time.Millisecond)

	got := rec.fired()
	if len(got) != 2 || got[1] != "second" {
		t.Fatalf("expected first then second, got %v", got)
	}
}
