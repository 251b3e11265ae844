package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/warpdl/cueline/internal/eventq"
)

// maxWait bounds every sleep so a stepped wall clock is noticed.
const maxWait = 60 * time.Second

// Scheduler fires cues from a background goroutine. Add and Remove may be
// called from any goroutine, including from the trigger callback.
type Scheduler struct {
	ctx       context.Context
	onTrigger func(name string, at time.Time)

	mu     sync.Mutex
	queue  eventq.Queue
	cues   map[uint64]Cue
	nextID uint64
	wake   chan struct{}
}

// New starts a Scheduler. onTrigger runs on the scheduler goroutine for
// every cue that comes due. The goroutine exits when ctx is cancelled.
func New(ctx context.Context, onTrigger func(name string, at time.Time)) *Scheduler {
	s := &Scheduler{
		ctx:       ctx,
		onTrigger: onTrigger,
		cues:      make(map[uint64]Cue),
		wake:      make(chan struct{}, 1),
	}
	go s.run()
	return s
}

// Add arms c.
func (s *Scheduler) Add(c Cue) {
	s.mu.Lock()
	s.nextID++
	s.cues[s.nextID] = c
	s.queue.Push(&eventq.Item{ID: s.nextID, At: unixSeconds(c.TriggerAt)})
	s.mu.Unlock()
	s.poke()
}

// Remove disarms every cue called name and returns how many there were.
func (s *Scheduler) Remove(name string) int {
	s.mu.Lock()
	n := 0
	for id, c := range s.cues {
		if c.Name != name {
			continue
		}
		s.queue.Remove(id)
		delete(s.cues, id)
		n++
	}
	s.mu.Unlock()
	if n > 0 {
		s.poke()
	}
	return n
}

// Pending returns the number of armed cues.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cues)
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// due pops the cues whose time is not after now, earliest first, and
// returns how long to sleep before the next one.
func (s *Scheduler) due(now time.Time) ([]Cue, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fired []Cue
	for {
		it, ok := s.queue.Peek()
		if !ok {
			return fired, maxWait
		}
		c := s.cues[it.ID]
		if c.TriggerAt.After(now) {
			return fired, min(c.TriggerAt.Sub(now), maxWait)
		}
		s.queue.Pop()
		delete(s.cues, it.ID)
		fired = append(fired, c)
	}
}

func (s *Scheduler) run() {
	timer := time.NewTimer(maxWait)
	defer timer.Stop()
	for {
		if s.ctx.Err() != nil {
			return
		}
		fired, wait := s.due(time.Now())
		for _, c := range fired {
			s.onTrigger(c.Name, c.TriggerAt)
			s.rearm(c)
		}
		if len(fired) > 0 {
			continue
		}
		timer.Reset(wait)
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// rearm schedules the next occurrence of a recurring cue.
func (s *Scheduler) rearm(c Cue) {
	if c.CronExpr == "" {
		return
	}
	next, err := nextCronOccurrence(c.CronExpr, time.Now())
	if err != nil {
		return
	}
	c.TriggerAt = next
	s.Add(c)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
