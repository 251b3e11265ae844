package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
)

var (
	// ErrInvalidCron is returned for a cron expression gronx rejects.
	ErrInvalidCron = errors.New("invalid cron expression")
	// ErrNoOccurrence is returned for a cron expression that does not fire
	// within a year.
	ErrNoOccurrence = errors.New("cron expression has no occurrence within a year")
)

// Cue is a pending trigger.
type Cue struct {
	// Name is passed to the trigger callback.
	Name string
	// TriggerAt is the wall-clock time the cue fires.
	TriggerAt time.Time
	// CronExpr re-arms the cue after it fires. Empty means one-shot.
	CronExpr string
}

// NewCronCue returns a cue firing at every occurrence of expr after now.
func NewCronCue(name, expr string, now time.Time) (Cue, error) {
	next, err := nextCronOccurrence(expr, now)
	if err != nil {
		return Cue{}, fmt.Errorf("%w: %q: %s", ErrInvalidCron, expr, err.Error())
	}
	if !hasOccurrenceWithinYear(expr, now) {
		return Cue{}, fmt.Errorf("%w: %q", ErrNoOccurrence, expr)
	}
	return Cue{Name: name, TriggerAt: next, CronExpr: expr}, nil
}

// nextCronOccurrence returns the next time expr fires strictly after start.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}

// hasOccurrenceWithinYear reports whether expr fires within a year of from.
func hasOccurrenceWithinYear(expr string, from time.Time) bool {
	next, err := gronx.NextTickAfter(expr, from, false)
	if err != nil {
		return false
	}
	return next.Before(from.Add(365 * 24 * time.Hour))
}
