package audioctx

import (
	"context"
	"time"

	"github.com/warpdl/cueline/pkg/logger"
)

// DefaultTick is the wall-clock interval between two Advance calls.
const DefaultTick = 10 * time.Millisecond

// Advancer is a context that can be moved forward in time.
type Advancer interface {
	CurrentTime() Seconds
	Advance(to Seconds) error
}

// Driver advances a context in step with the wall clock.
type Driver struct {
	target Advancer
	tick   time.Duration
	log    logger.Logger
	// now is swapped in tests.
	now func() time.Time
}

// NewDriver returns a Driver for target. A zero tick means DefaultTick.
func NewDriver(target Advancer, tick time.Duration, log logger.Logger) *Driver {
	if tick <= 0 {
		tick = DefaultTick
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Driver{target: target, tick: tick, log: log, now: time.Now}
}

// Run advances the target until its time reaches until, the target fails,
// or ctx is cancelled. A non-positive until runs until ctx is cancelled.
// onTick, when non-nil, is called with the target time after each step.
func (d *Driver) Run(ctx context.Context, until Seconds, onTick func(Seconds)) error {
	start := d.now()
	base := d.target.CurrentTime()

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			to := base + d.now().Sub(start).Seconds()
			done := until > 0 && to >= until
			if done {
				to = until
			}
			if err := d.target.Advance(to); err != nil {
				d.log.Error("driver: advance to %.3f: %s", to, err.Error())
				return err
			}
			if onTick != nil {
				onTick(to)
			}
			if done {
				return nil
			}
		}
	}
}
