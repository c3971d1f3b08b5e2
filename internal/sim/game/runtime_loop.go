package game

import (
	"context"
	"time"
)

// TickFunc observes the controller after each tick.
type TickFunc func(tick uint64, digest string)

// Loop steps the controller in real time at the tuned tick rate until the
// attempt has a result, MaxTicks is reached or ctx is done. The loop goroutine
// owns the controller while it runs.
func (c *Controller) Loop(ctx context.Context, onTick TickFunc) error {
	interval := time.Second / time.Duration(c.sched.TickRateHz())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.advance(onTick) {
				return nil
			}
		}
	}
}

// RunToEnd steps as fast as possible until the attempt has a result or
// MaxTicks is reached. It returns the number of ticks taken.
func (c *Controller) RunToEnd(onTick TickFunc) uint64 {
	start := c.sched.Now()
	for !c.advance(onTick) {
	}
	return c.sched.Now() - start
}

// advance steps once and reports whether the loop should stop.
func (c *Controller) advance(onTick TickFunc) bool {
	tick, digest := c.StepOnce()
	if onTick != nil {
		onTick(tick, digest)
	}
	if c.result != nil {
		return true
	}
	if c.tune.MaxTicks > 0 && tick >= uint64(c.tune.MaxTicks) {
		c.log.Printf("level %s: stopped at max ticks %d", c.def.Name, c.tune.MaxTicks)
		c.finish(false, ReasonTimeout)
		return true
	}
	return false
}
