package playback

import (
	"context"
	"time"
)

// Run drives ticks at the configured interval while the clock is running.
// It blocks until ctx is done.
func (c *Clock) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}
		c.runTicker(ctx)
	}
}

// runTicker ticks until the clock leaves the running state it was woken in.
// Leaving a running state changes the generation under the step lock, so a
// pause always takes effect before the next tick does any work.
func (c *Clock) runTicker(ctx context.Context) {
	c.mu.Lock()
	gen := c.generation
	running := c.state.Running()
	interval := c.cfg.Tick
	c.mu.Unlock()
	if !running {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.tickGeneration(ctx, gen) {
				return
			}
		}
	}
}

func (c *Clock) tickGeneration(ctx context.Context, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || !c.state.Running() {
		return false
	}
	_ = c.tick(ctx)
	return c.state.Running()
}
