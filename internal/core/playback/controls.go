package playback

import (
	"context"
	"errors"
	"time"

	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// now is the clock time used as the base of the next move
func (c *Clock) now() float64 {
	if c.time < 0 {
		return c.origin
	}
	return c.time
}

// moveMotion brings every moving entity to time t
func (c *Clock) moveMotion(t float64) {
	c.motion.MoveAll(t - c.motionAt)
	c.motionAt = t
}

// toStart resets the clock time once nothing is applied
func (c *Clock) toStart() {
	c.moveMotion(c.origin)
	c.time = -1
	c.setState(Start)
}

func (c *Clock) applyEntry(e *model.ChangeEntry, forward bool) error {
	if err := c.engine.ApplyEntry(e, forward); err != nil {
		return err
	}
	if forward {
		c.window.ConsumeForward()
	} else {
		c.window.ConsumeBackward()
	}
	c.metrics.EntryApplied(forward)
	return nil
}

// peek returns the next entry to apply in the given direction
func (c *Clock) peek(ctx context.Context, forward bool) (*model.ChangeEntry, error) {
	if forward {
		return c.window.PeekForward(ctx)
	}
	return c.window.PeekBackward(ctx)
}

// advance moves the timeline to target in whichever direction it lies. Going
// forward every entry at or before target is applied; going backward every
// entry after target is reverted. Motion is brought to each entry's time
// before the entry is applied or reverted, then to target. When the history
// runs out the boundary state is returned with hit set.
func (c *Clock) advance(ctx context.Context, target float64) (boundary State, hit bool, err error) {
	forward := target >= c.now()
	for {
		e, err := c.peek(ctx, forward)
		if errors.Is(err, model.ErrExhausted) {
			if forward {
				return End, true, nil
			}
			return Start, true, nil
		}
		if err != nil {
			return 0, false, err
		}
		if (forward && e.Time > target) || (!forward && e.Time <= target) {
			break
		}

		c.moveMotion(e.Time)
		if err := c.applyEntry(e, forward); err != nil {
			return 0, false, err
		}
		c.time = e.Time
	}
	c.moveMotion(target)
	c.time = target
	return 0, false, nil
}

// land picks the resting state after a manual move
func (c *Clock) land(boundary State, hit bool) {
	switch {
	case hit && boundary == Start:
		c.toStart()
	case hit:
		c.setState(boundary)
	case c.window.AtEnd():
		c.setState(End)
	default:
		c.setState(Paused)
	}
	c.metrics.SetTime(c.time)
}

// fail pauses playback after an error. Corrupt history becomes a sticky
// fault; fetch failures can be retried.
func (c *Clock) fail(err error) error {
	var fetchErr *model.FetchError
	switch {
	case model.IsFatal(err):
		c.fault = err
		c.log.Error("Playback aborted, history is corrupt", util.Field{Key: "error", Value: err.Error()})
	case errors.As(err, &fetchErr):
		c.metrics.FetchFailed()
		c.log.Error("Page fetch failed, playback paused", util.Field{Key: "error", Value: err.Error()})
	default:
		c.log.Error("Playback step failed", util.Field{Key: "error", Value: err.Error()})
	}
	c.setState(Paused)
	c.publish(Notification{State: c.state, Time: c.time, Err: err})
	return err
}

// StepForward applies exactly one change entry and pauses, or lands on END
func (c *Clock) StepForward(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(); err != nil {
		return err
	}

	e, err := c.window.PeekForward(ctx)
	if errors.Is(err, model.ErrExhausted) {
		c.land(End, true)
		return nil
	}
	if err != nil {
		return c.fail(err)
	}
	c.moveMotion(e.Time)
	if err := c.applyEntry(e, true); err != nil {
		return c.fail(err)
	}
	c.time = e.Time
	c.land(0, false)
	return nil
}

// StepBackward reverts exactly one change entry and moves the clock to the
// entry before it, or lands on START
func (c *Clock) StepBackward(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(); err != nil {
		return err
	}

	e, err := c.window.PeekBackward(ctx)
	if errors.Is(err, model.ErrExhausted) {
		c.land(Start, true)
		return nil
	}
	if err != nil {
		return c.fail(err)
	}
	c.moveMotion(e.Time)
	if err := c.applyEntry(e, false); err != nil {
		return c.fail(err)
	}

	prev, err := c.window.PeekBackward(ctx)
	switch {
	case errors.Is(err, model.ErrExhausted):
		c.land(Start, true)
		return nil
	case err != nil:
		// the previous page could not be loaded; restore the reverted entry
		// so the clock stays on a consistent position
		if rerr := c.applyEntry(e, true); rerr != nil {
			return c.fail(rerr)
		}
		c.time = e.Time
		return c.fail(err)
	}
	c.moveMotion(prev.Time)
	c.time = prev.Time
	c.land(0, false)
	return nil
}

// Seek moves the clock to an absolute time and pauses, or lands on a boundary
func (c *Clock) Seek(ctx context.Context, t float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guard(); err != nil {
		return err
	}

	boundary, hit, err := c.advance(ctx, t)
	if err != nil {
		return c.fail(err)
	}
	c.land(boundary, hit)
	return nil
}

// Tick advances a running clock by speed times the tick interval
func (c *Clock) Tick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick(ctx)
}

func (c *Clock) tick(ctx context.Context) error {
	if !c.state.Running() {
		return nil
	}
	started := time.Now()
	defer func() { c.metrics.ObserveTick(time.Since(started)) }()

	target := c.now() + c.speed*c.cfg.Tick.Seconds()
	boundary, hit, err := c.advance(ctx, target)
	if err != nil {
		return c.fail(err)
	}
	if hit {
		c.land(boundary, hit)
		return nil
	}
	c.metrics.SetTime(c.time)
	return nil
}

// Play starts playback in the direction of the speed sign. Playing forward at
// the end or backward at the start leaves the clock where it is.
func (c *Clock) Play(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.play(ctx)
}

func (c *Clock) play(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}
	if c.state.Running() {
		return nil
	}
	if c.speed > 0 {
		if c.window.AtEnd() {
			if _, err := c.window.Refresh(ctx); err != nil {
				c.log.Warn("Page count refresh failed", util.Field{Key: "error", Value: err.Error()})
			}
			if c.window.AtEnd() {
				c.setState(End)
				return nil
			}
		}
		c.setState(Forward)
		return nil
	}
	if c.state == Start {
		return nil
	}
	c.setState(Rewind)
	return nil
}

// Pause stops playback. It is valid in every loaded state.
func (c *Clock) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Loading {
		return ErrNotLoaded
	}
	c.setState(Paused)
	return nil
}

// TogglePlayPause pauses a running clock and starts a stopped one
func (c *Clock) TogglePlayPause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Running() {
		c.setState(Paused)
		return nil
	}
	return c.play(ctx)
}

// SetSpeed changes the signed speed. A running clock follows the new sign
// without losing its position.
func (c *Clock) SetSpeed(speed float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setSpeed(speed)
}

func (c *Clock) setSpeed(speed float64) error {
	if speed == 0 {
		return ErrZeroSpeed
	}
	c.speed = speed
	switch {
	case c.state == Forward && speed < 0:
		c.setState(Rewind)
	case c.state == Rewind && speed > 0:
		c.setState(Forward)
	}
	return nil
}

// ChangeSpeed adds n to the speed, stepping over zero
func (c *Clock) ChangeSpeed(n float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n == 0 {
		return nil
	}
	speed := c.speed + n
	if speed == 0 {
		speed = c.speed + 2*n
	}
	return c.setSpeed(speed)
}

// Refresh rereads the page count of a growing history
func (c *Clock) Refresh(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Loading {
		return 0, ErrNotLoaded
	}
	return c.window.Refresh(ctx)
}
