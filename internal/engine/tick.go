// Clock drives presentation ticks (idle movement, effects). It never runs
// nudges; those arrive from the caller.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// TicksPerSecond at the default interval.
const TicksPerSecond = 20

// MaxTickDelta caps the elapsed time handed to a single tick, so a stalled
// process does not teleport villagers across the plaza. Intervals above it
// run the plaza slower than real time.
const MaxTickDelta = 50 * time.Millisecond

// Clock drives the presentation loop.
type Clock struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Tick interval (default 50ms)

	// OnTick runs every tick with the capped elapsed time.
	OnTick func(tick uint64, delta time.Duration)
	// OnSecond runs every TicksPerSecond ticks.
	OnSecond func(tick uint64)

	running atomic.Bool
}

// NewClock creates a clock with default settings.
func NewClock() *Clock {
	return &Clock{Interval: time.Second / TicksPerSecond}
}

// Running reports whether Run is active.
func (c *Clock) Running() bool {
	return c.running.Load()
}

// Run ticks until ctx is cancelled or Stop is called.
func (c *Clock) Run(ctx context.Context) {
	if c.Interval <= 0 {
		c.Interval = time.Second / TicksPerSecond
	}
	c.running.Store(true)
	slog.Info("clock started", "tick", c.Tick, "interval", c.Interval)

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	last := time.Now()

	for c.running.Load() {
		select {
		case <-ctx.Done():
			c.running.Store(false)
		case now := <-ticker.C:
			c.Step(now.Sub(last))
			last = now
		}
	}

	slog.Info("clock stopped", "tick", c.Tick)
}

// Stop halts the loop after the current tick.
func (c *Clock) Stop() {
	c.running.Store(false)
}

// Step advances the clock by one tick.
func (c *Clock) Step(delta time.Duration) {
	if delta > MaxTickDelta {
		delta = MaxTickDelta
	}
	if delta < 0 {
		delta = 0
	}
	c.Tick++

	if c.OnTick != nil {
		c.OnTick(c.Tick, delta)
	}
	if c.Tick%TicksPerSecond == 0 && c.OnSecond != nil {
		c.OnSecond(c.Tick)
	}
}
