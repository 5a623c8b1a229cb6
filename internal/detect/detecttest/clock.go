// Package detecttest provides a virtual detect.Clock for tests.
package detecttest

import (
	"context"
	"sync"
	"time"
)

// StepClock is a virtual clock whose Sleep advances time instantly. It lets
// callers drive bounded waits without real delay.
type StepClock struct {
	mu     sync.Mutex
	now    time.Time
	slept  []time.Duration
	onStep func(total time.Duration)
}

// New returns a StepClock starting at start.
func New(start time.Time) *StepClock {
	return &StepClock{now: start}
}

// OnSleep registers a hook run after every Sleep with the total virtual time elapsed.
func (c *StepClock) OnSleep(fn func(total time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStep = fn
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *StepClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.slept = append(c.slept, d)
	var total time.Duration
	for _, s := range c.slept {
		total += s
	}
	hook := c.onStep
	c.mu.Unlock()

	if hook != nil {
		hook(total)
	}
	return nil
}

// Slept returns every duration passed to Sleep, in order.
func (c *StepClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.slept))
	copy(out, c.slept)
	return out
}
