// Package detect decides whether an asynchronous side effect has completed
// without being told by the UI layer: a download landing in a directory, or
// a lazily loaded list that has stopped growing. Every wait is bounded.
package detect

import (
	"context"
	"time"
)

// Clock abstracts time so tests can simulate settle delays and timeouts.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
