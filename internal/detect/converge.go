package detect

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Probe observes a lazily growing list. List returns what is currently
// visible; Nudge asks the UI to bring the given entry into view so more load.
type Probe[T any] struct {
	List  func(ctx context.Context) ([]T, error)
	Nudge func(ctx context.Context, last T) error
}

// ConvergeOptions bounds the convergence loop.
type ConvergeOptions struct {
	MaxIterations int           // hard cap on iterations, default 100
	Settle        time.Duration // wait after each nudge
	EmptyWait     time.Duration // wait when nothing is visible yet
}

// Convergence is the result of Converge.
type Convergence[T any] struct {
	Entries    []T
	Converged  bool // false when the iteration cap was hit (best effort)
	Iterations int
}

// Converge repeatedly nudges the list and re-probes it until two consecutive
// probes report the same count. Hitting the iteration cap is not an error:
// the last observed entries are returned with Converged false.
func Converge[T any](ctx context.Context, clock Clock, probe Probe[T], opts ConvergeOptions) (Convergence[T], error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}

	var (
		res     Convergence[T]
		prevLen int
	)
	for res.Iterations < opts.MaxIterations {
		res.Iterations++

		current, err := probe.List(ctx)
		if err != nil {
			return res, eris.Wrap(err, "detect: list entries")
		}
		if len(current) == 0 {
			if err := clock.Sleep(ctx, opts.EmptyWait); err != nil {
				return res, eris.Wrap(err, "detect: empty wait")
			}
			continue
		}
		res.Entries = current

		if err := probe.Nudge(ctx, current[len(current)-1]); err != nil {
			return res, eris.Wrap(err, "detect: nudge")
		}
		if err := clock.Sleep(ctx, opts.Settle); err != nil {
			return res, eris.Wrap(err, "detect: settle")
		}

		next, err := probe.List(ctx)
		if err != nil {
			return res, eris.Wrap(err, "detect: re-list entries")
		}
		if len(next) > 0 {
			res.Entries = next
		}
		if len(next) == prevLen {
			res.Converged = true
			return res, nil
		}
		prevLen = len(next)
	}
	return res, nil
}
