// Package attempt drives one work item through
// prepare → interact → trigger → verify with a retry-once policy.
//
// The same machine serves every harvest variant: callers plug in the
// interact, trigger, prompt, verify and reset steps.
package attempt

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/model"
)

// MaxAttempts is the number of full prepare→verify cycles per item.
const MaxAttempts = 2

// State is a step of the attempt lifecycle.
type State string

const (
	StatePrepared   State = "prepared"
	StateInteracted State = "interacted"
	StateTriggered  State = "triggered"
	StateVerified   State = "verified"
	StateReset      State = "reset"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ErrBlockingPrompt is returned when a blocking prompt appears after the
// single allowed replay. It is terminal: the item is not retried.
var ErrBlockingPrompt = eris.New("blocking prompt appeared again after replay")

// PromptPolicy decides what a blocking prompt after Trigger means.
type PromptPolicy int

const (
	// PromptReplayOnce dismisses the first prompt and replays Trigger once.
	PromptReplayOnce PromptPolicy = iota
	// PromptFailFast treats the first prompt as a terminal failure.
	PromptFailFast
)

// Steps are the callbacks the machine sequences for one item. Interact,
// Trigger and Verify are required.
type Steps[T any] struct {
	// Interact selects the item's context in the external surface.
	Interact func(ctx context.Context) error
	// Trigger performs the side-effect producing action (e.g. submit search).
	Trigger func(ctx context.Context) error
	// Prompt detects and dismisses a blocking prompt, returning its text.
	Prompt func(ctx context.Context) (text string, found bool, err error)
	// Verify requests the artifact and waits for it to materialize.
	Verify func(ctx context.Context) (T, error)
	// Reset restores the external surface to a known-good state before the retry.
	Reset func(ctx context.Context) error
	// Finish runs after success. Errors are logged, not fatal.
	Finish func(ctx context.Context) error
}

// Options configures a machine run.
type Options struct {
	Prompt PromptPolicy
}

// Result is the terminal state of one item.
type Result[T any] struct {
	Artifact T
	Err      error
	Attempts int
	Trace    []State
}

// Succeeded reports whether the item reached StateSucceeded.
func (r Result[T]) Succeeded() bool { return r.Err == nil }

// Reason renders the failure for the journal.
func (r Result[T]) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// terminalError marks failures that must not be retried.
type terminalError struct{ err error }

func (t *terminalError) Error() string { return t.err.Error() }
func (t *terminalError) Unwrap() error { return t.err }

// Run executes the machine for item. It never returns an error directly:
// failures are carried in the Result after retries are exhausted.
func Run[T any](ctx context.Context, item model.WorkItem, steps Steps[T], opts Options) Result[T] {
	log := zap.L().With(
		zap.String("component", "attempt"),
		zap.String("item_id", item.ID),
		zap.String("label", item.Label),
	)

	var res Result[T]
	for res.Attempts < MaxAttempts {
		res.Attempts++
		res.Trace = append(res.Trace, StatePrepared)

		artifact, err := runOnce(ctx, steps, opts, &res.Trace)
		if err == nil {
			res.Artifact = artifact
			res.Err = nil
			res.Trace = append(res.Trace, StateSucceeded)
			if steps.Finish != nil {
				if ferr := steps.Finish(ctx); ferr != nil {
					log.Warn("post-success cleanup failed", zap.Error(ferr))
				}
			}
			log.Info("attempt succeeded", zap.Int("attempt", res.Attempts))
			return res
		}
		res.Err = err

		var term *terminalError
		if errors.As(err, &term) {
			res.Err = term.err
			log.Warn("attempt failed terminally", zap.Int("attempt", res.Attempts), zap.Error(term.err))
			break
		}
		if ctx.Err() != nil {
			log.Warn("attempt aborted", zap.Error(ctx.Err()))
			break
		}
		if res.Attempts >= MaxAttempts {
			log.Warn("attempt failed, retries exhausted", zap.Int("attempt", res.Attempts), zap.Error(err))
			break
		}

		log.Info("attempt failed, resetting for retry", zap.Int("attempt", res.Attempts), zap.Error(err))
		if steps.Reset != nil {
			res.Trace = append(res.Trace, StateReset)
			if rerr := steps.Reset(ctx); rerr != nil {
				res.Err = eris.Wrap(rerr, "reset before retry")
				log.Warn("reset failed", zap.Error(rerr))
				break
			}
		}
	}

	res.Trace = append(res.Trace, StateFailed)
	return res
}

func runOnce[T any](ctx context.Context, steps Steps[T], opts Options, trace *[]State) (T, error) {
	var zero T

	if err := steps.Interact(ctx); err != nil {
		return zero, err
	}
	*trace = append(*trace, StateInteracted)

	if err := triggerWithPrompt(ctx, steps, opts, trace); err != nil {
		return zero, err
	}

	artifact, err := steps.Verify(ctx)
	*trace = append(*trace, StateVerified)
	if err != nil {
		return zero, err
	}
	return artifact, nil
}

// triggerWithPrompt runs Trigger and handles at most one replay after a
// blocking prompt.
func triggerWithPrompt[T any](ctx context.Context, steps Steps[T], opts Options, trace *[]State) error {
	replayed := false
	for {
		if err := steps.Trigger(ctx); err != nil {
			return err
		}
		*trace = append(*trace, StateTriggered)

		if steps.Prompt == nil {
			return nil
		}
		text, found, err := steps.Prompt(ctx)
		if err != nil {
			return eris.Wrap(err, "check blocking prompt")
		}
		if !found {
			return nil
		}

		switch {
		case opts.Prompt == PromptFailFast:
			return &terminalError{err: eris.Errorf("blocking prompt: %s", text)}
		case replayed:
			return &terminalError{err: eris.Wrapf(ErrBlockingPrompt, "%s", text)}
		}
		zap.L().Warn("blocking prompt dismissed, replaying trigger", zap.String("prompt", text))
		replayed = true
	}
}
