package harvest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/harvest-cli/internal/attempt"
	"github.com/sells-group/harvest-cli/internal/browser"
	"github.com/sells-group/harvest-cli/internal/model"
)

// swept is the sweep result for one item, in enumeration order.
type swept[T any] struct {
	outcome  model.Outcome
	artifact T
}

// shardDirs returns one download directory per shard. A single shard uses
// dir itself.
func shardDirs(dir string, shards int) ([]string, error) {
	if shards <= 1 {
		return []string{dir}, nil
	}
	dirs := make([]string, shards)
	for k := range dirs {
		dirs[k] = filepath.Join(dir, fmt.Sprintf("shard-%d", k))
		if err := os.MkdirAll(dirs[k], 0o755); err != nil {
			return nil, eris.Wrapf(err, "harvest: create shard dir %s", dirs[k])
		}
	}
	return dirs, nil
}

// openSessions opens one session per directory. On failure every session
// already opened is torn down.
func openSessions(ctx context.Context, open SessionFactory, dirs []string) ([]browser.Session, error) {
	sessions := make([]browser.Session, 0, len(dirs))
	for _, dir := range dirs {
		sess, err := open(ctx, dir)
		if err != nil {
			teardown(sessions)
			return nil, eris.Wrapf(err, "harvest: open session for %s", dir)
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// teardown releases every session. Errors are logged and never returned.
func teardown(sessions []browser.Session) {
	for i, s := range sessions {
		if err := s.Teardown(); err != nil {
			zap.L().Warn("session teardown failed", zap.Int("shard", i), zap.Error(err))
		}
	}
}

// sweep drives every item through the attempt machine. Item i runs on
// session i mod len(sessions); each session processes its items sequentially.
// The result has exactly one entry per item, in item order.
func sweep[T any](
	ctx context.Context,
	sessions []browser.Session,
	items []model.WorkItem,
	steps func(browser.Session, model.WorkItem) attempt.Steps[T],
	opts attempt.Options,
) []swept[T] {
	log := zap.L().With(zap.String("component", "harvest.sweep"))
	out := make([]swept[T], len(items))

	var g errgroup.Group
	for k, sess := range sessions {
		g.Go(func() error {
			for i := k; i < len(items); i += len(sessions) {
				item := items[i]
				if err := ctx.Err(); err != nil {
					out[i].outcome = model.Failed(item, "cancelled: "+err.Error(), 0)
					continue
				}

				log.Info("processing item",
					zap.Int("shard", k),
					zap.Int("position", i+1),
					zap.Int("total", len(items)),
					zap.String("item_id", item.ID),
					zap.String("label", item.Label),
				)
				res := attempt.Run(ctx, item, steps(sess, item), opts)
				if res.Succeeded() {
					out[i] = swept[T]{outcome: model.Success(item, "", res.Attempts), artifact: res.Artifact}
					continue
				}
				out[i].outcome = model.Failed(item, res.Reason(), res.Attempts)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
