// Package store persists the run ledger: one row per invocation and one per
// work item outcome. It is an audit trail; runs never read each other.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/harvest-cli/internal/model"
)

// ErrRunNotFound is returned when a run id has no ledger row.
var ErrRunNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Variant string          `json:"variant,omitempty"`
	Status  model.RunStatus `json:"status,omitempty"`
	Limit   int             `json:"limit,omitempty"`
}

// Store is the run ledger.
type Store interface {
	StartRun(ctx context.Context, run *model.Run) error
	RecordOutcomes(ctx context.Context, runID string, outcomes []model.Outcome) error
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects the ledger for driver and applies the schema. An empty
// driver disables the ledger and returns a nil Store.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "":
		return nil, nil
	case "sqlite":
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q (valid: sqlite, postgres)", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func listLimit(f RunFilter) int {
	if f.Limit <= 0 {
		return 50
	}
	return f.Limit
}
