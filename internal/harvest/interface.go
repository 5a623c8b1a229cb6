package harvest

import (
	"context"

	"github.com/sells-group/harvest-cli/internal/attempt"
	"github.com/sells-group/harvest-cli/internal/browser"
	"github.com/sells-group/harvest-cli/internal/model"
)

// Profile holds a variant's defaults. Run options override Include, Exclude
// and Naming.
type Profile struct {
	// Kind names the batch in the journal header ("Downloads").
	Kind string
	// JournalPrefix names the journal file (<prefix>_failed_log_<ts>.txt).
	JournalPrefix string
	// Naming is the artifact naming template.
	Naming  string
	Include []string
	Exclude []string
	Prompt  attempt.PromptPolicy
}

// Variant is one kind of harvest against the site.
type Variant interface {
	// Name returns the unique identifier (e.g., "hospital", "clinic").
	Name() string

	// Profile returns the variant defaults.
	Profile() Profile

	// Enumerate resolves the work items from a fresh session.
	Enumerate(ctx context.Context, sess browser.Session) ([]model.WorkItem, error)
}

// Preparer is implemented by variants whose sessions must load the site
// before the first item. Enumerate prepares the first session; the engine
// prepares every other shard.
type Preparer interface {
	Prepare(ctx context.Context, sess browser.Session) error
}

// DownloadVariant produces one downloaded file per item.
type DownloadVariant interface {
	Variant
	DownloadSteps(sess browser.Session, item model.WorkItem) attempt.Steps[string]
}

// ListingVariant produces a converged entry listing per item, which is then
// enriched and written as one table.
type ListingVariant interface {
	Variant
	// Fields are the enrichment columns written after index, name and key.
	Fields() []string
	ListingSteps(sess browser.Session, item model.WorkItem) attempt.Steps[[]model.EntryHandle]
}

// Enricher turns handles into records, one per handle, in order.
type Enricher interface {
	Enrich(ctx context.Context, handles []model.EntryHandle) []model.EnrichedRecord
}

// SessionFactory opens a browser session that downloads into dir.
type SessionFactory func(ctx context.Context, dir string) (browser.Session, error)

// Ledger records runs and outcomes for later inspection. It is an audit trail
// only: no run reads another run's state.
type Ledger interface {
	StartRun(ctx context.Context, run *model.Run) error
	RecordOutcomes(ctx context.Context, runID string, outcomes []model.Outcome) error
	FinishRun(ctx context.Context, run *model.Run) error
}
