package harvest

import (
	"fmt"
	"strings"

	"github.com/sells-group/harvest-cli/internal/model"
)

// Table describes one persisted detail table.
type Table struct {
	Item     model.WorkItem
	Path     string
	Rows     int
	Enriched int
}

// Summary is the user-visible result of a run.
type Summary struct {
	RunID        string
	Variant      string
	Stamp        string
	Outcomes     []model.Outcome
	// Skipped holds items filtered out before the sweep. They are not part
	// of Outcomes and never fail a run.
	Skipped      []model.Outcome
	Failures     []model.FailureEntry
	JournalPath  string
	ManifestPath string
	Tables       []Table
}

// Succeeded returns the successful outcomes in enumeration order.
func (s *Summary) Succeeded() []model.Outcome {
	var out []model.Outcome
	for _, o := range s.Outcomes {
		if o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}

// Failed returns the failed outcomes in enumeration order.
func (s *Summary) Failed() []model.Outcome {
	var out []model.Outcome
	for _, o := range s.Outcomes {
		if o.Status == model.OutcomeFailed {
			out = append(out, o)
		}
	}
	return out
}

// Clean reports whether nothing failed.
func (s *Summary) Clean() bool { return len(s.Failures) == 0 }

// Status maps the summary to a ledger status.
func (s *Summary) Status() model.RunStatus {
	switch {
	case s.Clean():
		return model.RunStatusComplete
	case len(s.Succeeded()) > 0:
		return model.RunStatusPartial
	default:
		return model.RunStatusFailed
	}
}

// String renders the one-line result plus per-table counts.
func (s *Summary) String() string {
	var b strings.Builder
	if s.Clean() {
		fmt.Fprintf(&b, "all succeeded (%d items)", len(s.Outcomes))
	} else {
		fmt.Fprintf(&b, "%d failed, see journal at %s", len(s.Failed()), s.JournalPath)
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, ", %d skipped", len(s.Skipped))
	}
	for _, t := range s.Tables {
		fmt.Fprintf(&b, "\n  %s: %d rows, %d enriched -> %s", t.Item.Label, t.Rows, t.Enriched, t.Path)
	}
	return b.String()
}
