// Package model defines the data types shared by the harvest engine, the
// enrichment pipeline, the failure journal and the run ledger.
package model

import "time"

// WorkItem is one category, department or grouping key processed as an
// atomic unit of acquisition. IDs are unique within a run.
type WorkItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// OutcomeStatus tags an Outcome.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Outcome is the single result recorded for a WorkItem after internal
// retries are exhausted.
type Outcome struct {
	Item     WorkItem      `json:"item"`
	Status   OutcomeStatus `json:"status"`
	Artifact string        `json:"artifact,omitempty"` // file path or collection reference
	Reason   string        `json:"reason,omitempty"`
	Attempts int           `json:"attempts"`
}

// Succeeded reports whether the outcome carries an artifact.
func (o Outcome) Succeeded() bool { return o.Status == OutcomeSuccess }

// Success builds a successful outcome.
func Success(item WorkItem, artifact string, attempts int) Outcome {
	return Outcome{Item: item, Status: OutcomeSuccess, Artifact: artifact, Attempts: attempts}
}

// Failed builds a failed outcome.
func Failed(item WorkItem, reason string, attempts int) Outcome {
	return Outcome{Item: item, Status: OutcomeFailed, Reason: reason, Attempts: attempts}
}

// Skipped builds a skipped outcome. Skipped items never reach the state machine.
func Skipped(item WorkItem, reason string) Outcome {
	return Outcome{Item: item, Status: OutcomeSkipped, Reason: reason}
}

// FailureEntry is one line of the failure journal.
type FailureEntry struct {
	ItemID    string    `json:"item_id"`
	ItemLabel string    `json:"item_label"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
