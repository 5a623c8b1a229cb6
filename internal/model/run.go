package model

import "time"

// TimestampLayout formats RunContext timestamps for file names and journal headers.
const TimestampLayout = "20060102_1504"

// RunContext is the state scoped to one invocation. It is built at run start
// and read-only afterwards.
type RunContext struct {
	ID        string
	StartedAt time.Time
	OutputDir string
	LogDir    string
	Naming    string
}

// Stamp returns the run timestamp in TimestampLayout.
func (rc RunContext) Stamp() string { return rc.StartedAt.Format(TimestampLayout) }

// RunStatus represents the state of a recorded run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a ledger row describing one invocation.
type Run struct {
	ID          string     `json:"id"`
	Variant     string     `json:"variant"`
	Status      RunStatus  `json:"status"`
	Items       int        `json:"items"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	JournalPath string     `json:"journal_path,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Outcomes    []Outcome  `json:"outcomes,omitempty"`
}
