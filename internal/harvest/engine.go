package harvest

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/attempt"
	"github.com/sells-group/harvest-cli/internal/browser"
	"github.com/sells-group/harvest-cli/internal/journal"
	"github.com/sells-group/harvest-cli/internal/model"
	"github.com/sells-group/harvest-cli/internal/tabular"
)

// Engine runs harvests for registered variants.
type Engine struct {
	reg    *Registry
	open   SessionFactory
	ledger Ledger
}

// RunOpts configures one run. Nil Include/Exclude and an empty Naming fall
// back to the variant profile.
type RunOpts struct {
	Variant   string
	Include   []string
	Exclude   []string
	Naming    string
	OutputDir string
	LogDir    string
	Shards    int
	// StartedAt fixes the run timestamp. Zero means now.
	StartedAt time.Time
}

// NewEngine creates an engine. ledger may be nil.
func NewEngine(reg *Registry, open SessionFactory, ledger Ledger) *Engine {
	return &Engine{reg: reg, open: open, ledger: ledger}
}

// run is the per-invocation state shared by both run kinds.
type run struct {
	rc       model.RunContext
	variant  Variant
	profile  Profile
	rule     journal.Rule
	journal  *journal.Journal
	sessions []browser.Session
	items    []model.WorkItem
	skipped  []model.Outcome
	log      *zap.Logger
}

// begin validates options, creates directories, opens the sessions and
// resolves the work items. Any error here aborts the run before an item is
// attempted; sessions are torn down by the caller via end.
func (e *Engine) begin(ctx context.Context, opts RunOpts) (*run, error) {
	v, err := e.reg.Get(opts.Variant)
	if err != nil {
		return nil, err
	}

	profile := v.Profile()
	if opts.Include != nil {
		profile.Include = opts.Include
	}
	if opts.Exclude != nil {
		profile.Exclude = opts.Exclude
	}
	if opts.Naming != "" {
		profile.Naming = opts.Naming
	}
	rule, err := journal.ParseRule(profile.Naming)
	if err != nil {
		return nil, err
	}

	started := opts.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	r := &run{
		rc: model.RunContext{
			ID:        uuid.New().String(),
			StartedAt: started,
			OutputDir: opts.OutputDir,
			LogDir:    opts.LogDir,
			Naming:    profile.Naming,
		},
		variant: v,
		profile: profile,
		rule:    rule,
		journal: journal.New(profile.Kind, profile.JournalPrefix),
	}
	r.log = zap.L().With(
		zap.String("component", "harvest.engine"),
		zap.String("variant", v.Name()),
		zap.String("run_id", r.rc.ID),
	)

	for _, dir := range []string{opts.OutputDir, opts.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "harvest: create %s", dir)
		}
	}
	dirs, err := shardDirs(opts.OutputDir, opts.Shards)
	if err != nil {
		return nil, err
	}
	r.sessions, err = openSessions(ctx, e.open, dirs)
	if err != nil {
		return nil, err
	}

	all, err := v.Enumerate(ctx, r.sessions[0])
	if err != nil {
		teardown(r.sessions)
		r.sessions = nil
		return nil, eris.Wrap(err, "harvest: enumerate work items")
	}
	if p, ok := v.(Preparer); ok {
		for k := 1; k < len(r.sessions); k++ {
			if err := p.Prepare(ctx, r.sessions[k]); err != nil {
				teardown(r.sessions)
				r.sessions = nil
				return nil, eris.Wrapf(err, "harvest: prepare shard %d", k)
			}
		}
	}
	r.items, r.skipped = Partition(all, profile.Include, profile.Exclude)
	r.log.Info("work items resolved",
		zap.Int("enumerated", len(all)),
		zap.Int("selected", len(r.items)),
		zap.Int("skipped", len(r.skipped)),
		zap.Int("shards", len(r.sessions)),
	)

	e.startLedger(ctx, r)
	return r, nil
}

// RunDownloads sweeps every item of a DownloadVariant, then renames the
// downloaded files, writes the manifest and flushes the journal. Sessions are
// released on every exit path.
func (e *Engine) RunDownloads(ctx context.Context, opts RunOpts) (*Summary, error) {
	v, err := e.reg.Get(opts.Variant)
	if err != nil {
		return nil, err
	}
	dv, ok := v.(DownloadVariant)
	if !ok {
		return nil, eris.Errorf("harvest: variant %q does not download files", opts.Variant)
	}

	r, err := e.begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer teardown(r.sessions)

	results := sweep(ctx, r.sessions, r.items, dv.DownloadSteps, attempt.Options{Prompt: r.profile.Prompt})

	outcomes := make([]model.Outcome, len(results))
	for i, res := range results {
		outcomes[i] = res.outcome
		if !res.outcome.Succeeded() {
			r.journal.Record(res.outcome.Item, res.outcome.Reason)
		}
	}

	// Renames happen only once every outcome is final.
	namer := journal.NewNamer(r.rule, r.rc.OutputDir)
	for i, res := range results {
		if !res.outcome.Succeeded() {
			continue
		}
		item := res.outcome.Item
		target, err := namer.Reserve(journal.Vars{Item: item, Timestamp: r.rc.Stamp(), Ext: filepath.Ext(res.artifact)})
		if err == nil {
			err = os.Rename(res.artifact, target)
		}
		if err != nil {
			reason := "Rename failed: " + err.Error()
			r.log.Warn("rename failed", zap.String("item_id", item.ID), zap.String("path", res.artifact), zap.Error(err))
			outcomes[i] = model.Failed(item, reason, res.outcome.Attempts)
			outcomes[i].Artifact = res.artifact
			r.journal.Record(item, reason)
			continue
		}
		r.log.Info("renamed", zap.String("item_id", item.ID), zap.String("from", filepath.Base(res.artifact)), zap.String("path", target))
		outcomes[i].Artifact = target
	}

	return e.finish(ctx, r, outcomes, nil)
}

// RunDetail sweeps every item of a ListingVariant, then enriches each
// collected listing and writes one table per item.
func (e *Engine) RunDetail(ctx context.Context, opts RunOpts, enricher Enricher) (*Summary, error) {
	v, err := e.reg.Get(opts.Variant)
	if err != nil {
		return nil, err
	}
	lv, ok := v.(ListingVariant)
	if !ok {
		return nil, eris.Errorf("harvest: variant %q does not collect listings", opts.Variant)
	}

	r, err := e.begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer teardown(r.sessions)

	results := sweep(ctx, r.sessions, r.items, lv.ListingSteps, attempt.Options{Prompt: r.profile.Prompt})

	outcomes := make([]model.Outcome, len(results))
	for i, res := range results {
		outcomes[i] = res.outcome
		if !res.outcome.Succeeded() {
			r.journal.Record(res.outcome.Item, res.outcome.Reason)
		}
	}

	namer := journal.NewNamer(r.rule, r.rc.OutputDir)
	var tables []Table
	for i, res := range results {
		if !res.outcome.Succeeded() {
			continue
		}
		item := res.outcome.Item
		records := enricher.Enrich(ctx, res.artifact)

		path, err := namer.Reserve(journal.Vars{Item: item, Timestamp: r.rc.Stamp(), Ext: ".csv"})
		if err == nil {
			err = tabular.WriteCSVFile(path, DetailTable(lv.Fields(), records))
		}
		if err != nil {
			reason := "Write failed: " + err.Error()
			r.log.Warn("detail table not written", zap.String("item_id", item.ID), zap.Error(err))
			outcomes[i] = model.Failed(item, reason, res.outcome.Attempts)
			r.journal.Record(item, reason)
			continue
		}

		enriched := 0
		for _, rec := range records {
			if rec.Error == "" {
				enriched++
			}
		}
		outcomes[i].Artifact = path
		tables = append(tables, Table{Item: item, Path: path, Rows: len(records), Enriched: enriched})
		r.log.Info("detail table written",
			zap.String("item_id", item.ID),
			zap.String("label", item.Label),
			zap.String("path", path),
			zap.Int("rows", len(records)),
			zap.Int("enriched", enriched),
		)
	}

	return e.finish(ctx, r, outcomes, tables)
}

// finish writes the manifest, flushes the journal and closes the ledger run.
func (e *Engine) finish(ctx context.Context, r *run, outcomes []model.Outcome, tables []Table) (*Summary, error) {
	s := &Summary{
		RunID:    r.rc.ID,
		Variant:  r.variant.Name(),
		Stamp:    r.rc.Stamp(),
		Outcomes: outcomes,
		Skipped:  r.skipped,
		Failures: r.journal.Entries(),
		Tables:   tables,
	}

	manifest := filepath.Join(r.rc.LogDir, r.profile.JournalPrefix+"_manifest_"+r.rc.Stamp()+".csv")
	rows := make([]model.Outcome, 0, len(outcomes)+len(r.skipped))
	rows = append(append(rows, outcomes...), r.skipped...)
	if err := tabular.WriteCSVFile(manifest, Manifest(rows)); err != nil {
		r.log.Warn("manifest not written", zap.String("path", manifest), zap.Error(err))
	} else {
		s.ManifestPath = manifest
	}

	path, err := r.journal.Flush(r.rc.LogDir, r.rc.Stamp())
	if err != nil {
		e.finishLedger(ctx, r, s, err)
		return s, eris.Wrap(err, "harvest: flush journal")
	}
	s.JournalPath = path
	if path != "" {
		r.log.Warn("run finished with failures", zap.Int("failed", len(s.Failed())), zap.String("path", path))
	} else {
		r.log.Info("run finished cleanly", zap.Int("items", len(outcomes)))
	}

	e.finishLedger(ctx, r, s, nil)
	return s, nil
}

// Manifest renders one row per outcome. Skipped items follow the attempted
// ones.
func Manifest(outcomes []model.Outcome) *tabular.Table {
	t := tabular.NewTable("id", "label", "status", "artifact", "reason", "attempts")
	for _, o := range outcomes {
		t.Append(o.Item.ID, o.Item.Label, string(o.Status), o.Artifact, o.Reason, strconv.Itoa(o.Attempts))
	}
	return t
}

// DetailTable renders enriched records with index, name and key first and
// the enrichment error last.
func DetailTable(fields []string, records []model.EnrichedRecord) *tabular.Table {
	header := append([]string{"index", "name", "key"}, fields...)
	header = append(header, "enrichment_error")
	t := tabular.NewTable(header...)
	for _, rec := range records {
		row := []string{strconv.Itoa(rec.Index), rec.Name, rec.Key}
		for _, f := range fields {
			row = append(row, rec.Field(f))
		}
		row = append(row, rec.Error)
		t.Append(row...)
	}
	return t
}

func (e *Engine) startLedger(ctx context.Context, r *run) {
	if e.ledger == nil {
		return
	}
	err := e.ledger.StartRun(ctx, &model.Run{
		ID:        r.rc.ID,
		Variant:   r.variant.Name(),
		Status:    model.RunStatusRunning,
		Items:     len(r.items),
		StartedAt: r.rc.StartedAt,
	})
	if err != nil {
		r.log.Warn("ledger: start run failed", zap.Error(err))
	}
}

func (e *Engine) finishLedger(ctx context.Context, r *run, s *Summary, runErr error) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.RecordOutcomes(ctx, r.rc.ID, s.Outcomes); err != nil {
		r.log.Warn("ledger: record outcomes failed", zap.Int("outcomes", len(s.Outcomes)), zap.Error(err))
	}

	now := time.Now()
	rec := &model.Run{
		ID:          r.rc.ID,
		Variant:     r.variant.Name(),
		Status:      s.Status(),
		Items:       len(s.Outcomes),
		Succeeded:   len(s.Succeeded()),
		Failed:      len(s.Failed()),
		JournalPath: s.JournalPath,
		StartedAt:   r.rc.StartedAt,
		FinishedAt:  &now,
	}
	if runErr != nil {
		rec.Status = model.RunStatusFailed
		rec.Error = runErr.Error()
	}
	if err := e.ledger.FinishRun(ctx, rec); err != nil {
		r.log.Warn("ledger: finish run failed", zap.Error(err))
	}
}
