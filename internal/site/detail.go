package site

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/attempt"
	"github.com/sells-group/harvest-cli/internal/browser"
	"github.com/sells-group/harvest-cli/internal/detect"
	"github.com/sells-group/harvest-cli/internal/harvest"
	"github.com/sells-group/harvest-cli/internal/model"
)

// DetailFields are the enrichment columns of the detail export.
var DetailFields = []string{"doctor_info", "specialties", "doctors", "dentists", "korean_medicine_doctors"}

var keyRe = regexp.MustCompile(`"(JDQ4[^"]+)"`)

// ExtractKey pulls the hospital lookup key out of an entry's onclick handler.
// It returns "" when none is present.
func ExtractKey(onclick string) string {
	m := keyRe.FindStringSubmatch(onclick)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// EntryHandles converts listed entries to handles indexed from 1.
func EntryHandles(entries []browser.Entry) []model.EntryHandle {
	out := make([]model.EntryHandle, len(entries))
	for i, e := range entries {
		out[i] = model.EntryHandle{
			Index: i + 1,
			Name:  strings.TrimSpace(e.Text),
			Key:   ExtractKey(e.OnClick),
		}
	}
	return out
}

// HospitalDetail collects every hospital listed for a category so each can
// be enriched with staff and specialty details.
type HospitalDetail struct {
	*Site
}

// NewHospitalDetail creates the detail variant.
func NewHospitalDetail(s *Site) *HospitalDetail { return &HospitalDetail{Site: s} }

func (d *HospitalDetail) Name() string { return "hospital_detail" }

func (d *HospitalDetail) Profile() harvest.Profile {
	return harvest.Profile{
		Kind:          "Detail Categories",
		JournalPrefix: "detail",
		Naming:        "hco_info_auto_{category}_{timestamp}.csv",
		Include:       []string{"상급종합병원", "종합병원"},
		Prompt:        attempt.PromptReplayOnce,
	}
}

func (d *HospitalDetail) Fields() []string { return DetailFields }

// Enumerate lists the hospital categories.
func (d *HospitalDetail) Enumerate(ctx context.Context, sess browser.Session) ([]model.WorkItem, error) {
	if err := d.Prepare(ctx, sess); err != nil {
		return nil, err
	}
	return d.categories(ctx, sess)
}

// ListingSteps searches one category and scrolls the result list until it
// stops growing. An empty listing fails verification.
func (d *HospitalDetail) ListingSteps(sess browser.Session, item model.WorkItem) attempt.Steps[[]model.EntryHandle] {
	return attempt.Steps[[]model.EntryHandle]{
		Interact: func(ctx context.Context) error {
			if err := d.Prepare(ctx, sess); err != nil {
				return err
			}
			return d.clickID(ctx, sess, item.ID, 2*d.Timing.StepPause)
		},
		Trigger: func(ctx context.Context) error {
			if err := d.selectAllDepartments(ctx, sess); err != nil {
				return err
			}
			return d.search(ctx, sess)
		},
		Prompt: sess.DismissBlockingPrompt,
		Verify: func(ctx context.Context) ([]model.EntryHandle, error) {
			return d.collect(ctx, sess, item)
		},
		Reset: func(ctx context.Context) error {
			return d.Prepare(ctx, sess)
		},
	}
}

func (d *HospitalDetail) collect(ctx context.Context, sess browser.Session, item model.WorkItem) ([]model.EntryHandle, error) {
	sel := d.Sel.ResultEntries
	probe := detect.Probe[browser.Entry]{
		List: func(ctx context.Context) ([]browser.Entry, error) {
			return sess.ListEntries(ctx, sel)
		},
		Nudge: func(ctx context.Context, _ browser.Entry) error {
			return sess.ScrollIntoView(ctx, sel, -1)
		},
	}

	conv, err := detect.Converge(ctx, d.Clock, probe, detect.ConvergeOptions{
		MaxIterations: d.Timing.MaxScrolls,
		Settle:        d.Timing.ScrollSettle,
		EmptyWait:     d.Timing.EmptyWait,
	})
	if err != nil {
		return nil, err
	}
	if len(conv.Entries) == 0 {
		return nil, eris.New("No entries listed")
	}

	d.log.Info("listing collected",
		zap.String("item_id", item.ID),
		zap.String("label", item.Label),
		zap.Int("entries", len(conv.Entries)),
		zap.Bool("converged", conv.Converged),
		zap.Int("iterations", conv.Iterations),
	)
	return EntryHandles(conv.Entries), nil
}

var _ harvest.ListingVariant = (*HospitalDetail)(nil)
