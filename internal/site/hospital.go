package site

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/attempt"
	"github.com/sells-group/harvest-cli/internal/browser"
	"github.com/sells-group/harvest-cli/internal/harvest"
	"github.com/sells-group/harvest-cli/internal/model"
)

// Hospital downloads one listing export per hospital category.
type Hospital struct {
	*Site
}

// NewHospital creates the hospital variant.
func NewHospital(s *Site) *Hospital { return &Hospital{Site: s} }

func (h *Hospital) Name() string { return "hospital" }

func (h *Hospital) Profile() harvest.Profile {
	return harvest.Profile{
		Kind:          "Downloads",
		JournalPrefix: "download",
		Naming:        "{category}_auto_{timestamp}{ext}",
		Exclude:       []string{"의원"},
		Prompt:        attempt.PromptReplayOnce,
	}
}

// Enumerate lists the hospital categories.
func (h *Hospital) Enumerate(ctx context.Context, sess browser.Session) ([]model.WorkItem, error) {
	if err := h.Prepare(ctx, sess); err != nil {
		return nil, err
	}
	return h.categories(ctx, sess)
}

// DownloadSteps selects the category, searches across all departments and
// downloads the export. A search prompt replays the department selection and
// search once.
func (h *Hospital) DownloadSteps(sess browser.Session, item model.WorkItem) attempt.Steps[string] {
	return attempt.Steps[string]{
		Interact: func(ctx context.Context) error {
			if err := h.openTab(ctx, sess); err != nil {
				return err
			}
			return h.clickID(ctx, sess, item.ID, h.Timing.StepPause)
		},
		Trigger: func(ctx context.Context) error {
			if err := h.selectAllDepartments(ctx, sess); err != nil {
				return err
			}
			return h.search(ctx, sess)
		},
		Prompt: sess.DismissBlockingPrompt,
		Verify: func(ctx context.Context) (string, error) {
			return h.download(ctx, sess, item)
		},
		Reset: func(ctx context.Context) error {
			return h.Prepare(ctx, sess)
		},
		Finish: func(ctx context.Context) error {
			if !sess.Activate(ctx, h.Sel.ResetButton, 5*time.Second) {
				h.log.Debug("reset button not clickable", zap.String("item_id", item.ID))
				return nil
			}
			return h.pause(ctx, 2*h.Timing.StepPause)
		},
	}
}

var (
	_ harvest.DownloadVariant = (*Hospital)(nil)
	_ harvest.Preparer        = (*Hospital)(nil)
)
