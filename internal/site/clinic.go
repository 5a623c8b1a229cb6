package site

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/harvest-cli/internal/attempt"
	"github.com/sells-group/harvest-cli/internal/browser"
	"github.com/sells-group/harvest-cli/internal/harvest"
	"github.com/sells-group/harvest-cli/internal/model"
)

// Clinic downloads one export per department under the clinic category.
type Clinic struct {
	*Site

	mu       sync.Mutex
	clinicID string
}

// NewClinic creates the clinic variant.
func NewClinic(s *Site) *Clinic { return &Clinic{Site: s} }

func (c *Clinic) Name() string { return "clinic" }

func (c *Clinic) Profile() harvest.Profile {
	return harvest.Profile{
		Kind:          "Clinic Dept Downloads",
		JournalPrefix: "clinic",
		Naming:        "clinic_{dept}_auto_{timestamp}{ext}",
		Prompt:        attempt.PromptFailFast,
	}
}

// Enumerate opens the clinic category and lists its departments, skipping
// the select-all label.
func (c *Clinic) Enumerate(ctx context.Context, sess browser.Session) ([]model.WorkItem, error) {
	if err := c.Prepare(ctx, sess); err != nil {
		return nil, err
	}
	id, err := c.resolveClinic(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := c.clickID(ctx, sess, id, 2*c.Timing.StepPause); err != nil {
		return nil, eris.Wrap(err, "open clinic category")
	}
	if !sess.WaitPresent(ctx, c.Sel.DepartmentList, c.Timing.ReadyTimeout) {
		return nil, eris.New("department list did not load")
	}

	labels, err := sess.Labels(ctx, c.Sel.DepartmentLabels)
	if err != nil {
		return nil, err
	}
	return labelsToItems(labels, c.Sel.SelectAllLabel), nil
}

func (c *Clinic) resolveClinic(ctx context.Context, sess browser.Session) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clinicID != "" {
		return c.clinicID, nil
	}

	labels, err := sess.Labels(ctx, c.Sel.ClinicCategoryLabel)
	if err != nil {
		return "", err
	}
	if len(labels) == 0 || labels[0].For == "" {
		return "", eris.New("clinic category not found")
	}
	c.clinicID = labels[0].For
	return c.clinicID, nil
}

// DownloadSteps selects the clinic category and the department, then
// searches. Any prompt after the search is the failure reason.
func (c *Clinic) DownloadSteps(sess browser.Session, item model.WorkItem) attempt.Steps[string] {
	return attempt.Steps[string]{
		Interact: func(ctx context.Context) error {
			if err := c.openTab(ctx, sess); err != nil {
				return err
			}
			id, err := c.resolveClinic(ctx, sess)
			if err != nil {
				return err
			}
			if err := c.clickID(ctx, sess, id, 2*c.Timing.StepPause); err != nil {
				return err
			}
			return c.clickID(ctx, sess, item.ID, c.Timing.StepPause)
		},
		Trigger: func(ctx context.Context) error {
			return c.search(ctx, sess)
		},
		Prompt: sess.DismissBlockingPrompt,
		Verify: func(ctx context.Context) (string, error) {
			return c.download(ctx, sess, item)
		},
		Reset: func(ctx context.Context) error {
			return c.Open(ctx, sess)
		},
	}
}

var (
	_ harvest.DownloadVariant = (*Clinic)(nil)
	_ harvest.Preparer        = (*Clinic)(nil)
)
