// Package site drives the HIRA health map: category and department
// enumeration, the search/download flow for the bulk variants, the converged
// result listing for the detail variant, and the per-hospital detail lookup.
package site

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/browser"
	"github.com/sells-group/harvest-cli/internal/detect"
	"github.com/sells-group/harvest-cli/internal/model"
)

// Timing holds every wait used against the site. All are caps or fixed
// pauses; none block indefinitely.
type Timing struct {
	StepPause      time.Duration // after each click
	SearchSettle   time.Duration // after submitting a search
	DownloadSettle time.Duration
	DownloadWait   time.Duration
	DownloadPoll   time.Duration
	ReadyTimeout   time.Duration
	ScrollSettle   time.Duration
	EmptyWait      time.Duration
	MaxScrolls     int
}

// DefaultTiming mirrors the pauses the site was observed to need.
func DefaultTiming() Timing {
	return Timing{
		StepPause:      time.Second,
		SearchSettle:   3 * time.Second,
		DownloadSettle: 5 * time.Second,
		DownloadWait:   35 * time.Second,
		DownloadPoll:   time.Second,
		ReadyTimeout:   10 * time.Second,
		ScrollSettle:   1200 * time.Millisecond,
		EmptyWait:      time.Second,
		MaxScrolls:     100,
	}
}

// Site is the shared glue for every variant.
type Site struct {
	URL    string
	Sel    *Selectors
	Timing Timing
	Clock  detect.Clock
	log    *zap.Logger
}

// New creates a Site. A nil clock uses the wall clock.
func New(url string, sel *Selectors, timing Timing, clock detect.Clock) *Site {
	if clock == nil {
		clock = detect.RealClock{}
	}
	return &Site{
		URL:    url,
		Sel:    sel,
		Timing: timing,
		Clock:  clock,
		log:    zap.L().With(zap.String("component", "site")),
	}
}

func (s *Site) pause(ctx context.Context, d time.Duration) error {
	return s.Clock.Sleep(ctx, d)
}

// Open navigates to the search page and waits for the category list.
func (s *Site) Open(ctx context.Context, sess browser.Session) error {
	if err := sess.Navigate(ctx, s.URL); err != nil {
		return err
	}
	if !sess.WaitPresent(ctx, s.Sel.CategoryList, s.Timing.ReadyTimeout) {
		return eris.New("category list did not load")
	}
	return nil
}

// Prepare opens the page and switches to the search tab. It is also the
// reset used before a retry.
func (s *Site) Prepare(ctx context.Context, sess browser.Session) error {
	if err := s.Open(ctx, sess); err != nil {
		return err
	}
	return s.openTab(ctx, sess)
}

func (s *Site) openTab(ctx context.Context, sess browser.Session) error {
	if !sess.Activate(ctx, s.Sel.SearchTab, s.Timing.ReadyTimeout) {
		return eris.New("Failed to click left panel tab")
	}
	return s.pause(ctx, s.Timing.StepPause)
}

func (s *Site) clickID(ctx context.Context, sess browser.Session, id string, pause time.Duration) error {
	if err := sess.Click(ctx, browser.ByID(id)); err != nil {
		return err
	}
	return s.pause(ctx, pause)
}

// selectAllDepartments ticks the department select-all box when present.
func (s *Site) selectAllDepartments(ctx context.Context, sess browser.Session) error {
	if !sess.WaitPresent(ctx, s.Sel.SelectAllDepartments, 5*time.Second) {
		s.log.Warn("department select-all checkbox not found")
		return nil
	}
	if err := sess.Click(ctx, s.Sel.SelectAllDepartments); err != nil {
		s.log.Warn("department select-all click failed", zap.Error(err))
		return nil
	}
	return s.pause(ctx, s.Timing.StepPause)
}

func (s *Site) search(ctx context.Context, sess browser.Session) error {
	if err := sess.Click(ctx, s.Sel.SearchButton); err != nil {
		return eris.Wrap(err, "submit search")
	}
	return s.pause(ctx, s.Timing.SearchSettle)
}

// download snapshots the download directory, requests the export and waits
// for a new file.
func (s *Site) download(ctx context.Context, sess browser.Session, item model.WorkItem) (string, error) {
	dir := sess.DownloadDir()
	before, err := detect.Snapshot(dir, detect.DefaultPattern)
	if err != nil {
		return "", err
	}
	if err := sess.Click(ctx, s.Sel.DownloadButton); err != nil {
		return "", eris.Wrap(err, "request download")
	}
	s.log.Info("download requested", zap.String("item_id", item.ID), zap.String("label", item.Label))

	return detect.WaitForDownload(ctx, s.Clock, dir, before, detect.DownloadOptions{
		Pattern: detect.DefaultPattern,
		Settle:  s.Timing.DownloadSettle,
		Poll:    s.Timing.DownloadPoll,
		MaxWait: s.Timing.DownloadWait,
	})
}

// categories lists the category labels on the search tab.
func (s *Site) categories(ctx context.Context, sess browser.Session) ([]model.WorkItem, error) {
	labels, err := sess.Labels(ctx, s.Sel.CategoryLabels)
	if err != nil {
		return nil, err
	}
	return labelsToItems(labels, ""), nil
}

// labelsToItems converts labels to work items, dropping blanks, the skip
// label and duplicate ids.
func labelsToItems(labels []browser.Label, skip string) []model.WorkItem {
	seen := make(map[string]bool, len(labels))
	items := make([]model.WorkItem, 0, len(labels))
	for _, l := range labels {
		text := strings.TrimSpace(l.Text)
		id := strings.TrimSpace(l.For)
		if text == "" || id == "" || (skip != "" && text == skip) || seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, model.WorkItem{ID: id, Label: text})
	}
	return items
}
