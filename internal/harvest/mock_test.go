package harvest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/harvest-cli/internal/attempt"
	"github.com/sells-group/harvest-cli/internal/browser"
	"github.com/sells-group/harvest-cli/internal/browser/browsertest"
	"github.com/sells-group/harvest-cli/internal/model"
)

// fakeDownloads is a DownloadVariant whose verify step writes <id>.xlsx into
// the session's download directory unless failures[id] is still positive.
type fakeDownloads struct {
	items   []model.WorkItem
	profile Profile

	mu       sync.Mutex
	failures  map[string]int
	attempts  map[string]int
	interacts map[string]int
}

func newFakeDownloads(items ...model.WorkItem) *fakeDownloads {
	return &fakeDownloads{
		items:    items,
		profile:  Profile{Kind: "Downloads", JournalPrefix: "download", Naming: "{category}_auto_{timestamp}{ext}"},
		failures:  make(map[string]int),
		attempts:  make(map[string]int),
		interacts: make(map[string]int),
	}
}

func (f *fakeDownloads) Name() string     { return "fake" }
func (f *fakeDownloads) Profile() Profile { return f.profile }

const (
	fakeSiteURL = "https://example.test/search"
	fakeTab     = "#searchTab"
)

func (f *fakeDownloads) Enumerate(ctx context.Context, sess browser.Session) ([]model.WorkItem, error) {
	if err := f.Prepare(ctx, sess); err != nil {
		return nil, err
	}
	return f.items, nil
}

// Prepare loads the search page.
func (f *fakeDownloads) Prepare(ctx context.Context, sess browser.Session) error {
	return sess.Navigate(ctx, fakeSiteURL)
}

func (f *fakeDownloads) DownloadSteps(sess browser.Session, item model.WorkItem) attempt.Steps[string] {
	return attempt.Steps[string]{
		Interact: func(ctx context.Context) error {
			f.mu.Lock()
			f.interacts[item.ID]++
			f.mu.Unlock()
			if !sess.Activate(ctx, fakeTab, 0) {
				return errors.New("Failed to click left panel tab")
			}
			return nil
		},
		Trigger:  func(context.Context) error { return nil },
		Verify: func(context.Context) (string, error) {
			f.mu.Lock()
			f.attempts[item.ID]++
			fail := f.failures[item.ID] > 0
			if fail {
				f.failures[item.ID]--
			}
			f.mu.Unlock()
			if fail {
				return "", errors.New("No new file detected")
			}
			path := filepath.Join(sess.DownloadDir(), item.ID+".xlsx")
			return path, os.WriteFile(path, []byte("x"), 0o644)
		},
		Reset: func(context.Context) error { return nil },
	}
}

func (f *fakeDownloads) attemptsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[id]
}

func (f *fakeDownloads) interactsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interacts[id]
}

// failingPrepare prepares the first session and fails on any other.
type failingPrepare struct {
	*fakeDownloads
	prepared int
}

func (f *failingPrepare) Prepare(ctx context.Context, sess browser.Session) error {
	f.prepared++
	if f.prepared > 1 {
		return errors.New("category list did not load")
	}
	return f.fakeDownloads.Prepare(ctx, sess)
}

func (f *failingPrepare) Enumerate(ctx context.Context, sess browser.Session) ([]model.WorkItem, error) {
	if err := f.Prepare(ctx, sess); err != nil {
		return nil, err
	}
	return f.items, nil
}

// fakeListing is a ListingVariant returning scripted handles per item id.
type fakeListing struct {
	items    []model.WorkItem
	listings map[string][]model.EntryHandle
}

func (f *fakeListing) Name() string { return "fake_detail" }

func (f *fakeListing) Profile() Profile {
	return Profile{Kind: "Detail Categories", JournalPrefix: "detail", Naming: "hco_info_auto_{category}_{timestamp}.csv"}
}

func (f *fakeListing) Fields() []string { return []string{"doctor_info"} }

func (f *fakeListing) Enumerate(_ context.Context, _ browser.Session) ([]model.WorkItem, error) {
	return f.items, nil
}

func (f *fakeListing) ListingSteps(_ browser.Session, item model.WorkItem) attempt.Steps[[]model.EntryHandle] {
	return attempt.Steps[[]model.EntryHandle]{
		Interact: func(context.Context) error { return nil },
		Trigger:  func(context.Context) error { return nil },
		Verify: func(context.Context) ([]model.EntryHandle, error) {
			hs := f.listings[item.ID]
			if len(hs) == 0 {
				return nil, errors.New("No entries listed")
			}
			return hs, nil
		},
	}
}

// fakeEnricher fails every handle named in fail.
type fakeEnricher struct{ fail map[string]bool }

func (f fakeEnricher) Enrich(_ context.Context, hs []model.EntryHandle) []model.EnrichedRecord {
	out := make([]model.EnrichedRecord, len(hs))
	for i, h := range hs {
		out[i] = model.EnrichedRecord{EntryHandle: h}
		if f.fail[h.Name] {
			out[i].Error = "fetch detail: timeout"
			continue
		}
		out[i].Fields = map[string]string{"doctor_info": "총 인원 " + h.Name}
	}
	return out
}

// sessions records every fake session a factory opened.
type sessions struct {
	mu    sync.Mutex
	fakes []*browsertest.Fake
	err   error
	// blank opens sessions with no page loaded.
	blank bool
}

func (s *sessions) factory(_ context.Context, dir string) (browser.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	f := browsertest.New(dir)
	f.Blank = s.blank
	s.fakes = append(s.fakes, f)
	return f, nil
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) StartRun(ctx context.Context, run *model.Run) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockLedger) RecordOutcomes(ctx context.Context, runID string, outcomes []model.Outcome) error {
	return m.Called(ctx, runID, outcomes).Error(0)
}

func (m *mockLedger) FinishRun(ctx context.Context, run *model.Run) error {
	return m.Called(ctx, run).Error(0)
}
