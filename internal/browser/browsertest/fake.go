// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sells-group/harvest-cli/internal/browser"
)

// Fake is a scripted browser.Session. Every selector is present unless
// listed in Missing. Hooks run when a selector is clicked or activated.
type Fake struct {
	mu sync.Mutex

	Dir       string
	Missing   map[string]bool
	Hooks     map[string]func(f *Fake) error
	LabelSets map[string][]browser.Label
	Entries   map[string]func() []browser.Entry

	prompts  []string
	calls    []string
	teardown int
	loaded   bool
	// TeardownErr is returned from Teardown.
	TeardownErr error
	// Blank makes every control unreachable until Navigate loads a page.
	Blank bool
}

// New creates a Fake that downloads into dir.
func New(dir string) *Fake {
	return &Fake{
		Dir:       dir,
		Missing:   make(map[string]bool),
		Hooks:     make(map[string]func(f *Fake) error),
		LabelSets: make(map[string][]browser.Label),
		Entries:   make(map[string]func() []browser.Entry),
	}
}

// On registers a hook for selector.
func (f *Fake) On(selector string, hook func(f *Fake) error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Hooks[selector] = hook
	return f
}

// SetLabels scripts the result of Labels(selector).
func (f *Fake) SetLabels(selector string, labels ...browser.Label) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LabelSets[selector] = labels
	return f
}

// SetEntries scripts ListEntries(selector).
func (f *Fake) SetEntries(selector string, fn func() []browser.Entry) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Entries[selector] = fn
	return f
}

// Prompt queues a blocking dialog with text.
func (f *Fake) Prompt(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, text)
}

// WriteDownload creates name in the download directory.
func (f *Fake) WriteDownload(name string) error {
	return os.WriteFile(filepath.Join(f.Dir, name), []byte("xlsx"), 0o644)
}

// Calls returns the recorded interactions, e.g. "click://a[@id=\"viewTab2\"]".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CountCalls counts recorded interactions equal to call.
func (f *Fake) CountCalls(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// TeardownCount returns how many times Teardown was called.
func (f *Fake) TeardownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teardown
}

func (f *Fake) record(format string, args ...any) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *Fake) missing(selector string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Blank && !f.loaded {
		return true
	}
	return f.Missing[selector]
}

func (f *Fake) fire(selector string) error {
	f.mu.Lock()
	hook := f.Hooks[selector]
	f.mu.Unlock()
	if hook == nil {
		return nil
	}
	return hook(f)
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	f.record("navigate:%s", url)
	f.mu.Lock()
	f.loaded = true
	f.mu.Unlock()
	return nil
}

func (f *Fake) Activate(_ context.Context, selector string, _ time.Duration) bool {
	f.record("activate:%s", selector)
	if f.missing(selector) {
		return false
	}
	return f.fire(selector) == nil
}

func (f *Fake) WaitPresent(_ context.Context, selector string, _ time.Duration) bool {
	f.record("wait:%s", selector)
	return !f.missing(selector)
}

func (f *Fake) Click(_ context.Context, selector string) error {
	f.record("click:%s", selector)
	if f.missing(selector) {
		return fmt.Errorf("no element matches %s", selector)
	}
	return f.fire(selector)
}

func (f *Fake) Labels(_ context.Context, selector string) ([]browser.Label, error) {
	f.record("labels:%s", selector)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]browser.Label(nil), f.LabelSets[selector]...), nil
}

func (f *Fake) ListEntries(_ context.Context, selector string) ([]browser.Entry, error) {
	f.mu.Lock()
	fn := f.Entries[selector]
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(), nil
}

func (f *Fake) ScrollIntoView(_ context.Context, selector string, index int) error {
	f.record("scroll:%s:%d", selector, index)
	return nil
}

func (f *Fake) DismissBlockingPrompt(_ context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return "", false, nil
	}
	text := f.prompts[0]
	f.prompts = f.prompts[1:]
	f.calls = append(f.calls, "dismiss:"+text)
	return text, true, nil
}

func (f *Fake) DownloadDir() string { return f.Dir }

func (f *Fake) Teardown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardown++
	return f.TeardownErr
}

var _ browser.Session = (*Fake)(nil)
