// Package browser is the UI-automation collaborator: an explicit Session
// handle over one interactive browser tab and one download directory.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Label is a form label and the id of the control it targets.
type Label struct {
	For  string `json:"for"`
	Text string `json:"text"`
}

// Entry is one visible result link.
type Entry struct {
	Text    string `json:"text"`
	OnClick string `json:"onclick"`
}

// Session drives one interactive page. Selectors starting with "/" or "("
// are XPath; anything else is CSS. A Session is not safe for concurrent use.
type Session interface {
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error
	// Activate waits up to timeout for selector to be clickable and clicks
	// it. It reports false when the control never became clickable.
	Activate(ctx context.Context, selector string, timeout time.Duration) bool
	// WaitPresent reports whether selector matched within timeout.
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) bool
	// Click clicks the first match or fails when nothing matches.
	Click(ctx context.Context, selector string) error
	// Labels returns every label matching selector in document order.
	Labels(ctx context.Context, selector string) ([]Label, error)
	// ListEntries returns every entry currently matching selector.
	ListEntries(ctx context.Context, selector string) ([]Entry, error)
	// ScrollIntoView scrolls the index-th match into view. Negative indexes
	// count from the end.
	ScrollIntoView(ctx context.Context, selector string, index int) error
	// DismissBlockingPrompt accepts a pending alert/confirm dialog and
	// returns its text. found is false when no dialog was open.
	DismissBlockingPrompt(ctx context.Context) (text string, found bool, err error)
	// DownloadDir is the directory this session saves downloads to.
	DownloadDir() string
	// Teardown closes the browser. Safe to call more than once.
	Teardown() error
}

// ByID returns an XPath selector matching the element with the given id.
// Ids on the target site are not always valid CSS identifiers.
func ByID(id string) string {
	return fmt.Sprintf("//*[@id=%s]", xpathLiteral(id))
}

// IsXPath reports whether selector is treated as XPath.
func IsXPath(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(")
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		quoted = append(quoted, `"`+p+`"`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
