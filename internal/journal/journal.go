// Package journal accumulates per-run failures, renders them as the
// timestamped failure report and owns output file naming.
package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/harvest-cli/internal/model"
)

const separator = "=================================================="

// Journal is the append-only failure record of one run. It is flushed once,
// at run end, by a single writer.
type Journal struct {
	kind    string
	prefix  string
	now     func() time.Time
	entries []model.FailureEntry
}

// New creates a journal. kind names the batch in the report header
// ("Downloads"), prefix names the report file ("download" → download_failed_log_<ts>.txt).
func New(kind, prefix string) *Journal {
	return &Journal{kind: kind, prefix: prefix, now: time.Now}
}

// Record appends a failure for item.
func (j *Journal) Record(item model.WorkItem, reason string) {
	j.entries = append(j.entries, model.FailureEntry{
		ItemID:    item.ID,
		ItemLabel: item.Label,
		Reason:    reason,
		Timestamp: j.now(),
	})
}

// Len returns the number of recorded failures.
func (j *Journal) Len() int { return len(j.entries) }

// Entries returns a copy of the recorded failures in insertion order.
func (j *Journal) Entries() []model.FailureEntry {
	out := make([]model.FailureEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

// FileName returns the report file name for stamp.
func (j *Journal) FileName(stamp string) string {
	return fmt.Sprintf("%s_failed_log_%s.txt", j.prefix, stamp)
}

// Render writes the report: a header line, a separator rule, then one line
// per failure as "- <label> (<id>): <reason>".
func (j *Journal) Render(w io.Writer, stamp string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "[%s] Failed %s\n", stamp, j.kind)
	fmt.Fprintln(bw, separator)
	for _, e := range j.entries {
		fmt.Fprintf(bw, "- %s (%s): %s\n", e.ItemLabel, e.ItemID, oneLine(e.Reason))
	}
	return eris.Wrap(bw.Flush(), "journal: render")
}

// Flush writes the report into dir when at least one failure was recorded and
// returns its path. A clean run writes nothing and returns "". An existing
// report from an earlier run in the same minute is never overwritten.
func (j *Journal) Flush(dir, stamp string) (string, error) {
	if len(j.entries) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "journal: create %s", dir)
	}

	base := j.FileName(stamp)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 0; n < 100; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", eris.Wrapf(err, "journal: create %s", path)
		}
		if err := j.Render(f, stamp); err != nil {
			_ = f.Close()
			return "", err
		}
		return path, eris.Wrapf(f.Close(), "journal: close %s", path)
	}
	return "", eris.Errorf("journal: no free file name for %s in %s", base, dir)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
