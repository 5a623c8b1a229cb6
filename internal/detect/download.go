package detect

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNoNewFile is returned when no new file appeared before the wait cap.
var ErrNoNewFile = eris.New("No new file detected")

// DefaultPattern matches spreadsheet downloads (.xls, .xlsx).
const DefaultPattern = "*.xls*"

// partialSuffixes mark files a browser is still writing.
var partialSuffixes = []string{".crdownload", ".part", ".partial", ".tmp", ".download"}

// DownloadOptions bounds the download wait.
type DownloadOptions struct {
	Pattern string        // glob relative to the directory, default DefaultPattern
	Settle  time.Duration // wait before the first after-snapshot
	Poll    time.Duration // interval between later snapshots; 0 means a single check
	MaxWait time.Duration // total cap measured from the call, including Settle
}

// FileSet is a snapshot of matching file paths.
type FileSet map[string]struct{}

// Snapshot lists files in dir matching pattern, skipping partial downloads.
func Snapshot(dir, pattern string) (FileSet, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, eris.Wrapf(err, "detect: glob %s", pattern)
	}
	set := make(FileSet, len(matches))
	for _, m := range matches {
		if isPartial(m) {
			continue
		}
		set[m] = struct{}{}
	}
	return set, nil
}

// Diff returns the paths present in after but not in before, sorted.
func Diff(before, after FileSet) []string {
	var out []string
	for p := range after {
		if _, ok := before[p]; !ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Newest picks the most recently written file. Ties on modification time are
// broken by the lexicographically greatest path. Files that vanished are ignored.
func Newest(paths []string) (string, bool) {
	var (
		best    string
		bestMod time.Time
		found   bool
	)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		mod := info.ModTime()
		if !found || mod.After(bestMod) || (mod.Equal(bestMod) && p > best) {
			best, bestMod, found = p, mod, true
		}
	}
	return best, found
}

// WaitForDownload waits for a file to appear in dir that was not in before.
// It sleeps opts.Settle, then snapshots every opts.Poll until opts.MaxWait has
// elapsed. Returns ErrNoNewFile when the cap expires without a new file.
func WaitForDownload(ctx context.Context, clock Clock, dir string, before FileSet, opts DownloadOptions) (string, error) {
	deadline := clock.Now().Add(opts.MaxWait)

	if err := clock.Sleep(ctx, opts.Settle); err != nil {
		return "", eris.Wrap(err, "detect: settle")
	}

	for {
		after, err := Snapshot(dir, opts.Pattern)
		if err != nil {
			return "", err
		}
		if path, ok := Newest(Diff(before, after)); ok {
			return path, nil
		}

		remaining := deadline.Sub(clock.Now())
		if opts.Poll <= 0 || remaining <= 0 {
			return "", ErrNoNewFile
		}
		wait := opts.Poll
		if wait > remaining {
			wait = remaining
		}
		if err := clock.Sleep(ctx, wait); err != nil {
			return "", eris.Wrap(err, "detect: poll")
		}
	}
}

func isPartial(path string) bool {
	lower := strings.ToLower(path)
	for _, s := range partialSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}
