package detect

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/harvest-cli/internal/detect/detecttest"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestSnapshot_SkipsPartialDownloads(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(dir, "a.xlsx"), now)
	touch(t, filepath.Join(dir, "b.xlsx.crdownload"), now)
	touch(t, filepath.Join(dir, "c.csv"), now)

	set, err := Snapshot(dir, "")
	require.NoError(t, err)
	assert.Len(t, set, 1)
	assert.Contains(t, set, filepath.Join(dir, "a.xlsx"))
}

func TestDiff(t *testing.T) {
	before := FileSet{"a.xlsx": {}}
	after := FileSet{"a.xlsx": {}, "b.xlsx": {}}
	assert.Equal(t, []string{"b.xlsx"}, Diff(before, after))
	assert.Empty(t, Diff(after, after))
}

func TestNewest_TieBreaksOnPath(t *testing.T) {
	dir := t.TempDir()
	mod := time.Now().Add(-time.Minute).Truncate(time.Second)
	a := filepath.Join(dir, "a.xlsx")
	b := filepath.Join(dir, "b.xlsx")
	touch(t, a, mod)
	touch(t, b, mod)

	got, ok := Newest([]string{a, b})
	require.True(t, ok)
	assert.Equal(t, b, got)

	touch(t, a, mod.Add(time.Second))
	got, ok = Newest([]string{a, b})
	require.True(t, ok)
	assert.Equal(t, a, got)

	_, ok = Newest([]string{filepath.Join(dir, "gone.xlsx")})
	assert.False(t, ok)
}

func TestWaitForDownload_DetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.xlsx"), time.Now())
	before, err := Snapshot(dir, "")
	require.NoError(t, err)

	touch(t, filepath.Join(dir, "b.xlsx"), time.Now())

	clock := detecttest.New(time.Unix(0, 0))
	got, err := WaitForDownload(context.Background(), clock, dir, before, DownloadOptions{
		Settle:  3 * time.Second,
		MaxWait: 35 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.xlsx"), got)
	assert.Equal(t, []time.Duration{3 * time.Second}, clock.Slept())
}

func TestWaitForDownload_NoNewFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.xlsx"), time.Now())
	before, err := Snapshot(dir, "")
	require.NoError(t, err)

	clock := detecttest.New(time.Unix(0, 0))
	_, err = WaitForDownload(context.Background(), clock, dir, before, DownloadOptions{
		Settle:  5 * time.Second,
		Poll:    10 * time.Second,
		MaxWait: 30 * time.Second,
	})
	require.ErrorIs(t, err, ErrNoNewFile)

	var total time.Duration
	for _, d := range clock.Slept() {
		total += d
	}
	assert.Equal(t, 30*time.Second, total)
}

func TestWaitForDownload_FileArrivesWhilePolling(t *testing.T) {
	dir := t.TempDir()
	before, err := Snapshot(dir, "")
	require.NoError(t, err)

	clock := detecttest.New(time.Unix(0, 0))
	clock.OnSleep(func(total time.Duration) {
		if total >= 15*time.Second {
			touch(t, filepath.Join(dir, "late.xls"), time.Now())
		}
	})

	got, err := WaitForDownload(context.Background(), clock, dir, before, DownloadOptions{
		Settle:  5 * time.Second,
		Poll:    5 * time.Second,
		MaxWait: time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "late.xls"), got)
	assert.Len(t, clock.Slept(), 3)
}

func TestWaitForDownload_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WaitForDownload(ctx, detecttest.New(time.Unix(0, 0)), t.TempDir(), FileSet{}, DownloadOptions{Settle: time.Second})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
