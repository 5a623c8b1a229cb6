package tabular

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name string, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	tbl := fromRows(rows)
	require.NoError(t, WriteCSVFile(path, tbl))
	return path
}

func TestMerge_AddsSourceColumnAndUnionsHeaders(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", []string{"name", "addr"}, []string{"A", "서울"})
	writeCSV(t, dir, "b.csv", []string{"name", "phone"}, []string{"B", "02"})

	res, err := Merge(context.Background(), MergeOptions{Dir: dir, Type: "csv"})
	require.NoError(t, err)

	tbl := res.Table
	assert.Equal(t, []string{"name", "addr", SourceColumn, "phone"}, tbl.Header)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "a.csv", tbl.Get(0, SourceColumn))
	assert.Equal(t, "", tbl.Get(0, "phone"))
	assert.Equal(t, "02", tbl.Get(1, "phone"))
	assert.Equal(t, "b.csv", tbl.Get(1, SourceColumn))
	for _, r := range tbl.Rows {
		assert.Len(t, r, len(tbl.Header))
	}
}

func TestMerge_SortByTimeAndMaxFiles(t *testing.T) {
	dir := t.TempDir()
	old := writeCSV(t, dir, "old.csv", []string{"n"}, []string{"old"})
	writeCSV(t, dir, "new.csv", []string{"n"}, []string{"new"})
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	res, err := Merge(context.Background(), MergeOptions{Dir: dir, Type: "csv", SortByTime: true, MaxFiles: 1})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "new.csv", filepath.Base(res.Files[0]))
	assert.Equal(t, "new", res.Table.Get(0, "n"))
}

func TestMerge_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	createTestXLSX(t, dir, "good.xlsx", map[string][][]string{"Sheet1": {{"n"}, {"1"}}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.xlsx"), []byte("not a zip"), 0o644))

	res, err := Merge(context.Background(), MergeOptions{Dir: dir})
	require.NoError(t, err)
	assert.Len(t, res.Files, 1)
	assert.Len(t, res.Skipped, 1)
	assert.Equal(t, "good.xlsx", res.Table.Get(0, SourceColumn))
}

func TestMerge_IgnoresLegacyXLS(t *testing.T) {
	dir := t.TempDir()
	createTestXLSX(t, dir, "병원.xlsx", map[string][][]string{"Sheet1": {{"n"}, {"1"}}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "의원.xls"), []byte("BIFF8"), 0o644))

	res, err := Merge(context.Background(), MergeOptions{Dir: dir, Type: "xlsx"})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "병원.xlsx", filepath.Base(res.Files[0]))
	assert.Empty(t, res.Skipped)
}

func TestMerge_Errors(t *testing.T) {
	_, err := Merge(context.Background(), MergeOptions{Dir: t.TempDir(), Type: "json"})
	assert.Contains(t, err.Error(), "unsupported")

	_, err = Merge(context.Background(), MergeOptions{Dir: t.TempDir(), Type: "csv"})
	assert.Contains(t, err.Error(), "no csv files")

	_, err = Merge(context.Background(), MergeOptions{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
