package tabular

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SourceColumn is appended to every merged row with the originating file name.
const SourceColumn = "source_file"

// MergeOptions configures Merge.
type MergeOptions struct {
	Dir        string
	Type       string // "xlsx" or "csv"
	MaxFiles   int    // 0 means all
	SortByTime bool   // newest first
}

// MergeResult is the combined table plus the files that contributed to it.
type MergeResult struct {
	Table   *Table
	Files   []string
	Skipped map[string]error
}

// Merge loads every file of the given type in a directory and concatenates
// them. Headers are unioned in first-seen order. Unreadable files are logged
// and skipped. It returns an error if no file could be merged.
func Merge(ctx context.Context, opts MergeOptions) (*MergeResult, error) {
	log := zap.L().With(zap.String("component", "tabular.merge"))

	if opts.Type == "" {
		opts.Type = "xlsx"
	}
	if opts.Type != "xlsx" && opts.Type != "csv" {
		return nil, eris.Errorf("merge: unsupported file type %q (want xlsx or csv)", opts.Type)
	}

	files, err := listFiles(opts)
	if err != nil {
		return nil, err
	}
	log.Info("files to merge", zap.Int("count", len(files)), zap.String("type", opts.Type))

	res := &MergeResult{Table: &Table{}, Skipped: make(map[string]error)}
	colIndex := make(map[string]int)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "merge: context cancelled")
		}

		t, err := readAny(path, opts.Type)
		if err != nil {
			log.Warn("failed to read file", zap.String("file", path), zap.Error(err))
			res.Skipped[path] = err
			continue
		}

		name := filepath.Base(path)
		for _, h := range append(append([]string(nil), t.Header...), SourceColumn) {
			if _, ok := colIndex[h]; !ok {
				colIndex[h] = len(res.Table.Header)
				res.Table.Header = append(res.Table.Header, h)
			}
		}
		for _, r := range t.Rows {
			out := make([]string, len(res.Table.Header))
			for j, cell := range r {
				if j < len(t.Header) {
					out[colIndex[t.Header[j]]] = cell
				}
			}
			out[colIndex[SourceColumn]] = name
			res.Table.Rows = append(res.Table.Rows, out)
		}
		res.Files = append(res.Files, path)
	}

	// Rows appended before later files widened the header.
	for i, r := range res.Table.Rows {
		if len(r) < len(res.Table.Header) {
			res.Table.Rows[i] = append(r, make([]string, len(res.Table.Header)-len(r))...)
		}
	}

	if len(res.Files) == 0 {
		return nil, eris.Errorf("merge: no %s files were merged from %s", opts.Type, opts.Dir)
	}
	log.Info("merged", zap.Int("files", len(res.Files)), zap.Int("rows", res.Table.Len()), zap.Int("columns", len(res.Table.Header)))
	return res, nil
}

func listFiles(opts MergeOptions) ([]string, error) {
	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, eris.Wrapf(err, "merge: read dir %s", opts.Dir)
	}

	type candidate struct {
		path  string
		mtime int64
	}
	var cands []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), "."+opts.Type) {
			if opts.Type == "xlsx" && strings.HasSuffix(strings.ToLower(e.Name()), ".xls") {
				zap.L().Warn("merge: legacy .xls export not merged", zap.String("file", e.Name()))
			}
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		cands = append(cands, candidate{path: filepath.Join(opts.Dir, e.Name()), mtime: info.ModTime().UnixNano()})
	}

	if opts.SortByTime {
		sort.SliceStable(cands, func(i, j int) bool {
			if cands[i].mtime != cands[j].mtime {
				return cands[i].mtime > cands[j].mtime
			}
			return cands[i].path < cands[j].path
		})
	}
	if opts.MaxFiles > 0 && len(cands) > opts.MaxFiles {
		cands = cands[:opts.MaxFiles]
	}

	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.path
	}
	return out, nil
}

func readAny(path, typ string) (*Table, error) {
	if typ == "csv" {
		return ReadCSVFile(path)
	}
	return ReadXLSXTable(path, XLSXOptions{})
}

// WriteAny writes t to path, choosing the format from the extension.
func WriteAny(path string, t *Table) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return WriteXLSX(path, "merged", t)
	}
	return WriteCSVFile(path, t)
}
