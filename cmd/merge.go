package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/model"
	"github.com/sells-group/harvest-cli/internal/tabular"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <dir>",
	Short: "Merge downloaded exports into one table",
	Long: `Load every .xlsx or .csv file in a directory, tag each row with its
source_file and write the concatenation. Unreadable files are skipped.
Legacy .xls exports are not merged; convert them to .xlsx first.
The output format follows the --out extension (.xlsx or .csv).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		maxFiles, _ := cmd.Flags().GetInt("max-files")
		byTime, _ := cmd.Flags().GetBool("sort-by-time")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = defaultMergeOut(time.Now())
		}

		res, err := runMerge(cmd, tabular.MergeOptions{
			Dir:        args[0],
			Type:       typ,
			MaxFiles:   maxFiles,
			SortByTime: byTime,
		}, out)
		if err != nil {
			return err
		}
		formatMergeResult(os.Stdout, res, out)
		return nil
	},
}

func runMerge(cmd *cobra.Command, opts tabular.MergeOptions, out string) (*tabular.MergeResult, error) {
	res, err := tabular.Merge(cmd.Context(), opts)
	if err != nil {
		return nil, eris.Wrap(err, "merge")
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "merge: create %s", dir)
		}
	}
	if err := tabular.WriteAny(out, res.Table); err != nil {
		return nil, eris.Wrap(err, "merge: write output")
	}
	zap.L().Info("merge written",
		zap.String("path", out),
		zap.Int("files", len(res.Files)),
		zap.Int("rows", res.Table.Len()),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func defaultMergeOut(now time.Time) string {
	return "merged_" + now.Format(model.TimestampLayout) + ".csv"
}

func formatMergeResult(w io.Writer, res *tabular.MergeResult, out string) {
	_, _ = fmt.Fprintf(w, "merged %d file(s), %d rows -> %s\n", len(res.Files), res.Table.Len(), out)
	for _, f := range res.Files {
		_, _ = fmt.Fprintf(w, "  - %s\n", filepath.Base(f))
	}
	if len(res.Skipped) == 0 {
		return
	}
	skipped := make([]string, 0, len(res.Skipped))
	for f := range res.Skipped {
		skipped = append(skipped, f)
	}
	sort.Strings(skipped)
	_, _ = fmt.Fprintf(w, "skipped %d file(s):\n", len(skipped))
	for _, f := range skipped {
		_, _ = fmt.Fprintf(w, "  - %s: %v\n", filepath.Base(f), res.Skipped[f])
	}
}

func init() {
	mergeCmd.Flags().String("type", "xlsx", "input file type (xlsx, csv; legacy .xls is not supported)")
	mergeCmd.Flags().Int("max-files", 0, "merge at most this many files (0 = all)")
	mergeCmd.Flags().Bool("sort-by-time", false, "take the newest files first")
	mergeCmd.Flags().String("out", "", "output path (default merged_<timestamp>.csv)")
	rootCmd.AddCommand(mergeCmd)
}
