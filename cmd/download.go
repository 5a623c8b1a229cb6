package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/harvest"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download one export per category or department",
	Long: `Download one export per work item of a bulk variant.

  hospital  one listing export per hospital category (clinics excluded by default)
  clinic    one export per department under the clinic category

Failures are written to a journal in paths.log_dir; successful exports are
renamed into paths.download_dir after the sweep.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		variant, _ := cmd.Flags().GetString("variant")
		log := zap.L().With(zap.String("command", "download"), zap.String("variant", variant))

		s, err := newSite(cfg)
		if err != nil {
			return err
		}
		reg := newRegistry(s)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		engine := harvest.NewEngine(reg, chromeSessions(cfg), asLedger(st))
		summary, err := engine.RunDownloads(ctx, runOpts(cmd, cfg, variant, cfg.Paths.DownloadDir))
		if err != nil {
			return eris.Wrap(err, "download")
		}

		log.Info("download run finished",
			zap.String("run_id", summary.RunID),
			zap.Int("succeeded", len(summary.Succeeded())),
			zap.Int("failed", len(summary.Failed())),
		)
		printSummary(os.Stdout, summary)
		return nil
	},
}

func init() {
	downloadCmd.Flags().String("variant", "hospital", "bulk variant to run (hospital, clinic)")
	addRunFlags(downloadCmd)
	rootCmd.AddCommand(downloadCmd)
}
