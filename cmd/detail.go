package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/config"
	"github.com/sells-group/harvest-cli/internal/enrich"
	"github.com/sells-group/harvest-cli/internal/harvest"
	"github.com/sells-group/harvest-cli/internal/resilience"
	"github.com/sells-group/harvest-cli/internal/site"
)

const detailVariant = "hospital_detail"

var detailCmd = &cobra.Command{
	Use:   "detail",
	Short: "Collect hospital listings and enrich them with staff details",
	Long: `Search each selected hospital category, scroll the result list until it
stops growing, then look up every listed hospital's staff summary and
specialties. One CSV per category is written to paths.detail_dir.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "detail"))

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
		summary, err := engine.RunDetail(ctx, runOpts(cmd, cfg, detailVariant, cfg.Paths.DetailDir), newDetailPipeline(cfg))
		if err != nil {
			return eris.Wrap(err, "detail")
		}

		log.Info("detail run finished",
			zap.String("run_id", summary.RunID),
			zap.Int("tables", len(summary.Tables)),
			zap.Int("failed", len(summary.Failed())),
		)
		printSummary(os.Stdout, summary)
		return nil
	},
}

// newDetailPipeline wires the detail client, the HTML parser and a circuit
// breaker that stops lookups while the endpoint keeps failing.
func newDetailPipeline(c *config.Config) *enrich.Pipeline {
	retry := resilience.DefaultRetryConfig()
	if c.Detail.MaxAttempts > 0 {
		retry.MaxAttempts = c.Detail.MaxAttempts
	}

	client := site.NewDetailClient(site.DetailOptions{
		URL:        c.Site.DetailURL,
		UserAgent:  c.Detail.UserAgent,
		Timeout:    config.Secs(c.Detail.TimeoutSecs),
		RatePerSec: c.Detail.RatePerSec,
		Retry:      retry,
	})

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: c.Detail.CircuitThreshold,
		ResetTimeout:     config.Secs(c.Detail.CircuitResetSecs),
		ShouldTrip:       resilience.IsTransient,
	})

	return enrich.New(client, enrich.ParserFunc(site.ParseHospitalDetail), enrich.Options{
		Referer: c.Site.URL,
		Breaker: breaker,
	})
}

func init() {
	addRunFlags(detailCmd)
	rootCmd.AddCommand(detailCmd)
}
