package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/harvest-cli/internal/browser"
	"github.com/sells-group/harvest-cli/internal/config"
	"github.com/sells-group/harvest-cli/internal/harvest"
	"github.com/sells-group/harvest-cli/internal/site"
	"github.com/sells-group/harvest-cli/internal/store"
)

// newSite builds the site glue shared by every variant.
func newSite(c *config.Config) (*site.Site, error) {
	sel, err := site.LoadSelectors(c.Site.SelectorsFile)
	if err != nil {
		return nil, err
	}
	return site.New(c.Site.URL, sel, siteTiming(c.Timing), nil), nil
}

func siteTiming(t config.TimingConfig) site.Timing {
	return site.Timing{
		StepPause:      config.Millis(t.StepPauseMs),
		SearchSettle:   config.Millis(t.SearchSettleMs),
		DownloadSettle: config.Millis(t.SettleMs),
		DownloadWait:   config.Secs(t.DownloadWaitSecs),
		DownloadPoll:   config.Millis(t.DownloadPollMs),
		ReadyTimeout:   config.Secs(t.ReadyTimeoutSecs),
		ScrollSettle:   config.Millis(t.ScrollSettleMs),
		EmptyWait:      config.Millis(t.EmptyWaitMs),
		MaxScrolls:     t.MaxScrolls,
	}
}

// newRegistry registers every variant the site supports.
func newRegistry(s *site.Site) *harvest.Registry {
	reg := harvest.NewRegistry()
	reg.Register(site.NewHospital(s))
	reg.Register(site.NewClinic(s))
	reg.Register(site.NewHospitalDetail(s))
	return reg
}

// chromeSessions opens one headless Chrome per shard directory.
func chromeSessions(c *config.Config) harvest.SessionFactory {
	return func(ctx context.Context, dir string) (browser.Session, error) {
		ch, err := browser.NewChrome(ctx, browser.ChromeOptions{
			DownloadDir: dir,
			Headless:    c.Browser.Headless,
			ExecPath:    c.Browser.ExecPath,
			UserAgent:   c.Browser.UserAgent,
			PromptWait:  config.Millis(c.Timing.PromptWaitMs),
		})
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

// asLedger keeps a disabled store a nil interface.
func asLedger(st store.Store) harvest.Ledger {
	if st == nil {
		return nil
	}
	return st
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("include", nil, "only process these labels (overrides config)")
	cmd.Flags().StringSlice("exclude", nil, "skip these labels (overrides config)")
	cmd.Flags().String("naming", "", "artifact naming template, e.g. {category}_auto_{timestamp}{ext}")
	cmd.Flags().Int("shards", 0, "parallel browser sessions (default browser.shards)")
}

// runOpts resolves run options: flags win over the variant's config section,
// which wins over the variant's built-in profile.
func runOpts(cmd *cobra.Command, c *config.Config, variant, outputDir string) harvest.RunOpts {
	vc := c.Variant(variant)
	opts := harvest.RunOpts{
		Variant:   variant,
		Include:   vc.Include,
		Exclude:   vc.Exclude,
		Naming:    vc.Naming,
		OutputDir: outputDir,
		LogDir:    c.Paths.LogDir,
		Shards:    c.Browser.Shards,
	}

	flags := cmd.Flags()
	if flags.Changed("include") {
		opts.Include, _ = flags.GetStringSlice("include")
	}
	if flags.Changed("exclude") {
		opts.Exclude, _ = flags.GetStringSlice("exclude")
	}
	if flags.Changed("naming") {
		opts.Naming, _ = flags.GetString("naming")
	}
	if flags.Changed("shards") {
		opts.Shards, _ = flags.GetInt("shards")
	}
	return opts
}

func printSummary(w io.Writer, s *harvest.Summary) {
	_, _ = fmt.Fprintf(w, "%s run %s: %s\n", s.Variant, s.Stamp, s.String())
	if s.ManifestPath != "" {
		_, _ = fmt.Fprintf(w, "manifest: %s\n", s.ManifestPath)
	}
}
