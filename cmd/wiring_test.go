package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/harvest-cli/internal/config"
	"github.com/sells-group/harvest-cli/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Site:  config.SiteConfig{URL: "https://map.test/getHealthMap.do", DetailURL: "https://map.test/detail"},
		Paths: config.PathsConfig{DownloadDir: "downloads", DetailDir: "detail", LogDir: "logs"},
		Variants: map[string]config.VariantConfig{
			"hospital": {Exclude: []string{"의원", "요양병원"}, Naming: "{slug}_{timestamp}{ext}"},
		},
		Timing: config.TimingConfig{
			StepPauseMs: 1000, SearchSettleMs: 3000, SettleMs: 5000, DownloadWaitSecs: 35,
			DownloadPollMs: 1000, ReadyTimeoutSecs: 10, ScrollSettleMs: 1200, EmptyWaitMs: 1000, MaxScrolls: 100,
		},
		Browser: config.BrowserConfig{Headless: true, Shards: 2},
		Detail:  config.DetailConfig{TimeoutSecs: 10, RatePerSec: 2, MaxAttempts: 3, CircuitThreshold: 5, CircuitResetSecs: 30},
	}
}

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addRunFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestRunOpts_ConfigOverridesProfile(t *testing.T) {
	c := testConfig()
	opts := runOpts(newFlagCmd(t), c, "hospital", c.Paths.DownloadDir)

	assert.Equal(t, "hospital", opts.Variant)
	assert.Nil(t, opts.Include)
	assert.Equal(t, []string{"의원", "요양병원"}, opts.Exclude)
	assert.Equal(t, "{slug}_{timestamp}{ext}", opts.Naming)
	assert.Equal(t, "downloads", opts.OutputDir)
	assert.Equal(t, "logs", opts.LogDir)
	assert.Equal(t, 2, opts.Shards)
}

func TestRunOpts_FlagsOverrideConfig(t *testing.T) {
	c := testConfig()
	cmd := newFlagCmd(t, "--exclude", "의원", "--include", "종합병원,병원", "--shards", "4", "--naming", "{category}{ext}")
	opts := runOpts(cmd, c, "hospital", c.Paths.DownloadDir)

	assert.Equal(t, []string{"종합병원", "병원"}, opts.Include)
	assert.Equal(t, []string{"의원"}, opts.Exclude)
	assert.Equal(t, "{category}{ext}", opts.Naming)
	assert.Equal(t, 4, opts.Shards)
}

func TestRunOpts_UnconfiguredVariantKeepsProfile(t *testing.T) {
	c := testConfig()
	opts := runOpts(newFlagCmd(t), c, "clinic", c.Paths.DownloadDir)
	assert.Nil(t, opts.Include)
	assert.Nil(t, opts.Exclude)
	assert.Empty(t, opts.Naming)
}

func TestSiteTiming(t *testing.T) {
	tm := siteTiming(testConfig().Timing)
	assert.Equal(t, time.Second, tm.StepPause)
	assert.Equal(t, 5*time.Second, tm.DownloadSettle)
	assert.Equal(t, 35*time.Second, tm.DownloadWait)
	assert.Equal(t, 1200*time.Millisecond, tm.ScrollSettle)
	assert.Equal(t, 100, tm.MaxScrolls)
}

func TestNewRegistry(t *testing.T) {
	s, err := newSite(testConfig())
	require.NoError(t, err)
	reg := newRegistry(s)
	assert.Equal(t, []string{"hospital", "clinic", "hospital_detail"}, reg.Names())
}

func TestNewSite_BadSelectorsFile(t *testing.T) {
	c := testConfig()
	c.Site.SelectorsFile = "does-not-exist.yaml"
	_, err := newSite(c)
	assert.Error(t, err)
}

func TestNewDetailPipeline(t *testing.T) {
	assert.NotNil(t, newDetailPipeline(testConfig()))
}

func TestAsLedger(t *testing.T) {
	assert.Nil(t, asLedger(nil))

	var st store.Store = &store.SQLiteStore{}
	assert.NotNil(t, asLedger(st))
}
