package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no stray config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.hira.or.kr/ra/hosp/getHealthMap.do", cfg.Site.URL)
	assert.Equal(t, "https://www.hira.or.kr/ra/hosp/hospInfoAjax.do", cfg.Site.DetailURL)
	assert.Equal(t, "downloads", cfg.Paths.DownloadDir)
	assert.Equal(t, "logs", cfg.Paths.LogDir)
	assert.Equal(t, 35, cfg.Timing.DownloadWaitSecs)
	assert.Equal(t, 5000, cfg.Timing.SettleMs)
	assert.Equal(t, 100, cfg.Timing.MaxScrolls)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1, cfg.Browser.Shards)
	assert.InDelta(t, 2.0, cfg.Detail.RatePerSec, 0.001)
	assert.Equal(t, 3, cfg.Detail.MaxAttempts)
	assert.Equal(t, "", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, VariantConfig{}, cfg.Variant("hospital"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: ledger.db
log:
  level: debug
  format: console
browser:
  shards: 3
timing:
  download_wait_secs: 60
variants:
  hospital:
    exclude: ["의원", "요양병원"]
  hospital_detail:
    include: ["종합병원"]
    naming: "detail_{slug}_{timestamp}.csv"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Browser.Shards)
	assert.Equal(t, 60, cfg.Timing.DownloadWaitSecs)
	assert.Equal(t, []string{"의원", "요양병원"}, cfg.Variant("hospital").Exclude)
	assert.Equal(t, []string{"종합병원"}, cfg.Variant("hospital_detail").Include)
	assert.Equal(t, "detail_{slug}_{timestamp}.csv", cfg.Variant("hospital_detail").Naming)
	assert.Nil(t, cfg.Variant("clinic").Include)
	// Defaults still apply for unset values
	assert.Equal(t, 1000, cfg.Timing.DownloadPollMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HARVEST_LOG_LEVEL", "warn")
	t.Setenv("HARVEST_BROWSER_SHARDS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Browser.Shards)
}

func TestLoadRejectsInvalid(t *testing.T) {
	chdirTemp(t)

	t.Setenv("HARVEST_STORE_DRIVER", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidate(t *testing.T) {
	cfg := &Config{Browser: BrowserConfig{Shards: 1}}
	assert.NoError(t, cfg.Validate())

	cfg.Browser.Shards = 0
	assert.Contains(t, cfg.Validate().Error(), "browser.shards must be >= 1")

	cfg.Browser.Shards = 1
	cfg.Store.Driver = "mysql"
	assert.Contains(t, cfg.Validate().Error(), `unknown store.driver "mysql"`)

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/harvest"
	assert.NoError(t, cfg.Validate())
}

func TestDurations(t *testing.T) {
	assert.Equal(t, 1200*time.Millisecond, Millis(1200))
	assert.Equal(t, 35*time.Second, Secs(35))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
