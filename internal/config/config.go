package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Site     SiteConfig               `yaml:"site" mapstructure:"site"`
	Paths    PathsConfig              `yaml:"paths" mapstructure:"paths"`
	Variants map[string]VariantConfig `yaml:"variants" mapstructure:"variants"`
	Timing   TimingConfig             `yaml:"timing" mapstructure:"timing"`
	Browser  BrowserConfig            `yaml:"browser" mapstructure:"browser"`
	Detail   DetailConfig             `yaml:"detail" mapstructure:"detail"`
	Store    StoreConfig              `yaml:"store" mapstructure:"store"`
	Log      LogConfig                `yaml:"log" mapstructure:"log"`
}

// SiteConfig locates the health map and its detail endpoint.
type SiteConfig struct {
	URL           string `yaml:"url" mapstructure:"url"`
	DetailURL     string `yaml:"detail_url" mapstructure:"detail_url"`
	SelectorsFile string `yaml:"selectors_file" mapstructure:"selectors_file"`
}

// PathsConfig holds the output directories.
type PathsConfig struct {
	DownloadDir string `yaml:"download_dir" mapstructure:"download_dir"`
	DetailDir   string `yaml:"detail_dir" mapstructure:"detail_dir"`
	LogDir      string `yaml:"log_dir" mapstructure:"log_dir"`
}

// VariantConfig overrides a variant's filters and naming rule. Nil slices
// and an empty naming keep the variant's defaults.
type VariantConfig struct {
	Include []string `yaml:"include" mapstructure:"include"`
	Exclude []string `yaml:"exclude" mapstructure:"exclude"`
	Naming  string   `yaml:"naming" mapstructure:"naming"`
}

// TimingConfig holds every wait cap and pause used against the site.
type TimingConfig struct {
	StepPauseMs      int `yaml:"step_pause_ms" mapstructure:"step_pause_ms"`
	SearchSettleMs   int `yaml:"search_settle_ms" mapstructure:"search_settle_ms"`
	SettleMs         int `yaml:"settle_ms" mapstructure:"settle_ms"`
	DownloadWaitSecs int `yaml:"download_wait_secs" mapstructure:"download_wait_secs"`
	DownloadPollMs   int `yaml:"download_poll_ms" mapstructure:"download_poll_ms"`
	ReadyTimeoutSecs int `yaml:"ready_timeout_secs" mapstructure:"ready_timeout_secs"`
	PromptWaitMs     int `yaml:"prompt_wait_ms" mapstructure:"prompt_wait_ms"`
	ScrollSettleMs   int `yaml:"scroll_settle_ms" mapstructure:"scroll_settle_ms"`
	EmptyWaitMs      int `yaml:"empty_wait_ms" mapstructure:"empty_wait_ms"`
	MaxScrolls       int `yaml:"max_scrolls" mapstructure:"max_scrolls"`
}

// Millis converts a millisecond setting to a duration.
func Millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// Secs converts a seconds setting to a duration.
func Secs(s int) time.Duration { return time.Duration(s) * time.Second }

// BrowserConfig configures the automated browser sessions.
type BrowserConfig struct {
	Headless  bool   `yaml:"headless" mapstructure:"headless"`
	ExecPath  string `yaml:"exec_path" mapstructure:"exec_path"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	Shards    int    `yaml:"shards" mapstructure:"shards"`
}

// DetailConfig configures the per-hospital detail lookups.
type DetailConfig struct {
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	CircuitThreshold int     `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig configures the optional run ledger. An empty driver disables it.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Variant returns the overrides for name, or the zero value.
func (c *Config) Variant(name string) VariantConfig {
	if c.Variants == nil {
		return VariantConfig{}
	}
	return c.Variants[name]
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("site.url", "https://www.hira.or.kr/ra/hosp/getHealthMap.do")
	v.SetDefault("site.detail_url", "https://www.hira.or.kr/ra/hosp/hospInfoAjax.do")
	v.SetDefault("paths.download_dir", "downloads")
	v.SetDefault("paths.detail_dir", "detail")
	v.SetDefault("paths.log_dir", "logs")
	v.SetDefault("timing.step_pause_ms", 1000)
	v.SetDefault("timing.search_settle_ms", 3000)
	v.SetDefault("timing.settle_ms", 5000)
	v.SetDefault("timing.download_wait_secs", 35)
	v.SetDefault("timing.download_poll_ms", 1000)
	v.SetDefault("timing.ready_timeout_secs", 10)
	v.SetDefault("timing.prompt_wait_ms", 2000)
	v.SetDefault("timing.scroll_settle_ms", 1200)
	v.SetDefault("timing.empty_wait_ms", 1000)
	v.SetDefault("timing.max_scrolls", 100)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.shards", 1)
	v.SetDefault("detail.timeout_secs", 10)
	v.SetDefault("detail.rate_per_sec", 2.0)
	v.SetDefault("detail.max_attempts", 3)
	v.SetDefault("detail.circuit_threshold", 5)
	v.SetDefault("detail.circuit_reset_secs", 30)
	v.SetDefault("detail.user_agent", "Mozilla/5.0")
	v.SetDefault("store.driver", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if c.Browser.Shards < 1 {
		return eris.Errorf("config: browser.shards must be >= 1, got %d", c.Browser.Shards)
	}
	switch c.Store.Driver {
	case "", "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Store.Driver != "" && c.Store.DatabaseURL == "" {
		return eris.Errorf("config: store.database_url is required for driver %q", c.Store.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
