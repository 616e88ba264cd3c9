package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/venue-ingest/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	Retry  RetryConfig  `yaml:"retry" mapstructure:"retry"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// SourceConfig configures the directory listing API and the paging loop.
type SourceConfig struct {
	BaseURL       string            `yaml:"base_url" mapstructure:"base_url"`
	Headers       map[string]string `yaml:"headers" mapstructure:"headers"`
	Params        map[string]string `yaml:"params" mapstructure:"params"`
	DelayMs       int               `yaml:"delay_ms" mapstructure:"delay_ms"`
	TimeoutSecs   int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond float64           `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	StartPage     int               `yaml:"start_page" mapstructure:"start_page"`
	PageSize      int               `yaml:"page_size" mapstructure:"page_size"`
	MaxPages      int               `yaml:"max_pages" mapstructure:"max_pages"`
	MaxBodyBytes  int64             `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// Delay returns the pause between pages.
func (s SourceConfig) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

// Timeout returns the per-request timeout.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// RetryConfig configures retries of transient fetch failures. One attempt
// disables retrying.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// Resilience converts the settings into a resilience.RetryConfig.
func (r RetryConfig) Resilience() resilience.RetryConfig {
	return resilience.FromRetryConfig(r.MaxAttempts, r.InitialBackoffMs, r.MaxBackoffMs, r.Multiplier, r.JitterFraction)
}

// ServerConfig configures the read API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VENUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "venues.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("source.base_url", "https://www.wongnai.com/_api/businesses.json")
	v.SetDefault("source.headers", map[string]string{})
	v.SetDefault("source.params", map[string]string{})
	v.SetDefault("source.delay_ms", 1000)
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("source.rate_per_second", 0)
	v.SetDefault("source.start_page", 1)
	v.SetDefault("source.page_size", 20)
	v.SetDefault("source.max_pages", 10)
	v.SetDefault("source.max_body_bytes", 8<<20)
	v.SetDefault("retry.max_attempts", 1)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("server.port", 8080)
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

	return &cfg, nil
}

// Validate checks the settings a command needs. Mode is one of
// "migrate", "ingest", "query" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "migrate", "query":
	case "ingest":
		errs = append(errs, c.Source.validate()...)
		if c.Retry.MaxAttempts < 1 {
			errs = append(errs, "retry.max_attempts must be >= 1")
		}
		if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
			errs = append(errs, "retry.jitter_fraction must be between 0 and 1")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s SourceConfig) validate() []string {
	var errs []string
	if s.BaseURL == "" {
		errs = append(errs, "source.base_url is required")
	} else if u, err := url.Parse(s.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("source.base_url must be an http(s) URL, got %q", s.BaseURL))
	}
	if s.StartPage < 1 {
		errs = append(errs, "source.start_page must be >= 1")
	}
	if s.PageSize < 1 {
		errs = append(errs, "source.page_size must be >= 1")
	}
	if s.MaxPages < 1 {
		errs = append(errs, "source.max_pages must be >= 1")
	}
	if s.DelayMs < 0 {
		errs = append(errs, "source.delay_ms must be >= 0")
	}
	if s.TimeoutSecs <= 0 {
		errs = append(errs, "source.timeout_secs must be > 0")
	}
	if s.MaxBodyBytes < 0 {
		errs = append(errs, "source.max_body_bytes must be >= 0")
	}
	if s.RatePerSecond < 0 {
		errs = append(errs, "source.rate_per_second must be >= 0")
	}
	return errs
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
