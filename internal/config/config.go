// Package config loads application configuration from a YAML file,
// environment variables, and typed defaults. Every tuning constant the
// reconciliation engine depends on (call spacing, retry schedule, month cap)
// is a named setting here rather than a literal in the code.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ProviderConfig configures access to the inverter telemetry cloud API and
// the client-side politeness policy applied to it.
type ProviderConfig struct {
	// BaseURL is the provider API root
	BaseURL string `mapstructure:"base_url"`

	// APIKey authenticates signed remote calls
	APIKey string `mapstructure:"api_key"`

	// CurrencyHint is passed through on month queries; some provider
	// deployments require it even for pure generation data
	CurrencyHint string `mapstructure:"currency_hint"`

	// Timeout bounds a single HTTP request
	Timeout time.Duration `mapstructure:"timeout"`

	// CallInterval is the minimum spacing between successive remote calls,
	// independent of retry backoff
	CallInterval time.Duration `mapstructure:"call_interval"`

	// RetryAttempts is the number of additional attempts after the first
	// failure of a month fetch
	RetryAttempts int `mapstructure:"retry_attempts"`

	// RetryStep is the linear backoff unit: attempt n waits n * RetryStep
	RetryStep time.Duration `mapstructure:"retry_step"`

	// MaxMonthsPerRun caps how many month buckets one invocation fetches;
	// 0 means unlimited
	MaxMonthsPerRun int `mapstructure:"max_months_per_run"`
}

// DatabaseConfig configures the summary store.
type DatabaseConfig struct {
	// Path is the DuckDB database file, or ":memory:" for tests
	Path string `mapstructure:"path"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, text
	Output     string `mapstructure:"output"`      // stdout, stderr, file
	FilePath   string `mapstructure:"file_path"`   // log file when output is "file"
	MaxSize    int    `mapstructure:"max_size"`    // MB per file before rotation
	MaxBackups int    `mapstructure:"max_backups"` // rotated files to keep
	MaxAge     int    `mapstructure:"max_age"`     // days to keep rotated files
	Compress   bool   `mapstructure:"compress"`    // gzip rotated files
}

// Load reads configuration from the given file path (or the default search
// locations when empty), overlaid with SOLAR_-prefixed environment
// variables, on top of the defaults below.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("solar-reconciler")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/solar-reconciler")
	}

	v.SetEnvPrefix("SOLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider defaults carry the observed values from the production jobs.
	v.SetDefault("provider.base_url", "https://api.solarcloud.example.com")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.currency_hint", "EUR")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.call_interval", "1s")
	v.SetDefault("provider.retry_attempts", 2)
	v.SetDefault("provider.retry_step", "1500ms")
	v.SetDefault("provider.max_months_per_run", 36)

	v.SetDefault("database.path", "./solar.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return errors.New("provider.base_url is required")
	}
	if c.Provider.RetryAttempts < 0 {
		return errors.New("provider.retry_attempts cannot be negative")
	}
	if c.Provider.RetryStep < 0 {
		return errors.New("provider.retry_step cannot be negative")
	}
	if c.Provider.CallInterval <= 0 {
		return errors.New("provider.call_interval must be positive")
	}
	if c.Provider.MaxMonthsPerRun < 0 {
		return errors.New("provider.max_months_per_run cannot be negative")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	switch c.Logging.Output {
	case "stdout", "stderr":
	case "file":
		if c.Logging.FilePath == "" {
			return errors.New("logging.file_path is required when logging.output is \"file\"")
		}
	default:
		return fmt.Errorf("unknown logging.output %q", c.Logging.Output)
	}
	return nil
}
