// Package config loads and validates application configuration from a YAML
// file with environment variable overrides. Configuration errors are fatal
// at startup, before any scan cycle runs; a bad threshold must never
// silently skew a detection pass.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig marks a malformed configuration value.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete application configuration.
type Config struct {
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// PolymarketConfig holds market-data fetcher configuration.
type PolymarketConfig struct {
	GammaAPIURL    string        `mapstructure:"gamma_api_url"`
	CLOBAPIURL     string        `mapstructure:"clob_api_url"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MinVolume      float64       `mapstructure:"min_volume"`
	MaxMarkets     int           `mapstructure:"max_markets"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RequestsPerSec int           `mapstructure:"requests_per_sec"`
}

// DetectorConfig holds the detection thresholds consumed by the engine.
type DetectorConfig struct {
	ProbSumTolerance      float64  `mapstructure:"prob_sum_tolerance"`
	CrossMarketTolerance  float64  `mapstructure:"cross_market_tolerance"`
	SimilarityThreshold   float64  `mapstructure:"similarity_threshold"`
	SpreadThreshold       float64  `mapstructure:"spread_threshold"`
	TimeQualifierPatterns []string `mapstructure:"time_qualifier_patterns"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds opportunity-history persistence configuration.
type StorageConfig struct {
	DBPath    string        `mapstructure:"db_path"`
	Retention time.Duration `mapstructure:"retention"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file, applying defaults and
// ARBITER_-prefixed environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("ARBITER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
// Detection thresholds default to the values the strategies were tuned with.
func setDefaults(v *viper.Viper) {
	v.SetDefault("polymarket.gamma_api_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.clob_api_url", "https://clob.polymarket.com")
	v.SetDefault("polymarket.poll_interval", "30s")
	v.SetDefault("polymarket.timeout", "10s")
	v.SetDefault("polymarket.min_volume", 10000.0)
	v.SetDefault("polymarket.max_markets", 500)
	v.SetDefault("polymarket.max_retries", 3)
	v.SetDefault("polymarket.requests_per_sec", 5)

	v.SetDefault("detector.prob_sum_tolerance", 0.02)
	v.SetDefault("detector.cross_market_tolerance", 0.02)
	v.SetDefault("detector.similarity_threshold", 0.80)
	v.SetDefault("detector.spread_threshold", 0.10)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.db_path", "./data/arbiter.db")
	v.SetDefault("storage.retention", "168h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are usable. Every violation
// wraps ErrInvalidConfig so callers can distinguish configuration failures
// from runtime ones.
func (c *Config) Validate() error {
	if c.Polymarket.GammaAPIURL == "" {
		return fmt.Errorf("%w: polymarket.gamma_api_url is required", ErrInvalidConfig)
	}
	if c.Polymarket.CLOBAPIURL == "" {
		return fmt.Errorf("%w: polymarket.clob_api_url is required", ErrInvalidConfig)
	}
	if c.Polymarket.PollInterval < 10*time.Second {
		return fmt.Errorf("%w: polymarket.poll_interval must be at least 10s", ErrInvalidConfig)
	}
	if c.Polymarket.MaxMarkets < 1 {
		return fmt.Errorf("%w: polymarket.max_markets must be at least 1", ErrInvalidConfig)
	}
	if c.Polymarket.RequestsPerSec < 1 {
		return fmt.Errorf("%w: polymarket.requests_per_sec must be at least 1", ErrInvalidConfig)
	}

	if c.Detector.ProbSumTolerance <= 0 || c.Detector.ProbSumTolerance >= 1 {
		return fmt.Errorf("%w: detector.prob_sum_tolerance must be in (0,1)", ErrInvalidConfig)
	}
	if c.Detector.CrossMarketTolerance <= 0 || c.Detector.CrossMarketTolerance >= 1 {
		return fmt.Errorf("%w: detector.cross_market_tolerance must be in (0,1)", ErrInvalidConfig)
	}
	if c.Detector.SimilarityThreshold < 0 || c.Detector.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: detector.similarity_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.Detector.SpreadThreshold <= 0 || c.Detector.SpreadThreshold > 1 {
		return fmt.Errorf("%w: detector.spread_threshold must be in (0,1]", ErrInvalidConfig)
	}
	for _, p := range c.Detector.TimeQualifierPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: detector.time_qualifier_patterns entry %q: %v", ErrInvalidConfig, p, err)
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("%w: telegram.bot_token is required when telegram is enabled", ErrInvalidConfig)
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("%w: telegram.chat_id is required when telegram is enabled", ErrInvalidConfig)
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("%w: storage.db_path is required", ErrInvalidConfig)
	}
	if c.Storage.Retention < time.Hour {
		return fmt.Errorf("%w: storage.retention must be at least 1h", ErrInvalidConfig)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("%w: logging.level must be one of: debug, info, warn, error", ErrInvalidConfig)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("%w: logging.format must be one of: json, console", ErrInvalidConfig)
	}

	return nil
}
