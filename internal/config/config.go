// Package config provides configuration management for the options lab.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"options-lab/internal/errors"
	"options-lab/internal/logging"
	"options-lab/internal/pricing"
)

// Config holds all application configuration.
type Config struct {
	Pricing     PricingConfig  `mapstructure:"pricing"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
	Synth       SynthConfig    `mapstructure:"synth"`
	Log         LogConfig      `mapstructure:"log"`
	Credentials Credentials    `mapstructure:"-" json:"-"` // Loaded separately
}

// PricingConfig holds Black-Scholes and solver settings.
type PricingConfig struct {
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`
	InitialVolGuess float64 `mapstructure:"initial_vol_guess"`
	IVTolerance     float64 `mapstructure:"iv_tolerance"`
	IVMaxIterations int     `mapstructure:"iv_max_iterations"`
	VolFloor        float64 `mapstructure:"vol_floor"`
	VolCap          float64 `mapstructure:"vol_cap"`
}

// AnalysisConfig holds distribution and strategy analysis settings.
type AnalysisConfig struct {
	BreakevenSamples  int     `mapstructure:"breakeven_samples"`
	HistogramBins     int     `mapstructure:"histogram_bins"`
	RangePadding      float64 `mapstructure:"range_padding"`
	FairEdgeThreshold float64 `mapstructure:"fair_edge_threshold"`
}

// SynthConfig holds data provider settings.
type SynthConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeframe     string        `mapstructure:"timeframe"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Credentials holds API credentials.
type Credentials struct {
	Synth SynthCredentials `mapstructure:"synth"`
}

// SynthCredentials holds the data provider API key.
type SynthCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/options-lab"
	}
	return filepath.Join(home, ".config", "options-lab")
}

// Path returns the main config file path inside configDir.
func Path(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	// Unmarshalling defaults into a fresh struct cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files are
// written from templates and the built-in defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := pricing.DefaultIVConfig()
	v.SetDefault("pricing.risk_free_rate", 0.05)
	v.SetDefault("pricing.initial_vol_guess", def.InitialGuess)
	v.SetDefault("pricing.iv_tolerance", def.Tolerance)
	v.SetDefault("pricing.iv_max_iterations", def.MaxIterations)
	v.SetDefault("pricing.vol_floor", def.MinVol)
	v.SetDefault("pricing.vol_cap", def.MaxVol)

	v.SetDefault("analysis.breakeven_samples", 200)
	v.SetDefault("analysis.histogram_bins", 20)
	v.SetDefault("analysis.range_padding", 0.25)
	v.SetDefault("analysis.fair_edge_threshold", 0.05)

	v.SetDefault("synth.base_url", "https://api.synthdata.co")
	v.SetDefault("synth.timeframe", "24h")
	v.SetDefault("synth.timeout", "10s")
	v.SetDefault("synth.retry_attempts", 2)
	v.SetDefault("synth.retry_delay", "1s")

	logDef := logging.DefaultLogConfig()
	v.SetDefault("log.level", logDef.Level)
	v.SetDefault("log.console", logDef.Console)
	v.SetDefault("log.file", logDef.File)
	v.SetDefault("log.file_path", logDef.FilePath)
	v.SetDefault("log.max_size", logDef.MaxSize)
	v.SetDefault("log.max_backups", logDef.MaxBackups)
	v.SetDefault("log.max_age", logDef.MaxAge)
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplate(configDir, "config.toml", configTemplate, 0644); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Restricted permissions for the credentials file.
			return createTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SYNTH_API_KEY"); v != "" {
		cfg.Credentials.Synth.APIKey = v
	}
	if v := os.Getenv("SYNTH_BASE_URL"); v != "" {
		cfg.Synth.BaseURL = v
	}
	if v := os.Getenv("OPTIONSLAB_RISK_FREE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: OPTIONSLAB_RISK_FREE_RATE=%q is not a number", errors.ErrConfigInvalid, v)
		}
		cfg.Pricing.RiskFreeRate = rate
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Pricing.IVConfig().Validate(); err != nil {
		return fmt.Errorf("%w: pricing: %v", errors.ErrConfigInvalid, err)
	}

	if c.Analysis.BreakevenSamples < 2 {
		return fmt.Errorf("%w: breakeven_samples must be at least 2", errors.ErrConfigInvalid)
	}
	if c.Analysis.HistogramBins < 1 {
		return fmt.Errorf("%w: histogram_bins must be positive", errors.ErrConfigInvalid)
	}
	if c.Analysis.RangePadding < 0 {
		return fmt.Errorf("%w: range_padding must be non-negative", errors.ErrConfigInvalid)
	}
	if c.Analysis.FairEdgeThreshold < 0 {
		return fmt.Errorf("%w: fair_edge_threshold must be non-negative", errors.ErrConfigInvalid)
	}

	if c.Synth.Timeout <= 0 {
		return fmt.Errorf("%w: synth timeout must be positive", errors.ErrConfigInvalid)
	}
	if c.Synth.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry_attempts must be non-negative", errors.ErrConfigInvalid)
	}

	return nil
}

// IVConfig returns the solver settings.
func (p PricingConfig) IVConfig() pricing.IVConfig {
	return pricing.IVConfig{
		InitialGuess:  p.InitialVolGuess,
		Tolerance:     p.IVTolerance,
		MaxIterations: p.IVMaxIterations,
		MinVol:        p.VolFloor,
		MaxVol:        p.VolCap,
	}
}

// LoggingConfig returns the settings for the logging package.
func (l LogConfig) LoggingConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      l.Level,
		Console:    l.Console,
		File:       l.File,
		FilePath:   l.FilePath,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
	}
}

// HasAPIKey reports whether live provider requests are possible.
func (c *Config) HasAPIKey() bool {
	return c.Credentials.Synth.APIKey != ""
}
