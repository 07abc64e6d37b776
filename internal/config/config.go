// Package config provides configuration management.
package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
	"matali-pricing/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Server contains HTTP server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Data points at the tier table and service master
	Data DataConfig `json:"data" yaml:"data"`

	// Pricing contains pricing configuration
	Pricing PricingConfig `json:"pricing" yaml:"pricing"`

	// Quotes configures quote history storage
	Quotes QuotesConfig `json:"quotes" yaml:"quotes"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr" yaml:"addr"`

	ReadTimeoutSeconds     int `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// DataConfig locates the tabular sources loaded at start
type DataConfig struct {
	// TiersPath is a .csv or .xlsx price tier table
	TiersPath string `json:"tiers_path" yaml:"tiers_path"`

	// TiersSheet selects the worksheet of an .xlsx table (default: first sheet)
	TiersSheet string `json:"tiers_sheet,omitempty" yaml:"tiers_sheet,omitempty"`

	// ServicesPath is the HCL service master; empty uses the built-in catalog
	ServicesPath string `json:"services_path,omitempty" yaml:"services_path,omitempty"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// Currency is the quoting currency
	Currency types.Currency `json:"currency" yaml:"currency"`

	// OutOfRange is fail, clamp or zero
	OutOfRange types.OutOfRangePolicy `json:"out_of_range" yaml:"out_of_range"`

	// StrictLabels rejects unknown service labels instead of using the default key
	StrictLabels bool `json:"strict_labels" yaml:"strict_labels"`

	// StrictTiers rejects tier tables with overlapping ranges
	StrictTiers bool `json:"strict_tiers" yaml:"strict_tiers"`
}

// QuotesConfig contains quote history settings
type QuotesConfig struct {
	// Driver is memory, file, postgres or mysql
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the database connection string for SQL drivers, or the directory for file
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// DefaultValidityDays applies when a request omits validity
	DefaultValidityDays int `json:"default_validity_days" yaml:"default_validity_days"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			Addr:                   ":8080",
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    30,
			ShutdownTimeoutSeconds: 10,
		},
		Data: DataConfig{
			TiersPath: filepath.Join("data", "pricing_tiers.csv"),
		},
		Pricing: PricingConfig{
			Currency:   types.CurrencySAR,
			OutOfRange: types.OutOfRangeFail,
		},
		Quotes: QuotesConfig{
			Driver:              "memory",
			DefaultValidityDays: 30,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a JSON or YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, apperrors.Config("read config file", err)
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, apperrors.Config("decode "+filepath.Base(path), err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	policy, err := types.ParseOutOfRangePolicy(string(c.Pricing.OutOfRange))
	if err != nil {
		return apperrors.Config("pricing.out_of_range", err)
	}
	c.Pricing.OutOfRange = policy

	switch c.Quotes.Driver {
	case "", "memory":
		c.Quotes.Driver = "memory"
	case "file", "postgres", "mysql":
		if c.Quotes.DSN == "" {
			return apperrors.Config("quotes.dsn is required for driver "+c.Quotes.Driver, nil)
		}
	default:
		return apperrors.Config("unknown quotes.driver "+c.Quotes.Driver, nil)
	}

	if c.Quotes.DefaultValidityDays <= 0 {
		return apperrors.Config("quotes.default_validity_days must be positive", nil)
	}
	if c.Data.TiersPath == "" {
		return apperrors.Config("data.tiers_path is required", nil)
	}
	return nil
}

// envOverrides lists the MATALI_* variables; unset variables leave the file value alone.
type envOverrides struct {
	Addr         *string `env:"MATALI_ADDR, noinit"`
	TiersPath    *string `env:"MATALI_TIERS_PATH, noinit"`
	TiersSheet   *string `env:"MATALI_TIERS_SHEET, noinit"`
	ServicesPath *string `env:"MATALI_SERVICES_PATH, noinit"`
	Currency     *string `env:"MATALI_CURRENCY, noinit"`
	OutOfRange   *string `env:"MATALI_OUT_OF_RANGE, noinit"`
	StrictLabels *bool   `env:"MATALI_STRICT_LABELS, noinit"`
	StrictTiers  *bool   `env:"MATALI_STRICT_TIERS, noinit"`
	QuotesDriver *string `env:"MATALI_QUOTES_DRIVER, noinit"`
	QuotesDSN    *string `env:"MATALI_QUOTES_DSN, noinit"`
	LogLevel     *string `env:"MATALI_LOG_LEVEL, noinit"`
	LogFormat    *string `env:"MATALI_LOG_FORMAT, noinit"`
}

// ApplyEnv overrides settings from the environment. A nil lookuper reads the process env.
func (c *Config) ApplyEnv(ctx context.Context, lookuper envconfig.Lookuper) error {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}

	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return apperrors.Config("read environment", err)
	}

	setString(&c.Server.Addr, env.Addr)
	setString(&c.Data.TiersPath, env.TiersPath)
	setString(&c.Data.TiersSheet, env.TiersSheet)
	setString(&c.Data.ServicesPath, env.ServicesPath)
	setString(&c.Quotes.Driver, env.QuotesDriver)
	setString(&c.Quotes.DSN, env.QuotesDSN)
	setString(&c.Logging.Level, env.LogLevel)
	setString(&c.Logging.Format, env.LogFormat)
	if env.Currency != nil {
		c.Pricing.Currency = types.Currency(strings.ToUpper(*env.Currency))
	}
	if env.OutOfRange != nil {
		c.Pricing.OutOfRange = types.OutOfRangePolicy(*env.OutOfRange)
	}
	if env.StrictLabels != nil {
		c.Pricing.StrictLabels = *env.StrictLabels
	}
	if env.StrictTiers != nil {
		c.Pricing.StrictTiers = *env.StrictTiers
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
