package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration
type Config struct {
	// Environment and logging
	Environment string
	LogLevel    string

	// Remote store (Supabase project)
	SupabaseURL string `validate:"required,url"`
	SupabaseKey string `validate:"required"`

	// Session identity used to scope remote reads
	OwnerID string `validate:"required"`

	// Local cache
	CachePath string

	// Sync timing
	StalenessWindow time.Duration
	FetchTimeout    time.Duration

	// Metrics
	EnableMetrics  bool
	MetricsAddress string

	// OTLP collector endpoint; tracing is disabled when empty
	TracingEndpoint string

	// Optional YAML overlay, hot-reloaded in development
	OverlayPath string
}

// LoadConfig loads configuration from environment variables, then applies
// the YAML overlay file when one is configured.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseKey:     getEnv("SUPABASE_SERVICE_ROLE_KEY", getEnv("SUPABASE_KEY", "")),
		OwnerID:         getEnv("OWNER_ID", ""),
		CachePath:       getEnv("CACHE_PATH", "netsync-cache.db"),
		StalenessWindow: getEnvDuration("STALENESS_WINDOW", 5*time.Minute),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 8*time.Second),
		EnableMetrics:   getEnvBool("ENABLE_METRICS", false),
		MetricsAddress:  getEnv("METRICS_ADDRESS", ":9090"),
		TracingEndpoint: getEnv("TRACING_ENDPOINT", ""),
		OverlayPath:     getEnv("CONFIG_FILE", ""),
	}

	if cfg.OverlayPath != "" {
		if err := cfg.ApplyOverlay(cfg.OverlayPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay mirrors Config with optional fields, so an overlay file only
// touches the keys it names. Durations are strings in Go syntax ("90s").
type overlay struct {
	Environment     *string `yaml:"environment"`
	LogLevel        *string `yaml:"log_level"`
	SupabaseURL     *string `yaml:"supabase_url"`
	SupabaseKey     *string `yaml:"supabase_key"`
	OwnerID         *string `yaml:"owner_id"`
	CachePath       *string `yaml:"cache_path"`
	StalenessWindow *string `yaml:"staleness_window"`
	FetchTimeout    *string `yaml:"fetch_timeout"`
	EnableMetrics   *bool   `yaml:"enable_metrics"`
	MetricsAddress  *string `yaml:"metrics_address"`
	TracingEndpoint *string `yaml:"tracing_endpoint"`
}

// ApplyOverlay merges the YAML file at path over the current values
func (c *Config) ApplyOverlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config overlay: %w", err)
	}
	var o overlay
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("parse config overlay: %w", err)
	}

	if o.Environment != nil {
		c.Environment = *o.Environment
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.SupabaseURL != nil {
		c.SupabaseURL = *o.SupabaseURL
	}
	if o.SupabaseKey != nil {
		c.SupabaseKey = *o.SupabaseKey
	}
	if o.OwnerID != nil {
		c.OwnerID = *o.OwnerID
	}
	if o.CachePath != nil {
		c.CachePath = *o.CachePath
	}
	if o.StalenessWindow != nil {
		d, err := time.ParseDuration(*o.StalenessWindow)
		if err != nil {
			return fmt.Errorf("parse staleness_window: %w", err)
		}
		c.StalenessWindow = d
	}
	if o.FetchTimeout != nil {
		d, err := time.ParseDuration(*o.FetchTimeout)
		if err != nil {
			return fmt.Errorf("parse fetch_timeout: %w", err)
		}
		c.FetchTimeout = d
	}
	if o.EnableMetrics != nil {
		c.EnableMetrics = *o.EnableMetrics
	}
	if o.MetricsAddress != nil {
		c.MetricsAddress = *o.MetricsAddress
	}
	if o.TracingEndpoint != nil {
		c.TracingEndpoint = *o.TracingEndpoint
	}
	return nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.StalenessWindow <= 0 {
		return fmt.Errorf("STALENESS_WINDOW must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration gets a duration environment variable with a default value.
// Plain integers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
