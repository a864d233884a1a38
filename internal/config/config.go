// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	FrontendURL   string
	DBPath        string
	AssignmentTTL time.Duration
	Flags         FlagsConfig
	Analytics     AnalyticsConfig
}

// FlagsConfig controls the feature-flag engine.
type FlagsConfig struct {
	// Endpoint is the remote config URL. Empty means defaults only.
	Endpoint string
	// RefreshInterval re-fetches remote config at this cadence. Zero
	// disables periodic refresh.
	RefreshInterval time.Duration
	// DefaultsFile is an optional YAML file seeding flag defaults.
	DefaultsFile string
	// Defaults is the baseline name->enabled map, always available even
	// when the remote fetch fails.
	Defaults map[string]bool
	Debug    bool
}

// AnalyticsConfig controls the event tracking sink.
type AnalyticsConfig struct {
	// Endpoint is the capture API base URL. Empty disables event delivery.
	Endpoint  string
	APIKey    string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("ANALYTICS_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/splitkit.db"),
		AssignmentTTL: time.Duration(getEnvInt("ASSIGNMENT_TTL_HOURS", 720)) * time.Hour,
		Flags: FlagsConfig{
			Endpoint:        getEnv("FLAG_ENDPOINT", ""),
			RefreshInterval: time.Duration(getEnvInt("FLAG_REFRESH_INTERVAL", 0)) * time.Second,
			DefaultsFile:    getEnv("FLAG_DEFAULTS_FILE", ""),
			Debug:           getEnvBool("FLAG_DEBUG", false),
		},
		Analytics: AnalyticsConfig{
			Endpoint:  getEnv("ANALYTICS_ENDPOINT", ""),
			APIKey:    getEnv("ANALYTICS_API_KEY", ""),
			QueueSize: queueSize,
		},
	}

	if cfg.Flags.DefaultsFile != "" {
		defaults, err := LoadFlagDefaults(cfg.Flags.DefaultsFile)
		if err != nil {
			return nil, fmt.Errorf("load flag defaults: %w", err)
		}
		cfg.Flags.Defaults = defaults
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Flags.RefreshInterval < 0 {
		return fmt.Errorf("FLAG_REFRESH_INTERVAL cannot be negative")
	}
	if c.AssignmentTTL <= 0 {
		return fmt.Errorf("ASSIGNMENT_TTL_HOURS must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// flagDefaultsFile is the YAML shape of a flag-defaults file:
//
//	flags:
//	  analytics.session_replay: false
//	  catalog.new_grid: true
type flagDefaultsFile struct {
	Flags map[string]bool `yaml:"flags"`
}

// LoadFlagDefaults reads a YAML flag-defaults file into a name->enabled map.
func LoadFlagDefaults(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f flagDefaultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.Flags == nil {
		f.Flags = make(map[string]bool)
	}
	return f.Flags, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
