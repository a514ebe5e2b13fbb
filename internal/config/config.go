// Package config loads the run configuration from a json5 file, an optional
// "<name>.local.<ext>" override next to it, and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/jwerderits/farmspread/internal/window"
	"github.com/titanous/json5"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "farmspread.json5"

const (
	DefaultTimezone       = "America/New_York"
	DefaultMarketsPath    = "/api/v1/market/"
	DefaultTimeoutSeconds = 30

	BackendGCS    = "gcs"
	BackendSQLite = "sqlite"
)

type Config struct {
	API                  API      `json:"api"`
	Timezone             string   `json:"timezone"`
	Window               Window   `json:"window"`
	Storage              Storage  `json:"storage"`
	PaymentColumns       []string `json:"payment_columns"`
	StrictReconciliation bool     `json:"strict_reconciliation"`
	BigQuery             BigQuery `json:"bigquery"`
	LogLevel             string   `json:"log_level"`
}

type API struct {
	// URL is the scheme and host, e.g. "https://market.example.org".
	URL string `json:"url"`
	// MarketsPath is the market list endpoint discovery starts from.
	MarketsPath    string            `json:"markets_path"`
	Headers        map[string]string `json:"headers"`
	Token          string            `json:"token"`
	TimeoutSeconds int               `json:"timeout_seconds"`
}

type Window struct {
	Mode            string `json:"mode"`
	RollingDays     int    `json:"rolling_days"`
	PriorOffsetDays int    `json:"prior_offset_days"`
}

type Storage struct {
	Backend    string `json:"backend"`
	Bucket     string `json:"bucket"`
	Prefix     string `json:"prefix"`
	SQLitePath string `json:"sqlite_path"`
}

type BigQuery struct {
	Project string `json:"project"`
	Dataset string `json:"dataset"`
}

// Enabled reports whether runs are audited in BigQuery.
func (b BigQuery) Enabled() bool {
	return b.Project != ""
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), strings.TrimPrefix(ext, ".")
}

// Read merges name with its .local override. It returns os.ErrNotExist when
// neither file exists.
func Read(name string) (Config, error) {
	var out Config
	found := false

	data, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, fmt.Errorf("config.Read: %w", err)
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("config.Read: parse %s: %w", name, err)
		}
		found = true
	}

	prefix, ext := splitExt(name)
	localName := fmt.Sprintf("%s.local.%s", prefix, ext)
	local, err := os.ReadFile(localName)
	if err != nil && !os.IsNotExist(err) {
		return out, fmt.Errorf("config.Read: %w", err)
	}
	if len(local) > 0 {
		var override Config
		if err := json5.Unmarshal(local, &override); err != nil {
			return out, fmt.Errorf("config.Read: parse %s: %w", localName, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("config.Read: merge %s: %w", localName, err)
		}
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Load reads the config at path (DefaultFile when empty), applies the
// environment and defaults, and validates the result. A missing file is not
// an error when the environment supplies the required values.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultFile
	}
	cfg, err := Read(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with FARMSPREAD_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("FARMSPREAD_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := getenv("FARMSPREAD_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := getenv("GCS_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := getenv("FARMSPREAD_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := getenv("FARMSPREAD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) ApplyDefaults() {
	if c.API.MarketsPath == "" {
		c.API.MarketsPath = DefaultMarketsPath
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.Window.Mode == "" {
		c.Window.Mode = string(window.ModeRolling)
	}
	if c.Window.RollingDays <= 0 {
		c.Window.RollingDays = window.DefaultRollingDays
	}
	if c.Window.PriorOffsetDays <= 0 {
		c.Window.PriorOffsetDays = window.DefaultPriorOffsetDays
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendGCS
	}
	if c.BigQuery.Project != "" && c.BigQuery.Dataset == "" {
		c.BigQuery.Dataset = "farmspread"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.API.URL == "" {
		problems = append(problems, "api.url is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("timezone %q: %v", c.Timezone, err))
	}
	if _, err := window.ParseMode(c.Window.Mode); err != nil {
		problems = append(problems, fmt.Sprintf("window.mode %q is not rolling or month", c.Window.Mode))
	}
	switch c.Storage.Backend {
	case BackendGCS:
		if c.Storage.Bucket == "" {
			problems = append(problems, "storage.bucket is required for the gcs backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "storage.sqlite_path is required for the sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q is not gcs or sqlite", c.Storage.Backend))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the market timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Mode returns the configured window mode. Call after Validate.
func (c *Config) Mode() window.Mode {
	m, err := window.ParseMode(c.Window.Mode)
	if err != nil {
		return window.ModeRolling
	}
	return m
}

// Timeout is the per-request API timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// RequestHeaders returns the static API headers. A configured token becomes
// an Authorization header unless one is set explicitly.
func (c *Config) RequestHeaders() map[string]string {
	headers := make(map[string]string, len(c.API.Headers)+1)
	for k, v := range c.API.Headers {
		headers[k] = v
	}
	if c.API.Token != "" {
		if _, ok := headers["Authorization"]; !ok {
			headers["Authorization"] = "Token " + c.API.Token
		}
	}
	return headers
}
