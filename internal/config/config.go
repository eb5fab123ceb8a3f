// Package config loads the settings of Scout.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/macrat/scout/internal/schedule"
	"github.com/macrat/scout/internal/scouterr"
	"github.com/macrat/scout/internal/store"
	api "github.com/macrat/scout/lib-scout"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

// StoreConfig selects the target store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Config is the settings of Scout.
type Config struct {
	Listen         string        `yaml:"listen"`
	Tick           string        `yaml:"tick"`
	Timezone       string        `yaml:"timezone"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Concurrency    int           `yaml:"concurrency"`
	BodyLimit      int64         `yaml:"body_limit"`

	// SnapshotLimit is the maximum number of snapshots kept per target. Zero means unlimited.
	SnapshotLimit int `yaml:"snapshot_limit"`

	Alert        string        `yaml:"alert_url"`
	AlertTimeout time.Duration `yaml:"alert_timeout"`

	Store   StoreConfig      `yaml:"store"`
	Targets []api.TargetSpec `yaml:"targets"`
}

// Default returns the configuration that used when no file is given.
func Default() Config {
	return Config{
		Listen:         "0.0.0.0:9000",
		Tick:           "1m",
		Timezone:       "Local",
		RequestTimeout: 30 * time.Second,
		Concurrency:    16,
		BodyLimit:      1 << 20,
		SnapshotLimit:  store.DefaultSnapshotLimit,
		AlertTimeout:   10 * time.Second,
		Store: StoreConfig{
			Driver: "file",
			DSN:    "scout.json",
		},
	}
}

// Load reads configuration from a YAML file, and then applies environment variables.
// A missing file falls back to the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides the settings by environment variables.
func (c *Config) ApplyEnv() {
	c.Alert = getEnv("SCOUT_ALERT_URL", c.Alert)
	c.Store.Driver = getEnv("SCOUT_STORE_DRIVER", c.Store.Driver)
	c.Store.DSN = getEnv("SCOUT_STORE_DSN", c.Store.DSN)
	c.Listen = getEnv("SCOUT_LISTEN", c.Listen)
	c.Concurrency = getEnvInt("SCOUT_CONCURRENCY", c.Concurrency)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

// Validate checks the settings, and fills the zero values by defaults.
func (c *Config) Validate() error {
	errs := &scouterr.ListBuilder{Kind: ErrInvalidConfig}
	def := Default()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.AlertTimeout <= 0 {
		c.AlertTimeout = def.AlertTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.BodyLimit <= 0 {
		c.BodyLimit = def.BodyLimit
	}
	if c.SnapshotLimit < 0 {
		errs.Pushf("snapshot_limit must be 0 or more but got %d", c.SnapshotLimit)
	}

	if _, err := c.Schedule(); err != nil {
		errs.Pushf("tick: %s", err)
	}
	if _, err := c.Location(); err != nil {
		errs.Pushf("timezone: %s", err)
	}

	switch c.Store.Driver {
	case "":
		c.Store.Driver = def.Store.Driver
	case "memory", "file", "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		errs.Pushf("store.driver must be memory, file, sqlite, or postgres but got %q", c.Store.Driver)
	}
	if c.Store.DSN == "" && c.Store.Driver != "memory" {
		errs.Pushf("store.dsn is required for %s store", c.Store.Driver)
	}

	if _, err := c.SeedTargets(); err != nil {
		errs.Push(err)
	}

	return errs.Build()
}

// Schedule parses Tick.
func (c Config) Schedule() (schedule.Schedule, error) {
	return schedule.Parse(c.Tick)
}

// Location loads Timezone.
func (c Config) Location() (*time.Location, error) {
	switch strings.ToLower(c.Timezone) {
	case "", "local":
		return time.Local, nil
	case "utc":
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// AlertURL implements alert.Settings.
func (c Config) AlertURL() string {
	return c.Alert
}

// SeedTargets builds the targets in the configuration file.
// Targets without ID get a stable ID derived from their name.
func (c Config) SeedTargets() ([]api.Target, error) {
	errs := &scouterr.ListBuilder{Kind: api.ErrConfiguration}

	ts := make([]api.Target, 0, len(c.Targets))
	seen := make(map[string]int)
	for i, spec := range c.Targets {
		t, err := BuildTarget(spec, func() string { return SeedID(spec.Name) })
		if err != nil {
			errs.Push(fmt.Errorf("target #%d: %w", i+1, err))
			continue
		}
		if j, ok := seen[t.ID]; ok {
			errs.Pushf("target #%d: duplicated with target #%d (id %s)", i+1, j, t.ID)
			continue
		}
		seen[t.ID] = i + 1
		ts = append(ts, t)
	}

	if err := errs.Build(); err != nil {
		return nil, err
	}
	return ts, nil
}
