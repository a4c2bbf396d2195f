// Package config loads the cockpit configuration from a YAML file under the
// user's config directory, falling back to embedded defaults on first run.
package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/cakahlul/em-cockpit/internal/tracker"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Reviewer identifies the configured user for pending-review matching.
type Reviewer struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// StatusFeed is one public status feed to watch for incidents.
type StatusFeed struct {
	Service string `yaml:"service"`
	URL     string `yaml:"url"`
}

// PollConfig holds the per-domain schedules.
type PollConfig struct {
	PRInterval       string `yaml:"pr_interval"`
	IncidentInterval string `yaml:"incident_interval"`
}

// TTLConfig holds the per-view cache lifetimes.
type TTLConfig struct {
	PRSummary       string `yaml:"pr_summary"`
	IncidentSummary string `yaml:"incident_summary"`
	Search          string `yaml:"search"`
}

// RedisConfig holds durable-tier settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

// CacheConfig selects and tunes the cache tiers.
type CacheConfig struct {
	Backend    string      `yaml:"backend"` // sqlite, redis, memory
	MemorySize int         `yaml:"memory_size"`
	TTL        TTLConfig   `yaml:"ttl"`
	Redis      RedisConfig `yaml:"redis"`
}

// Config is the full cockpit configuration.
type Config struct {
	Reviewer       Reviewer     `yaml:"reviewer"`
	Repositories   []string     `yaml:"repositories"`
	Services       []string     `yaml:"services"`
	StatusFeeds    []StatusFeed `yaml:"status_feeds"`
	SnapshotFile   string       `yaml:"snapshot_file"`
	Poll           PollConfig   `yaml:"poll"`
	StaleThreshold string       `yaml:"stale_threshold"`
	AlertSeverity  string       `yaml:"alert_severity"`
	Cache          CacheConfig  `yaml:"cache"`
}

// PRPollInterval returns the PR polling interval, defaulting to 2 minutes.
func (c *Config) PRPollInterval() time.Duration {
	return parseDurationOr(c.Poll.PRInterval, 2*time.Minute)
}

// IncidentPollInterval returns the incident polling interval, defaulting to
// 30 seconds.
func (c *Config) IncidentPollInterval() time.Duration {
	return parseDurationOr(c.Poll.IncidentInterval, 30*time.Second)
}

// StaleThresholdDuration returns the PR staleness threshold, defaulting to
// 48 hours.
func (c *Config) StaleThresholdDuration() time.Duration {
	return parseDurationOr(c.StaleThreshold, 48*time.Hour)
}

// PRSummaryTTL returns the PR summary cache lifetime.
func (c *Config) PRSummaryTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL.PRSummary, 2*time.Minute)
}

// IncidentSummaryTTL returns the incident summary cache lifetime.
func (c *Config) IncidentSummaryTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL.IncidentSummary, 30*time.Second)
}

// SearchTTL returns the search result cache lifetime.
func (c *Config) SearchTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL.Search, 5*time.Minute)
}

// AlertSeverityLevel maps the configured name onto the severity scale,
// defaulting to High.
func (c *Config) AlertSeverityLevel() tracker.Severity {
	switch strings.ToLower(c.AlertSeverity) {
	case "low":
		return tracker.SeverityLow
	case "medium":
		return tracker.SeverityMedium
	case "critical":
		return tracker.SeverityCritical
	default:
		return tracker.SeverityHigh
	}
}

// MemorySize returns the fast-tier capacity, defaulting to 100 entries.
func (c *Config) MemorySize() int {
	if c.Cache.MemorySize <= 0 {
		return 100
	}
	return c.Cache.MemorySize
}

// parseDurationOr supports plain Go durations plus an "Nd" day suffix.
func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	if strings.HasSuffix(s, "d") {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "em-cockpit", "config.yaml")
}

// CachePath returns the per-user cache database location.
func CachePath() string {
	return filepath.Join(xdg.CacheHome, "em-cockpit", "cache.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path, or the default location when path is
// empty. A missing file is seeded from the embedded defaults.
func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to the config path on first run; non-fatal if
			// that fails.
			_ = writeDefaults(path)
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	switch cfg.Cache.Backend {
	case "", "sqlite", "memory":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache backend redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (valid: sqlite, redis, memory)", cfg.Cache.Backend)
	}

	switch strings.ToLower(cfg.AlertSeverity) {
	case "", "low", "medium", "high", "critical":
	default:
		return fmt.Errorf("unknown alert_severity %q (valid: low, medium, high, critical)", cfg.AlertSeverity)
	}

	for i, f := range cfg.StatusFeeds {
		if f.Service == "" {
			return fmt.Errorf("status feed %d: service is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("status feed %q: url is required", f.Service)
		}
		u, err := url.Parse(f.URL)
		if err != nil {
			return fmt.Errorf("status feed %q: invalid url: %w", f.Service, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("status feed %q: url scheme must be http or https, got %q", f.Service, u.Scheme)
		}
	}
	return nil
}
