// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Governor   GovernorConfig   `mapstructure:"governor"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Intern     InternConfig     `mapstructure:"intern"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	DB         DBConfig         `mapstructure:"db"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// AggregatorConfig governs fan-out across source adapters.
type AggregatorConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	SourceTimeout  time.Duration `mapstructure:"source_timeout"`
	CityFilter     bool          `mapstructure:"city_filter"`
	CityFilterMin  int           `mapstructure:"city_filter_min"`
}

// GovernorConfig sets per-source request pacing and retry limits.
type GovernorConfig struct {
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Ceiling     time.Duration `mapstructure:"ceiling"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// HTTPConfig configures the API adapters' HTTP client.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// BrowserConfig configures the browser session manager. Empty paths fall
// back to auto-discovery.
type BrowserConfig struct {
	BrowserBinaryPath string        `mapstructure:"browser_binary_path"`
	DriverBinaryPath  string        `mapstructure:"driver_binary_path"`
	Headless          bool          `mapstructure:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	MaxSessions       int           `mapstructure:"max_sessions"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// SourcesConfig selects which adapters get registered.
type SourcesConfig struct {
	Enabled []string `mapstructure:"enabled"`
}

// InternConfig selects the internship adapters. An empty Enabled list turns
// internship search off.
type InternConfig struct {
	Enabled       []string `mapstructure:"enabled"`
	Defaults      []string `mapstructure:"defaults"`
	CityFilter    bool     `mapstructure:"city_filter"`
	CityFilterMin int      `mapstructure:"city_filter_min"`
}

// ArchiveConfig selects where server-side reports are archived.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the search-history database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Archive providers.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveGCS   = "gcs"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// JOBMCP_SERVER_PORT wins via AutomaticEnv, then MCP_PORT, then PORT.
	if err := v.BindEnv("server.port", "MCP_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 9000)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("aggregator.max_concurrency", 4)
	v.SetDefault("aggregator.source_timeout", "60s")
	v.SetDefault("aggregator.city_filter", false)
	v.SetDefault("aggregator.city_filter_min", 5)
	v.SetDefault("governor.min_delay", "1500ms")
	v.SetDefault("governor.max_delay", "2500ms")
	v.SetDefault("governor.ceiling", "30s")
	v.SetDefault("governor.max_attempts", 2)
	v.SetDefault("http.timeout", "15s")
	v.SetDefault("http.user_agent", defaultUserAgent)
	v.SetDefault("browser.browser_binary_path", "")
	v.SetDefault("browser.driver_binary_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "15s")
	v.SetDefault("browser.max_sessions", 2)
	v.SetDefault("browser.user_agent", defaultUserAgent)
	v.SetDefault("sources.enabled", []string{"boss", "liepin", "zhilian", "job51"})
	v.SetDefault("intern.enabled", []string{"shixiseng", "ciwei", "boss_intern", "liepin_intern"})
	v.SetDefault("intern.defaults", []string{"shixiseng", "liepin_intern"})
	v.SetDefault("intern.city_filter", true)
	v.SetDefault("intern.city_filter_min", 0)
	v.SetDefault("archive.provider", ArchiveNone)
	v.SetDefault("archive.local_dir", "data/reports")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.prefix", "reports")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "search_history")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Aggregator.MaxConcurrency <= 0 {
		return fmt.Errorf("aggregator.max_concurrency must be > 0")
	}
	if c.Aggregator.SourceTimeout <= 0 {
		return fmt.Errorf("aggregator.source_timeout must be > 0")
	}
	if c.Governor.MinDelay < 0 || c.Governor.MaxDelay < c.Governor.MinDelay {
		return fmt.Errorf("governor.max_delay must be >= governor.min_delay >= 0")
	}
	if c.Governor.Ceiling < c.Governor.MinDelay {
		return fmt.Errorf("governor.ceiling must be >= governor.min_delay")
	}
	if c.Governor.MaxAttempts <= 0 {
		return fmt.Errorf("governor.max_attempts must be > 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Browser.MaxSessions <= 0 {
		return fmt.Errorf("browser.max_sessions must be > 0")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if len(c.Sources.Enabled) == 0 {
		return fmt.Errorf("sources.enabled must list at least one source")
	}
	if c.Intern.CityFilterMin < 0 {
		return fmt.Errorf("intern.city_filter_min must be >= 0")
	}
	if len(c.Intern.Enabled) == 0 && len(c.Intern.Defaults) > 0 {
		return fmt.Errorf("intern.defaults requires intern.enabled")
	}
	switch c.Archive.Provider {
	case "", ArchiveNone:
	case ArchiveLocal:
		if strings.TrimSpace(c.Archive.LocalDir) == "" {
			return fmt.Errorf("archive.local_dir must be set when archive.provider is local")
		}
	case ArchiveGCS:
		if strings.TrimSpace(c.Archive.GCSBucket) == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	return nil
}

// RequestBudget is how long one aggregated search may take end to end.
func (c Config) RequestBudget() time.Duration {
	return c.Aggregator.SourceTimeout + 30*time.Second
}
