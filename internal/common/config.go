package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/marketsentry/marketsentry/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Feeds       FeedsConfig      `toml:"feeds"`
	Sentiment   SentimentConfig  `toml:"sentiment"`
	Dedup       DedupConfig      `toml:"dedup"`
	Signals     SignalsConfig    `toml:"signals"`
	Events      EventsConfig     `toml:"events"`
	Schedules   SchedulesConfig  `toml:"schedules"`
	Symbols     []SymbolConfig   `toml:"symbols"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// FeedsConfig controls fetching and parsing of configured sources.
type FeedsConfig struct {
	Sources          []models.FeedSource `toml:"sources" validate:"min=1"`
	PerFeedLimit     int                 `toml:"per_feed_limit"`
	TotalLimit       int                 `toml:"total_limit"`
	CacheTTLMinutes  int                 `toml:"cache_ttl_minutes"`
	HealthTTLMinutes int                 `toml:"health_ttl_minutes"`
	ConnectTimeout   string              `toml:"connect_timeout"` // duration string, e.g. "5s"
	ReadTimeout      string              `toml:"read_timeout"`
	UserAgent        string              `toml:"user_agent"`
	Referer          string              `toml:"referer"`
	AltUserAgent     string              `toml:"alt_user_agent"` // alternate identity for the single retry
	AltReferer       string              `toml:"alt_referer"`
	RatePerHost      float64             `toml:"rate_per_host"` // requests per second per host
	MaxBodySize      int                 `toml:"max_body_size"`
}

// SentimentConfig holds the keyword lists and confidence thresholds.
type SentimentConfig struct {
	BullishKeywords        []string `toml:"bullish_keywords" validate:"min=1"`
	BearishKeywords        []string `toml:"bearish_keywords" validate:"min=1"`
	MinItemsHighConfidence int      `toml:"min_items_high_confidence"`
}

// DedupConfig controls content-hash and embedding-based deduplication.
type DedupConfig struct {
	DedupeThreshold  float64 `toml:"dedupe_threshold"`  // similarity >= this marks duplicate-for-storage
	ClusterThreshold float64 `toml:"cluster_threshold"` // similarity >= this assigns a same-day topic tag
	EmbeddingDim     int     `toml:"embedding_dim"`
	RecentScanLimit  int     `toml:"recent_scan_limit"` // linear-scan fallback window
	TopK             int     `toml:"top_k"`
}

// SignalsConfig controls trading-signal generation.
type SignalsConfig struct {
	Enabled                 bool    `toml:"enabled"`
	ConfidenceThreshold     float64 `toml:"confidence_threshold"`
	ImpactThreshold         float64 `toml:"impact_threshold"`
	MaxActiveHighConfidence int     `toml:"max_active_high_confidence"`
	MaxPositionSize         float64 `toml:"max_position_size"`
	Workers                 int     `toml:"workers"`
}

// EventsConfig sizes the news event ring buffer.
type EventsConfig struct {
	RingCapacity       int `toml:"ring_capacity"`
	BurstWindowMinutes int `toml:"burst_window_minutes"`
}

// SchedulesConfig holds cron expressions for background sweeps.
type SchedulesConfig struct {
	Ingest     string `toml:"ingest"`
	Probe      string `toml:"probe"`
	CacheClear string `toml:"cache_clear"`
	Prune      string `toml:"prune"`
}

// SymbolConfig describes one symbol in the trading universe.
type SymbolConfig struct {
	Symbol   string   `toml:"symbol" validate:"required"`
	Weight   float64  `toml:"weight"`
	Volatile bool     `toml:"volatile"`
	Aliases  []string `toml:"aliases"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in marketsentry.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Feeds: FeedsConfig{
			PerFeedLimit:     20,
			TotalLimit:       200,
			CacheTTLMinutes:  10,
			HealthTTLMinutes: 15,
			ConnectTimeout:   "5s",
			ReadTimeout:      "20s",
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Referer:          "https://www.google.com/",
			AltUserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
			AltReferer:       "https://duckduckgo.com/",
			RatePerHost:      1.0,
			MaxBodySize:      4 * 1024 * 1024,
		},
		Sentiment: SentimentConfig{
			BullishKeywords: []string{
				"surge", "rally", "record high", "beat", "upgrade", "growth",
				"profit", "bullish", "gain", "soar", "outperform", "strong",
			},
			BearishKeywords: []string{
				"plunge", "selloff", "miss", "downgrade", "loss", "bearish",
				"drop", "fall", "lawsuit", "recall", "weak", "cut",
			},
			MinItemsHighConfidence: 12,
		},
		Dedup: DedupConfig{
			DedupeThreshold:  0.92,
			ClusterThreshold: 0.80,
			EmbeddingDim:     384,
			RecentScanLimit:  200,
			TopK:             5,
		},
		Signals: SignalsConfig{
			Enabled:                 true,
			ConfidenceThreshold:     0.7,
			ImpactThreshold:         0.05,
			MaxActiveHighConfidence: 10,
			MaxPositionSize:         1.0,
			Workers:                 4,
		},
		Events: EventsConfig{
			RingCapacity:       1000,
			BurstWindowMinutes: 10,
		},
		Schedules: SchedulesConfig{
			Ingest:     "@every 10m",
			Probe:      "@every 15m",
			CacheClear: "@every 1h",
			Prune:      "@every 1h",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Feeds.ConnectTimeoutDuration(); err != nil {
		return fmt.Errorf("invalid connect_timeout: %w", err)
	}
	if _, err := c.Feeds.ReadTimeoutDuration(); err != nil {
		return fmt.Errorf("invalid read_timeout: %w", err)
	}
	if c.Dedup.ClusterThreshold > c.Dedup.DedupeThreshold {
		return fmt.Errorf("invalid configuration: cluster_threshold %.2f exceeds dedupe_threshold %.2f",
			c.Dedup.ClusterThreshold, c.Dedup.DedupeThreshold)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MARKETSENTRY_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("MARKETSENTRY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MARKETSENTRY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if level := os.Getenv("MARKETSENTRY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if path := os.Getenv("MARKETSENTRY_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if enabled := os.Getenv("MARKETSENTRY_SIGNALS_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Signals.Enabled = b
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ConnectTimeoutDuration parses the connect timeout duration string.
func (f FeedsConfig) ConnectTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(f.ConnectTimeout)
}

// ReadTimeoutDuration parses the read timeout duration string.
func (f FeedsConfig) ReadTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(f.ReadTimeout)
}

// CacheTTL returns the result cache TTL.
func (f FeedsConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLMinutes) * time.Minute
}

// HealthTTL returns the window during which an unhealthy source is skipped.
func (f FeedsConfig) HealthTTL() time.Duration {
	return time.Duration(f.HealthTTLMinutes) * time.Minute
}

// BurstWindow returns the default burst query window.
func (e EventsConfig) BurstWindow() time.Duration {
	return time.Duration(e.BurstWindowMinutes) * time.Minute
}

// SymbolBySymbol returns the symbol config for a symbol code, if present.
func (c *Config) SymbolBySymbol(symbol string) (SymbolConfig, bool) {
	for _, s := range c.Symbols {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return SymbolConfig{}, false
}
