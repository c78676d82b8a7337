package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marketsentry/marketsentry/internal/models"
)

const testConfigTOML = `
environment = "production"

[server]
port = 9090

[feeds]
per_feed_limit = 5
cache_ttl_minutes = 3

[[feeds.sources]]
url = "https://example.com/rss"
label = "example-wire"

[[symbols]]
symbol = "ACME"
weight = 1.5
volatile = true
aliases = ["acme corp"]
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketsentry.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	config, err := LoadFromFile(writeTestConfig(t, testConfigTOML))
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if config.Environment != "production" {
		t.Errorf("expected file to override environment, got %q", config.Environment)
	}
	if config.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", config.Server.Port)
	}
	if config.Feeds.PerFeedLimit != 5 {
		t.Errorf("expected per_feed_limit 5, got %d", config.Feeds.PerFeedLimit)
	}

	// Defaults survive where the file is silent.
	if config.Server.Host != "localhost" {
		t.Errorf("expected default host, got %q", config.Server.Host)
	}
	if config.Feeds.ConnectTimeout != "5s" {
		t.Errorf("expected default connect timeout, got %q", config.Feeds.ConnectTimeout)
	}
	if config.Signals.ConfidenceThreshold != 0.7 {
		t.Errorf("expected default confidence threshold, got %f", config.Signals.ConfidenceThreshold)
	}

	if len(config.Feeds.Sources) != 1 || config.Feeds.Sources[0].Label != "example-wire" {
		t.Errorf("unexpected sources: %+v", config.Feeds.Sources)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/marketsentry.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromFileEnvOverrides(t *testing.T) {
	t.Setenv("MARKETSENTRY_SERVER_PORT", "7070")
	t.Setenv("MARKETSENTRY_LOG_LEVEL", "debug")

	config, err := LoadFromFile(writeTestConfig(t, testConfigTOML))
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if config.Server.Port != 7070 {
		t.Errorf("expected env override of port, got %d", config.Server.Port)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected env override of log level, got %q", config.Logging.Level)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 6060, "0.0.0.0")
	if config.Server.Port != 6060 || config.Server.Host != "0.0.0.0" {
		t.Errorf("flag overrides not applied: %+v", config.Server)
	}

	ApplyFlagOverrides(config, 0, "")
	if config.Server.Port != 6060 || config.Server.Host != "0.0.0.0" {
		t.Error("zero-value flags must not clobber existing settings")
	}
}

func TestValidateRequiresSources(t *testing.T) {
	config := NewDefaultConfig()
	if err := config.Validate(); err == nil {
		t.Error("expected validation failure with no feed sources")
	}
}

func TestValidateThresholdOrdering(t *testing.T) {
	config := NewDefaultConfig()
	config.Feeds.Sources = []models.FeedSource{{URL: "https://example.com/rss", Label: "w"}}
	config.Dedup.ClusterThreshold = 0.95
	config.Dedup.DedupeThreshold = 0.90

	if err := config.Validate(); err == nil {
		t.Error("expected validation failure when cluster threshold exceeds dedupe threshold")
	}
}

func TestValidateBadDuration(t *testing.T) {
	config := NewDefaultConfig()
	config.Feeds.Sources = []models.FeedSource{{URL: "https://example.com/rss", Label: "w"}}
	config.Feeds.ReadTimeout = "fast"

	if err := config.Validate(); err == nil {
		t.Error("expected validation failure for unparseable read timeout")
	}
}

func TestDurationHelpers(t *testing.T) {
	config := NewDefaultConfig()
	if got := config.Feeds.CacheTTL(); got != 10*time.Minute {
		t.Errorf("CacheTTL = %v", got)
	}
	if got := config.Feeds.HealthTTL(); got != 15*time.Minute {
		t.Errorf("HealthTTL = %v", got)
	}
	if got := config.Events.BurstWindow(); got != 10*time.Minute {
		t.Errorf("BurstWindow = %v", got)
	}
}

func TestSymbolBySymbol(t *testing.T) {
	config, err := LoadFromFile(writeTestConfig(t, testConfigTOML))
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	sym, ok := config.SymbolBySymbol("ACME")
	if !ok {
		t.Fatal("expected ACME symbol config")
	}
	if sym.Weight != 1.5 || !sym.Volatile {
		t.Errorf("unexpected symbol config: %+v", sym)
	}

	if _, ok := config.SymbolBySymbol("MISSING"); ok {
		t.Error("unexpected hit for unknown symbol")
	}
}
