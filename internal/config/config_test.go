package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"GEORISK_PORT", "GEORISK_METRICS_PORT", "GEORISK_ADMIN_TOKEN", "GEORISK_RATE_LIMIT_PER_MINUTE",
	"GEORISK_TRUST_CLIENT_ID",
	"GEORISK_DATABASE_URL", "GEORISK_HERMES_URL", "GEORISK_REDIS_URL", "GEORISK_REDIS_TTL_SECONDS",
	"GEORISK_PROVIDER_TIMEOUT_MS", "GEORISK_PROVIDER_RATE_LIMIT_RPM", "GEORISK_FLOOD_URL",
	"GEORISK_ELEVATION_URL", "GEORISK_NOMINATIM_URL", "GEORISK_OVERPASS_URL", "GEORISK_USER_AGENT",
	"GEORISK_BATCH_CONCURRENCY", "GEORISK_BATCH_MAX_ITEMS", "GEORISK_LOG_LEVEL", "GEORISK_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.RateLimitPerMinute != 120 {
		t.Errorf("expected rate limit 120, got %d", cfg.Server.RateLimitPerMinute)
	}
	if cfg.Database.URL != "" || cfg.Hermes.URL != "" || cfg.Redis.URL != "" {
		t.Error("database, hermes and redis must be off by default")
	}
	if cfg.Providers.CircuitBreaker.Threshold != 5 {
		t.Errorf("expected breaker threshold 5, got %d", cfg.Providers.CircuitBreaker.Threshold)
	}
	if cfg.Providers.InfrastructureRadiusKm != 2 {
		t.Errorf("expected infrastructure radius 2, got %v", cfg.Providers.InfrastructureRadiusKm)
	}
	if cfg.Batch.Concurrency != 8 || cfg.Batch.MaxItems != 500 {
		t.Errorf("batch = %+v", cfg.Batch)
	}
	if cfg.Scoring.TopN != 3 || cfg.Scoring.DefaultBufferRadiusKm != 1 {
		t.Errorf("scoring = %+v", cfg.Scoring)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	// Duration helpers
	if cfg.ProviderTimeout() != 5*time.Second {
		t.Errorf("expected ProviderTimeout 5s, got %v", cfg.ProviderTimeout())
	}
	if cfg.BreakerOpenTimeout() != 30*time.Second {
		t.Errorf("expected BreakerOpenTimeout 30s, got %v", cfg.BreakerOpenTimeout())
	}
	if cfg.ItemTimeout() != 20*time.Second {
		t.Errorf("expected ItemTimeout 20s, got %v", cfg.ItemTimeout())
	}
	if cfg.CacheTTL() != 24*time.Hour {
		t.Errorf("expected CacheTTL 24h, got %v", cfg.CacheTTL())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEORISK_PORT", "9000")
	t.Setenv("GEORISK_METRICS_PORT", "9001")
	t.Setenv("GEORISK_ADMIN_TOKEN", "secret-token")
	t.Setenv("GEORISK_DATABASE_URL", "postgres://localhost/georisk_test")
	t.Setenv("GEORISK_HERMES_URL", "nats://nats:4222")
	t.Setenv("GEORISK_REDIS_URL", "redis://redis:6379/0")
	t.Setenv("GEORISK_PROVIDER_TIMEOUT_MS", "2500")
	t.Setenv("GEORISK_OVERPASS_URL", "http://overpass.local")
	t.Setenv("GEORISK_BATCH_MAX_ITEMS", "50")
	t.Setenv("GEORISK_LOG_LEVEL", "debug")
	t.Setenv("GEORISK_TRUST_CLIENT_ID", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.URL != "postgres://localhost/georisk_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.Redis.URL != "redis://redis:6379/0" {
		t.Errorf("expected redis URL, got '%s'", cfg.Redis.URL)
	}
	if cfg.ProviderTimeout() != 2500*time.Millisecond {
		t.Errorf("expected provider timeout 2.5s, got %v", cfg.ProviderTimeout())
	}
	if cfg.Providers.OverpassURL != "http://overpass.local" {
		t.Errorf("expected overpass URL, got '%s'", cfg.Providers.OverpassURL)
	}
	if cfg.Batch.MaxItems != 50 {
		t.Errorf("expected max items 50, got %d", cfg.Batch.MaxItems)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
	if !cfg.Server.TrustClientID {
		t.Error("expected trust_client_id from env")
	}
}

func TestLoadBadIntEnvKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEORISK_PORT", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8700 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "georisk.yaml")
	yml := `
server:
  port: 7000
providers:
  timeout_ms: 1000
  circuit_breaker:
    threshold: 2
batch:
  concurrency: 4
scoring:
  top_n: 5
  default_weights:
    flood: 50
    elevation: 10
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("unset keys keep defaults, got metrics port %d", cfg.Server.MetricsPort)
	}
	if cfg.Providers.CircuitBreaker.Threshold != 2 || cfg.Providers.CircuitBreaker.MaxRequests != 1 {
		t.Errorf("breaker = %+v", cfg.Providers.CircuitBreaker)
	}
	if cfg.Batch.Concurrency != 4 || cfg.Batch.MaxItems != 500 {
		t.Errorf("batch = %+v", cfg.Batch)
	}
	if cfg.Scoring.DefaultWeights["flood"] != 50 || len(cfg.Scoring.DefaultWeights) != 2 {
		t.Errorf("default weights = %v", cfg.Scoring.DefaultWeights)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
