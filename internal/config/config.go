package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Hermes    HermesConfig    `yaml:"hermes"`
	Redis     RedisConfig     `yaml:"redis"`
	Providers ProvidersConfig `yaml:"providers"`
	Batch     BatchConfig     `yaml:"batch"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	MetricsPort        int    `yaml:"metrics_port"`
	AdminToken         string `yaml:"admin_token"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	// TrustClientID keys rate limits on X-Client-ID. Enable only behind a
	// proxy that sets the header itself.
	TrustClientID bool `yaml:"trust_client_id"`
}

// DatabaseConfig selects the store. An empty URL keeps assessments in memory.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig enables the observation cache when URL is set.
type RedisConfig struct {
	URL        string `yaml:"url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type ProvidersConfig struct {
	TimeoutMs              int                  `yaml:"timeout_ms"`
	RateLimitRPM           int                  `yaml:"rate_limit_rpm"`
	CircuitBreaker         CircuitBreakerConfig `yaml:"circuit_breaker"`
	FloodURL               string               `yaml:"flood_url"`
	ElevationURL           string               `yaml:"elevation_url"`
	NominatimURL           string               `yaml:"nominatim_url"`
	OverpassURL            string               `yaml:"overpass_url"`
	UserAgent              string               `yaml:"user_agent"`
	InfrastructureRadiusKm float64              `yaml:"infrastructure_radius_km"`
}

type CircuitBreakerConfig struct {
	Threshold     int `yaml:"threshold"`
	OpenTimeoutMs int `yaml:"open_timeout_ms"`
	MaxRequests   int `yaml:"max_requests"`
}

type BatchConfig struct {
	Concurrency   int `yaml:"concurrency"`
	ItemTimeoutMs int `yaml:"item_timeout_ms"`
	MaxItems      int `yaml:"max_items"`
}

type ScoringConfig struct {
	TopN                  int                `yaml:"top_n"`
	DefaultBufferRadiusKm float64            `yaml:"default_buffer_radius_km"`
	DefaultWeights        map[string]float64 `yaml:"default_weights"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutMs) * time.Millisecond
}

func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.Providers.CircuitBreaker.OpenTimeoutMs) * time.Millisecond
}

func (c *Config) ItemTimeout() time.Duration {
	return time.Duration(c.Batch.ItemTimeoutMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               8700,
			MetricsPort:        8701,
			RateLimitPerMinute: 120,
		},
		Redis: RedisConfig{
			TTLSeconds: 86400,
		},
		Providers: ProvidersConfig{
			TimeoutMs:    5000,
			RateLimitRPM: 60,
			CircuitBreaker: CircuitBreakerConfig{
				Threshold:     5,
				OpenTimeoutMs: 30000,
				MaxRequests:   1,
			},
			FloodURL:               "https://hazards.fema.gov/arcgis/rest/services/public/NFHL/MapServer/28",
			ElevationURL:           "https://api.open-elevation.com",
			NominatimURL:           "https://nominatim.openstreetmap.org",
			OverpassURL:            "https://overpass-api.de",
			UserAgent:              "georisk/1.0",
			InfrastructureRadiusKm: 2,
		},
		Batch: BatchConfig{
			Concurrency:   8,
			ItemTimeoutMs: 20000,
			MaxItems:      500,
		},
		Scoring: ScoringConfig{
			TopN:                  3,
			DefaultBufferRadiusKm: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyEnv(cfg *Config) {
	envInt("GEORISK_PORT", &cfg.Server.Port)
	envInt("GEORISK_METRICS_PORT", &cfg.Server.MetricsPort)
	envString("GEORISK_ADMIN_TOKEN", &cfg.Server.AdminToken)
	envInt("GEORISK_RATE_LIMIT_PER_MINUTE", &cfg.Server.RateLimitPerMinute)
	envBool("GEORISK_TRUST_CLIENT_ID", &cfg.Server.TrustClientID)
	envString("GEORISK_DATABASE_URL", &cfg.Database.URL)
	envString("GEORISK_HERMES_URL", &cfg.Hermes.URL)
	envString("GEORISK_REDIS_URL", &cfg.Redis.URL)
	envInt("GEORISK_REDIS_TTL_SECONDS", &cfg.Redis.TTLSeconds)
	envInt("GEORISK_PROVIDER_TIMEOUT_MS", &cfg.Providers.TimeoutMs)
	envInt("GEORISK_PROVIDER_RATE_LIMIT_RPM", &cfg.Providers.RateLimitRPM)
	envString("GEORISK_FLOOD_URL", &cfg.Providers.FloodURL)
	envString("GEORISK_ELEVATION_URL", &cfg.Providers.ElevationURL)
	envString("GEORISK_NOMINATIM_URL", &cfg.Providers.NominatimURL)
	envString("GEORISK_OVERPASS_URL", &cfg.Providers.OverpassURL)
	envString("GEORISK_USER_AGENT", &cfg.Providers.UserAgent)
	envInt("GEORISK_BATCH_CONCURRENCY", &cfg.Batch.Concurrency)
	envInt("GEORISK_BATCH_MAX_ITEMS", &cfg.Batch.MaxItems)
	envString("GEORISK_LOG_LEVEL", &cfg.Logging.Level)
	envString("GEORISK_LOG_FORMAT", &cfg.Logging.Format)
}
