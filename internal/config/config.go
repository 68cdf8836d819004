package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mir00r/edge-router/internal/domain"
	"github.com/mir00r/edge-router/internal/edge"
	"github.com/mir00r/edge-router/internal/middleware"
	"github.com/mir00r/edge-router/internal/store"
	"github.com/mir00r/edge-router/pkg/logger"
	"gopkg.in/yaml.v2"
)

// Store drivers
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Edge      EdgeConfig      `yaml:"edge"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Admin     AdminConfig     `yaml:"admin"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server specific configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	// H2C serves cleartext HTTP/2 alongside HTTP/1.1
	H2C bool `yaml:"h2c"`
	// TrustedProxies are CIDR blocks or addresses whose forwarding headers are
	// believed when extracting the client address
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// EdgeConfig contains the static values of the edge deployment
type EdgeConfig struct {
	Env        string `yaml:"env"`
	BaseDomain string `yaml:"base_domain"`
	// Origins overrides hosts derived from env and base domain, keyed by origin id
	Origins             map[string]string `yaml:"origins"`
	OriginScheme        string            `yaml:"origin_scheme"`
	DemoAPIKey          string            `yaml:"demo_api_key"`
	SubscriptionsAPIKey string            `yaml:"subscriptions_api_key"`
	ViewerCountryHeader string            `yaml:"viewer_country_header"`
	UpstreamTimeout     time.Duration     `yaml:"upstream_timeout"`
}

// StoreConfig contains key-value store configuration
type StoreConfig struct {
	Driver       string              `yaml:"driver"`
	FetchTimeout time.Duration       `yaml:"fetch_timeout"`
	Redis        store.RedisConfig   `yaml:"redis"`
	Breaker      store.BreakerConfig `yaml:"breaker"`
	// Seed values are written at startup; Redis is only seeded when SeedRedis is set
	Seed      map[string]string `yaml:"seed"`
	SeedRedis bool              `yaml:"seed_redis"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// AdminConfig contains admin API configuration
type AdminConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			H2C:          true,
		},
		Edge: EdgeConfig{
			Env:                 "dev",
			BaseDomain:          "verihire.cc",
			OriginScheme:        "https",
			ViewerCountryHeader: "CloudFront-Viewer-Country",
			UpstreamTimeout:     30 * time.Second,
		},
		Store: StoreConfig{
			Driver:       DriverRedis,
			FetchTimeout: 50 * time.Millisecond,
			Redis: store.RedisConfig{
				Address:     "localhost:6379",
				PoolSize:    10,
				DialTimeout: 5 * time.Second,
			},
			Breaker: store.BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         10 * time.Second,
				HalfOpenRequests:    1,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
		Admin: AdminConfig{
			Enabled:   false,
			JWTIssuer: "edge-router",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return config, nil
}

// Origins returns the origin host table: hosts derived from env and base
// domain, overlaid with any explicitly configured hosts
func (c *Config) Origins() domain.Origins {
	origins := edge.DefaultOrigins(c.Edge.Env, c.Edge.BaseDomain)
	for id, host := range c.Edge.Origins {
		origins[domain.OriginID(id)] = host
	}
	return origins
}

// Validate validates the configuration for correctness
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.ClientIPResolver(); err != nil {
		return fmt.Errorf("server.trusted_proxies: %w", err)
	}

	// Validate edge configuration
	if c.Edge.Env == "" {
		return fmt.Errorf("edge.env cannot be empty")
	}
	if c.Edge.BaseDomain == "" {
		return fmt.Errorf("edge.base_domain cannot be empty")
	}
	switch c.Edge.OriginScheme {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported edge.origin_scheme: %s", c.Edge.OriginScheme)
	}
	if c.Edge.UpstreamTimeout <= 0 {
		return fmt.Errorf("edge.upstream_timeout must be positive")
	}

	origins := c.Origins()
	for _, id := range usedOrigins() {
		if _, ok := origins.Host(id); !ok {
			return fmt.Errorf("edge.origins: origin %s has no host", id)
		}
	}
	for id := range c.Edge.Origins {
		if !knownOrigin(domain.OriginID(id)) {
			return fmt.Errorf("edge.origins: unknown origin %s", id)
		}
	}

	// Validate store configuration
	switch c.Store.Driver {
	case DriverRedis:
		if c.Store.Redis.Address == "" {
			return fmt.Errorf("store.redis.address cannot be empty")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if c.Store.FetchTimeout <= 0 {
		return fmt.Errorf("store.fetch_timeout must be positive")
	}
	if c.Store.Breaker.Enabled {
		if c.Store.Breaker.ConsecutiveFailures == 0 {
			return fmt.Errorf("store.breaker.consecutive_failures must be positive")
		}
		if c.Store.Breaker.OpenTimeout <= 0 {
			return fmt.Errorf("store.breaker.open_timeout must be positive")
		}
	}

	// Validate rate limiting configuration
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be positive")
		}
		if c.RateLimit.BurstSize <= 0 {
			return fmt.Errorf("rate_limit.burst_size must be positive")
		}
	}

	if c.Admin.Enabled && c.Admin.JWTSecret == "" {
		return fmt.Errorf("admin.jwt_secret is required when the admin API is enabled")
	}

	// Validate logging configuration
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	validOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true, "discard": true}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	return nil
}

// usedOrigins lists every origin referenced by the static route table
func usedOrigins() []domain.OriginID {
	return []domain.OriginID{
		domain.OriginBlueAPI,
		domain.OriginGreenAPI,
		domain.OriginBlueApp,
		domain.OriginGreenApp,
		domain.OriginSubscriptions,
	}
}

func knownOrigin(id domain.OriginID) bool {
	for _, known := range usedOrigins() {
		if id == known {
			return true
		}
	}
	return false
}

// ToEdgeConfig converts to the pipeline configuration
func (c *Config) ToEdgeConfig() edge.Config {
	return edge.Config{
		EnvName:             c.Edge.Env,
		BaseDomain:          c.Edge.BaseDomain,
		Origins:             c.Origins(),
		DemoAPIKey:          c.Edge.DemoAPIKey,
		SubscriptionsAPIKey: c.Edge.SubscriptionsAPIKey,
	}
}

// ToLoggerConfig converts to the logger configuration
func (c *Config) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
		File:   c.Logging.File,
	}
}

// Dump renders the configuration as YAML with secrets masked
func (c *Config) Dump() ([]byte, error) {
	masked := *c
	if masked.Admin.JWTSecret != "" {
		masked.Admin.JWTSecret = "***"
	}
	if masked.Store.Redis.Password != "" {
		masked.Store.Redis.Password = "***"
	}
	if masked.Edge.DemoAPIKey != "" {
		masked.Edge.DemoAPIKey = "***"
	}
	if masked.Edge.SubscriptionsAPIKey != "" {
		masked.Edge.SubscriptionsAPIKey = "***"
	}

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// ClientIPResolver builds the client address extractor for the trusted proxies
func (c *Config) ClientIPResolver() (*middleware.ClientIPResolver, error) {
	return middleware.NewClientIPResolver(c.Server.TrustedProxies)
}
