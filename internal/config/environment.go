package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvironment overrides config with ROUTER_* environment variables.
// Unparsable values are ignored.
func ApplyEnvironment(config *Config) {
	// Server Configuration
	if port := getEnv("ROUTER_PORT", ""); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p <= 65535 {
			config.Server.Port = p
		}
	}

	if h2c := getEnv("ROUTER_H2C", ""); h2c != "" {
		config.Server.H2C = strings.ToLower(h2c) == "true"
	}

	if proxies := getEnv("ROUTER_TRUSTED_PROXIES", ""); proxies != "" {
		config.Server.TrustedProxies = strings.Split(proxies, ",")
	}

	// Edge Configuration
	if env := getEnv("ROUTER_ENV", ""); env != "" {
		config.Edge.Env = env
	}

	if baseDomain := getEnv("ROUTER_BASE_DOMAIN", ""); baseDomain != "" {
		config.Edge.BaseDomain = baseDomain
	}

	if scheme := getEnv("ROUTER_ORIGIN_SCHEME", ""); scheme != "" {
		config.Edge.OriginScheme = scheme
	}

	if key := getEnv("ROUTER_DEMO_API_KEY", ""); key != "" {
		config.Edge.DemoAPIKey = key
	}

	if key := getEnv("ROUTER_SUBSCRIPTIONS_API_KEY", ""); key != "" {
		config.Edge.SubscriptionsAPIKey = key
	}

	config.Edge.UpstreamTimeout = getEnvDuration("ROUTER_UPSTREAM_TIMEOUT", config.Edge.UpstreamTimeout)

	// Store Configuration
	if driver := getEnv("ROUTER_STORE_DRIVER", ""); driver != "" {
		config.Store.Driver = driver
	}

	config.Store.FetchTimeout = getEnvDuration("ROUTER_STORE_FETCH_TIMEOUT", config.Store.FetchTimeout)

	if addr := getEnv("ROUTER_REDIS_ADDR", ""); addr != "" {
		config.Store.Redis.Address = addr
	}

	if password := getEnv("ROUTER_REDIS_PASSWORD", ""); password != "" {
		config.Store.Redis.Password = password
	}

	config.Store.Redis.DB = getEnvInt("ROUTER_REDIS_DB", config.Store.Redis.DB)

	if prefix := getEnv("ROUTER_STORE_KEY_PREFIX", ""); prefix != "" {
		config.Store.Redis.KeyPrefix = prefix
	}

	if enabled := getEnv("ROUTER_BREAKER_ENABLED", ""); enabled != "" {
		config.Store.Breaker.Enabled = strings.ToLower(enabled) == "true"
	}

	// Rate Limiting Configuration
	if enabled := getEnv("ROUTER_RATE_LIMIT_ENABLED", ""); enabled != "" {
		config.RateLimit.Enabled = strings.ToLower(enabled) == "true"
	}

	if rps := getEnv("ROUTER_RATE_LIMIT_RPS", ""); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil && r > 0 {
			config.RateLimit.RequestsPerSecond = r
		}
	}

	if burst := getEnv("ROUTER_RATE_LIMIT_BURST", ""); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil && b > 0 {
			config.RateLimit.BurstSize = b
		}
	}

	// Admin Configuration
	if enabled := getEnv("ROUTER_ADMIN_ENABLED", ""); enabled != "" {
		config.Admin.Enabled = strings.ToLower(enabled) == "true"
	}

	if secret := getEnv("ROUTER_ADMIN_JWT_SECRET", ""); secret != "" {
		config.Admin.JWTSecret = secret
	}

	if enabled := getEnv("ROUTER_METRICS_ENABLED", ""); enabled != "" {
		config.Metrics.Enabled = strings.ToLower(enabled) == "true"
	}

	// Logging Configuration
	if level := getEnv("ROUTER_LOG_LEVEL", ""); level != "" {
		config.Logging.Level = level
	}

	if format := getEnv("ROUTER_LOG_FORMAT", ""); format != "" {
		config.Logging.Format = format
	}

	if output := getEnv("ROUTER_LOG_OUTPUT", ""); output != "" {
		config.Logging.Output = output
	}

	if file := getEnv("ROUTER_LOG_FILE", ""); file != "" {
		config.Logging.File = file
	}
}

// getEnv gets environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as integer with fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets environment variable as duration with fallback
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// LoadConfig loads configuration with priority: env vars > config file > defaults.
// A missing config file is not an error; an unreadable or invalid one is.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	configFile := getEnv("CONFIG_FILE", "config.yaml")
	if _, err := os.Stat(configFile); err == nil {
		config, err = LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	}

	ApplyEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
