package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mir00r/edge-router/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50*time.Millisecond, cfg.Store.FetchTimeout)

	edgeCfg := cfg.ToEdgeConfig()
	assert.Equal(t, "https://dev.verihire.cc/app", edgeCfg.RedirectLocation())
	host, ok := edgeCfg.Origins.Host(domain.OriginGreenApp)
	assert.True(t, ok)
	assert.Equal(t, "green-app.dev.verihire.cc", host)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, errMsg: "invalid port"},
		{name: "empty env", mutate: func(c *Config) { c.Edge.Env = "" }, errMsg: "edge.env"},
		{name: "bad scheme", mutate: func(c *Config) { c.Edge.OriginScheme = "ftp" }, errMsg: "origin_scheme"},
		{
			name:   "empty origin host",
			mutate: func(c *Config) { c.Edge.Origins = map[string]string{"blue_api": ""} },
			errMsg: "origin blue_api has no host",
		},
		{
			name:   "unknown origin",
			mutate: func(c *Config) { c.Edge.Origins = map[string]string{"purple_api": "x.example.com"} },
			errMsg: "unknown origin purple_api",
		},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "etcd" }, errMsg: "unsupported store driver"},
		{name: "zero fetch timeout", mutate: func(c *Config) { c.Store.FetchTimeout = 0 }, errMsg: "fetch_timeout"},
		{
			name:   "admin without secret",
			mutate: func(c *Config) { c.Admin.Enabled = true },
			errMsg: "jwt_secret",
		},
		{
			name: "rate limit without burst",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.BurstSize = 0
			},
			errMsg: "burst_size",
		},
		{
			name:   "bad trusted proxy",
			mutate: func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/40"} },
			errMsg: "server.trusted_proxies",
		},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, errMsg: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOriginsOverlay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Edge.Origins = map[string]string{"subscriptions": "subs.internal"}
	require.NoError(t, cfg.Validate())

	origins := cfg.Origins()
	host, _ := origins.Host(domain.OriginSubscriptions)
	assert.Equal(t, "subs.internal", host)
	host, _ = origins.Host(domain.OriginBlueAPI)
	assert.Equal(t, "blue-api.dev.verihire.cc", host)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.yaml")
	data := `
edge:
  env: prod
  base_domain: example.com
  demo_api_key: demo
store:
  driver: memory
  fetch_timeout: 20ms
  seed:
    routing-api: "{'weight': 30, 'blue': 'v1', 'green': 'v2'}"
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "prod", cfg.Edge.Env)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 20*time.Millisecond, cfg.Store.FetchTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Contains(t, cfg.Store.Seed, "routing-api")
	// untouched sections keep their defaults
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://prod.example.com/app", cfg.ToEdgeConfig().RedirectLocation())
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.yaml")
	require.NoError(t, os.WriteFile(path, []byte("edge:\n  env: staging\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ROUTER_ENV", "prod")
	t.Setenv("ROUTER_PORT", "9090")
	t.Setenv("ROUTER_STORE_DRIVER", "memory")
	t.Setenv("ROUTER_STORE_FETCH_TIMEOUT", "75ms")
	t.Setenv("ROUTER_REDIS_DB", "not-a-number")
	t.Setenv("ROUTER_ADMIN_ENABLED", "true")
	t.Setenv("ROUTER_ADMIN_JWT_SECRET", "s3cret")
	t.Setenv("ROUTER_TRUSTED_PROXIES", "10.0.0.0/8,192.0.2.1")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Edge.Env)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 75*time.Millisecond, cfg.Store.FetchTimeout)
	assert.Equal(t, 0, cfg.Store.Redis.DB)
	assert.True(t, cfg.Admin.Enabled)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.Server.TrustedProxies)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("ROUTER_STORE_DRIVER", "cassandra")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestDumpMasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Admin.JWTSecret = "s3cret"
	cfg.Edge.DemoAPIKey = "demo"

	out, err := cfg.Dump()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "s3cret")
	assert.NotContains(t, string(out), "demo_api_key: demo")
	assert.Equal(t, "s3cret", cfg.Admin.JWTSecret)
}
