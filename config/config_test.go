package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "openfda", cfg.Cache.Namespace)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "https://api.fda.gov/drug/event.json", cfg.OpenFDA.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.OpenFDA.Timeout)
	assert.Equal(t, 5, cfg.OpenFDA.ResultLimit)
	assert.Equal(t, float64(4), cfg.OpenFDA.RateLimit)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("OPENFDA_API_KEY", "secret-key")
	t.Setenv("SWEEPER_INTERVAL", "30s")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, "secret-key", cfg.OpenFDA.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Sweeper.Interval)
	assert.True(t, cfg.IsProduction())
}
