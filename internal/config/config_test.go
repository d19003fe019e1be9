package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, BackendRedis, cfg.CacheBackend)
	require.Equal(t, 30*time.Minute, cfg.CacheTTL)
	require.Equal(t, 10*time.Minute, cfg.RefreshGrace)
	require.Equal(t, 6*time.Second, cfg.ProviderTimeout)
	require.Equal(t, 1, cfg.ProviderMaxRetries)
	require.Equal(t, DefaultProviderOrder, cfg.ProviderOrder)
	require.InDelta(t, 1.0, cfg.RateLimitRPS, 1e-9)
	require.Equal(t, 5, cfg.RateLimitBurst)
	require.True(t, cfg.CoalesceFetches)
	require.Empty(t, cfg.WarmLocations)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_BACKEND", "Memory")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("REFRESH_GRACE_WINDOW", "5m")
	t.Setenv("PROVIDER_ORDER", " openmeteo , weatherapi,")
	t.Setenv("PROVIDER_RATE_LIMIT_RPS", "0.5")
	t.Setenv("COALESCE_FETCHES", "false")
	t.Setenv("WARM_LOCATIONS", "12.9719,77.5937; 51.5073,-0.1276")

	cfg, err := FromEnv()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, BackendMemory, cfg.CacheBackend)
	require.Equal(t, time.Hour, cfg.CacheTTL)
	require.Equal(t, 5*time.Minute, cfg.RefreshGrace)
	require.Equal(t, []string{"openmeteo", "weatherapi"}, cfg.ProviderOrder)
	require.InDelta(t, 0.5, cfg.RateLimitRPS, 1e-9)
	require.False(t, cfg.CoalesceFetches)
	require.Len(t, cfg.WarmLocations, 2)
	require.InDelta(t, -0.1276, cfg.WarmLocations[1].Lon(), 1e-9)
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"grace not below ttl": {"CACHE_TTL": "10m", "REFRESH_GRACE_WINDOW": "10m"},
		"bad duration":        {"PROVIDER_TIMEOUT": "soon"},
		"unknown backend":     {"CACHE_BACKEND": "memcached"},
		"bad warm location":   {"WARM_LOCATIONS": "91,0"},
		"warm location shape": {"WARM_LOCATIONS": "12.5"},
		"bad rps":             {"PROVIDER_RATE_LIMIT_RPS": "fast"},
		"zero rps":            {"PROVIDER_RATE_LIMIT_RPS": "0"},
		"short warm interval": {"WARM_INTERVAL": "10s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
		})
	}
}
