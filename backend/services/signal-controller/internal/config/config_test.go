package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficsignal/backend/services/signal-controller/internal/signals"
	"trafficsignal/backend/services/signal-controller/internal/traffic"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, "main", cfg.Intersection.ID)
	assert.Equal(t, signals.DefaultConfig(), cfg.EngineConfig())
	assert.Equal(t, traffic.DefaultConfig(), cfg.TrafficConfig())
	assert.Equal(t, time.Minute, cfg.SnapshotTTL())
	assert.Equal(t, time.Hour, cfg.JWTExpiration())
	assert.Equal(t, 30*time.Second, cfg.PingInterval())
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout())
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, time.Local, cfg.Location())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: ":9000"
intersection:
  id: "5th-and-main"
traffic:
  minCars: 2
  maxCars: 10
  refreshSeconds: 3
  seed: 42
signal:
  cycleSeconds: 20
  timezone: "UTC"
redis:
  addr: "localhost:6379"
  ttlSeconds: 15
`), 0o600))
	t.Setenv("SIGNALS_FAIRNESS_SECONDS", "60")
	t.Setenv("SIGNALS_TRAFFIC_MAX_CARS", "12")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddress())
	assert.Equal(t, "5th-and-main", cfg.Intersection.ID)
	assert.Equal(t, traffic.Config{MinCars: 2, MaxCars: 12, Refresh: 3 * time.Second, Seed: 42}, cfg.TrafficConfig())

	engine := cfg.EngineConfig()
	assert.Equal(t, 20*time.Second, engine.CycleTime)
	assert.Equal(t, 60*time.Second, engine.FairnessTime)
	assert.Equal(t, 30*time.Second, engine.PedestrianWait)

	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 15*time.Second, cfg.SnapshotTTL())
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		target error
	}{
		"min above max": {
			mutate: func(c *Config) { c.Traffic.MinCars, c.Traffic.MaxCars = 10, 5 },
			target: ErrCarRange,
		},
		"negative min": {
			mutate: func(c *Config) { c.Traffic.MinCars = -1 },
			target: ErrCarRange,
		},
		"zero cycle": {
			mutate: func(c *Config) { c.Signal.CycleSeconds = 0 },
			target: ErrTiming,
		},
		"negative cooldown": {
			mutate: func(c *Config) { c.Signal.PedestrianCooldownSeconds = -5 },
			target: ErrTiming,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.target)
		})
	}
}

func TestValidateRejectsUnknownTimezoneAndHalfConfiguredAuth(t *testing.T) {
	cfg := Default()
	cfg.Signal.Timezone = "Mars/Olympus_Mons"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Auth.JWTSecret = "secret"
	assert.Error(t, cfg.Validate())

	cfg.Auth.OperatorPasswordHash = "$2a$10$hash"
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.AuthEnabled())
}

func TestValidateAllowsEqualCarBounds(t *testing.T) {
	cfg := Default()
	cfg.Traffic.MinCars, cfg.Traffic.MaxCars = 7, 7
	require.NoError(t, cfg.Validate())
}
