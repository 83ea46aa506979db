package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "trafficsignal/backend/libs/config"
	"trafficsignal/backend/services/signal-controller/internal/signals"
	"trafficsignal/backend/services/signal-controller/internal/traffic"
)

var (
	// ErrCarRange is returned when the simulated vehicle range is empty.
	ErrCarRange = errors.New("config: traffic.minCars must be between 0 and traffic.maxCars")
	// ErrTiming is returned for non-positive signal timings.
	ErrTiming = errors.New("config: signal timings must be positive")
)

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Port      string `yaml:"port" env:"SIGNALS_HTTP_PORT"`
	StaticDir string `yaml:"staticDir" env:"SIGNALS_STATIC_DIR"`
}

// IntersectionConfig identifies the controlled junction.
type IntersectionConfig struct {
	ID string `yaml:"id" env:"SIGNALS_INTERSECTION_ID"`
}

// TrafficConfig shapes the simulated vehicle counts.
type TrafficConfig struct {
	MinCars        int    `yaml:"minCars" env:"SIGNALS_TRAFFIC_MIN_CARS"`
	MaxCars        int    `yaml:"maxCars" env:"SIGNALS_TRAFFIC_MAX_CARS"`
	RefreshSeconds int    `yaml:"refreshSeconds" env:"SIGNALS_TRAFFIC_REFRESH_SECONDS"`
	Seed           uint64 `yaml:"seed" env:"SIGNALS_TRAFFIC_SEED"`
}

// SignalConfig holds engine timings.
type SignalConfig struct {
	CycleSeconds              int    `yaml:"cycleSeconds" env:"SIGNALS_CYCLE_SECONDS"`
	FairnessSeconds           int    `yaml:"fairnessSeconds" env:"SIGNALS_FAIRNESS_SECONDS"`
	PedestrianWaitSeconds     int    `yaml:"pedestrianWaitSeconds" env:"SIGNALS_PEDESTRIAN_WAIT_SECONDS"`
	PedestrianCrossSeconds    int    `yaml:"pedestrianCrossSeconds" env:"SIGNALS_PEDESTRIAN_CROSS_SECONDS"`
	PedestrianCooldownSeconds int    `yaml:"pedestrianCooldownSeconds" env:"SIGNALS_PEDESTRIAN_COOLDOWN_SECONDS"`
	Timezone                  string `yaml:"timezone" env:"SIGNALS_TIMEZONE"`
}

// RedisConfig enables the snapshot store when Addr is set.
type RedisConfig struct {
	Addr       string `yaml:"addr" env:"SIGNALS_REDIS_ADDR"`
	Password   string `yaml:"password" env:"SIGNALS_REDIS_PASSWORD"`
	DB         int    `yaml:"db" env:"SIGNALS_REDIS_DB"`
	TTLSeconds int    `yaml:"ttlSeconds" env:"SIGNALS_REDIS_TTL_SECONDS"`
}

// DatabaseConfig enables the decision audit log when DSN is set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"SIGNALS_POSTGRES_DSN"`
}

// AuthConfig protects the emergency endpoints when JWTSecret is set.
type AuthConfig struct {
	JWTSecret            string `yaml:"jwtSecret" env:"SIGNALS_JWT_SECRET"`
	OperatorUser         string `yaml:"operatorUser" env:"SIGNALS_OPERATOR_USER"`
	OperatorPasswordHash string `yaml:"operatorPasswordHash" env:"SIGNALS_OPERATOR_PASSWORD_HASH"`
	ExpiresInMinutes     int    `yaml:"expiresInMinutes" env:"SIGNALS_JWT_EXPIRES_MINUTES"`
}

// WebsocketConfig tunes the live stream.
type WebsocketConfig struct {
	PingIntervalSeconds int `yaml:"pingIntervalSeconds" env:"SIGNALS_WS_PING_INTERVAL_SECONDS"`
	WriteTimeoutSeconds int `yaml:"writeTimeoutSeconds" env:"SIGNALS_WS_WRITE_TIMEOUT_SECONDS"`
}

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Intersection IntersectionConfig `yaml:"intersection"`
	Traffic      TrafficConfig      `yaml:"traffic"`
	Signal       SignalConfig       `yaml:"signal"`
	Redis        RedisConfig        `yaml:"redis"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Websocket    WebsocketConfig    `yaml:"websocket"`

	location *time.Location
}

// Default returns the stock configuration.
func Default() *Config {
	engine := signals.DefaultConfig()
	src := traffic.DefaultConfig()
	return &Config{
		HTTP:         HTTPConfig{Port: "8080"},
		Intersection: IntersectionConfig{ID: "main"},
		Traffic: TrafficConfig{
			MinCars:        src.MinCars,
			MaxCars:        src.MaxCars,
			RefreshSeconds: int(src.Refresh / time.Second),
		},
		Signal: SignalConfig{
			CycleSeconds:              int(engine.CycleTime / time.Second),
			FairnessSeconds:           int(engine.FairnessTime / time.Second),
			PedestrianWaitSeconds:     int(engine.PedestrianWait / time.Second),
			PedestrianCrossSeconds:    int(engine.PedestrianCross / time.Second),
			PedestrianCooldownSeconds: int(engine.PedestrianCooldown / time.Second),
			Timezone:                  "Local",
		},
		Redis:     RedisConfig{TTLSeconds: 60},
		Auth:      AuthConfig{OperatorUser: "operator", ExpiresInMinutes: 60},
		Websocket: WebsocketConfig{PingIntervalSeconds: 30, WriteTimeoutSeconds: 10},
	}
}

// Load reads configuration using the shared config loader. An empty path falls back to the
// CONFIG_FILE env variable.
func Load(path string) (*Config, error) {
	cfg := Default()

	var opts []libconfig.Option
	if path != "" {
		opts = append(opts, libconfig.WithFile(path))
	}
	if err := libconfig.Load(cfg, opts...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and resolves the timezone.
func (c *Config) Validate() error {
	if c.Traffic.MinCars < 0 || c.Traffic.MinCars > c.Traffic.MaxCars {
		return fmt.Errorf("%w: got %d..%d", ErrCarRange, c.Traffic.MinCars, c.Traffic.MaxCars)
	}
	if c.Traffic.RefreshSeconds < 0 {
		return errors.New("config: traffic.refreshSeconds must not be negative")
	}

	timings := map[string]int{
		"cycleSeconds":           c.Signal.CycleSeconds,
		"fairnessSeconds":        c.Signal.FairnessSeconds,
		"pedestrianWaitSeconds":  c.Signal.PedestrianWaitSeconds,
		"pedestrianCrossSeconds": c.Signal.PedestrianCrossSeconds,
	}
	for name, v := range timings {
		if v <= 0 {
			return fmt.Errorf("%w: signal.%s=%d", ErrTiming, name, v)
		}
	}
	if c.Signal.PedestrianCooldownSeconds < 0 {
		return fmt.Errorf("%w: signal.pedestrianCooldownSeconds=%d", ErrTiming, c.Signal.PedestrianCooldownSeconds)
	}

	if strings.TrimSpace(c.Intersection.ID) == "" {
		c.Intersection.ID = "main"
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.Signal.Timezone))
	if err != nil {
		return fmt.Errorf("config: signal.timezone: %w", err)
	}
	c.location = loc

	if c.Auth.JWTSecret != "" && c.Auth.OperatorPasswordHash == "" {
		return errors.New("config: auth.operatorPasswordHash is required when auth.jwtSecret is set")
	}
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Location is the timezone used for hour-of-day weighting.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// EngineConfig converts signal timings for the decision engine.
func (c *Config) EngineConfig() signals.Config {
	return signals.Config{
		CycleTime:          seconds(c.Signal.CycleSeconds),
		FairnessTime:       seconds(c.Signal.FairnessSeconds),
		PedestrianWait:     seconds(c.Signal.PedestrianWaitSeconds),
		PedestrianCross:    seconds(c.Signal.PedestrianCrossSeconds),
		PedestrianCooldown: seconds(c.Signal.PedestrianCooldownSeconds),
	}
}

// TrafficConfig converts the simulation settings for the vehicle count source.
func (c *Config) TrafficConfig() traffic.Config {
	return traffic.Config{
		MinCars: c.Traffic.MinCars,
		MaxCars: c.Traffic.MaxCars,
		Refresh: seconds(c.Traffic.RefreshSeconds),
		Seed:    c.Traffic.Seed,
	}
}

// SnapshotTTL is how long redis keeps the latest status.
func (c *Config) SnapshotTTL() time.Duration {
	if c.Redis.TTLSeconds <= 0 {
		return time.Minute
	}
	return seconds(c.Redis.TTLSeconds)
}

// AuthEnabled reports whether operator endpoints require a token.
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

// JWTExpiration converts configured expiry to duration.
func (c *Config) JWTExpiration() time.Duration {
	if c.Auth.ExpiresInMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Auth.ExpiresInMinutes) * time.Minute
}

// PingInterval returns the websocket keepalive period.
func (c *Config) PingInterval() time.Duration {
	if c.Websocket.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return seconds(c.Websocket.PingIntervalSeconds)
}

// WriteTimeout returns the websocket write deadline.
func (c *Config) WriteTimeout() time.Duration {
	if c.Websocket.WriteTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return seconds(c.Websocket.WriteTimeoutSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
