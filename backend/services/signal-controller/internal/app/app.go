package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "trafficsignal/backend/libs/db"
	libredis "trafficsignal/backend/libs/redis"
	"trafficsignal/backend/services/signal-controller/internal/auth"
	"trafficsignal/backend/services/signal-controller/internal/clock"
	"trafficsignal/backend/services/signal-controller/internal/config"
	httpserver "trafficsignal/backend/services/signal-controller/internal/http"
	"trafficsignal/backend/services/signal-controller/internal/http/handlers"
	"trafficsignal/backend/services/signal-controller/internal/http/middleware"
	redisstore "trafficsignal/backend/services/signal-controller/internal/redis"
	"trafficsignal/backend/services/signal-controller/internal/repository"
	"trafficsignal/backend/services/signal-controller/internal/service"
	"trafficsignal/backend/services/signal-controller/internal/signals"
	"trafficsignal/backend/services/signal-controller/internal/traffic"
	"trafficsignal/backend/services/signal-controller/internal/ws"
)

const startupTimeout = 5 * time.Second

// App wires signal-controller dependencies.
type App struct {
	cfg         *config.Config
	server      *httpserver.Server
	handler     http.Handler
	controller  *service.ControllerService
	snapshots   *redisstore.SnapshotStore
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph. Redis and Postgres are only dialled when configured.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	return NewWithClock(cfg, clock.NewSystem(cfg.Location()), logger)
}

// NewWithClock is New with an explicit time source.
func NewWithClock(cfg *config.Config, clk clock.Clock, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	hub := ws.NewHub(logger)
	deps := service.Dependencies{
		Source:      traffic.NewSource(cfg.TrafficConfig(), clk),
		Engine:      signals.NewEngine(cfg.EngineConfig(), clk),
		Broadcaster: hub,
		Logger:      logger,
	}

	if cfg.Redis.Addr != "" {
		client, err := libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.redisClient = client
		a.snapshots = redisstore.NewSnapshotStore(client, cfg.SnapshotTTL())
		deps.Snapshots = a.snapshots
		logger.Info("status snapshots enabled", zap.String("redis_addr", cfg.Redis.Addr))
	}

	if cfg.Database.DSN != "" {
		sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN, libdb.PoolOptions{})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = sqlDB

		decisions := repository.NewDecisionRepository(sqlDB)
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		err = decisions.EnsureSchema(ctx)
		cancel()
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Recorder = decisions
		deps.History = decisions
		logger.Info("decision audit log enabled")
	}

	a.controller = service.NewControllerService(cfg.Intersection.ID, deps)

	routes := httpserver.Routes{
		Data:           handlers.NewStatusHandler(a.controller, logger),
		Emergency:      handlers.NewEmergencyHandler(a.controller, logger),
		ClearEmergency: handlers.NewClearEmergencyHandler(a.controller),
		Pedestrian:     handlers.NewPedestrianHandler(a.controller),
		Stats:          handlers.NewStatsHandler(a.controller, logger),
		Health:         handlers.NewHealthHandler(),
		Stream:         ws.NewServer(hub, cfg.WriteTimeout(), cfg.PingInterval(), logger).HandleWS,
	}
	if cfg.HTTP.StaticDir != "" {
		routes.Static = http.FileServer(http.Dir(cfg.HTTP.StaticDir))
	}

	var operator func(http.Handler) http.Handler
	if cfg.AuthEnabled() {
		tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.JWTExpiration())
		authenticator := auth.NewAuthenticator(cfg.Auth.OperatorUser, cfg.Auth.OperatorPasswordHash, auth.NewBcryptHasher(0), tokens, logger)
		routes.Login = handlers.NewLoginHandler(authenticator, logger)
		operator = middleware.RequireOperator(tokens)
	} else {
		logger.Warn("operator auth disabled; emergency endpoints are open")
	}

	a.handler = httpserver.NewRouter(routes, operator, middleware.Recovery(logger), middleware.Logging(logger))
	a.server = httpserver.NewServer(cfg.HTTPAddress(), a.handler, logger)
	return a, nil
}

// Handler exposes the routed handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("signal controller ready",
		zap.String("intersection_id", a.cfg.Intersection.ID),
		zap.Bool("auth", a.cfg.AuthEnabled()),
	)
	return a.server.Run(ctx)
}

// Close releases resources. The cached snapshot is dropped because controller state does not
// survive a restart.
func (a *App) Close() {
	if a.snapshots != nil {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		if err := a.snapshots.Delete(ctx, a.cfg.Intersection.ID); err != nil {
			a.logger.Warn("failed to drop status snapshot", zap.Error(err))
		}
		cancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
