package app

import (
	"context"
	"database/sql"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/libs/db"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/libs/redis"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/config"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/debuglog"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/events"
	httpserver "github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/handlers"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/middleware"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/repository"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/seed"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/tenants"
)

// App wires roaming api dependencies.
type App struct {
	server   *httpserver.Server
	handler  http.Handler
	registry *tenants.Registry
	bus      *events.Bus
	hub      *debuglog.Hub
	db       *sql.DB
	redis    *goredis.Client
	logger   *zap.Logger
}

// New constructs application graph. The database and Redis are optional.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	var cdrs network.CDRSink = network.NewMemoryCDRSink()
	if cfg.Database.DSN != "" {
		sqlDB, err := db.Open(ctx, cfg.Database.DSN, cfg.Database.Pool)
		if err != nil {
			return nil, err
		}
		a.db = sqlDB
		repo := repository.NewCDRRepository(sqlDB)
		if err := repo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		cdrs = repo
	}

	a.hub = debuglog.NewHub()
	sinks := []events.Sink{
		events.LogSink{Logger: logger},
		events.BroadcastSink{Target: a.hub},
	}
	if cfg.Redis.Enabled() {
		client, err := redis.NewRedisClient(ctx, cfg.Redis.Options)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		sinks = append(sinks, events.NewRedisSink(client, cfg.Redis.Channel))
	}
	a.bus = events.NewBus(logger, cfg.DebugLog.Buffer, sinks...)

	a.registry = tenants.NewRegistry(func(id ids.RoamingNetworkID, name, description string) *network.RoamingNetwork {
		return network.New(id, network.Options{Name: name, Description: description, CDRSink: cdrs})
	}, logger)

	if cfg.Seed.File != "" {
		file, err := seed.Load(cfg.Seed.File)
		if err == nil {
			err = seed.Apply(a.registry, file, cfg.HTTP.Hostname, logger)
		}
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	table := routing.NewTable(logger,
		routing.WithPrefix(cfg.URLPrefix()),
		routing.WithServerName(cfg.HTTP.ServerName),
		routing.WithObserver(routing.LogObserver{Logger: logger}),
	)
	var guard routing.Middleware
	if cfg.JWT.Secret != "" {
		guard = middleware.RequireBearer(cfg.JWT.Secret)
	}
	handlers.NewAPI(a.registry, a.bus, logger).Register(table, cfg.HTTP.Hostname, guard)

	debugLog := debuglog.NewServer(a.hub, cfg.DebugLog.WriteTimeout, cfg.DebugLog.PingInterval, logger)

	mux := http.NewServeMux()
	mux.Handle("/health", middleware.Chain(handlers.NewHealthHandler(), middleware.LoggingMiddleware(logger)))
	mux.Handle(cfg.URLPrefix()+"/DebugLog", middleware.Chain(http.HandlerFunc(debugLog.HandleWS), middleware.LoggingMiddleware(logger)))
	mux.Handle("/", table)

	a.handler = mux
	a.server = httpserver.NewServer(cfg.HTTPAddress(), mux, logger, middleware.RecoveryMiddleware(logger))
	return a, nil
}

// Handler returns the root handler without the recovery middleware.
func (a *App) Handler() http.Handler { return a.handler }

// Registry returns the tenant registry.
func (a *App) Registry() *tenants.Registry { return a.registry }

// Run starts event delivery and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	go a.bus.Run(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
