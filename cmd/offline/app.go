package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alem-hub/offline-quest/config"
	"github.com/alem-hub/offline-quest/internal/application/engine"
	"github.com/alem-hub/offline-quest/internal/application/progress"
	"github.com/alem-hub/offline-quest/internal/application/tracker"
	"github.com/alem-hub/offline-quest/internal/domain/progression"
	"github.com/alem-hub/offline-quest/internal/infrastructure/messaging"
	"github.com/alem-hub/offline-quest/internal/infrastructure/metrics"
	"github.com/alem-hub/offline-quest/internal/infrastructure/persistence/badger"
	"github.com/alem-hub/offline-quest/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/offline-quest/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/offline-quest/internal/infrastructure/persistence/record"
	"github.com/alem-hub/offline-quest/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/offline-quest/internal/infrastructure/persistence/sqlite"
	"github.com/alem-hub/offline-quest/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION
// ══════════════════════════════════════════════════════════════════════════════

// app держит все собранные зависимости одного запуска.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	bus      *messaging.Bus
	engine   *engine.Engine
	recorder *metrics.Recorder

	closers []func() error
}

// bootstrap собирает приложение: конфигурация, логгер, шина событий,
// хранилище, движок, метрики и пересылка событий в Redis.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Setup(logger.Options{
		Output: os.Stderr,
		Level:  cfg.Observability.LogLevel,
		Format: logger.Format(cfg.Observability.LogFormat),
	})

	a := &app{cfg: cfg, log: log}

	a.bus = messaging.NewBus(messaging.BusConfig{
		Logger:      log,
		Middlewares: []messaging.Middleware{messaging.LoggingMiddleware(log)},
	})
	a.onClose(a.bus.Close)

	// ─────────────────────────────────────────────────────────────────────────
	// Хранилище
	// ─────────────────────────────────────────────────────────────────────────
	var redisStore *redis.Store
	if cfg.UsesRedis() {
		rcfg := redis.DefaultConfig()
		rcfg.Host = cfg.Redis.Host
		rcfg.Port = cfg.Redis.Port
		rcfg.Password = cfg.Redis.Password
		rcfg.DB = cfg.Redis.DB
		rcfg.KeyPrefix = cfg.Redis.KeyPrefix

		redisStore, err = redis.NewStore(rcfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.onClose(redisStore.Close)
	}

	kv, err := a.openStorage(ctx, redisStore)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info("storage ready", logger.StorageDriver(cfg.Storage.Driver))

	// ─────────────────────────────────────────────────────────────────────────
	// Наблюдаемость
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Redis.ForwardEvents {
		fwd, err := messaging.NewRedisForwarder(a.bus, messaging.RedisForwarderConfig{
			Client:  redisStore.Client(),
			Channel: cfg.Redis.EventsChannel,
			Logger:  log,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start event forwarder: %w", err)
		}
		a.onClose(func() error { fwd.Close(); return nil })
	}

	if cfg.Observability.MetricsAddr != "" {
		if err := a.serveMetrics(cfg.Observability.MetricsAddr); err != nil {
			a.Close()
			return nil, err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Движок
	// ─────────────────────────────────────────────────────────────────────────
	repo := record.NewProfileRepository(kv, record.RepositoryConfig{
		Key:      cfg.Engine.ProfileKey,
		Location: cfg.Location(),
	})

	store, err := progress.NewStore(progress.Config{
		Repository: repo,
		Publisher:  a.bus,
		Location:   cfg.Location(),
		Retry: progress.RetryConfig{
			MaxAttempts:     cfg.Persistence.MaxAttempts,
			InitialInterval: cfg.Persistence.InitialInterval,
			MaxInterval:     cfg.Persistence.MaxInterval,
		},
		Logger: log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	trk := tracker.NewManager(tracker.Config{
		TickInterval: cfg.Engine.TickInterval,
		Publisher:    a.bus,
		Logger:       log,
	})

	a.engine, err = engine.New(engine.Config{Tracker: trk, Store: store, Logger: log})
	if err != nil {
		a.Close()
		return nil, err
	}

	res, err := a.engine.Open(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	a.seedMetrics()

	switch {
	case res.Recovered:
		log.Warn("stored profile was unreadable, started a new one", "reason", res.Reason)
	case res.Created:
		log.Info("created a new profile")
	}

	return a, nil
}

// openStorage выбирает KeyValueStore по STORAGE_DRIVER.
func (a *app) openStorage(ctx context.Context, redisStore *redis.Store) (progression.KeyValueStore, error) {
	cfg := a.cfg.Storage

	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.onClose(s.Close)
		return s, nil

	case config.DriverBadger:
		bcfg := badger.DefaultConfig(cfg.Path)
		bcfg.Logger = a.log
		s, err := badger.Open(bcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		a.onClose(s.Close)
		return s, nil

	case config.DriverRedis:
		if redisStore == nil {
			return nil, errors.New("redis store is not connected")
		}
		return redisStore, nil

	case config.DriverPostgres:
		var conn *postgres.Connection
		var err error
		if cfg.DatabaseURL != "" {
			conn, err = postgres.NewConnectionFromURL(ctx, cfg.DatabaseURL)
		} else {
			conn, err = postgres.NewConnection(ctx, postgresConfig(cfg.Postgres))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.onClose(func() error { conn.Close(); return nil })

		s, err := postgres.NewStore(ctx, conn)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare database: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// postgresConfig накладывает STORAGE_POSTGRES_* на настройки пула по умолчанию.
func postgresConfig(pg config.PostgresConfig) postgres.Config {
	c := postgres.DefaultConfig()
	c.Host = pg.Host
	c.Port = pg.Port
	c.Database = pg.Database
	c.User = pg.User
	c.Password = pg.Password
	c.SSLMode = pg.SSLMode
	return c
}

// serveMetrics подписывает Prometheus-рекордер на шину и поднимает /metrics.
func (a *app) serveMetrics(addr string) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	recorder := metrics.NewRecorder(registry)
	if err := recorder.Attach(a.bus); err != nil {
		return fmt.Errorf("failed to attach metrics: %w", err)
	}
	a.recorder = recorder

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", logger.Err(err))
		}
	}()
	a.log.Info("metrics server started", "addr", addr)

	a.onClose(func() error {
		recorder.Detach()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	return nil
}

// seedMetrics выставляет уровень и XP загруженного профиля в метрики.
func (a *app) seedMetrics() {
	if a.recorder == nil || a.engine == nil {
		return
	}
	if p := a.engine.Profile(); p != nil {
		a.recorder.Seed(p.Level, p.TotalXP)
	}
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close освобождает ресурсы в обратном порядке.
func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", logger.Err(err))
		}
	}
	a.closers = nil
}
