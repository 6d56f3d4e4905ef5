package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gomarketplace/cartstore/internal/cart"
	"github.com/gomarketplace/cartstore/internal/config"
	"github.com/gomarketplace/cartstore/internal/event"
	handler "github.com/gomarketplace/cartstore/internal/handler/http"
	"github.com/gomarketplace/cartstore/internal/kvstore"
	"github.com/gomarketplace/cartstore/internal/kvstore/memory"
	pgstore "github.com/gomarketplace/cartstore/internal/kvstore/postgres"
	redisstore "github.com/gomarketplace/cartstore/internal/kvstore/redis"
	sqlitestore "github.com/gomarketplace/cartstore/internal/kvstore/sqlite"
	"github.com/gomarketplace/cartstore/internal/metrics"
	"github.com/gomarketplace/cartstore/internal/repository/kv"
	"github.com/gomarketplace/cartstore/pkg/database"
	"github.com/gomarketplace/cartstore/pkg/health"
	pkgkafka "github.com/gomarketplace/cartstore/pkg/kafka"
	"github.com/gomarketplace/cartstore/pkg/tracing"
)

// App wires together all dependencies and runs the cart store service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          *cart.Store
	producer       *pkgkafka.Producer
	breaker        *pkgkafka.BreakerPublisher
	httpServer     *http.Server
	closers        []func() error
	cancelLoad     context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// The cart is not loaded until Start or Run is called. Whatever was acquired
// before a failure is released before NewApp returns the error.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeAll()
		}
	}()

	// Tracing.
	tcfg := tracing.DefaultConfig(cfg.ServiceName)
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.OTELEnabled
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		return shutdownTracer(sctx)
	})

	database.SetSlowOpLogging(time.Duration(cfg.SlowOpThresholdMs)*time.Millisecond, logger)

	// Service collectors live in their own registry; /metrics also serves the
	// default one, which holds the runtime and Kafka collectors.
	reg := prometheus.NewRegistry()

	// Storage backend.
	backend, err := a.openBackend(ctx, reg)
	if err != nil {
		return nil, err
	}

	// Change events.
	var publisher cart.Publisher = event.Noop{}
	if cfg.KafkaEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.closers = append(a.closers, a.producer.Close)
		a.breaker = pkgkafka.NewBreakerPublisher(a.producer, pkgkafka.DefaultBreakerConfig("cart-events"), logger)
		publisher = event.NewProducer(a.breaker, cfg.StorageKey, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	persistMode, err := cfg.Persist()
	if err != nil {
		return nil, err
	}
	matchMode, err := cfg.Match()
	if err != nil {
		return nil, err
	}
	repo := kv.NewCartRepository(backend, cfg.StorageKey)
	a.store = cart.New(repo, logger,
		cart.WithPersistMode(persistMode),
		cart.WithMatchMode(matchMode),
		cart.WithPublisher(publisher),
		cart.WithRecorder(metrics.New(reg)),
	)
	if matchMode == cart.MatchByValue {
		logger.Warn("cart matches items by value; adding a product whose quantity changed creates a duplicate line")
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("storage", a.store.Ping)
	healthHandler.RegisterCritical("cart_loaded", func(context.Context) error {
		if !a.store.Loaded() {
			return errors.New("cart not loaded yet")
		}
		return nil
	})
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		healthHandler.RegisterNonCritical("kafka_breaker", a.breaker.Healthy)
	}

	// HTTP router.
	router := handler.NewRouter(a.store, healthHandler, logger, handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		Registerer:  reg,
		Gatherer:    prometheus.Gatherers{reg, prometheus.DefaultGatherer},
		PprofCIDRs:  cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

func (a *App) openBackend(ctx context.Context, reg prometheus.Registerer) (kvstore.Store, error) {
	cfg := a.cfg
	switch cfg.StorageBackend {
	case config.BackendMemory:
		a.logger.Warn("using in-memory storage; the cart will not survive a restart")
		return memory.New(), nil

	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		a.logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return redisstore.New(rdb, cfg.CartTTLDuration()), nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, database.SQLiteConfig{
			Path:        cfg.SQLitePath,
			BusyTimeout: 5 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		store, err := sqlitestore.New(ctx, db)
		if err != nil {
			return nil, err
		}
		a.logger.Info("opened SQLite database", slog.String("path", cfg.SQLitePath))
		return store, nil

	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, database.DefaultPostgresConfig(cfg.PostgresDSN))
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		if err := database.RegisterPoolMetrics(reg, pool, cfg.ServiceName); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
		store := pgstore.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.logger.Info("connected to PostgreSQL")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Store returns the cart store.
func (a *App) Store() *cart.Store {
	return a.store
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Start begins loading the persisted cart in the background. ctx bounds the
// load together with the configured load timeout.
func (a *App) Start(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, a.cfg.LoadTimeout)
	a.cancelLoad = cancel
	a.store.Open(loadCtx)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.Start(ctx)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown gracefully stops all components. The cart's provisioning scope
// ends here: requests still in flight afterwards get a usage error.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.store.Close()
	if a.cancelLoad != nil {
		a.cancelLoad()
	}

	// Producer, storage, then tracer: the reverse of acquisition.
	a.closeAll()

	a.logger.Info("application shutdown complete")
	return nil
}

// closeAll releases acquired resources in reverse order. It is safe to call
// more than once.
func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close error", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
