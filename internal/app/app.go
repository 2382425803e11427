package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/command"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/idempotency"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/document"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/submission"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// ServiceVersion is reported in traces.
const ServiceVersion = "0.1.0"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	redis          *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Resources opened before a failure are released before returning.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeBackends()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	store, ledgerStore, idem, err := a.openStorage(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	ledger, err := a.openLedger(ctx, ledgerStore, healthHandler)
	if err != nil {
		return nil, err
	}

	// Events are optional; a producer without a publisher drops them.
	var publisher event.Publisher
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	producer := event.NewProducer(publisher, logger)

	sinks := notify.FanOut{notify.NewLogSink(logger)}
	if producer.Enabled() {
		sinks = append(sinks, notify.NewEventSink(producer))
	}

	products, submitter := a.collaborators()

	// Build the dependency graph.
	carts := document.NewCartRepository(store)
	sessions := document.NewCheckoutRepository(store)
	wishlists := document.NewWishlistRepository(store)
	engine := domain.NewPricingEngine(cfg.PricingRules())
	locks := service.NewShopperLocks()

	svc := command.Services{
		Cart: service.NewCartService(carts, wishlists, products, domain.DefaultDiscountCatalog(),
			engine, producer, sinks, locks, logger, cfg.MaxCartLines),
		Checkout: service.NewCheckoutService(sessions, carts, engine, producer, sinks, locks, logger),
		Orders: service.NewOrderService(service.OrderDeps{
			Sessions:    sessions,
			Carts:       carts,
			Ledger:      ledger,
			Idempotency: idem,
			Submitter:   submitter,
			Engine:      engine,
			Delivery:    cfg.DeliveryDays(),
			Producer:    producer,
			Notifier:    sinks,
			Locks:       locks,
			Logger:      logger,
		}),
		Wishlist: service.NewWishlistService(wishlists, locks, logger),
	}

	router := handler.NewRouter(handler.Services{
		Cart:       svc.Cart,
		Checkout:   svc.Checkout,
		Orders:     svc.Orders,
		Wishlist:   svc.Wishlist,
		Dispatcher: command.NewStorefront(svc, logger),
	}, healthHandler, handler.Options{
		CORS:      middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins, MaxAge: 300},
		RateLimit: middleware.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// openStorage connects the document store. Orders kept in the document store
// use a copy without expiry.
func (a *App) openStorage(ctx context.Context, hh *health.Handler) (storage.Store, storage.Store, idempotency.Store, error) {
	cfg := a.cfg
	if cfg.StorageBackend == config.BackendMemory {
		a.logger.Warn("using in-memory document storage; carts are lost on restart")
		store := storage.NewMemoryStore()
		return store, store, idempotency.NewMemoryStore(cfg.IdempotencyLockTTL, cfg.IdempotencyTTL), nil
	}

	client, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	a.logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))
	hh.Register("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})

	store := storage.NewRedisStore(client, cfg.DocumentTTL)
	idem := idempotency.NewRedisStore(client, cfg.IdempotencyLockTTL, cfg.IdempotencyTTL)
	return store, store.Persistent(), idem, nil
}

func (a *App) openLedger(ctx context.Context, store storage.Store, hh *health.Handler) (repository.OrderLedger, error) {
	cfg := a.cfg
	if cfg.LedgerBackend == config.BackendStorage {
		a.logger.Info("order ledger kept in document storage", slog.String("backend", cfg.StorageBackend))
		return document.NewOrderLedger(store), nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := prometheus.Register(database.NewPoolStatsCollector(pool)); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	hh.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	return postgres.NewOrderLedger(pool, a.logger), nil
}

// collaborators picks the product lookup and order submitter. Remote ones go
// through their own circuit breaker.
func (a *App) collaborators() (catalog.Lookup, submission.Submitter) {
	cfg := a.cfg

	var products catalog.Lookup = catalog.DefaultCatalog()
	if cfg.CatalogURL != "" {
		products = catalog.NewHTTPCatalog(a.breaker("catalog"), cfg.CatalogURL)
	}

	var submitter submission.Submitter = submission.Noop{}
	if cfg.SubmissionURL != "" {
		submitter = submission.NewHTTPSubmitter(a.breaker("order-submission"), cfg.SubmissionURL, cfg.SubmissionTimeout)
	}

	a.logger.Info("collaborators configured",
		slog.Bool("remote_catalog", cfg.CatalogURL != ""),
		slog.Bool("remote_submission", cfg.SubmissionURL != ""),
	)
	return products, submitter
}

func (a *App) breaker(name string) *httpclient.CircuitBreakerClient {
	cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
	cbCfg.MinRequests = a.cfg.BreakerMaxFails
	cbCfg.Timeout = a.cfg.BreakerTimeout
	return httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.DefaultConfig()), cbCfg, a.logger)
}

// Handler returns the HTTP handler serving the storefront API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: the HTTP server drains
// first, then pending spans are flushed and the backends are closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeBackends())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeBackends() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
