package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bsm/redislock"
	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/InventoryGo/internal/config"
	"github.com/utafrali/InventoryGo/internal/event"
	handler "github.com/utafrali/InventoryGo/internal/handler/http"
	"github.com/utafrali/InventoryGo/internal/identity"
	"github.com/utafrali/InventoryGo/internal/service"
	"github.com/utafrali/InventoryGo/migrations"
	"github.com/utafrali/InventoryGo/pkg/database"
	"github.com/utafrali/InventoryGo/pkg/health"
	"github.com/utafrali/InventoryGo/pkg/httpclient"
	"github.com/utafrali/InventoryGo/pkg/idempotency"
	pkgkafka "github.com/utafrali/InventoryGo/pkg/kafka"
	"github.com/utafrali/InventoryGo/pkg/middleware"
	"github.com/utafrali/InventoryGo/pkg/retry"
	"github.com/utafrali/InventoryGo/pkg/tracing"
)

const serviceName = "inventory"

// App wires together all dependencies and runs the inventory service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	sweeper        *OverdueSweeper
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	healthHandler := health.NewHandler()

	// Storage.
	var repos repositories
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := connectPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		repos = postgresRepositories(pool)
		healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	default:
		logger.Warn("using in-memory storage; data is lost on restart")
		repos = memoryRepositories()
	}

	// Redis backs low-stock alert dedup, idempotency keys and the sweep
	// lock. Without it each falls back to its local behaviour.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:         cfg.RedisHost,
		Port:         cfg.RedisPort,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	var (
		redisUniversal redis.UniversalClient
		idemStore      idempotency.Store
		locker         *redislock.Client
	)
	idemStore = idempotency.NewMemoryStore()
	if err != nil {
		logger.Warn("redis unavailable, continuing without it", slog.String("error", err.Error()))
	} else {
		a.redis = redisClient
		redisUniversal = redisClient
		idemStore = idempotency.NewRedisStore(redisClient, "inventory:idem:")
		locker = database.NewLocker(redisClient)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr()))
	}

	// Initialize Kafka producer with connection validation and retry.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	a.producer = producer
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// Identity lookups.
	var resolver identity.Resolver = identity.StaticResolver{}
	if cfg.IdentityURL != "" {
		if err := httpclient.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return nil, fmt.Errorf("register circuit breaker metrics: %w", err)
		}
		httpCfg := httpclient.DefaultConfig()
		httpCfg.Timeout = cfg.IdentityTimeout
		cb := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpCfg),
			httpclient.DefaultCircuitBreakerConfig("identity"),
			logger,
		)
		resolver = identity.NewHTTPResolver(cb, cfg.IdentityURL)
		logger.Info("identity resolver configured", slog.String("url", cfg.IdentityURL))
	}

	// Build the dependency graph.
	policy := retry.DefaultPolicy()
	policy.Attempts = cfg.ConflictRetryAttempts
	eventProducer := event.NewProducer(producer, logger)
	notifier := event.NewLowStockNotifier(eventProducer, redisUniversal, cfg.LowStockAlertWindow, logger)
	numbers := service.NewNumberGenerator(repos.sequences, nil)

	ledger := service.NewLedgerService(repos.stock, repos.products, repos.categories, eventProducer, notifier,
		service.NewLedgerMetrics(prometheus.DefaultRegisterer), policy, logger)
	sales := service.NewSalesOrderService(repos.salesOrders, repos.products, repos.warehouses, ledger, numbers, resolver, eventProducer, logger)
	billing := service.NewBillingService(repos.invoices, repos.salesOrders, numbers, eventProducer, logger)
	services := handler.Services{
		Ledger:         ledger,
		Transfers:      service.NewTransferService(ledger, repos.products, repos.warehouses, resolver, logger),
		Adjustments:    service.NewAdjustmentService(repos.adjustments, repos.products, repos.warehouses, ledger, resolver, logger),
		PurchaseOrders: service.NewPurchaseOrderService(repos.purchases, repos.products, repos.warehouses, repos.suppliers, ledger, numbers, resolver, eventProducer, logger),
		SalesOrders:    sales,
		Shipments:      service.NewShipmentService(repos.shipments, sales, numbers, policy, logger),
		Billing:        billing,
		Payments:       service.NewPaymentService(repos.payments, billing, numbers, eventProducer, policy, logger),
		Catalog:        service.NewCatalogService(repos.products, repos.warehouses, repos.categories, repos.suppliers, logger),
		Categories:     service.NewCategoryService(repos.categories, repos.products, logger),
	}

	if cfg.OverdueSweepInterval > 0 {
		a.sweeper = NewOverdueSweeper(billing, locker, cfg.OverdueSweepInterval, logger)
	}

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Services:       services,
		Health:         healthHandler,
		Idempotency:    idemStore,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Metrics:        middleware.NewHTTPMetrics(prometheus.DefaultRegisterer, serviceName),
		MetricsHandler: promhttp.Handler(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RetryPolicy:    policy,
		Logger:         logger,
	})

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

func connectPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, serviceName)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}
	return pool, nil
}

// Run starts the HTTP server and background jobs, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("storage", a.cfg.StorageDriver),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start the overdue invoice sweep.
	if a.sweeper != nil {
		go a.sweeper.Run(ctx)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Close PostgreSQL pool.
	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry pings the Kafka producer up to 3 times with exponential
// backoff (1s, 2s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0.25

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, producer.Ping(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(3),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("kafka producer ping failed, retrying",
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", err)
	}
	return nil
}
