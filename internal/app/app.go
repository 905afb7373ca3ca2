package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/markofilipovic2762/eshop-cms/internal/backend"
	"github.com/markofilipovic2762/eshop-cms/internal/catalog"
	"github.com/markofilipovic2762/eshop-cms/internal/checkout"
	"github.com/markofilipovic2762/eshop-cms/internal/config"
	"github.com/markofilipovic2762/eshop-cms/internal/event"
	handler "github.com/markofilipovic2762/eshop-cms/internal/handler/http"
	"github.com/markofilipovic2762/eshop-cms/internal/storage"
	"github.com/markofilipovic2762/eshop-cms/internal/storage/memory"
	"github.com/markofilipovic2762/eshop-cms/internal/storage/redis"
	"github.com/markofilipovic2762/eshop-cms/internal/store"
	"github.com/markofilipovic2762/eshop-cms/pkg/health"
	"github.com/markofilipovic2762/eshop-cms/pkg/httpclient"
	pkgkafka "github.com/markofilipovic2762/eshop-cms/pkg/kafka"
	"github.com/markofilipovic2762/eshop-cms/pkg/middleware"
	"github.com/markofilipovic2762/eshop-cms/pkg/tracing"
)

const slowStorageOp = 100 * time.Millisecond

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	registry       *store.Registry
	limiter        *middleware.Limiter
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	publisher      *event.Publisher
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tcfg := tracing.DefaultConfig("storefront")
	tcfg.Environment = cfg.Environment
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	tcfg.Enabled = cfg.OTELEnabled
	tracerShutdown, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Persistent store.
	var persistent storage.Store
	switch cfg.StorageDriver {
	case config.StorageRedis:
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))
		a.redis = client
		persistent = redis.New(client, cfg.StateTTL)
	default:
		logger.Warn("using in-memory storage; state is lost on restart")
		persistent = memory.New()
	}
	persistent = storage.Instrumented(persistent, cfg.StorageDriver, slowStorageOp, logger)

	// REST backend behind retries and a circuit breaker.
	hcfg := httpclient.DefaultConfig()
	hcfg.Timeout = cfg.BackendTimeout
	hcfg.MaxRetries = cfg.BackendRetries
	cb := httpclient.NewCircuitBreakerClient(httpclient.New(hcfg), httpclient.DefaultCircuitBreakerConfig("backend"), logger)
	api := backend.New(cb, cfg.BackendURL, logger)
	logger.Info("backend client initialized",
		slog.String("url", cfg.BackendURL),
		slog.Duration("timeout", cfg.BackendTimeout),
		slog.Int("max_retries", cfg.BackendRetries),
	)

	a.registry = store.NewRegistry(store.Deps{Storage: persistent, Auth: api, Logger: logger}, cfg.ProfileIdleTTL)

	// Kafka publishing is optional.
	var notifier checkout.Notifier
	if cfg.KafkaEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.publisher = event.NewPublisher(a.producer, logger)
		a.registry.OnCreate(a.publisher.Attach)
		notifier = a.publisher
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("storage", persistent.Ping)
	healthHandler.RegisterOptional("backend", api.Ping)
	if a.producer != nil {
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
	}

	a.limiter = middleware.NewLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, 10*time.Minute)

	guard := middleware.GuardConfig{}
	if cfg.DashboardJWTSecret != "" {
		guard.Validate = middleware.HS256Validator([]byte(cfg.DashboardJWTSecret))
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.AllowedOrigins

	var pprofCIDRs []string
	if cfg.PprofEnabled {
		pprofCIDRs = cfg.PprofAllowedCIDRs
	}

	router := handler.NewRouter(handler.Deps{
		Registry:       a.registry,
		Catalog:        catalog.NewService(api),
		Checkout:       checkout.NewService(cfg.CheckoutDelay, notifier, logger),
		Health:         healthHandler,
		Logger:         logger,
		AuthLimiter:    a.limiter,
		Guard:          guard,
		CORS:           cors,
		RequestTimeout: cfg.RequestTimeout,
		SecureCookies:  cfg.SecureCookies,
		PprofCIDRs:     pprofCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and background sweepers, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.registry.Run(ctx)
	go a.limiter.Run(ctx.Done())

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
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Profile registry (dispose stores)
// 3. Event publisher, then the Kafka producer
// 4. Redis client
// 5. Tracer
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.registry.Close()

	if a.publisher != nil {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pubCancel()
		if err := a.publisher.Close(pubCtx); err != nil {
			a.logger.Error("event publisher close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
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

	tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer tracerCancel()
	if err := a.tracerShutdown(tracerCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
