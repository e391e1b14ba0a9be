package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/puremall/storefront/internal/auth"
	"github.com/puremall/storefront/internal/backend"
	"github.com/puremall/storefront/internal/config"
	"github.com/puremall/storefront/internal/event"
	handler "github.com/puremall/storefront/internal/handler/http"
	"github.com/puremall/storefront/internal/snapshot"
	"github.com/puremall/storefront/internal/store"
	"github.com/puremall/storefront/pkg/health"
	"github.com/puremall/storefront/pkg/httpclient"
	pkgkafka "github.com/puremall/storefront/pkg/kafka"
)

// App wires together all dependencies and runs the storefront session service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	redis      *goredis.Client
	producer   *pkgkafka.Producer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Snapshot store. Redis being down at startup is not fatal: sessions
	// still work, they just lose persistence across logins.
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, snapshots degraded",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("connected to redis", slog.String("addr", cfg.RedisAddr))
	}
	snapshots := snapshot.NewStore(redisClient, cfg.SnapshotTTL())

	// Kafka producer for cart and order lifecycle events.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	events := event.NewProducer(producer, logger)

	// Mall backend transport: one pooled HTTP client behind a circuit
	// breaker, shared by every session's client.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.BackendTimeout()
	hc := httpclient.New(httpCfg)
	cb := httpclient.NewCircuitBreakerClient(hc, httpclient.DefaultCircuitBreakerConfig("mall-backend"), logger)

	newBackend := func(token func() string, onUnauthorized func()) store.Backend {
		return backend.NewClient(cb, cfg.BackendBaseURL, logger,
			backend.WithToken(token),
			backend.WithUnauthorizedHook(onUnauthorized),
		)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionExpiry())
	sessions := store.NewSessionManager(jwtManager, newBackend, snapshots, events, events, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := handler.NewRouter(sessions, healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		redis:      redisClient,
		producer:   producer,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

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
// 2. Kafka producer
// 3. Redis client
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
