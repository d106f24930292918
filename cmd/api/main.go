package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salondesk/internal/api"
	"salondesk/internal/auth"
	"salondesk/internal/config"
	"salondesk/internal/domain"
	"salondesk/internal/events"
	"salondesk/internal/logging"
	"salondesk/internal/metrics"
	"salondesk/internal/repository"
	"salondesk/internal/session"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	gate, err := auth.NewGate(cfg.Auth.Users, cfg.Auth.LoginDelay, &logger)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	bus := events.NewEventBus()
	metrics.Subscribe(bus)
	subscribeAudit(bus, &logger)

	opts := session.OptionsFromConfig(cfg)
	opts.Events = bus
	opts.Logger = &logger
	sessions := session.NewManager(gate, initSessionRepository(cfg, redisClient, &logger), opts)
	defer sessions.Close()

	httpServer := api.NewHTTPServer(cfg.API, sessions, cfg.Exports.SheetName, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)
	go sessions.RunJanitor(ctx, cfg.Session.SweepInterval)
	go httpServer.RunLimiterJanitor(ctx, cfg.Session.SweepInterval)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	policy := repository.RetryPolicy{
		MaxRetries:   cfg.Redis.MaxRetries,
		InitialDelay: cfg.Redis.RetryDelay,
		MaxDelay:     10 * time.Second,
	}
	if err := repository.PingWithRetry(context.Background(), redisClient, policy, logger); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initSessionRepository keeps tokens in redis when it is reachable and in
// memory otherwise.
func initSessionRepository(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) domain.IdentityRepository {
	memory := repository.NewMemoryIdentityRepository(cfg.Session.TTL)
	if client == nil {
		return memory
	}
	return repository.NewFailoverIdentityRepository(
		repository.NewRedisIdentityRepository(client, cfg.Session.TTL),
		memory,
		logger,
	)
}

// subscribeAudit writes every booking change to the log.
func subscribeAudit(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logging.Component(logger, "audit")
	bus.Subscribe(events.Wildcard, func(event *events.Event) error {
		audit.Info().
			Str("event_type", event.Type).
			RawJSON("payload", event.Payload).
			Time("at", event.CreatedAt).
			Msg("event")
		return nil
	})
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Bool("grpc", grpcServer != nil).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
