package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DSACMS/student-verification-api/api"
	"github.com/DSACMS/student-verification-api/pkg/core"
	redisLocal "github.com/DSACMS/student-verification-api/pkg/redis"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := core.LoadEnv(); err != nil {
		slog.Warn("failed to load env files", "err", err)
	}

	cfg, err := core.NewConfigFromEnv()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	otelService, err := core.NewOtelService(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("failed to start otel: %w", err)
	}

	logger := core.NewLoggerWithOtel(cfg, otelService)
	defer otelService.Shutdown(context.Background(), logger)

	_, span := otelService.TracerProvider().Tracer(core.ServiceName).Start(ctx, "startup")
	span.AddEvent("Starting up")
	span.End()

	rdb := newRedisClient(ctx, &cfg, logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	app, err := api.New(&api.Config{
		Otel:   otelService,
		Logger: logger,
		Redis:  rdb,
		Config: cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	logger.InfoContext(ctx, "starting server",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"skipAuth", cfg.SkipAuth,
		"redisDisabled", cfg.Redis.Disable,
	)

	return runServer(ctx, app, fmt.Sprintf(":%d", cfg.Port))
}

// newRedisClient returns nil when Redis is disabled. An unreachable server
// is only logged; the breaker fails open until it comes back.
func newRedisClient(ctx context.Context, cfg *core.Config, logger *slog.Logger) *redis.Client {
	if cfg.Redis.Disable {
		logger.InfoContext(ctx, "redis disabled, circuit breaker inactive")
		return nil
	}

	rdb := redisLocal.NewClient(redisLocal.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisLocal.Ping(pingCtx, rdb); err != nil {
		logger.WarnContext(ctx, "redis unreachable at startup", "err", err)
	}

	return rdb
}

func runServer(ctx context.Context, app *fiber.App, addr string) error {
	srvErr := make(chan error, 1)

	go func() {
		srvErr <- app.Listen(addr)
	}()

	select {
	case err := <-srvErr:
		return err
	case <-ctx.Done():
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	return nil
}
