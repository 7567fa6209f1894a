package routes

import (
	"log/slog"

	"github.com/DSACMS/student-verification-api/api/handlers"
	"github.com/DSACMS/student-verification-api/api/middleware"
	"github.com/DSACMS/student-verification-api/pkg/circuitbreaker"
	"github.com/DSACMS/student-verification-api/pkg/core"
	"github.com/DSACMS/student-verification-api/pkg/verification"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const VerifyPath = "/api/verify"

type Dependencies struct {
	Config   *core.Config
	Verifier verification.Service
	// Nil when Redis is disabled; the breaker then never opens.
	Redis *redis.Client
	// Guards POST /api/verify when set.
	Auth   fiber.Handler
	Logger *slog.Logger
}

func RegisterRoutes(app fiber.Router, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app.Options("/*", handlers.PreflightHandler())

	app.Get("/", handlers.IndexHandler())
	app.Get("/health", handlers.HealthHandler(deps.Config, deps.Redis))

	api := app.Group("/api")

	withCB := middleware.WithCircuitBreaker(func(name string) circuitbreaker.Breaker {
		if deps.Redis == nil {
			return circuitbreaker.Noop{}
		}
		return circuitbreaker.NewRedisBreaker(
			deps.Redis,
			name,
			circuitbreaker.DefaultOptions(),
			logger,
		)
	}, logger)

	verify := []fiber.Handler{withCB(handlers.VerifyHandler(deps.Config, deps.Verifier, logger))}
	if deps.Auth != nil {
		verify = append([]fiber.Handler{deps.Auth}, verify...)
	}

	api.Post("/verify", verify...)
	api.All("/verify", handlers.MethodNotAllowedHandler())

	app.Use(handlers.NotFoundHandler())
}
