package api

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/DSACMS/student-verification-api/api/middleware"
	"github.com/DSACMS/student-verification-api/api/routes"
	"github.com/DSACMS/student-verification-api/pkg/core"
	"github.com/DSACMS/student-verification-api/pkg/verification"
	"github.com/redis/go-redis/v9"

	"go.opentelemetry.io/otel/codes"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	slogfiber "github.com/samber/slog-fiber"
)

const requestTooLargeMessage = "Request body too large"

func errorHandler(logger *slog.Logger, otel core.OtelService) fiber.ErrorHandler {
	handleFiberError := func(ctx *fiber.Ctx, err *fiber.Error) error {
		span := otel.SpanFromContext(ctx.UserContext())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Message)

		logger.Error(
			"Fiber Error",
			"Code",
			err.Code,
			"Message",
			err.Message,
			"Path",
			ctx.Path(),
		)

		if rendersOutcome(ctx, err) {
			return ctx.
				Status(err.Code).
				JSON(outcomeFor(err))
		}

		return ctx.
			Status(err.Code).
			SendString(err.Message)
	}

	return func(ctx *fiber.Ctx, err error) error {
		var e *fiber.Error
		if !errors.As(err, &e) {
			e = fiber.ErrInternalServerError
		}
		return handleFiberError(ctx, e)
	}
}

// rendersOutcome reports whether a failed verify submission should still get
// an outcome document. Auth and routing errors stay plain text.
func rendersOutcome(ctx *fiber.Ctx, err *fiber.Error) bool {
	if ctx.Path() != routes.VerifyPath || ctx.Method() != fiber.MethodPost {
		return false
	}
	return err.Code == fiber.StatusRequestEntityTooLarge || err.Code >= fiber.StatusInternalServerError
}

func outcomeFor(err *fiber.Error) verification.Outcome {
	if err.Code == fiber.StatusRequestEntityTooLarge {
		return verification.FailureOutcome(verification.KindPayloadTooLarge, requestTooLargeMessage)
	}
	return verification.FailureOutcome(verification.KindRemoteStepFailure, err.Message)
}

func stackTraceHandler(logger *slog.Logger) func(*fiber.Ctx, any) {
	return func(c *fiber.Ctx, e any) {
		stack := debug.Stack()
		logger.ErrorContext(
			c.UserContext(),
			"panic!",
			"stack",
			stack,
			"err",
			e,
		)
	}
}

type Config struct {
	Otel   core.OtelService
	Logger *slog.Logger
	// Built from Config when nil.
	Verifier verification.Service
	// Nil when Redis is disabled.
	Redis *redis.Client
	core.Config
}

func New(cfg *Config) (*fiber.App, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Otel == nil {
		cfg.Otel = core.NewNoopOtelService()
	}

	svc := cfg.Verifier
	if svc == nil {
		var err error
		svc, err = verification.New(&cfg.Config, verification.Options{
			Logger:         cfg.Logger,
			TracerProvider: cfg.Otel.TracerProvider(),
			MeterProvider:  cfg.Otel.MeterProvider(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize verification service: %w", err)
		}
	}

	fiberConfig := fiber.Config{
		ErrorHandler: errorHandler(cfg.Logger, cfg.Otel),
		BodyLimit:    cfg.BodyLimit,
	}

	app := fiber.New(fiberConfig)

	app.Use(recover.New(recover.Config{
		Next:              nil,
		EnableStackTrace:  true,
		StackTraceHandler: stackTraceHandler(cfg.Logger),
	}))

	for _, h := range middleware.CORS() {
		app.Use(h)
	}

	app.Use(otelfiber.Middleware(
		otelfiber.WithTracerProvider(cfg.Otel.TracerProvider()),
		otelfiber.WithMeterProvider(cfg.Otel.MeterProvider()),
	))

	app.Use(slogfiber.NewWithConfig(
		cfg.Logger,
		slogfiber.Config{
			WithRequestID: true,
			WithSpanID:    true,
			WithTraceID:   true,
		},
	))

	var auth fiber.Handler
	if !cfg.SkipAuth {
		verifier, err := middleware.NewCognitoVerifier(&cfg.Cognito, middleware.CognitoOptions{
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cognito middleware: %w", err)
		}
		auth = verifier.FiberMiddleware()
	}

	routes.RegisterRoutes(app, routes.Dependencies{
		Config:   &cfg.Config,
		Verifier: svc,
		Redis:    cfg.Redis,
		Auth:     auth,
		Logger:   cfg.Logger,
	})

	return app, nil
}
