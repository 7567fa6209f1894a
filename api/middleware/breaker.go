package middleware

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/DSACMS/student-verification-api/pkg/circuitbreaker"
	"github.com/DSACMS/student-verification-api/pkg/verification"
	"github.com/gofiber/fiber/v2"
)

// UpstreamFailureLocal is set by handlers to a bool telling the breaker
// whether the request failed because of an upstream dependency. Requests
// that never set it are not counted either way.
const UpstreamFailureLocal = "upstreamFailure"

const circuitOpenMessage = "Verification service is temporarily unavailable. Please try again later."

func WithCircuitBreaker(newBreaker func(name string) circuitbreaker.Breaker, logger *slog.Logger) func(fiber.Handler) fiber.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	var mu sync.RWMutex
	breakers := make(map[string]circuitbreaker.Breaker)

	getBreaker := func(name string) circuitbreaker.Breaker {
		mu.RLock()
		b := breakers[name]
		mu.RUnlock()
		if b != nil {
			return b
		}

		mu.Lock()
		defer mu.Unlock()
		if b = breakers[name]; b != nil {
			return b
		}

		b = newBreaker(name)
		breakers[name] = b
		return b
	}

	return func(next fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			name := breakerName(c)
			breaker := getBreaker(name)
			ctx := c.UserContext()

			if err := breaker.Allow(ctx); err != nil {
				if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
					logger.WarnContext(ctx, "circuit breaker error", "breaker", name, "err", err)
				}
				logger.InfoContext(ctx, "request short-circuited", "breaker", name, "state", breaker.State(ctx))
				out := verification.FailureOutcome(verification.KindRemoteStepFailure, circuitOpenMessage)
				return c.Status(fiber.StatusServiceUnavailable).JSON(out)
			}

			err := next(c)

			if failed, ok := c.Locals(UpstreamFailureLocal).(bool); ok {
				if failed {
					breaker.OnFailure(ctx)
				} else {
					breaker.OnSuccess(ctx)
				}
			}

			return err
		}
	}
}

func breakerName(c *fiber.Ctx) string {
	path := c.Path()
	if r := c.Route(); r != nil && r.Path != "" {
		path = r.Path
	}

	return c.Method() + " " + path
}
