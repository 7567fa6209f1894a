package handlers

import (
	"context"
	"time"

	"github.com/DSACMS/student-verification-api/pkg/core"
	redisLocal "github.com/DSACMS/student-verification-api/pkg/redis"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const healthRedisTimeout = 2 * time.Second

type captchaHealth struct {
	HCaptcha  bool `json:"hcaptcha"`
	Turnstile bool `json:"turnstile"`
}

type HealthResponse struct {
	Status          string        `json:"status"`
	Captcha         captchaHealth `json:"captcha"`
	MaxFileSize     int64         `json:"maxFileSize"`
	PollMaxAttempts int           `json:"pollMaxAttempts"`
	Redis           string        `json:"redis"`
	Timestamp       time.Time     `json:"timestamp"`
}

// HealthHandler reports liveness and which optional integrations are on.
// rdb may be nil when Redis is disabled.
func HealthHandler(cfg *core.Config, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthRedisTimeout)
		defer cancel()

		return c.JSON(HealthResponse{
			Status: "healthy",
			Captcha: captchaHealth{
				HCaptcha:  cfg.Captcha.HCaptchaEnabled(),
				Turnstile: cfg.Captcha.TurnstileEnabled(),
			},
			MaxFileSize:     cfg.Upload.MaxFileSize,
			PollMaxAttempts: cfg.Polling.MaxAttempts,
			Redis:           redisLocal.Status(ctx, rdb),
			Timestamp:       time.Now().UTC(),
		})
	}
}
