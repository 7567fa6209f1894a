package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const (
	corsAllowOrigins = "*"
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type"
	corsMaxAge       = 86400
)

// CORS answers preflights and sets the allow headers on every response,
// not only on preflights.
func CORS() []fiber.Handler {
	return []fiber.Handler{
		cors.New(cors.Config{
			AllowOrigins: corsAllowOrigins,
			AllowMethods: corsAllowMethods,
			AllowHeaders: corsAllowHeaders,
			MaxAge:       corsMaxAge,
		}),
		func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderAccessControlAllowOrigin, corsAllowOrigins)
			c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
			c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			c.Set(fiber.HeaderAccessControlMaxAge, strconv.Itoa(corsMaxAge))
			return c.Next()
		},
	}
}
