package handlers

import "github.com/gofiber/fiber/v2"

const indexText = "Student verification service is running. Deploy the HTML interface to use."

func IndexHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendString(indexText)
	}
}

func MethodNotAllowedHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, "POST, OPTIONS")
		return fiber.ErrMethodNotAllowed
	}
}

func PreflightHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func NotFoundHandler() fiber.Handler {
	return func(*fiber.Ctx) error {
		return fiber.ErrNotFound
	}
}
