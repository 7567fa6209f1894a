package handlers

import (
	"context"
	"log/slog"
	"mime/multipart"

	"github.com/DSACMS/student-verification-api/api/middleware"
	"github.com/DSACMS/student-verification-api/pkg/core"
	"github.com/DSACMS/student-verification-api/pkg/verification"
	"github.com/gofiber/fiber/v2"
)

const studentCardField = "studentCard"

// Widget field names used when the form posts the captcha response as-is.
var captchaFieldAliases = map[string]string{
	"turnstileToken": "cf-turnstile-response",
	"hcaptchaToken":  "h-captcha-response",
}

func VerifyHandler(cfg *core.Config, svc verification.Service, logger *slog.Logger) fiber.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if cfg.VerifyTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.VerifyTimeout)
			defer cancel()
		}

		req := verification.Request{
			FirstName:      c.FormValue("firstName"),
			LastName:       c.FormValue("lastName"),
			Email:          c.FormValue("email"),
			BirthDate:      c.FormValue("birthDate"),
			VerificationID: c.FormValue("verificationId"),
			SchoolID:       c.FormValue("schoolId"),
			TurnstileToken: formValue(c, "turnstileToken"),
			HCaptchaToken:  formValue(c, "hcaptchaToken"),
			RemoteIP:       clientIP(c),
		}

		card, err := openStudentCard(c)
		if err != nil {
			logger.DebugContext(ctx, "no student card in request", "err", err)
		} else {
			defer card.Close()
			req.StudentCard = card
		}

		out := svc.Verify(ctx, req)

		// runs stopped before any provider call say nothing about its health
		if out.ErrorKind.ReachedProvider() {
			c.Locals(middleware.UpstreamFailureLocal, out.ErrorKind.Upstream())
		}

		return c.Status(out.HTTPStatus()).JSON(out)
	}
}

func formValue(c *fiber.Ctx, key string) string {
	if v := c.FormValue(key); v != "" {
		return v
	}
	return c.FormValue(captchaFieldAliases[key])
}

func clientIP(c *fiber.Ctx) string {
	if ip := c.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.IP()
}

func openStudentCard(c *fiber.Ctx) (multipart.File, error) {
	fh, err := c.FormFile(studentCardField)
	if err != nil {
		return nil, err
	}
	return fh.Open()
}
