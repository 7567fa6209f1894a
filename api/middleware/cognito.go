package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DSACMS/student-verification-api/pkg/core"
	"github.com/gofiber/fiber/v2"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	accessTokenHeader = "x-amzn-oidc-accesstoken"
	jwksTimeout       = 5 * time.Second
)

type CognitoOptions struct {
	// Overrides for tests; derived from region and pool id when empty.
	Issuer  string
	JWKSURL string
	Logger  *slog.Logger
}

type CognitoVerifier struct {
	issuer   string
	jwksURL  string
	clientID string
	cache    *jwk.Cache
	logger   *slog.Logger
}

func NewCognitoVerifier(cfg *core.CognitoConfig, opts CognitoOptions) (*CognitoVerifier, error) {
	if cfg.AppClientID == "" {
		return nil, errors.New("AppClientID is required")
	}

	issuer := opts.Issuer
	if issuer == "" {
		if cfg.Region == "" {
			return nil, errors.New("Region is required")
		}
		if cfg.UserPoolID == "" {
			return nil, errors.New("UserPoolID is required")
		}
		issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.Region, cfg.UserPoolID)
	}

	jwksURL := opts.JWKSURL
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache := jwk.NewCache(context.Background())
	if err := cache.Register(jwksURL); err != nil {
		return nil, fmt.Errorf("register jwks url: %w", err)
	}

	return &CognitoVerifier{
		issuer:   issuer,
		jwksURL:  jwksURL,
		clientID: cfg.AppClientID,
		cache:    cache,
		logger:   logger.With(slog.String("component", "cognito")),
	}, nil
}

// FiberMiddleware rejects requests without a valid Cognito access token.
// Preflight requests pass through.
func (v *CognitoVerifier) FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		raw := c.Get(accessTokenHeader)
		if raw == "" {
			return fiber.ErrUnauthorized
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), jwksTimeout)
		defer cancel()

		keyset, err := v.cache.Get(ctx, v.jwksURL)
		if err != nil {
			v.logger.WarnContext(ctx, "jwks fetch failed", "err", err)
			return fiber.NewError(fiber.StatusUnauthorized, "unable to load jwks")
		}

		tok, err := jwt.Parse(
			[]byte(raw),
			jwt.WithKeySet(keyset),
			jwt.WithValidate(true),
			jwt.WithIssuer(v.issuer),
			jwt.WithClaimValue("token_use", "access"),
		)
		if err != nil {
			v.logger.DebugContext(ctx, "token rejected", "err", err)
			return fiber.ErrUnauthorized
		}

		// access tokens carry the app client in client_id, not aud
		if cid, ok := tok.Get("client_id"); !ok || cid != v.clientID {
			return fiber.ErrUnauthorized
		}

		for claim, local := range map[string]string{
			"sub":            "sub",
			"username":       "username",
			"scope":          "scope",
			"cognito:groups": "groups",
		} {
			if val, ok := tok.Get(claim); ok {
				c.Locals(local, val)
			}
		}

		return c.Next()
	}
}
