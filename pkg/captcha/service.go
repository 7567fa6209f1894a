package captcha

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	vendorTurnstile = "turnstile"
	vendorHCaptcha  = "hcaptcha"

	maxErrBodyLogBytes = 800
	maxResponseBytes   = 64 << 10
	defaultTimeout     = 10 * time.Second
)

type Verifier interface {
	Name() string
	// Enabled is false when no secret is configured; Verify then always succeeds.
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) (Result, error)
}

type HTTPTransport interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	// Override for testing the HTTP client
	HTTPClient HTTPTransport
	Logger     *slog.Logger
	Timeout    time.Duration
}

type Result struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
}

// encoder turns secret, token and remote ip into a request body and its content type.
type encoder func(secret, token, remoteIP string) (body []byte, contentType string, err error)

type service struct {
	name      string
	secret    string
	verifyURL string
	encode    encoder
	client    HTTPTransport
	logger    *slog.Logger
	timeout   time.Duration
}

func newService(name, secret, verifyURL string, encode encoder, opts Options) *service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(
		slog.String("component", "captcha"),
		slog.String("vendor", name),
	)

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &service{
		name:      name,
		secret:    secret,
		verifyURL: verifyURL,
		encode:    encode,
		client:    client,
		logger:    logger,
		timeout:   timeout,
	}
}

func (s *service) Name() string {
	return s.name
}

func (s *service) Enabled() bool {
	return s.secret != ""
}
