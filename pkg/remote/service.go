package remote

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DSACMS/student-verification-api/pkg/core"
)

const (
	defaultMaxResponseBytes = 1 << 20
	maxErrBodyLogBytes      = 800
)

type Client interface {
	Request(ctx context.Context, method, url string, body any, headers http.Header) (Result, error)
}

type HTTPTransport interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	// Override for testing the HTTP client
	HTTPClient HTTPTransport
	Logger     *slog.Logger
	// Per-call timeout, applied when the context has no deadline.
	Timeout time.Duration
	// Response bodies past this size are cut off.
	MaxResponseBytes int64
}

type service struct {
	client   HTTPTransport
	logger   *slog.Logger
	timeout  time.Duration
	maxBytes int64
}

func New(cfg *core.ProviderConfig, opts Options) Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(
		slog.String("component", "remote"),
		slog.String("vendor", "sheerid"),
	)

	client := opts.HTTPClient
	if client == nil {
		client = NewProviderHTTPClient(context.Background(), cfg)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = cfg.Timeout
	}

	maxBytes := opts.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}

	return &service{
		client:   client,
		logger:   logger,
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}
