package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/DSACMS/student-verification-api/pkg/core"
)

const maxErrBodyLogBytes = 800

type Uploader interface {
	Upload(ctx context.Context, signedURL string, payload []byte) (Result, error)
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
	Success bool
	Status  int
}

type service struct {
	mimeType string
	client   HTTPTransport
	logger   *slog.Logger
	timeout  time.Duration
}

// New returns an Uploader that PUTs payloads to pre-signed storage URLs.
func New(cfg *core.UploadConfig, opts Options) Uploader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &service{
		mimeType: cfg.MimeType,
		client:   client,
		logger:   logger.With(slog.String("component", "storage")),
		timeout:  opts.Timeout,
	}
}

func (s *service) Upload(ctx context.Context, signedURL string, payload []byte) (Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", s.mimeType)
	req.ContentLength = int64(len(payload))

	// signed query strings carry credentials
	log := s.logger.With(slog.String("host", hostOf(signedURL)))

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		log.Error("storage upload failed", slog.Any("error", err), slog.Duration("latency", latency))
		return Result{}, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	res := Result{
		Success: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  resp.StatusCode,
	}

	if !res.Success {
		respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyLogBytes))
		log.Error("storage upload non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("body_snippet", string(respBytes)),
		)
		return res, nil
	}

	log.Info("storage upload complete",
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(payload)),
		slog.Duration("latency", latency),
	)
	return res, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
