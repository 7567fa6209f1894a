package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

func (s *service) Request(ctx context.Context, method, url string, body any, headers http.Header) (Result, error) {
	// an earlier parent deadline still wins
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log := s.logger.With(
		slog.String("method", method),
		slog.String("url", url),
	)

	payload, err := encodeBody(body)
	if err != nil {
		log.Error("provider request marshal failed", slog.Any("error", err))
		return Result{}, fmt.Errorf("marshal request body: %w", err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		log.Error("provider create request failed", slog.Any("error", err))
		return Result{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, values := range headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		log.Error("provider request failed",
			slog.Any("error", err),
			slog.Duration("latency", latency),
		)
		return Result{}, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		log.Error("provider response read failed", slog.Any("error", err))
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	log.Info("provider response received",
		slog.Int("status", resp.StatusCode),
		slog.String("content_type", resp.Header.Get("Content-Type")),
		slog.Duration("latency", latency),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("provider non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("body_snippet", snippet(respBytes, maxErrBodyLogBytes)),
		)
	}

	return Result{
		Status: resp.StatusCode,
		Data:   NewBody(respBytes),
	}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
