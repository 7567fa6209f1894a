package captcha

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

func (s *service) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	if !s.Enabled() {
		return Result{Success: true}, nil
	}
	if token == "" {
		s.logger.Debug("captcha token missing")
		return Result{Success: false}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, contentType, err := s.encode(s.secret, token, remoteIP)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s request: %w", s.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create %s request: %w", s.name, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.logger.Error("captcha verify request failed",
			slog.Any("error", err),
			slog.Duration("latency", latency),
		)
		return Result{}, fmt.Errorf("%s verify request: %w", s.name, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		s.logger.Error("captcha verify response read failed", slog.Any("error", err))
		return Result{}, fmt.Errorf("read %s response: %w", s.name, err)
	}

	var result Result
	if err := json.Unmarshal(respBytes, &result); err != nil {
		snippet := string(respBytes)
		if len(snippet) > maxErrBodyLogBytes {
			snippet = snippet[:maxErrBodyLogBytes] + "..."
		}
		s.logger.Error("captcha verify decode failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body_snippet", snippet),
		)
		return Result{}, fmt.Errorf("decode %s response (status=%d): %w", s.name, resp.StatusCode, err)
	}

	s.logger.Info("captcha verify response received",
		slog.Bool("success", result.Success),
		slog.Any("error_codes", result.ErrorCodes),
		slog.Duration("latency", latency),
	)

	return result, nil
}
