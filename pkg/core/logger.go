package core

import (
	"io"
	"log/slog"
	"os"

	"github.com/DSACMS/student-verification-api/pkg/choice"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

func newStdoutHandler(cfg Config, w io.Writer) slog.Handler {
	prod := cfg.IsProd()
	opts := &slog.HandlerOptions{
		Level: choice.Ternary(prod, slog.LevelInfo, slog.LevelDebug),
	}

	return choice.FuncTernary(
		prod,
		func() slog.Handler { return slog.NewJSONHandler(w, opts) },
		func() slog.Handler { return slog.NewTextHandler(w, opts) },
	)
}

func NewLogger(cfg Config) *slog.Logger {
	stdoutHandler := newStdoutHandler(cfg, os.Stdout)
	return slog.New(stdoutHandler)
}

func NewLoggerWithOtel(cfg Config, otel OtelService) *slog.Logger {
	stdoutHandler := newStdoutHandler(cfg, os.Stdout)
	otelHandler := otelslog.NewHandler(
		ServiceName,
		otelslog.WithLoggerProvider(otel.LoggerProvider()),
	)

	return slog.New(
		slogmulti.Fanout(
			stdoutHandler,
			otelHandler,
		),
	)
}
