package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DSACMS/student-verification-api/pkg/captcha"
	"github.com/DSACMS/student-verification-api/pkg/core"
	"github.com/DSACMS/student-verification-api/pkg/remote"
	"github.com/DSACMS/student-verification-api/pkg/storage"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Service interface {
	Verify(ctx context.Context, req Request) Outcome
}

type Options struct {
	// Provider API client, defaults to remote.New.
	Client remote.Client
	// Checked in order. Defaults to Turnstile then hCaptcha.
	Captcha  []captcha.Verifier
	Uploader storage.Uploader
	// Defaults to ORGANIZATIONS_FILE or the built-in directory.
	Directory *Directory
	Logger    *slog.Logger

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Overrides for tests.
	Fingerprint func() string
	Sleep       func(ctx context.Context, d time.Duration) error
	NewRunID    func() string
}

type service struct {
	cfg         *core.Config
	client      remote.Client
	captcha     []captcha.Verifier
	uploader    storage.Uploader
	directory   *Directory
	validator   *submissionValidator
	logger      *slog.Logger
	telemetry   *instruments
	fingerprint func() string
	sleep       func(ctx context.Context, d time.Duration) error
	newRunID    func() string
}

func New(cfg *core.Config, opts Options) (Service, error) {
	if cfg == nil {
		return nil, errors.New("cfg is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "verification"))

	client := opts.Client
	if client == nil {
		client = remote.New(&cfg.Provider, remote.Options{Logger: logger})
	}

	verifiers := opts.Captcha
	if verifiers == nil {
		copts := captcha.Options{Logger: logger, Timeout: cfg.Provider.Timeout}
		verifiers = []captcha.Verifier{
			captcha.NewTurnstile(&cfg.Captcha, copts),
			captcha.NewHCaptcha(&cfg.Captcha, copts),
		}
	}

	uploader := opts.Uploader
	if uploader == nil {
		uploader = storage.New(&cfg.Upload, storage.Options{Logger: logger, Timeout: cfg.Provider.Timeout})
	}

	directory := opts.Directory
	if directory == nil {
		directory = DefaultDirectory()
		if cfg.OrganizationsFile != "" {
			var err error
			directory, err = LoadDirectory(cfg.OrganizationsFile)
			if err != nil {
				return nil, err
			}
		}
	}

	validator, err := newSubmissionValidator()
	if err != nil {
		return nil, err
	}

	telemetry, err := newInstruments(opts.TracerProvider, opts.MeterProvider)
	if err != nil {
		return nil, err
	}

	fingerprint := opts.Fingerprint
	if fingerprint == nil {
		fingerprint = NewFingerprint
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	newRunID := opts.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}

	logger.Info("verification service ready",
		slog.Int("organizations", directory.Len()),
		slog.Int("captcha_verifiers", len(verifiers)),
		slog.Int("poll_max_attempts", cfg.Polling.MaxAttempts),
	)

	return &service{
		cfg:         cfg,
		client:      client,
		captcha:     verifiers,
		uploader:    uploader,
		directory:   directory,
		validator:   validator,
		logger:      logger,
		telemetry:   telemetry,
		fingerprint: fingerprint,
		sleep:       sleep,
		newRunID:    newRunID,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
