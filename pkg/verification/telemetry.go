package verification

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/DSACMS/student-verification-api/pkg/verification"

type instruments struct {
	tracer       trace.Tracer
	runs         metric.Int64Counter
	stepDuration metric.Float64Histogram
	pollAttempts metric.Int64Counter
}

func newInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*instruments, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(instrumentationName)

	runs, err := meter.Int64Counter(
		"verification.runs",
		metric.WithDescription("Verification runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}

	stepDuration, err := meter.Float64Histogram(
		"verification.step.duration",
		metric.WithDescription("Duration of each verification step"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create step duration histogram: %w", err)
	}

	pollAttempts, err := meter.Int64Counter(
		"verification.poll.attempts",
		metric.WithDescription("Status polls sent to the provider"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create poll attempts counter: %w", err)
	}

	return &instruments{
		tracer:       tp.Tracer(instrumentationName),
		runs:         runs,
		stepDuration: stepDuration,
		pollAttempts: pollAttempts,
	}, nil
}
