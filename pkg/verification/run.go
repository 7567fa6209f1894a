package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DSACMS/student-verification-api/pkg/remote"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// run is the state of one verification. Steps read what earlier steps stored.
type run struct {
	id      string
	req     Request
	journal *Journal

	card        []byte
	fingerprint string
	org         Organization
	uploadURL   string

	// Set by the poll step.
	lastStatus  *remote.Body
	currentStep string
	softFailure Kind
	redirectURL string
	completed   bool
}

type step struct {
	name string
	fn   func(ctx context.Context, r *run) error
}

func (s *service) steps() []step {
	return []step{
		{"validateSubmission", s.validateSubmission},
		{"verifyCaptcha", s.verifyCaptcha},
		{"checkFileSize", s.checkFileSize},
		{"prepareSubmission", s.prepareSubmission},
		{"collectStudentPersonalInfo", s.collectStudentPersonalInfo},
		{"skipSSO", s.skipSSO},
		{"requestDocUpload", s.requestDocUpload},
		{"uploadStudentCard", s.uploadStudentCard},
		{"completeDocUpload", s.completeDocUpload},
		{"pollStatus", s.pollStatus},
	}
}

// Verify runs every step in order and always returns an Outcome carrying the
// journal, however far the run got.
func (s *service) Verify(ctx context.Context, req Request) Outcome {
	r := &run{
		id:  s.newRunID(),
		req: req,
	}

	logger := s.logger.With(
		slog.String("run_id", r.id),
		slog.String("verification_id", req.VerificationID),
	)
	r.journal = NewJournal(logger, s.cfg.MaxLogEntries)

	ctx, span := s.telemetry.tracer.Start(ctx, "verification.run",
		trace.WithAttributes(
			attribute.String("verification.run_id", r.id),
			attribute.String("verification.id", req.VerificationID),
		),
	)
	defer span.End()

	var err error
	for _, st := range s.steps() {
		if err = s.runStep(ctx, r, st); err != nil {
			break
		}
	}

	outcome := s.outcome(ctx, r, err)

	result := "success"
	if !outcome.Success {
		result = string(outcome.ErrorKind)
		span.SetStatus(codes.Error, outcome.Message)
	}
	span.SetAttributes(attribute.String("verification.result", result))
	s.telemetry.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))

	logger.InfoContext(ctx, "verification finished",
		slog.Bool("success", outcome.Success),
		slog.String("result", result),
		slog.Int("log_entries", len(outcome.Logs)),
	)

	return outcome
}

func (s *service) runStep(ctx context.Context, r *run, st step) error {
	ctx, span := s.telemetry.tracer.Start(ctx, "verification.step."+st.name)
	defer span.End()

	start := time.Now()
	err := st.fn(ctx, r)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	s.telemetry.stepDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("step", st.name),
		attribute.String("status", status),
	))

	if err == nil {
		return nil
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		stepErr = &StepError{
			Kind:    KindRemoteStepFailure,
			Step:    st.name,
			Message: err.Error(),
			Err:     err,
		}
	}
	if stepErr.Step == "" {
		stepErr.Step = st.name
	}
	return stepErr
}

func (s *service) outcome(ctx context.Context, r *run, err error) Outcome {
	out := Outcome{
		VerificationID: r.req.VerificationID,
		RunID:          r.id,
	}

	if err != nil {
		var stepErr *StepError
		errors.As(err, &stepErr)

		r.journal.Final(ctx, SeverityError, "Fatal error: "+stepErr.Message)
		r.journal.Final(ctx, SeverityDebug, traceEntry(stepErr))

		out.Message = stepErr.Message
		out.ErrorKind = stepErr.Kind
		out.Error = stepErr.Error()
		out.Status = r.lastStatus
		out.Logs = r.journal.Entries()
		return out
	}

	out.Status = r.lastStatus
	out.RedirectURL = r.redirectURL

	switch {
	case r.completed:
		out.Success = true
		out.Message = "Verification successful!"
	case r.softFailure == KindRemoteRejection:
		out.Message = "Verification rejected"
	case r.softFailure == KindRemoteError:
		out.Message = "Verification error"
	default:
		out.Message = "Verification timeout - max attempts reached"
	}
	if !out.Success {
		out.ErrorKind = r.softFailure
	}

	out.Logs = r.journal.Entries()
	return out
}

// traceEntry renders the failing step and the wrapped error chain.
func traceEntry(err *StepError) string {
	msg := fmt.Sprintf("Trace: step=%s kind=%s", err.Step, err.Kind)
	chain := 0
	for e := err.Err; e != nil; e = errors.Unwrap(e) {
		if chain == 0 {
			msg += " cause=" + e.Error()
		}
		chain++
	}
	if chain > 1 {
		msg += fmt.Sprintf(" (%d wrapped)", chain)
	}
	return msg
}
