package verification

import (
	"context"
	"net/http"
)

const (
	stepSuccess  = "success"
	stepRejected = "rejected"
	stepError    = "error"
)

// pollStatus reads the verification until currentStep is terminal or the
// attempt budget runs out. Each attempt waits one poll interval first.
// Exhausting the budget is not an error; the outcome reports a timeout.
func (s *service) pollStatus(ctx context.Context, r *run) error {
	r.journal.Add(ctx, SeverityInfo, "Step 7/7: Checking verification status...")

	maxAttempts := s.cfg.Polling.MaxAttempts
	statusURL := s.statusURL(r.req.VerificationID)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.sleep(ctx, s.cfg.Polling.Interval); err != nil {
			r.journal.Addf(ctx, SeverityError, "Status polling interrupted after %d/%d attempts", attempt-1, maxAttempts)
			return &StepError{Kind: KindRemoteStepFailure, Message: "Status polling cancelled", Err: err}
		}

		res, err := s.client.Request(ctx, http.MethodGet, statusURL, nil, nil)
		s.telemetry.pollAttempts.Add(ctx, 1)
		if err != nil {
			r.journal.Addf(ctx, SeverityError, "Status check %d/%d failed: %v", attempt, maxAttempts, err)
			return &StepError{Kind: KindRemoteStepFailure, Message: "Status check failed: " + err.Error(), Err: err}
		}

		status := res.Data
		r.lastStatus = &status
		r.currentStep = currentStep(status)
		r.journal.Addf(ctx, SeverityDebug, "Status check %d/%d: %s", attempt, maxAttempts, r.currentStep)

		switch r.currentStep {
		case stepSuccess:
			r.completed = true
			r.redirectURL = status.Field("redirectUrl")
			r.journal.Final(ctx, SeveritySuccess, "Verification successful!")
			if r.redirectURL != "" {
				r.journal.Finalf(ctx, SeverityInfo, "Redirect URL: %s", r.redirectURL)
			}
			return nil
		case stepRejected:
			r.softFailure = KindRemoteRejection
			r.journal.Final(ctx, SeverityError, "Verification rejected")
			return nil
		case stepError:
			r.softFailure = KindRemoteError
			r.journal.Final(ctx, SeverityError, "Verification error")
			return nil
		}
	}

	r.softFailure = KindPollingTimeout
	r.journal.Final(ctx, SeverityWarning, "Verification timeout - max attempts reached")
	return nil
}
