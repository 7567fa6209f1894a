package verification

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DSACMS/student-verification-api/pkg/remote"
)

// Request is one submission from the verification form.
type Request struct {
	FirstName string
	LastName  string
	Email     string
	// YYYY-MM-DD
	BirthDate      string
	VerificationID string
	// Key into the organization directory. Empty means the default school.
	SchoolID       string
	StudentCard    io.Reader
	TurnstileToken string
	HCaptchaToken  string
	RemoteIP       string
}

type Kind string

const (
	KindInvalidSubmission Kind = "invalid_submission"
	KindCaptchaFailure    Kind = "captcha_failure"
	KindPayloadTooLarge   Kind = "payload_too_large"
	KindRemoteStepFailure Kind = "remote_step_failure"
	KindUploadFailure     Kind = "upload_failure"

	KindPollingTimeout  Kind = "polling_timeout"
	KindRemoteRejection Kind = "remote_rejection"
	KindRemoteError     Kind = "remote_error"
)

// Soft kinds are reported as a normal unsuccessful outcome with HTTP 200.
func (k Kind) Soft() bool {
	switch k {
	case KindPollingTimeout, KindRemoteRejection, KindRemoteError:
		return true
	}
	return false
}

// Upstream reports whether the kind points at the provider or storage being unhealthy.
func (k Kind) Upstream() bool {
	return k == KindRemoteStepFailure || k == KindUploadFailure
}

// ReachedProvider reports whether a run ending with this kind talked to the
// provider. Success counts; client-side rejections do not.
func (k Kind) ReachedProvider() bool {
	return k == "" || k.Soft() || k.Upstream()
}

func (k Kind) HTTPStatus() int {
	switch {
	case k == "" || k.Soft():
		return http.StatusOK
	case k == KindInvalidSubmission:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// StepError halts a run. Message is shown to the caller as is.
type StepError struct {
	Kind    Kind
	Step    string
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Step, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type LogEntry struct {
	Message   string    `json:"message"`
	Type      Severity  `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type Outcome struct {
	Success        bool         `json:"success"`
	Message        string       `json:"message"`
	VerificationID string       `json:"verificationId,omitempty"`
	RunID          string       `json:"runId,omitempty"`
	RedirectURL    string       `json:"redirectUrl,omitempty"`
	Status         *remote.Body `json:"status,omitempty"`
	ErrorKind      Kind         `json:"errorKind,omitempty"`
	Error          string       `json:"error,omitempty"`
	Logs           []LogEntry   `json:"logs"`
}

func (o Outcome) HTTPStatus() int {
	if o.Success {
		return http.StatusOK
	}
	return o.ErrorKind.HTTPStatus()
}

// FailureOutcome builds an outcome for failures raised outside a run,
// e.g. an open circuit or an oversized request body.
func FailureOutcome(kind Kind, message string) Outcome {
	return Outcome{
		Success:   false,
		Message:   message,
		ErrorKind: kind,
		Error:     message,
		Logs: []LogEntry{{
			Message:   "Fatal error: " + message,
			Type:      SeverityError,
			Timestamp: time.Now().UTC(),
		}},
	}
}
