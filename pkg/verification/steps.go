package verification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DSACMS/student-verification-api/pkg/remote"
)

const (
	bytesPerKB = 1024
	bytesPerMB = 1024 * 1024

	uploadURLLogChars = 50
)

func (s *service) stepURL(verificationID, stepName string) string {
	return fmt.Sprintf("%s/rest/v2/verification/%s/step/%s",
		strings.TrimRight(s.cfg.Provider.BaseURL, "/"), url.PathEscape(verificationID), stepName)
}

func (s *service) statusURL(verificationID string) string {
	return fmt.Sprintf("%s/rest/v2/verification/%s",
		strings.TrimRight(s.cfg.Provider.StatusBaseURL, "/"), url.PathEscape(verificationID))
}

func (s *service) validateSubmission(ctx context.Context, r *run) error {
	r.journal.Add(ctx, SeverityDebug, "Validating submission...")

	problems, err := s.validator.validate(r.req)
	if err != nil {
		return &StepError{Kind: KindInvalidSubmission, Message: "Invalid submission", Err: err}
	}
	if len(problems) > 0 {
		msg := "Invalid submission: " + strings.Join(problems, "; ")
		r.journal.Add(ctx, SeverityError, msg)
		return &StepError{Kind: KindInvalidSubmission, Message: msg}
	}

	r.journal.Add(ctx, SeverityDebug, "Submission is valid")
	return nil
}

func (s *service) verifyCaptcha(ctx context.Context, r *run) error {
	for _, v := range s.captcha {
		label := captchaLabel(v.Name())
		if !v.Enabled() {
			r.journal.Addf(ctx, SeverityDebug, "%s not configured, skipping", label)
			continue
		}

		r.journal.Addf(ctx, SeverityInfo, "Verifying %s...", label)

		res, err := v.Verify(ctx, r.captchaToken(v.Name()), r.req.RemoteIP)
		if err != nil || !res.Success {
			r.journal.Addf(ctx, SeverityError, "%s verification failed", label)
			return &StepError{
				Kind:    KindCaptchaFailure,
				Message: label + " verification failed. Please complete the captcha.",
				Err:     err,
			}
		}

		r.journal.Addf(ctx, SeveritySuccess, "%s verified successfully", label)
	}
	return nil
}

func (r *run) captchaToken(name string) string {
	switch name {
	case "turnstile":
		return r.req.TurnstileToken
	case "hcaptcha":
		return r.req.HCaptchaToken
	}
	return ""
}

func captchaLabel(name string) string {
	switch name {
	case "turnstile":
		return "Turnstile"
	case "hcaptcha":
		return "hCaptcha"
	}
	return name
}

func (s *service) checkFileSize(ctx context.Context, r *run) error {
	card, err := io.ReadAll(r.req.StudentCard)
	if err != nil {
		return &StepError{Kind: KindInvalidSubmission, Message: "Could not read student card", Err: err}
	}

	limit := s.cfg.Upload.MaxFileSize
	if int64(len(card)) > limit {
		sizeMB := float64(len(card)) / bytesPerMB
		limitMB := strconv.FormatFloat(float64(limit)/bytesPerMB, 'f', -1, 64)
		r.journal.Addf(ctx, SeverityError, "File size (%.2fMB) exceeds %sMB limit", sizeMB, limitMB)
		return &StepError{
			Kind:    KindPayloadTooLarge,
			Message: fmt.Sprintf("File size (%.2fMB) exceeds maximum allowed size of %sMB", sizeMB, limitMB),
		}
	}

	r.card = card
	r.journal.Addf(ctx, SeverityDebug, "File size: %.2fKB", float64(len(card))/bytesPerKB)
	return nil
}

func (s *service) prepareSubmission(ctx context.Context, r *run) error {
	r.fingerprint = s.fingerprint()

	schoolID := r.req.SchoolID
	if schoolID == "" {
		schoolID = DefaultSchoolID
	}

	r.journal.Addf(ctx, SeverityInfo, "Starting verification for %s %s", r.req.FirstName, r.req.LastName)
	r.journal.Addf(ctx, SeverityDebug, "Email: %s", r.req.Email)
	r.journal.Addf(ctx, SeverityDebug, "Birth Date: %s", r.req.BirthDate)
	r.journal.Addf(ctx, SeverityDebug, "Verification ID: %s", r.req.VerificationID)
	r.journal.Addf(ctx, SeverityDebug, "School ID: %s", schoolID)
	r.journal.Addf(ctx, SeverityDebug, "Device fingerprint: %s", r.fingerprint)

	org, found := s.directory.Lookup(schoolID)
	if !found {
		r.journal.Addf(ctx, SeverityWarning, "Unknown school ID %s, using default organization", schoolID)
	}
	r.org = org

	r.journal.Addf(ctx, SeverityInfo, "School: %s", org.Name)
	return nil
}

func (s *service) collectStudentPersonalInfo(ctx context.Context, r *run) error {
	r.journal.Add(ctx, SeverityInfo, "Step 2/7: Submitting student information...")

	body := personalInfoRequest{
		FirstName:   r.req.FirstName,
		LastName:    r.req.LastName,
		BirthDate:   r.req.BirthDate,
		Email:       r.req.Email,
		PhoneNumber: "",
		Organization: organizationRef{
			ID:         r.org.ID,
			IDExtended: r.org.IDExtended,
			Name:       r.org.Name,
		},
		DeviceFingerprintHash: r.fingerprint,
		Locale:                locale,
		Metadata: personalInfoMetadata{
			MarketConsentValue: false,
			RefererURL: fmt.Sprintf("%s/verify/%s/?verificationId=%s",
				strings.TrimRight(s.cfg.Provider.BaseURL, "/"), s.cfg.Provider.ProgramID, url.QueryEscape(r.req.VerificationID)),
			VerificationID:  r.req.VerificationID,
			Flags:           submissionFlags,
			SubmissionOptIn: submissionOptIn,
		},
	}

	res, err := s.client.Request(ctx, http.MethodPost, s.stepURL(r.req.VerificationID, "collectStudentPersonalInfo"), body, nil)
	if err != nil {
		r.journal.Addf(ctx, SeverityError, "Step 2 request failed: %v", err)
		return &StepError{Kind: KindRemoteStepFailure, Message: "Step 2 failed: " + err.Error(), Err: err}
	}

	if res.Status != http.StatusOK {
		r.journal.Addf(ctx, SeverityError, "Step 2 failed with status %d", res.Status)
		return &StepError{
			Kind:    KindRemoteStepFailure,
			Message: "Step 2 failed: " + bodyText(res.Data),
			Err:     fmt.Errorf("collectStudentPersonalInfo returned status %d", res.Status),
		}
	}

	r.journal.Addf(ctx, SeveritySuccess, "Step 2 completed: %s", currentStep(res.Data))
	return nil
}

func (s *service) skipSSO(ctx context.Context, r *run) error {
	r.journal.Add(ctx, SeverityInfo, "Step 3/7: Skipping SSO verification...")

	res, err := s.client.Request(ctx, http.MethodDelete, s.stepURL(r.req.VerificationID, "sso"), nil, nil)
	if err != nil {
		r.journal.Addf(ctx, SeverityError, "Step 3 request failed: %v", err)
		return &StepError{Kind: KindRemoteStepFailure, Message: "Step 3 failed: " + err.Error(), Err: err}
	}

	r.journal.Addf(ctx, SeveritySuccess, "Step 3 completed: %s", currentStep(res.Data))
	return nil
}

func (s *service) requestDocUpload(ctx context.Context, r *run) error {
	r.journal.Add(ctx, SeverityInfo, "Step 4/7: Requesting document upload URL...")

	body := docUploadRequest{
		Files: []docUploadFile{{
			FileName: s.cfg.Upload.FileName,
			MimeType: s.cfg.Upload.MimeType,
			FileSize: len(r.card),
		}},
	}

	res, err := s.client.Request(ctx, http.MethodPost, s.stepURL(r.req.VerificationID, "docUpload"), body, nil)
	if err != nil {
		r.journal.Addf(ctx, SeverityError, "Step 4 request failed: %v", err)
		return &StepError{Kind: KindRemoteStepFailure, Message: "Step 4 failed: " + err.Error(), Err: err}
	}

	var decoded docUploadResponse
	if err := res.Data.Decode(&decoded); err != nil || len(decoded.Documents) == 0 || decoded.Documents[0].UploadURL == "" {
		r.journal.Addf(ctx, SeverityError, "Failed to get upload URL (status %d)", res.Status)
		return &StepError{
			Kind:    KindRemoteStepFailure,
			Message: "No upload URL received",
			Err:     fmt.Errorf("docUpload returned status %d: %s", res.Status, bodyText(res.Data)),
		}
	}

	r.uploadURL = decoded.Documents[0].UploadURL
	r.journal.Add(ctx, SeveritySuccess, "Upload URL obtained")
	r.journal.Addf(ctx, SeverityDebug, "Upload URL: %s...", truncate(r.uploadURL, uploadURLLogChars))
	return nil
}

func (s *service) uploadStudentCard(ctx context.Context, r *run) error {
	r.journal.Add(ctx, SeverityInfo, "Step 5/7: Uploading student card to storage...")

	res, err := s.uploader.Upload(ctx, r.uploadURL, r.card)
	if err != nil {
		r.journal.Addf(ctx, SeverityError, "Upload request failed: %v", err)
		return &StepError{Kind: KindUploadFailure, Message: "Failed to upload student card to storage", Err: err}
	}
	if !res.Success {
		r.journal.Addf(ctx, SeverityError, "Upload failed with status %d", res.Status)
		return &StepError{
			Kind:    KindUploadFailure,
			Message: "Failed to upload student card to storage",
			Err:     fmt.Errorf("storage returned status %d", res.Status),
		}
	}

	r.journal.Add(ctx, SeveritySuccess, "Student card uploaded successfully")
	return nil
}

func (s *service) completeDocUpload(ctx context.Context, r *run) error {
	r.journal.Add(ctx, SeverityInfo, "Step 6/7: Completing document upload...")

	res, err := s.client.Request(ctx, http.MethodPost, s.stepURL(r.req.VerificationID, "completeDocUpload"), nil, nil)
	if err != nil {
		r.journal.Addf(ctx, SeverityError, "Step 6 request failed: %v", err)
		return &StepError{Kind: KindRemoteStepFailure, Message: "Step 6 failed: " + err.Error(), Err: err}
	}

	r.journal.Addf(ctx, SeveritySuccess, "Step 6 completed: %s", currentStep(res.Data))
	return nil
}

func currentStep(body remote.Body) string {
	if step := body.Field("currentStep"); step != "" {
		return step
	}
	return "unknown"
}

// bodyText renders a response body the way it is embedded in error messages:
// JSON as compact JSON, text as a quoted string.
func bodyText(body remote.Body) string {
	b, err := body.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
