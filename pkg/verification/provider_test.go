package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DSACMS/student-verification-api/pkg/core"
	"github.com/stretchr/testify/require"
)

const (
	testVerificationID = "abc123"
	testFingerprint    = "0123456789abcdef0123456789abcdef"
)

// fakeProvider serves the provider step endpoints, the status host and the
// pre-signed upload URL from one server.
type fakeProvider struct {
	mu sync.Mutex

	step2Status   int
	step2Body     string
	docUploadBody string
	uploadStatus  int
	// currentStep per poll; the last value repeats.
	statuses    []string
	redirectURL string

	calls        []string
	step2Payload map[string]any
	docPayload   map[string]any
	uploaded     []byte
	uploadType   string
	polls        int

	server *httptest.Server
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	fp := &fakeProvider{
		step2Status:  http.StatusOK,
		step2Body:    `{"currentStep":"sso"}`,
		uploadStatus: http.StatusOK,
		statuses:     []string{"success"},
		redirectURL:  "https://example.test/redirect",
	}
	fp.server = httptest.NewServer(http.HandlerFunc(fp.handle))
	t.Cleanup(fp.server.Close)

	return fp
}

func (fp *fakeProvider) handle(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	fp.calls = append(fp.calls, r.Method+" "+r.URL.Path)
	body, _ := io.ReadAll(r.Body)

	prefix := "/rest/v2/verification/" + testVerificationID
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == prefix+"/step/collectStudentPersonalInfo":
		_ = json.Unmarshal(body, &fp.step2Payload)
		w.WriteHeader(fp.step2Status)
		_, _ = w.Write([]byte(fp.step2Body))

	case r.Method == http.MethodDelete && r.URL.Path == prefix+"/step/sso":
		_, _ = w.Write([]byte(`{"currentStep":"docUpload"}`))

	case r.Method == http.MethodPost && r.URL.Path == prefix+"/step/docUpload":
		_ = json.Unmarshal(body, &fp.docPayload)
		if fp.docUploadBody != "" {
			_, _ = w.Write([]byte(fp.docUploadBody))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"currentStep": "docUpload",
			"documents": []map[string]string{{
				"uploadUrl": fp.server.URL + "/upload/student-card?X-Amz-Signature=abcdefghijklmnopqrstuvwxyz",
			}},
		})

	case r.Method == http.MethodPut && r.URL.Path == "/upload/student-card":
		fp.uploaded = body
		fp.uploadType = r.Header.Get("Content-Type")
		w.WriteHeader(fp.uploadStatus)

	case r.Method == http.MethodPost && r.URL.Path == prefix+"/step/completeDocUpload":
		_, _ = w.Write([]byte(`{"currentStep":"pending"}`))

	case r.Method == http.MethodGet && r.URL.Path == prefix:
		idx := fp.polls
		if idx >= len(fp.statuses) {
			idx = len(fp.statuses) - 1
		}
		fp.polls++
		resp := map[string]any{"currentStep": fp.statuses[idx]}
		if fp.statuses[idx] == "success" {
			resp["redirectUrl"] = fp.redirectURL
		}
		_ = json.NewEncoder(w).Encode(resp)

	default:
		http.NotFound(w, r)
	}
}

func (fp *fakeProvider) providerCalls() []string {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	var out []string
	for _, c := range fp.calls {
		if strings.Contains(c, "/rest/v2/verification/") {
			out = append(out, c)
		}
	}
	return out
}

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, d)
	return s.err
}

type harness struct {
	svc      Service
	provider *fakeProvider
	sleeps   *sleepRecorder
}

func newHarness(t *testing.T, opts Options, cfgOpts ...func(*core.Config)) *harness {
	t.Helper()

	fp := newFakeProvider(t)
	rec := &sleepRecorder{}

	base := []func(*core.Config){
		core.WithProviderURLs(fp.server.URL, fp.server.URL),
		core.WithPolling(3, 3*time.Second),
	}
	cfg := core.NewConfig(append(base, cfgOpts...)...)

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Sleep == nil {
		opts.Sleep = rec.sleep
	}
	opts.Fingerprint = func() string { return testFingerprint }
	opts.NewRunID = func() string { return "run-1" }

	svc, err := New(&cfg, opts)
	require.NoError(t, err)

	return &harness{svc: svc, provider: fp, sleeps: rec}
}

func validRequest() Request {
	return Request{
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@mit.edu",
		BirthDate:      "2001-12-10",
		VerificationID: testVerificationID,
		SchoolID:       DefaultSchoolID,
		StudentCard:    bytes.NewReader([]byte("\x89PNG fake image bytes")),
	}
}

func countEntries(logs []LogEntry, prefix string) int {
	n := 0
	for _, e := range logs {
		if strings.HasPrefix(e.Message, prefix) {
			n++
		}
	}
	return n
}

func hasEntry(logs []LogEntry, severity Severity, substr string) bool {
	for _, e := range logs {
		if e.Type == severity && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
