package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DSACMS/student-verification-api/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	called bool
	req    *http.Request
	body   []byte
	resp   *http.Response
	err    error
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	f.called = true
	f.req = req
	if req.Body != nil {
		f.body, _ = io.ReadAll(req.Body)
	}
	return f.resp, f.err
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func testProviderConfig() *core.ProviderConfig {
	cfg := core.DefaultConfig().Provider
	return &cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_UsesInjectedHTTPClient(t *testing.T) {
	ft := &fakeTransport{}

	client := New(testProviderConfig(), Options{HTTPClient: ft})

	impl, ok := client.(*service)
	require.True(t, ok, "New should return *service implementation")
	require.Same(t, ft, impl.client, "should use injected HTTP client")
	assert.Equal(t, 30*time.Second, impl.timeout, "timeout falls back to the provider config")
	assert.Equal(t, int64(defaultMaxResponseBytes), impl.maxBytes)
}

func TestRequest_JSONBody(t *testing.T) {
	ft := &fakeTransport{resp: jsonResponse(http.StatusOK, `{"currentStep":"docUpload"}`)}
	client := New(testProviderConfig(), Options{HTTPClient: ft, Logger: discardLogger()})

	res, err := client.Request(context.Background(), http.MethodPost, "https://example.test/step", map[string]string{"firstName": "Ada"}, nil)
	require.NoError(t, err)

	require.True(t, ft.called)
	assert.Equal(t, http.MethodPost, ft.req.Method)
	assert.Equal(t, "application/json", ft.req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", ft.req.Header.Get("Accept"))
	assert.JSONEq(t, `{"firstName":"Ada"}`, string(ft.body))

	assert.Equal(t, http.StatusOK, res.Status)
	assert.True(t, res.Data.IsJSON())
	assert.Equal(t, "docUpload", res.Data.Field("currentStep"))
}

func TestRequest_StringBodySentVerbatim(t *testing.T) {
	ft := &fakeTransport{resp: jsonResponse(http.StatusOK, `{}`)}
	client := New(testProviderConfig(), Options{HTTPClient: ft, Logger: discardLogger()})

	_, err := client.Request(context.Background(), http.MethodPost, "https://example.test/step", `{"already":"encoded"}`, nil)
	require.NoError(t, err)

	assert.Equal(t, `{"already":"encoded"}`, string(ft.body))
}

func TestRequest_NilBodyAndHeaderOverride(t *testing.T) {
	ft := &fakeTransport{resp: jsonResponse(http.StatusOK, `{}`)}
	client := New(testProviderConfig(), Options{HTTPClient: ft, Logger: discardLogger()})

	_, err := client.Request(context.Background(), http.MethodDelete, "https://example.test/sso", nil, http.Header{
		"Accept": []string{"text/plain"},
	})
	require.NoError(t, err)

	assert.Nil(t, ft.req.Body)
	assert.Equal(t, "text/plain", ft.req.Header.Get("Accept"))
	assert.Equal(t, "application/json", ft.req.Header.Get("Content-Type"))
}

func TestRequest_NonJSONResponseIsRawText(t *testing.T) {
	ft := &fakeTransport{resp: jsonResponse(http.StatusBadGateway, `upstream unavailable`)}
	client := New(testProviderConfig(), Options{HTTPClient: ft, Logger: discardLogger()})

	res, err := client.Request(context.Background(), http.MethodGet, "https://example.test/status", nil, nil)
	require.NoError(t, err, "non-2xx responses are results, not errors")

	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.False(t, res.Data.IsJSON())
	assert.Equal(t, "upstream unavailable", string(res.Data.raw))
}

func TestRequest_TransportError(t *testing.T) {
	ft := &fakeTransport{err: errors.New("connection reset")}
	client := New(testProviderConfig(), Options{HTTPClient: ft, Logger: discardLogger()})

	_, err := client.Request(context.Background(), http.MethodGet, "https://example.test/status", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRequest_MarshalError(t *testing.T) {
	ft := &fakeTransport{}
	client := New(testProviderConfig(), Options{HTTPClient: ft, Logger: discardLogger()})

	_, err := client.Request(context.Background(), http.MethodPost, "https://example.test/step", map[string]any{"bad": make(chan int)}, nil)
	require.Error(t, err)
	assert.False(t, ft.called)
}

func TestRequest_ResponseCap(t *testing.T) {
	ft := &fakeTransport{resp: jsonResponse(http.StatusOK, `abcdefghij`)}
	client := New(testProviderConfig(), Options{HTTPClient: ft, Logger: discardLogger(), MaxResponseBytes: 4})

	res, err := client.Request(context.Background(), http.MethodGet, "https://example.test/status", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(res.Data.raw))
}

func TestRequest_SameInputSameShape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"currentStep":"pending"}`))
	}))
	defer ts.Close()

	client := New(testProviderConfig(), Options{Logger: discardLogger()})

	first, err := client.Request(context.Background(), http.MethodGet, ts.URL, nil, nil)
	require.NoError(t, err)
	second, err := client.Request(context.Background(), http.MethodGet, ts.URL, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Data.raw, second.Data.raw)
}

func slowServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(delay):
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRequest_TimeoutAppliesUnderLongerParentDeadline(t *testing.T) {
	ts := slowServer(t, 5*time.Second)
	client := New(testProviderConfig(), Options{Logger: discardLogger(), Timeout: 50 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	_, err := client.Request(ctx, http.MethodGet, ts.URL, nil, nil)
	require.Error(t, err)

	assert.True(t, errors.Is(err, context.DeadlineExceeded), err.Error())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.NoError(t, ctx.Err(), "parent deadline must be untouched")
}

func TestRequest_EarlierParentDeadlineWins(t *testing.T) {
	ts := slowServer(t, 5*time.Second)
	client := New(testProviderConfig(), Options{Logger: discardLogger(), Timeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Request(ctx, http.MethodGet, ts.URL, nil, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
