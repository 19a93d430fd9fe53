package trace

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "litepay/internal/log"
)

func newTraced(t *testing.T, status int) (http.Handler, *Middleware, *bytes.Buffer, *string) {
	t.Helper()
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: applog.ComponentHTTP})
	m := NewMiddleware(func(*http.Request) string { return "203.0.113.1" }, applog.NewStructuredLogger(logger))

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(status)
	}))
	return h, m, &buf, &seen
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	h, m, buf, seen := newTraced(t, http.StatusCreated)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/groups", nil))

	require.NotEmpty(t, *seen)
	assert.True(t, strings.HasPrefix(*seen, "req_"))
	assert.Equal(t, *seen, rr.Header().Get(HeaderRequestID))
	assert.Contains(t, buf.String(), `"status_code":201`)
	assert.Contains(t, buf.String(), `"client_ip":"203.0.113.1"`)
	assert.Equal(t, int64(1), m.GetMetrics().TotalRequests)
}

func TestMiddlewareReusesValidIncomingID(t *testing.T) {
	h, _, _, seen := newTraced(t, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc-123", *seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id\n")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "bad id\n", *seen)
	assert.True(t, strings.HasPrefix(*seen, "req_"))
}

func TestMiddlewareLogsClientErrorsAsWarn(t *testing.T) {
	h, _, buf, _ := newTraced(t, http.StatusNotFound)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
