// ABOUTME: Tests for the Prometheus collector.
// ABOUTME: Verifies recorders, nil safety and the exposition handler.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	c := New()
	c.RecordDispatch("delete", "confirming")
	c.RecordDispatch("delete", "confirming")
	c.RecordSupersededRead("list")
	c.RecordAPIRequest("GET", 200, 15*time.Millisecond)
	c.SetActiveSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Dispatches.WithLabelValues("delete", "confirming")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SupersededReads.WithLabelValues("list")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.ActiveSessions))
	assert.Equal(t, 1, testutil.CollectAndCount(c.APIDuration))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordDispatch("modal", "ok")
		c.RecordAPIRequest("GET", 0, time.Second)
		c.RecordSupersededRead("list")
		c.RecordHTTPRequest("GET", "/", 200)
		c.SetActiveSessions(1)
	})
}

func TestHandlerAndMiddleware(t *testing.T) {
	c := New()
	h := c.Middleware(func(*http.Request) string { return "/api/admins" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/admins", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "/api/admins", "201")))

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "basiclist_http_requests_total"))
}
