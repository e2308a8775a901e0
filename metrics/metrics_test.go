package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest(http.MethodGet, "/projects/{id}", http.StatusOK, 20*time.Millisecond)
	c.RecordRequest(http.MethodGet, "/projects/{id}", http.StatusOK, 40*time.Millisecond)
	c.RecordRequest(http.MethodGet, "/projects/{id}", http.StatusUnauthorized, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/projects/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/projects/{id}", "401")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.latency))
}

func TestCollector_RecordNotification(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordNotification(true)
	c.RecordNotification(false)
	c.RecordNotification(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("delivered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.notifications.WithLabelValues("failed")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRateLimited()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "awf_auth_rate_limited_total 1")
}
