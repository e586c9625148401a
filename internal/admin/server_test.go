package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	name string
	ok   bool
}

func (f fakeChecker) Name() string { return f.name }
func (f fakeChecker) Healthy(_ context.Context) (bool, string) {
	if f.ok {
		return true, ""
	}
	return false, "simulated failure"
}

func TestHealthz_AllHealthyReturns200(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(":0", reg, []HealthChecker{fakeChecker{name: "a", ok: true}, fakeChecker{name: "b", ok: true}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body healthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Checks["a"].OK)
}

func TestHealthz_OneUnhealthyReturns503(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(":0", reg, []HealthChecker{fakeChecker{name: "a", ok: true}, fakeChecker{name: "b", ok: false}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body healthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.False(t, body.Checks["b"].OK)
	assert.Equal(t, "simulated failure", body.Checks["b"].Detail)
}

func TestMetricsEndpoint_ExposesRegisteredMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "admin_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s := New(":0", reg, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin_test_total 1")
}

func TestNotFoundHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(":0", reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
