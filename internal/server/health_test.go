package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsloom/kubequery/internal/nlq"
)

func newTestContext(t *testing.T, opts ...Option) *ServerContext {
	t.Helper()
	sc, err := NewServerContext(context.Background(), append(requiredOptions(t), opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(newTestContext(t))

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeHealth(t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "0.1.0", resp.Version)
}

func TestReadinessHandlerReady(t *testing.T) {
	h := NewHealthChecker(newTestContext(t))

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeHealth(t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["ready"])
	assert.Equal(t, "ok", resp.Checks["shutdown"])
	assert.Equal(t, "ok (1 clusters)", resp.Checks["registry"])
	// No oracle is configured, but extraction still works without one.
	assert.Equal(t, "not configured", resp.Checks["oracle"])
}

func TestReadinessHandlerNotReady(t *testing.T) {
	h := NewHealthChecker(newTestContext(t))
	h.SetReady(false)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decodeHealth(t, rec)
	assert.Equal(t, "not ready", resp.Status)
	assert.Equal(t, "not ready", resp.Checks["ready"])
}

func TestReadinessHandlerShutdown(t *testing.T) {
	sc := newTestContext(t)
	h := NewHealthChecker(sc)
	require.NoError(t, sc.Shutdown())

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "shutting down", decodeHealth(t, rec).Checks["shutdown"])
}

func TestReadinessHandlerEmptyRegistry(t *testing.T) {
	sc, err := NewServerContext(context.Background(),
		WithRegistry(testRegistry(t)),
		WithExtractor(nlq.NewExtractor()),
		WithExecutor(&fakeExecutor{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	// A registry with no clusters cannot answer any query.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no clusters configured", decodeHealth(t, rec).Checks["registry"])
}

func TestReadinessHandlerOracleConfigured(t *testing.T) {
	oracle := nlq.OracleFunc(func(ctx context.Context, text string) (nlq.Inference, error) {
		return nlq.Inference{}, nil
	})
	sc, err := NewServerContext(context.Background(),
		WithRegistry(testRegistry(t, "default")),
		WithExtractor(nlq.NewExtractor(nlq.WithOracle(oracle))),
		WithExecutor(&fakeExecutor{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeHealth(t, rec).Checks["oracle"])
}

func TestDetailedHealthHandler(t *testing.T) {
	sc, err := NewServerContext(context.Background(),
		WithRegistry(testRegistry(t, "prod-eu", "prod-us")),
		WithExtractor(nlq.NewExtractor()),
		WithExecutor(&fakeExecutor{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "multi-cluster", resp.Mode)
	assert.Equal(t, "0.1.0", resp.Version)
	assert.NotEmpty(t, resp.Uptime)

	require.NotNil(t, resp.Registry)
	assert.Equal(t, 2, resp.Registry.Clusters)
	assert.Equal(t, []string{"prod-eu", "prod-us"}, resp.Registry.IDs)

	require.NotNil(t, resp.Oracle)
	assert.False(t, resp.Oracle.Configured)

	require.NotNil(t, resp.Instrumentation)
	assert.False(t, resp.Instrumentation.Enabled)
}

func TestDetailedHealthHandlerNotReady(t *testing.T) {
	h := NewHealthChecker(newTestContext(t))
	h.SetReady(false)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not ready", resp.Status)
}

func TestDetermineMode(t *testing.T) {
	tests := []struct {
		name     string
		clusters []string
		expected string
	}{
		{"single cluster", []string{"default"}, "single-cluster"},
		{"multi cluster", []string{"prod-eu", "prod-us"}, "multi-cluster"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := NewServerContext(context.Background(),
				WithRegistry(testRegistry(t, tt.clusters...)),
				WithExtractor(nlq.NewExtractor()),
				WithExecutor(&fakeExecutor{}),
			)
			require.NoError(t, err)
			t.Cleanup(func() { _ = sc.Shutdown() })

			h := NewHealthChecker(sc)
			assert.Equal(t, tt.expected, h.determineMode())
		})
	}

	t.Run("no server context", func(t *testing.T) {
		h := &HealthChecker{}
		assert.Equal(t, "unknown", h.determineMode())
	})
}

func TestSetReady(t *testing.T) {
	h := NewHealthChecker(newTestContext(t))

	assert.True(t, h.IsReady())
	h.SetReady(false)
	assert.False(t, h.IsReady())
	h.SetReady(true)
	assert.True(t, h.IsReady())
}
