package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthChecker provides health check endpoints for Kubernetes probes.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic
	ready atomic.Bool
	// serverContext provides access to dependencies for health checks
	serverContext *ServerContext
	// startTime tracks when the server started
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	// Server starts as ready by default
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information
// including per-component status.
type DetailedHealthResponse struct {
	Status          string                      `json:"status"`
	Mode            string                      `json:"mode"`
	Version         string                      `json:"version,omitempty"`
	Uptime          string                      `json:"uptime"`
	Registry        *RegistryHealthStatus       `json:"registry,omitempty"`
	Oracle          *OracleHealthStatus         `json:"oracle,omitempty"`
	Instrumentation *InstrumentationHealthCheck `json:"instrumentation,omitempty"`
}

// RegistryHealthStatus reports the configured cluster registry.
type RegistryHealthStatus struct {
	Clusters int      `json:"clusters"`
	IDs      []string `json:"ids,omitempty"`
}

// OracleHealthStatus reports whether an NL oracle backs the extractor.
// Extraction degrades to deterministic-only parsing without one.
type OracleHealthStatus struct {
	Configured bool `json:"configured"`
}

// InstrumentationHealthCheck provides health information about instrumentation.
type InstrumentationHealthCheck struct {
	Enabled         bool   `json:"enabled"`
	MetricsExporter string `json:"metrics_exporter,omitempty"`
	TracingExporter string `json:"tracing_exporter,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// Liveness probes indicate whether the process should be restarted.
// This should be a simple check that the server process is running.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simple liveness check - if we can respond, we're alive
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := HealthResponse{
			Status: "ok",
		}

		// Add version if available from server context
		if h.serverContext != nil && h.serverContext.Config() != nil {
			response.Version = h.serverContext.Config().Version
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
// Readiness probes indicate whether the server is ready to receive traffic.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		// Check if server is marked as ready
		if !h.ready.Load() {
			checks["ready"] = "not ready"
			allOk = false
		} else {
			checks["ready"] = "ok"
		}

		// Check if server context is not shutdown
		if h.serverContext != nil && h.serverContext.IsShutdown() {
			checks["shutdown"] = "shutting down"
			allOk = false
		} else {
			checks["shutdown"] = "ok"
		}

		if h.serverContext != nil {
			// A registry with no clusters cannot answer any query
			if registry := h.serverContext.Registry(); registry != nil && registry.Len() > 0 {
				checks["registry"] = fmt.Sprintf("ok (%d clusters)", registry.Len())
			} else {
				checks["registry"] = "no clusters configured"
				allOk = false
			}

			// The oracle is optional: extraction degrades to
			// deterministic-only parsing, so absence never fails readiness
			if h.serverContext.OracleConfigured() {
				checks["oracle"] = "ok"
			} else {
				checks["oracle"] = "not configured"
			}

			// Check instrumentation provider if enabled
			provider := h.serverContext.InstrumentationProvider()
			if provider != nil {
				if provider.Enabled() {
					checks["instrumentation"] = "ok"
				} else {
					checks["instrumentation"] = "disabled"
				}
			}
		}

		response := HealthResponse{
			Checks: checks,
		}

		if allOk {
			response.Status = "ok"
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = "not ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed
// endpoint. This endpoint provides comprehensive per-component health
// information.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		response := DetailedHealthResponse{
			Status: "ok",
			Mode:   h.determineMode(),
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}

		// Add version if available
		if h.serverContext != nil && h.serverContext.Config() != nil {
			response.Version = h.serverContext.Config().Version
		}

		if h.serverContext != nil {
			response.Registry = h.getRegistryStatus()
			response.Oracle = h.getOracleStatus()
			response.Instrumentation = h.getInstrumentationStatus()
		}

		// Determine overall status
		if !h.ready.Load() {
			response.Status = "not ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else if h.serverContext != nil && h.serverContext.IsShutdown() {
			response.Status = "shutting down"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// determineMode returns the operational mode of the server.
func (h *HealthChecker) determineMode() string {
	if h.serverContext == nil {
		return "unknown"
	}

	registry := h.serverContext.Registry()
	if registry == nil {
		return "unknown"
	}

	if registry.Len() > 1 {
		return "multi-cluster"
	}

	return "single-cluster"
}

// getRegistryStatus returns cluster registry health status.
func (h *HealthChecker) getRegistryStatus() *RegistryHealthStatus {
	registry := h.serverContext.Registry()
	if registry == nil {
		return &RegistryHealthStatus{}
	}

	return &RegistryHealthStatus{
		Clusters: registry.Len(),
		IDs:      registry.IDs(),
	}
}

// getOracleStatus returns oracle configuration status.
func (h *HealthChecker) getOracleStatus() *OracleHealthStatus {
	return &OracleHealthStatus{
		Configured: h.serverContext.OracleConfigured(),
	}
}

// getInstrumentationStatus returns instrumentation health status.
func (h *HealthChecker) getInstrumentationStatus() *InstrumentationHealthCheck {
	provider := h.serverContext.InstrumentationProvider()
	if provider == nil {
		return &InstrumentationHealthCheck{
			Enabled: false,
		}
	}

	return &InstrumentationHealthCheck{
		Enabled:         provider.Enabled(),
		MetricsExporter: provider.MetricsExporter(),
		TracingExporter: provider.TracingExporter(),
	}
}
