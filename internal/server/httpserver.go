package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsloom/kubequery/internal/server/middleware"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default timeout for writing responses. A
	// fan-out across many clusters can legitimately use most of this.
	DefaultWriteTimeout = 120 * time.Second

	// DefaultIdleTimeout is the default idle timeout for keepalive connections
	DefaultIdleTimeout = 120 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps request body sizes. Query bodies are a few
	// hundred bytes of text; one megabyte is already generous.
	DefaultMaxBodyBytes = 1 << 20
)

// HTTPServerOptions configures the REST surface.
type HTTPServerOptions struct {
	// Addr is the listen address. Empty falls back to the context config.
	Addr string

	// EnableHSTS forces the HSTS header even without TLS, for servers
	// running behind a TLS-terminating proxy.
	EnableHSTS bool

	// AllowedOrigins is the validated CORS allow list. Empty means no
	// origin is ever echoed back.
	AllowedOrigins []string

	// MaxBodyBytes caps request body sizes; zero or below selects
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// HTTPServer serves the query API over REST.
type HTTPServer struct {
	serverContext *ServerContext
	health        *HealthChecker
	httpServer    *http.Server
	logger        *slog.Logger
}

// NewHTTPServer assembles the REST surface around a ServerContext: API
// routes, health endpoints, the Prometheus scrape endpoint when the
// provider exports through Prometheus, and the middleware chain.
func NewHTTPServer(sc *ServerContext, opts HTTPServerOptions) *HTTPServer {
	s := &HTTPServer{
		serverContext: sc,
		health:        NewHealthChecker(sc),
		logger:        sc.Logger(),
	}

	addr := opts.Addr
	if addr == "" {
		addr = sc.Config().HTTPAddr
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/filter/query", s.handleFilterQuery)
	mux.HandleFunc("/api/agent/query", s.handleAgentQuery)
	mux.HandleFunc("/api/agent/diagnose", s.handleDiagnose)
	mux.HandleFunc("/api/clusters", s.handleClusters)
	s.health.RegisterHealthEndpoints(mux)

	provider := sc.InstrumentationProvider()
	if provider.PrometheusEnabled() {
		// The OTel prometheus exporter registers with the default
		// registerer, so promhttp serves everything it collects.
		mux.Handle(provider.PrometheusEndpoint(), promhttp.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.MaxRequestSize(maxBody)(handler)
	handler = middleware.HTTPMetrics(provider)(handler)
	handler = middleware.CORS(opts.AllowedOrigins)(handler)
	handler = middleware.SecurityHeaders(middleware.SecurityHeadersConfig{EnableHSTS: opts.EnableHSTS})(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	return s
}

// Handler returns the fully wired handler chain, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Health returns the health checker so callers can flip readiness.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.httpServer.Addr
}

// Start begins serving and blocks until the listener closes.
func (s *HTTPServer) Start() error {
	s.logger.Info("HTTP server listening", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}
