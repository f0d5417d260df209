package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opsloom/kubequery/internal/agent"
	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/engine"
	"github.com/opsloom/kubequery/internal/instrumentation"
	"github.com/opsloom/kubequery/internal/nlq"
	"github.com/opsloom/kubequery/internal/query"
)

// QueryExecutor runs a validated filter against resolved clusters.
// *engine.Engine is the production implementation.
type QueryExecutor interface {
	Execute(ctx context.Context, spec query.FilterSpec, clusters []cluster.Context) (*engine.Result, error)
}

// ServerContext encapsulates all dependencies needed by the query service
// and provides a clean abstraction for dependency injection and lifecycle
// management. Both the HTTP handlers and the MCP tools operate against it.
type ServerContext struct {
	// Core dependencies
	registry  *cluster.Registry
	extractor *nlq.Extractor
	executor  QueryExecutor
	agent     *agent.Agent
	logger    *slog.Logger
	config    *Config

	// Observability
	instrumentationProvider *instrumentation.Provider

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Lifecycle management
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new ServerContext with default values.
// Use the provided functional options to customize the context.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    serverCtx,
		cancel: cancel,
		config: NewDefaultConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := sc.validate(); err != nil {
		cancel()
		return nil, err
	}

	return sc, nil
}

// Context returns the server context for cancellation and deadlines.
func (sc *ServerContext) Context() context.Context {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ctx
}

// Registry returns the configured cluster registry.
func (sc *ServerContext) Registry() *cluster.Registry {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.registry
}

// Extractor returns the intent extractor.
func (sc *ServerContext) Extractor() *nlq.Extractor {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.extractor
}

// Executor returns the fetch-and-filter executor.
func (sc *ServerContext) Executor() QueryExecutor {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.executor
}

// Agent returns the question-answering agent.
func (sc *ServerContext) Agent() *agent.Agent {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.agent
}

// Logger returns the structured logger.
func (sc *ServerContext) Logger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// InstrumentationProvider returns the OpenTelemetry provider, or nil when
// instrumentation was never configured.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.instrumentationProvider
}

// OracleConfigured reports whether the intent extractor has an NL oracle
// behind it. Deterministic-only extraction still works without one.
func (sc *ServerContext) OracleConfigured() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.extractor != nil && sc.extractor.HasOracle()
}

// RecordQuery records query metrics when instrumentation is enabled.
// Safe to call with instrumentation disabled or absent.
func (sc *ServerContext) RecordQuery(ctx context.Context, action, resourceType, namespace, status string, matched int, duration time.Duration) {
	provider := sc.InstrumentationProvider()
	if provider == nil || !provider.Enabled() {
		return
	}
	if metrics := provider.Metrics(); metrics != nil {
		metrics.RecordQuery(ctx, action, resourceType, namespace, status, matched, duration)
	}
}

// AuditLogger returns the audit logger when instrumentation is enabled,
// or nil otherwise.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	provider := sc.InstrumentationProvider()
	if provider == nil {
		return nil
	}
	return provider.AuditLogger()
}

// Shutdown gracefully shuts down the server context.
// This cancels the context and releases any resources.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.logger.Info("Shutting down server context")

	if sc.cancel != nil {
		sc.cancel()
	}

	sc.shutdown = true

	sc.logger.Info("Server context shutdown complete")
	return nil
}

// IsShutdown returns true if the server context has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// validate ensures all required dependencies are set.
func (sc *ServerContext) validate() error {
	if sc.registry == nil {
		return ErrMissingRegistry
	}
	if sc.extractor == nil {
		return ErrMissingExtractor
	}
	if sc.executor == nil {
		return ErrMissingExecutor
	}
	if sc.logger == nil {
		return ErrMissingLogger
	}
	if sc.config == nil {
		return ErrMissingConfig
	}
	return nil
}

// Config holds the server configuration.
type Config struct {
	// Server settings
	ServerName string `json:"serverName"`
	Version    string `json:"version"`

	// HTTP settings
	HTTPAddr string `json:"httpAddr"`

	// Logging settings
	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName: "kubequery",
		Version:    "0.1.0",
		HTTPAddr:   ":8080",
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}
