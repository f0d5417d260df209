package server

import (
	"errors"
	"log/slog"

	"github.com/opsloom/kubequery/internal/agent"
	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/instrumentation"
	"github.com/opsloom/kubequery/internal/nlq"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithRegistry sets the cluster registry for the ServerContext.
func WithRegistry(registry *cluster.Registry) Option {
	return func(sc *ServerContext) error {
		if registry == nil {
			return ErrMissingRegistry
		}
		sc.registry = registry
		return nil
	}
}

// WithExtractor sets the intent extractor for the ServerContext.
func WithExtractor(extractor *nlq.Extractor) Option {
	return func(sc *ServerContext) error {
		if extractor == nil {
			return ErrMissingExtractor
		}
		sc.extractor = extractor
		return nil
	}
}

// WithExecutor sets the query executor for the ServerContext.
func WithExecutor(executor QueryExecutor) Option {
	return func(sc *ServerContext) error {
		if executor == nil {
			return ErrMissingExecutor
		}
		sc.executor = executor
		return nil
	}
}

// WithAgent sets the question-answering agent. The agent surface is
// optional; without it only the filter endpoints are served.
func WithAgent(a *agent.Agent) Option {
	return func(sc *ServerContext) error {
		sc.agent = a
		return nil
	}
}

// WithLogger sets the logger for the ServerContext.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithVersion sets the server version in the configuration.
func WithVersion(version string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.Version = version
		return nil
	}
}

// WithHTTPAddr sets the HTTP listen address in the configuration.
func WithHTTPAddr(addr string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.HTTPAddr = addr
		return nil
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.LogLevel = level
		return nil
	}
}

// WithLogFormat sets the logging output format ("json" or "text").
func WithLogFormat(format string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.LogFormat = format
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
// This enables production-grade observability including metrics and tracing.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingRegistry  = errors.New("cluster registry is required")
	ErrMissingExtractor = errors.New("intent extractor is required")
	ErrMissingExecutor  = errors.New("query executor is required")
	ErrMissingLogger    = errors.New("logger is required")
	ErrMissingConfig    = errors.New("configuration is required")
	ErrServerShutdown   = errors.New("server context has been shutdown")
)
