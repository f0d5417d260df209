package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsloom/kubequery/internal/agent"
	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/engine"
	"github.com/opsloom/kubequery/internal/instrumentation"
	"github.com/opsloom/kubequery/internal/k8s"
	"github.com/opsloom/kubequery/internal/logging"
	"github.com/opsloom/kubequery/internal/nlq"
	"github.com/opsloom/kubequery/internal/oracle"
	"github.com/opsloom/kubequery/internal/server"
	"github.com/opsloom/kubequery/internal/server/middleware"
)

// Transport type constants for the query server.
const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

// serverName is the service name announced over both transports.
const serverName = "kubequery"

// newServeCmd creates the Cobra command for starting the query server.
func newServeCmd() *cobra.Command {
	var (
		transport      string
		httpAddr       string
		registryPath   string
		clusterTimeout time.Duration
		qpsLimit       float32
		burstLimit     int
		geminiAPIKey   string
		geminiModel    string
		logLevel       string
		logFormat      string
		enableHSTS     bool
		allowedOrigins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kubequery server",
		Long: `Start the kubequery server to answer natural-language questions about
Kubernetes cluster state.

Supports two transport types:
  - http: REST API over HTTP (default)
  - stdio: Model Context Protocol over standard input/output

Cluster access is configured through a YAML registry file listing cluster
ids and kubeconfig sources (local paths or gs:// object references). Without
a registry file the server queries a single implicit "default" cluster using
the standard kubeconfig loading rules.

The natural-language oracle (Gemini) is optional. Without an API key the
server parses queries deterministically and reports the oracle as
unconfigured on /readyz; queries the deterministic pass cannot read fail
with an invalid-filter error instead of an oracle guess.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := ServeConfig{
				Transport:      transport,
				HTTPAddr:       httpAddr,
				RegistryPath:   registryPath,
				ClusterTimeout: clusterTimeout,
				QPSLimit:       qpsLimit,
				BurstLimit:     burstLimit,
				GeminiAPIKey:   geminiAPIKey,
				GeminiModel:    geminiModel,
				LogLevel:       logLevel,
				LogFormat:      logFormat,
				EnableHSTS:     enableHSTS,
				AllowedOrigins: allowedOrigins,
			}
			// Load env vars only for flags not explicitly set by user
			loadServeEnvVars(cmd, &config)

			// Security warning: CLI secret flags may be visible in process listings
			if cmd.Flags().Changed("gemini-api-key") {
				log.Printf("WARNING: Gemini API key provided via CLI flag - key may be visible in process listings (ps aux)")
				log.Printf("         For better security, use the %s environment variable instead", envGeminiAPIKey)
			}

			return runServe(config)
		},
	}

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", transportHTTP, "Transport type: http or stdio")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for the http transport)")

	// Cluster flags
	cmd.Flags().StringVar(&registryPath, "cluster-registry", "", "Path to the cluster registry YAML file (default: single implicit cluster from the standard kubeconfig chain)")
	cmd.Flags().DurationVar(&clusterTimeout, "cluster-timeout", engine.DefaultClusterTimeout, "Per-cluster fetch timeout")
	cmd.Flags().Float32Var(&qpsLimit, "qps-limit", k8s.DefaultQPS, "QPS limit for Kubernetes API calls")
	cmd.Flags().IntVar(&burstLimit, "burst-limit", k8s.DefaultBurst, "Burst limit for Kubernetes API calls")

	// Oracle flags
	cmd.Flags().StringVar(&geminiAPIKey, "gemini-api-key", "", "Gemini API key for the natural-language oracle (can also be set via GEMINI_API_KEY env var)")
	cmd.Flags().StringVar(&geminiModel, "gemini-model", oracle.DefaultModel, "Gemini model for the natural-language oracle")

	// Logging flags
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "Log output format: json or text")

	// HTTP hardening flags
	cmd.Flags().BoolVar(&enableHSTS, "enable-hsts", false, "Send the HSTS header even without TLS (for deployments behind a TLS-terminating proxy)")
	cmd.Flags().StringSliceVar(&allowedOrigins, "allowed-origins", nil, "CORS allow list for the http transport (comma-separated origins)")

	return cmd
}

// runServe assembles the query pipeline and serves it over the configured
// transport until a shutdown signal arrives.
func runServe(config ServeConfig) error {
	if config.Transport != transportHTTP && config.Transport != transportStdio {
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", config.Transport, transportHTTP, transportStdio)
	}

	// In stdio mode stdout carries the protocol stream, so logs move to
	// stderr there.
	logDest := os.Stdout
	if config.Transport == transportStdio {
		logDest = os.Stderr
	}
	logger := logging.Setup(logDest, config.LogLevel, config.LogFormat)
	slog.SetDefault(logger)

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry instrumentation provider
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if shutdownErr := instrumentationProvider.Shutdown(context.Background()); shutdownErr != nil {
			if config.Transport != transportStdio {
				log.Printf("Error during instrumentation shutdown: %v", shutdownErr)
			}
		}
	}()

	if instrumentationProvider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			slog.String("metrics_exporter", instrumentationConfig.MetricsExporter),
			slog.String("tracing_exporter", instrumentationConfig.TracingExporter))
	}

	// Cluster registry: an explicit YAML file, or the implicit
	// single-cluster default backed by the standard kubeconfig chain.
	var registry *cluster.Registry
	if config.RegistryPath != "" {
		registry, err = cluster.LoadRegistry(config.RegistryPath, cluster.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to load cluster registry: %w", err)
		}
		logger.Info("cluster registry loaded",
			slog.String("path", config.RegistryPath),
			slog.Int("clusters", registry.Len()))
	} else {
		registry = cluster.SingleCluster(cluster.WithLogger(logger))
		logger.Info("no cluster registry configured, serving the single default cluster")
	}

	// Shared Kubernetes client factory. Per-cluster handles are built on
	// first use and cached for the life of the process.
	clients := k8s.NewClients(
		k8s.WithLogger(logger),
		k8s.WithRateLimits(config.QPSLimit, config.BurstLimit),
	)

	executor := engine.New(clients,
		engine.WithLogger(logger),
		engine.WithClusterTimeout(config.ClusterTimeout),
		engine.WithFetchRecorder(instrumentationProvider.Metrics()),
	)

	// Intent extractor, with the Gemini oracle behind it when a key is
	// configured. The deterministic pass runs either way.
	extractorOpts := []nlq.ExtractorOption{
		nlq.WithLogger(logger),
		nlq.WithOracleRecorder(instrumentationProvider.Metrics()),
	}
	if config.GeminiAPIKey != "" {
		gem, err := oracle.NewGemini(shutdownCtx, oracle.Config{
			APIKey: config.GeminiAPIKey,
			Model:  config.GeminiModel,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create Gemini oracle: %w", err)
		}
		extractorOpts = append(extractorOpts, nlq.WithOracle(gem))
		logger.Info("Gemini oracle configured", slog.String("model", config.GeminiModel))
	} else {
		logger.Info("no oracle configured, queries are parsed deterministically only")
	}
	extractor := nlq.NewExtractor(extractorOpts...)

	// Agent for the answer and diagnose surfaces. It shares the extractor,
	// registry and executor with the plain filter path.
	ag := agent.New(extractor, registry, executor, clients, agent.WithLogger(logger))

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithRegistry(registry),
		server.WithExtractor(extractor),
		server.WithExecutor(executor),
		server.WithAgent(ag),
		server.WithLogger(logger),
		server.WithServerName(serverName),
		server.WithVersion(rootCmd.Version),
		server.WithHTTPAddr(config.HTTPAddr),
		server.WithLogLevel(config.LogLevel),
		server.WithLogFormat(config.LogFormat),
		server.WithInstrumentationProvider(instrumentationProvider),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			// Only log shutdown errors for non-stdio transports to avoid output interference
			if config.Transport != transportStdio {
				log.Printf("Error during server context shutdown: %v", err)
			}
		}
	}()

	if config.Transport == transportStdio {
		// Don't print startup messages for stdio mode as they would
		// interfere with protocol communication.
		return runStdioServer(serverContext)
	}

	allowedOrigins, err := middleware.ValidateAllowedOrigins(strings.Join(config.AllowedOrigins, ","))
	if err != nil {
		return fmt.Errorf("invalid allowed origins: %w", err)
	}

	return runHTTPServer(shutdownCtx, serverContext, server.HTTPServerOptions{
		Addr:           config.HTTPAddr,
		EnableHSTS:     config.EnableHSTS,
		AllowedOrigins: allowedOrigins,
	})
}
