// Package server provides the ServerContext pattern and the REST surface
// for the kubequery service.
//
// This package implements the core server architecture patterns including:
//
//   - ServerContext: Encapsulates all server dependencies and lifecycle management
//   - Functional Options: Clean dependency injection and configuration
//   - HTTPServer: The REST API surface with middleware, health, and metrics
//   - Configuration Management: Centralized server configuration
//
// The ServerContext Pattern:
//
// The ServerContext struct follows the context pattern commonly used in Go
// applications to encapsulate dependencies and provide clean separation of
// concerns. It includes:
//
//   - Cluster registry for resolving query targets
//   - Query extractor and executor for the filter pipeline
//   - Optional conversational agent
//   - Logger, configuration, and instrumentation provider
//   - Context for cancellation and timeouts
//   - Lifecycle management (shutdown, cleanup)
//
// All dependencies are injected using functional options, making the code
// highly testable and modular.
//
// Example usage:
//
//	ctx := context.Background()
//	serverCtx, err := NewServerContext(ctx,
//		WithRegistry(registry),
//		WithExtractor(extractor),
//		WithExecutor(executor),
//		WithAgent(ag),
//		WithLogger(logger),
//		WithHTTPAddr(":8080"),
//	)
//	if err != nil {
//		return err
//	}
//	defer serverCtx.Shutdown()
//
//	srv := NewHTTPServer(serverCtx, HTTPServerOptions{})
//	srv.Health().SetReady(true)
//	err = srv.Start()
//
// The HTTP Surface:
//
// NewHTTPServer wires the API routes onto a mux together with health
// endpoints and, when the instrumentation provider exports through
// Prometheus, the scrape endpoint:
//
//   - POST /api/filter/query: structured filter queries from natural language
//   - POST /api/agent/query: conversational question answering
//   - POST /api/agent/diagnose: single-pod diagnostic bundles
//   - GET /api/clusters: the registry contents
//   - GET /healthz, /readyz, /healthz/detailed: liveness and readiness
//
// Responses carry a request_id, and errors share a single envelope with a
// machine-readable kind. A query where every target cluster fails returns
// 502 with per-cluster reasons rather than an empty success.
//
// Configuration Management:
//
// The Config struct provides centralized configuration with sensible
// defaults covering server identity (name, version), the HTTP listen
// address, and logging (level, format). The configuration supports deep
// cloning to prevent accidental mutations.
package server
