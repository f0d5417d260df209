// Package instrumentation provides OpenTelemetry instrumentation for the
// kubequery server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, queries, and cluster fetches
//   - Distributed tracing for query execution and tool invocations
//   - Prometheus metrics export via the /metrics endpoint
//   - OTLP export support for modern observability platforms
//   - Structured audit logging of tool invocations
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Query Metrics:
//   - kubequery_queries_total: Counter of processed queries by action, resource_type, status
//   - kubequery_query_duration_seconds: Histogram of end-to-end query durations
//   - kubequery_query_matches: Histogram of matched resources per query
//
// Cluster Fetch Metrics:
//   - kubequery_cluster_fetches_total: Counter of per-cluster fetch outcomes
//
// Oracle Metrics:
//   - kubequery_oracle_calls_total: Counter of language model calls by status
//
// # Cardinality Considerations
//
// Cluster names are classified into bounded types (production, staging,
// development, ...) before they become label values; see ClassifyClusterName.
// Raw cluster identifiers and namespaces are only recorded when
// METRICS_DETAILED_LABELS is set, which should stay off in fleets with many
// clusters or namespaces.
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - HTTP request handling
//   - MCP tool invocations
//   - Query pipeline stages (extraction, fan-out, composition)
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, none, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Trace sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: kubequery)
//   - METRICS_DETAILED_LABELS: Include high-cardinality labels (default: false)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "kubequery",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordHTTPRequest(ctx, "POST", "/api/query", 200, time.Since(start))
//	recorder.RecordQuery(ctx, "list", "pods", "default", instrumentation.StatusSuccess, 12, time.Since(start))
package instrumentation
