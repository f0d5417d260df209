package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency.
const (
	attrMethod       = "method"
	attrPath         = "path"
	attrStatus       = "status"
	attrAction       = "action"
	attrResourceType = "resource_type"
	attrNamespace    = "namespace"
	attrCluster      = "cluster"
	attrClusterID    = "cluster_id"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Query pipeline metrics
	queriesTotal  metric.Int64Counter
	queryDuration metric.Float64Histogram
	queryMatches  metric.Int64Histogram

	// Per-cluster fetch metrics
	clusterFetchesTotal metric.Int64Counter

	// Oracle metrics
	oracleCallsTotal metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels (namespace,
	// raw cluster identifiers) are included in query and fetch metrics
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Query Metrics
	m.queriesTotal, err = meter.Int64Counter(
		"kubequery_queries_total",
		metric.WithDescription("Total number of natural language queries processed"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubequery_queries_total counter: %w", err)
	}

	m.queryDuration, err = meter.Float64Histogram(
		"kubequery_query_duration_seconds",
		metric.WithDescription("End-to-end query duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubequery_query_duration_seconds histogram: %w", err)
	}

	m.queryMatches, err = meter.Int64Histogram(
		"kubequery_query_matches",
		metric.WithDescription("Number of resources matched per query"),
		metric.WithUnit("{resource}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubequery_query_matches histogram: %w", err)
	}

	// Cluster Fetch Metrics
	m.clusterFetchesTotal, err = meter.Int64Counter(
		"kubequery_cluster_fetches_total",
		metric.WithDescription("Total number of per-cluster fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubequery_cluster_fetches_total counter: %w", err)
	}

	// Oracle Metrics
	m.oracleCallsTotal, err = meter.Int64Counter(
		"kubequery_oracle_calls_total",
		metric.WithDescription("Total number of oracle inference calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubequery_oracle_calls_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordQuery records one processed query with its action, resource type,
// outcome, matched resource count, and end-to-end duration.
//
// CARDINALITY NOTE: action, resource_type, and status are bounded sets.
// The namespace label is only recorded when detailedLabels is enabled;
// keep it disabled in environments with many namespaces.
func (m *Metrics) RecordQuery(ctx context.Context, action, resourceType, namespace, status string, matched int, duration time.Duration) {
	if m.queriesTotal == nil || m.queryDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAction, action),
		attribute.String(attrResourceType, resourceType),
		attribute.String(attrStatus, status),
	}

	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrNamespace, namespace))
	}

	m.queriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if m.queryMatches != nil {
		m.queryMatches.Record(ctx, int64(matched), metric.WithAttributes(
			attribute.String(attrResourceType, resourceType),
		))
	}
}

// RecordClusterFetch records the outcome of one per-cluster fetch. Status is
// either StatusSuccess or a failure kind such as "Timeout" or "AuthError".
//
// CARDINALITY NOTE: cluster names are classified into bounded types before
// recording. The raw cluster identifier is only included when detailedLabels
// is enabled.
func (m *Metrics) RecordClusterFetch(ctx context.Context, clusterName, status string) {
	if m.clusterFetchesTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrCluster, ClassifyClusterName(clusterName)),
		attribute.String(attrStatus, status),
	}

	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrClusterID, clusterName))
	}

	m.clusterFetchesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOracleCall records one oracle inference call.
// Status should be one of: "success", "error"
func (m *Metrics) RecordOracleCall(ctx context.Context, status string) {
	if m.oracleCallsTotal == nil {
		return // Instrumentation not initialized
	}

	m.oracleCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStatus, status),
	))
}
