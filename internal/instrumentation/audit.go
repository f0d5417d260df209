package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// QueryInvocation captures a single query execution for audit logging.
// It is populated by the surface that received the query (HTTP handler or
// MCP tool) and logged once the query completes, with both
// cardinality-controlled attributes for metrics correlation and full-detail
// attributes for the audit trail.
type QueryInvocation struct {
	// Tool is the tool or endpoint name that received the query.
	Tool string

	// StartTime is when the invocation began.
	StartTime time.Time

	// Duration is how long the invocation took.
	Duration time.Duration

	// Success indicates whether the invocation completed without error.
	Success bool

	// Error is the error message if the invocation failed.
	Error string

	// ClusterName is the cluster hint or resolved cluster identifier.
	ClusterName string

	// Namespace is the namespace the query was scoped to, if any.
	Namespace string

	// ResourceType is the resource type the query targeted, if any.
	ResourceType string

	// ResourceName is the specific resource name, if the query named one.
	ResourceName string

	// Action is the agent action taken (list, count, summarize), if any.
	Action string

	// Matched is the number of resources the query matched.
	Matched int

	// FailedClusters is the number of clusters that could not be queried.
	FailedClusters int

	// TraceID is the OpenTelemetry trace ID for correlation.
	TraceID string

	// SpanID is the OpenTelemetry span ID for correlation.
	SpanID string
}

// NewQueryInvocation creates a new query invocation record with the start
// time set to now.
func NewQueryInvocation(tool string) *QueryInvocation {
	return &QueryInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithSpanContext extracts trace and span IDs from the context, if a valid
// span is present. Returns the invocation for chaining.
func (qi *QueryInvocation) WithSpanContext(ctx context.Context) *QueryInvocation {
	qi.TraceID = GetTraceID(ctx)
	qi.SpanID = GetSpanID(ctx)
	return qi
}

// WithCluster sets the cluster identifier. Returns the invocation for chaining.
func (qi *QueryInvocation) WithCluster(clusterName string) *QueryInvocation {
	qi.ClusterName = clusterName
	return qi
}

// WithResource sets the resource scope of the query. Returns the invocation
// for chaining.
func (qi *QueryInvocation) WithResource(namespace, resourceType, resourceName string) *QueryInvocation {
	qi.Namespace = namespace
	qi.ResourceType = resourceType
	qi.ResourceName = resourceName
	return qi
}

// WithAction sets the agent action. Returns the invocation for chaining.
func (qi *QueryInvocation) WithAction(action string) *QueryInvocation {
	qi.Action = action
	return qi
}

// WithResult records how many resources matched and how many clusters
// failed. Returns the invocation for chaining.
func (qi *QueryInvocation) WithResult(matched, failedClusters int) *QueryInvocation {
	qi.Matched = matched
	qi.FailedClusters = failedClusters
	return qi
}

// Complete marks the invocation as finished with the given outcome.
// Returns the invocation for chaining.
func (qi *QueryInvocation) Complete(success bool, err error) *QueryInvocation {
	qi.Duration = time.Since(qi.StartTime)
	qi.Success = success
	if err != nil {
		qi.Error = err.Error()
	}
	return qi
}

// CompleteSuccess marks the invocation as successfully finished.
// Returns the invocation for chaining.
func (qi *QueryInvocation) CompleteSuccess() *QueryInvocation {
	return qi.Complete(true, nil)
}

// CompleteWithError marks the invocation as failed with the given error.
// Returns the invocation for chaining.
func (qi *QueryInvocation) CompleteWithError(err error) *QueryInvocation {
	return qi.Complete(false, err)
}

// ClusterType returns the cardinality-controlled cluster classification.
// An empty cluster name means the query spanned the whole registry.
func (qi *QueryInvocation) ClusterType() string {
	if qi.ClusterName == "" {
		return "fleet"
	}
	return ClassifyClusterName(qi.ClusterName)
}

// Status returns "success" or "error" based on the invocation outcome.
func (qi *QueryInvocation) Status() string {
	if qi.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns cardinality-controlled slog attributes, safe to use as
// dimensions alongside metrics.
func (qi *QueryInvocation) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("tool", qi.Tool),
		slog.String("cluster_type", qi.ClusterType()),
		slog.String("resource_type", qi.ResourceType),
		slog.Duration("duration", qi.Duration),
		slog.Bool("success", qi.Success),
		slog.Int("matched", qi.Matched),
	}
}

// LogAuditAttrs returns full-detail slog attributes for the audit trail,
// including the full cluster identifier and trace context.
func (qi *QueryInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", qi.Tool),
		slog.String("cluster", qi.ClusterName),
		slog.String("cluster_type", qi.ClusterType()),
		slog.String("namespace", qi.Namespace),
		slog.String("resource_type", qi.ResourceType),
		slog.String("resource_name", qi.ResourceName),
		slog.String("action", qi.Action),
		slog.Int("matched", qi.Matched),
		slog.Int("failed_clusters", qi.FailedClusters),
		slog.Duration("duration", qi.Duration),
		slog.Bool("success", qi.Success),
	}
	if qi.Error != "" {
		attrs = append(attrs, slog.String("error", qi.Error))
	}
	if qi.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", qi.TraceID))
	}
	if qi.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", qi.SpanID))
	}
	return attrs
}

// AuditLogger writes query invocation records to a structured logger.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates an audit logger. A nil logger falls back to
// slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// LogQueryInvocation logs a completed query invocation. Successful queries
// log at info level, failed ones at warn.
func (al *AuditLogger) LogQueryInvocation(qi *QueryInvocation) {
	level := slog.LevelInfo
	msg := "query completed"
	if !qi.Success {
		level = slog.LevelWarn
		msg = "query failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, qi.LogAuditAttrs()...)
}

// TraceIDFromContext returns the trace ID from the active span in ctx, or
// an empty string when no valid span is present.
func TraceIDFromContext(ctx context.Context) string {
	return GetTraceID(ctx)
}
