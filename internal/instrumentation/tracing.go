package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the kubequery package.
const TracerName = "github.com/opsloom/kubequery"

// Span attribute keys for query and cluster operations.
const (
	// SpanAttrCluster is the cluster identifier attribute.
	SpanAttrCluster = "kubequery.cluster"

	// SpanAttrClusterType is the classified cluster type attribute.
	SpanAttrClusterType = "kubequery.cluster_type"

	// SpanAttrTool is the tool or endpoint name.
	SpanAttrTool = "kubequery.tool"

	// SpanAttrAction is the agent action (list, count, summarize).
	SpanAttrAction = "kubequery.action"

	// SpanAttrConfidence is the intent extraction confidence.
	SpanAttrConfidence = "kubequery.confidence"

	// SpanAttrMatchCount is the number of resources matched by a query.
	SpanAttrMatchCount = "kubequery.match_count"

	// SpanAttrOracleUsed indicates whether the NL oracle contributed to the parse.
	SpanAttrOracleUsed = "kubequery.oracle_used"

	// SpanAttrNamespace is the Kubernetes namespace.
	SpanAttrNamespace = "k8s.namespace"

	// SpanAttrResourceType is the Kubernetes resource type.
	SpanAttrResourceType = "k8s.resource_type"

	// SpanAttrResourceName is the Kubernetes resource name.
	SpanAttrResourceName = "k8s.resource_name"

	// SpanAttrOperation is the operation type (list, diagnose, resolve, etc.).
	SpanAttrOperation = "k8s.operation"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming and cardinality controls.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 10),
	}
}

// WithTool adds the tool or endpoint name attribute.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrTool, tool))
	return b
}

// WithCluster adds cluster attributes with cardinality control.
// Adds both the full cluster identifier and classified type.
func (b *SpanAttributeBuilder) WithCluster(clusterName string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs,
		attribute.String(SpanAttrCluster, clusterName),
		attribute.String(SpanAttrClusterType, ClassifyClusterName(clusterName)),
	)
	return b
}

// WithClusterType adds only the classified cluster type (for lower cardinality).
func (b *SpanAttributeBuilder) WithClusterType(clusterName string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs,
		attribute.String(SpanAttrClusterType, ClassifyClusterName(clusterName)),
	)
	return b
}

// WithAction adds the agent action attribute.
func (b *SpanAttributeBuilder) WithAction(action string) *SpanAttributeBuilder {
	if action != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrAction, action))
	}
	return b
}

// WithConfidence adds the intent extraction confidence attribute.
func (b *SpanAttributeBuilder) WithConfidence(confidence float64) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Float64(SpanAttrConfidence, confidence))
	return b
}

// WithMatchCount adds the match count attribute.
func (b *SpanAttributeBuilder) WithMatchCount(count int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrMatchCount, count))
	return b
}

// WithOracleUsed adds the oracle usage indicator attribute.
func (b *SpanAttributeBuilder) WithOracleUsed(used bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrOracleUsed, used))
	return b
}

// WithNamespace adds the Kubernetes namespace attribute.
func (b *SpanAttributeBuilder) WithNamespace(namespace string) *SpanAttributeBuilder {
	if namespace != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrNamespace, namespace))
	}
	return b
}

// WithResource adds Kubernetes resource attributes.
func (b *SpanAttributeBuilder) WithResource(resourceType, resourceName string) *SpanAttributeBuilder {
	if resourceType != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrResourceType, resourceType))
	}
	if resourceName != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrResourceName, resourceName))
	}
	return b
}

// WithOperation adds the operation type attribute.
func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrOperation, operation))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// Returns the context with the span and the span itself.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a span for a tool or endpoint invocation.
// Automatically adds the tool name and sets the server span kind.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartQuerySpan starts a span for a query pipeline stage
// (extract, build, resolve, execute, compose).
func StartQuerySpan(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "query."+stage,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartClusterSpan starts a span for per-cluster operations.
// Includes cluster attributes and sets the client span kind.
func StartClusterSpan(ctx context.Context, operation, clusterName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+3)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrOperation, operation),
		attribute.String(SpanAttrCluster, clusterName),
		attribute.String(SpanAttrClusterType, ClassifyClusterName(clusterName)),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "cluster."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartK8sSpan starts a span for Kubernetes API operations.
// Includes operation and resource attributes.
func StartK8sSpan(ctx context.Context, operation, resourceType, namespace string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+3)
	allAttrs = append(allAttrs, attribute.String(SpanAttrOperation, operation))
	if resourceType != "" {
		allAttrs = append(allAttrs, attribute.String(SpanAttrResourceType, resourceType))
	}
	if namespace != "" {
		allAttrs = append(allAttrs, attribute.String(SpanAttrNamespace, namespace))
	}
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "k8s."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}

// SpanContextString returns a human-readable trace context string.
// Format: "trace_id=X span_id=Y" or empty string if no valid context.
func SpanContextString(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return "trace_id=" + span.SpanContext().TraceID().String() +
		" span_id=" + span.SpanContext().SpanID().String()
}
