package instrumentation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel/attribute"
)

// meterName identifies the instrumentation scope for all kubequery metrics.
const meterName = "github.com/opsloom/kubequery"

// Provider owns the OpenTelemetry meter and tracer providers for the server.
// A disabled provider is fully functional: every recording method is a no-op
// and Shutdown returns nil, so callers never need to branch on whether
// instrumentation is configured.
type Provider struct {
	config  Config
	metrics *Metrics
	audit   *AuditLogger

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// NewProvider creates a Provider from the given configuration. When the
// configuration is disabled the returned provider records nothing and
// installs no global OpenTelemetry state.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	p := &Provider{
		config:  config,
		metrics: &Metrics{},
	}

	if !config.Enabled {
		return p, nil
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}

	res, err := newResource(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := p.initMetrics(ctx, res); err != nil {
		return nil, err
	}

	if err := p.initTracing(ctx, res); err != nil {
		// Roll back the meter provider so a half-initialized provider
		// does not leak exporters.
		_ = p.Shutdown(ctx)
		return nil, err
	}

	p.audit = NewAuditLogger(nil)

	return p, nil
}

// newResource builds the OpenTelemetry resource describing this process.
func newResource(config Config) (*sdkresource.Resource, error) {
	return sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewSchemaless(
			attribute.String("service.name", config.ServiceName),
			attribute.String("service.version", config.ServiceVersion),
		),
	)
}

// initMetrics wires the configured metrics exporter into a meter provider
// and creates the Metrics recorder.
func (p *Provider) initMetrics(ctx context.Context, res *sdkresource.Resource) error {
	var reader sdkmetric.Reader

	switch p.config.MetricsExporter {
	case ExporterPrometheus:
		// The prometheus exporter registers with the default registerer,
		// so promhttp.Handler() serves these metrics.
		exporter, err := promexporter.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter

	case ExporterStdout:
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricInterval))

	case ExporterOTLP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(p.config.OTLPEndpoint)}
		if p.config.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricInterval))

	case ExporterNone:
		// Metrics stay no-op; tracing may still be configured.
		return nil
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(p.meterProvider)

	metrics, err := NewMetrics(p.meterProvider.Meter(meterName), p.config.DetailedLabels)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	p.metrics = metrics

	return nil
}

// initTracing wires the configured trace exporter into a tracer provider and
// installs it globally so the span helpers in this package pick it up.
func (p *Provider) initTracing(ctx context.Context, res *sdkresource.Resource) error {
	var exporter sdktrace.SpanExporter

	switch p.config.TracingExporter {
	case ExporterNone:
		return nil

	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		exporter = exp

	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(p.config.OTLPEndpoint)}
		if p.config.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		exporter = exp
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.config.TraceSamplingRate))),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return nil
}

// Enabled reports whether instrumentation is active.
func (p *Provider) Enabled() bool {
	return p != nil && p.config.Enabled
}

// Metrics returns the metrics recorder. On a disabled provider the recorder
// is a no-op, never nil.
func (p *Provider) Metrics() *Metrics {
	if p == nil {
		return &Metrics{}
	}
	return p.metrics
}

// AuditLogger returns the audit logger, or nil when instrumentation is disabled.
func (p *Provider) AuditLogger() *AuditLogger {
	if p == nil {
		return nil
	}
	return p.audit
}

// MetricsExporter returns the configured metrics exporter name, or empty when
// instrumentation is disabled.
func (p *Provider) MetricsExporter() string {
	if !p.Enabled() {
		return ""
	}
	return p.config.MetricsExporter
}

// TracingExporter returns the configured tracing exporter name, or empty when
// instrumentation is disabled.
func (p *Provider) TracingExporter() string {
	if !p.Enabled() {
		return ""
	}
	return p.config.TracingExporter
}

// PrometheusEnabled reports whether the provider exports metrics through the
// Prometheus registry, meaning the server should mount a scrape endpoint.
func (p *Provider) PrometheusEnabled() bool {
	return p.Enabled() && p.config.MetricsExporter == ExporterPrometheus
}

// PrometheusEndpoint returns the HTTP path for the Prometheus scrape endpoint.
func (p *Provider) PrometheusEndpoint() string {
	if p == nil || p.config.PrometheusEndpoint == "" {
		return "/metrics"
	}
	return p.config.PrometheusEndpoint
}

// Shutdown flushes and stops the meter and tracer providers. It is safe to
// call on a nil or disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error

	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down tracer provider: %w", err))
		}
		p.tracerProvider = nil
	}

	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down meter provider: %w", err))
		}
		p.meterProvider = nil
	}

	return errors.Join(errs...)
}
