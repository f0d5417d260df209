package instrumentation

import (
	"strings"
	"testing"
)

// clearInstrumentationEnv blanks every variable DefaultConfig reads, with
// automatic restore. The getters treat empty as unset.
func clearInstrumentationEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OTEL_SERVICE_NAME",
		"INSTRUMENTATION_ENABLED",
		"METRICS_EXPORTER",
		"TRACING_EXPORTER",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_TRACES_SAMPLER_ARG",
		"PROMETHEUS_ENDPOINT",
		"METRICS_DETAILED_LABELS",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	clearInstrumentationEnv(t)

	want := Config{
		ServiceName:        "kubequery",
		ServiceVersion:     "unknown",
		Enabled:            false,
		MetricsExporter:    ExporterPrometheus,
		TracingExporter:    ExporterNone,
		TraceSamplingRate:  0.1,
		PrometheusEndpoint: "/metrics",
	}

	if got := DefaultConfig(); got != want {
		t.Errorf("DefaultConfig() = %+v, want %+v", got, want)
	}
}

func TestDefaultConfigReadsEnv(t *testing.T) {
	clearInstrumentationEnv(t)
	t.Setenv("OTEL_SERVICE_NAME", "kubequery-staging")
	t.Setenv("INSTRUMENTATION_ENABLED", "true")
	t.Setenv("METRICS_EXPORTER", "otlp")
	t.Setenv("TRACING_EXPORTER", "otlp")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://otel-collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("PROMETHEUS_ENDPOINT", "/internal/metrics")
	t.Setenv("METRICS_DETAILED_LABELS", "true")

	want := Config{
		ServiceName:        "kubequery-staging",
		ServiceVersion:     "unknown",
		Enabled:            true,
		MetricsExporter:    ExporterOTLP,
		TracingExporter:    ExporterOTLP,
		OTLPEndpoint:       "http://otel-collector:4318",
		OTLPInsecure:       true,
		TraceSamplingRate:  0.5,
		PrometheusEndpoint: "/internal/metrics",
		DetailedLabels:     true,
	}

	if got := DefaultConfig(); got != want {
		t.Errorf("DefaultConfig() = %+v, want %+v", got, want)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "baseline is valid", mutate: func(*Config) {}},
		{
			name:    "sampling rate above one",
			mutate:  func(c *Config) { c.TraceSamplingRate = 1.5 },
			wantErr: "sampling rate",
		},
		{
			name:    "negative sampling rate",
			mutate:  func(c *Config) { c.TraceSamplingRate = -0.1 },
			wantErr: "sampling rate",
		},
		{
			name:    "unknown metrics exporter",
			mutate:  func(c *Config) { c.MetricsExporter = "statsd" },
			wantErr: "metrics exporter",
		},
		{
			name:    "unknown tracing exporter",
			mutate:  func(c *Config) { c.TracingExporter = "jaeger" },
			wantErr: "tracing exporter",
		},
		{
			name:    "prometheus is not a tracing exporter",
			mutate:  func(c *Config) { c.TracingExporter = ExporterPrometheus },
			wantErr: "tracing exporter",
		},
		{
			name:    "otlp metrics need an endpoint",
			mutate:  func(c *Config) { c.MetricsExporter = ExporterOTLP },
			wantErr: "OTEL_EXPORTER_OTLP_ENDPOINT",
		},
		{
			name:    "otlp tracing needs an endpoint",
			mutate:  func(c *Config) { c.TracingExporter = ExporterOTLP },
			wantErr: "OTEL_EXPORTER_OTLP_ENDPOINT",
		},
		{
			name: "otlp with endpoint is valid",
			mutate: func(c *Config) {
				c.MetricsExporter = ExporterOTLP
				c.TracingExporter = ExporterOTLP
				c.OTLPEndpoint = "http://otel-collector:4318"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				ServiceName:       "kubequery",
				MetricsExporter:   ExporterPrometheus,
				TracingExporter:   ExporterNone,
				TraceSamplingRate: 0.1,
			}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		t.Setenv("KUBEQUERY_TEST_STR", "")
		if got := getEnvOrDefault("KUBEQUERY_TEST_STR", "fallback"); got != "fallback" {
			t.Errorf("unset: got %q, want fallback", got)
		}
		t.Setenv("KUBEQUERY_TEST_STR", "custom")
		if got := getEnvOrDefault("KUBEQUERY_TEST_STR", "fallback"); got != "custom" {
			t.Errorf("set: got %q, want custom", got)
		}
	})

	t.Run("bool", func(t *testing.T) {
		t.Setenv("KUBEQUERY_TEST_BOOL", "")
		if !getEnvBoolOrDefault("KUBEQUERY_TEST_BOOL", true) {
			t.Error("unset: want default true")
		}
		t.Setenv("KUBEQUERY_TEST_BOOL", "false")
		if getEnvBoolOrDefault("KUBEQUERY_TEST_BOOL", true) {
			t.Error("set to false: want false")
		}
		t.Setenv("KUBEQUERY_TEST_BOOL", "not-a-bool")
		if !getEnvBoolOrDefault("KUBEQUERY_TEST_BOOL", true) {
			t.Error("unparseable: want default true")
		}
	})

	t.Run("float", func(t *testing.T) {
		t.Setenv("KUBEQUERY_TEST_FLOAT", "")
		if got := getEnvFloatOrDefault("KUBEQUERY_TEST_FLOAT", 0.25); got != 0.25 {
			t.Errorf("unset: got %g, want 0.25", got)
		}
		t.Setenv("KUBEQUERY_TEST_FLOAT", "0.8")
		if got := getEnvFloatOrDefault("KUBEQUERY_TEST_FLOAT", 0.25); got != 0.8 {
			t.Errorf("set: got %g, want 0.8", got)
		}
		t.Setenv("KUBEQUERY_TEST_FLOAT", "NaN-ish")
		if got := getEnvFloatOrDefault("KUBEQUERY_TEST_FLOAT", 0.25); got != 0.25 {
			t.Errorf("unparseable: got %g, want default 0.25", got)
		}
	})
}
