package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/rest"

	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/engine"
	"github.com/opsloom/kubequery/internal/nlq"
	"github.com/opsloom/kubequery/internal/query"
)

type staticCreds struct{}

func (staticCreds) RESTConfig(ctx context.Context, entry cluster.Entry) (*rest.Config, error) {
	return &rest.Config{Host: "https://example"}, nil
}

type fakeExecutor struct {
	result   *engine.Result
	err      error
	spec     query.FilterSpec
	clusters []cluster.Context
}

func (f *fakeExecutor) Execute(ctx context.Context, spec query.FilterSpec, clusters []cluster.Context) (*engine.Result, error) {
	f.spec = spec
	f.clusters = clusters
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &engine.Result{Matched: []engine.Match{}, PerClusterErrors: []engine.ClusterError{}}, nil
}

func testRegistry(t *testing.T, ids ...string) *cluster.Registry {
	t.Helper()
	entries := make([]cluster.Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, cluster.Entry{ID: id})
	}
	reg, err := cluster.NewRegistry(entries, cluster.WithCredentialSource(staticCreds{}))
	require.NoError(t, err)
	return reg
}

func requiredOptions(t *testing.T) []Option {
	t.Helper()
	return []Option{
		WithRegistry(testRegistry(t, "default")),
		WithExtractor(nlq.NewExtractor()),
		WithExecutor(&fakeExecutor{}),
	}
}

func TestNewServerContextDefaults(t *testing.T) {
	sc, err := NewServerContext(context.Background(), requiredOptions(t)...)
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	config := sc.Config()
	assert.Equal(t, "kubequery", config.ServerName)
	assert.Equal(t, "0.1.0", config.Version)
	assert.Equal(t, ":8080", config.HTTPAddr)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "json", config.LogFormat)

	assert.NotNil(t, sc.Registry())
	assert.NotNil(t, sc.Extractor())
	assert.NotNil(t, sc.Executor())
	assert.NotNil(t, sc.Logger())
	assert.Nil(t, sc.Agent())
	assert.Nil(t, sc.InstrumentationProvider())
	assert.False(t, sc.IsShutdown())
}

func TestNewServerContextMissingDependencies(t *testing.T) {
	tests := []struct {
		name     string
		opts     func(t *testing.T) []Option
		expected error
	}{
		{
			name:     "no options",
			opts:     func(t *testing.T) []Option { return nil },
			expected: ErrMissingRegistry,
		},
		{
			name: "registry only",
			opts: func(t *testing.T) []Option {
				return []Option{WithRegistry(testRegistry(t, "default"))}
			},
			expected: ErrMissingExtractor,
		},
		{
			name: "registry and extractor",
			opts: func(t *testing.T) []Option {
				return []Option{
					WithRegistry(testRegistry(t, "default")),
					WithExtractor(nlq.NewExtractor()),
				}
			},
			expected: ErrMissingExecutor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := NewServerContext(context.Background(), tt.opts(t)...)
			assert.Nil(t, sc)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestNewServerContextRejectsNilDependencies(t *testing.T) {
	tests := []struct {
		name     string
		opt      Option
		expected error
	}{
		{"nil registry", WithRegistry(nil), ErrMissingRegistry},
		{"nil extractor", WithExtractor(nil), ErrMissingExtractor},
		{"nil executor", WithExecutor(nil), ErrMissingExecutor},
		{"nil logger", WithLogger(nil), ErrMissingLogger},
		{"nil config", WithConfig(nil), ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := NewServerContext(context.Background(), tt.opt)
			assert.Nil(t, sc)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestConfigOptions(t *testing.T) {
	opts := append(requiredOptions(t),
		WithServerName("kubequery-test"),
		WithVersion("9.9.9"),
		WithHTTPAddr(":9090"),
		WithLogLevel("debug"),
		WithLogFormat("text"),
	)

	sc, err := NewServerContext(context.Background(), opts...)
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	config := sc.Config()
	assert.Equal(t, "kubequery-test", config.ServerName)
	assert.Equal(t, "9.9.9", config.Version)
	assert.Equal(t, ":9090", config.HTTPAddr)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "text", config.LogFormat)
}

func TestWithConfigClones(t *testing.T) {
	original := NewDefaultConfig()
	original.ServerName = "custom"

	sc, err := NewServerContext(context.Background(), append(requiredOptions(t), WithConfig(original))...)
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	// Mutating the caller's config must not leak into the context.
	original.ServerName = "mutated"
	assert.Equal(t, "custom", sc.Config().ServerName)
}

func TestOracleConfigured(t *testing.T) {
	withoutOracle, err := NewServerContext(context.Background(), requiredOptions(t)...)
	require.NoError(t, err)
	defer func() { _ = withoutOracle.Shutdown() }()
	assert.False(t, withoutOracle.OracleConfigured())

	oracle := nlq.OracleFunc(func(ctx context.Context, text string) (nlq.Inference, error) {
		return nlq.Inference{}, nil
	})
	opts := []Option{
		WithRegistry(testRegistry(t, "default")),
		WithExtractor(nlq.NewExtractor(nlq.WithOracle(oracle))),
		WithExecutor(&fakeExecutor{}),
	}
	withOracle, err := NewServerContext(context.Background(), opts...)
	require.NoError(t, err)
	defer func() { _ = withOracle.Shutdown() }()
	assert.True(t, withOracle.OracleConfigured())
}

func TestShutdown(t *testing.T) {
	sc, err := NewServerContext(context.Background(), requiredOptions(t)...)
	require.NoError(t, err)

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())

	// The server context is canceled so in-flight work unwinds.
	select {
	case <-sc.Context().Done():
	default:
		t.Fatal("context not canceled after shutdown")
	}

	// Shutdown is idempotent.
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
}

func TestInstrumentationHelpersSafeWithoutProvider(t *testing.T) {
	sc, err := NewServerContext(context.Background(), requiredOptions(t)...)
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	// No provider configured: recording must be a no-op, not a panic.
	sc.RecordQuery(context.Background(), "filter", "Pod", "prod", "success", 3, time.Millisecond)
	assert.Nil(t, sc.AuditLogger())
}

func TestConfigClone(t *testing.T) {
	var nilConfig *Config
	assert.Nil(t, nilConfig.Clone())

	original := NewDefaultConfig()
	clone := original.Clone()
	require.NotSame(t, original, clone)

	clone.ServerName = "changed"
	assert.Equal(t, "kubequery", original.ServerName)
}
