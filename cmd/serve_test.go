package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmdProperties(t *testing.T) {
	cmd := newServeCmd()

	assert.Equal(t, "serve", cmd.Use)
	assert.Equal(t, "Start the kubequery server", cmd.Short)
	assert.True(t, strings.Contains(cmd.Long, "http"))
	assert.True(t, strings.Contains(cmd.Long, "stdio"))
	assert.True(t, strings.Contains(cmd.Long, "registry"))
	assert.True(t, strings.Contains(cmd.Long, "Gemini"))
}

func TestServeCmdFlags(t *testing.T) {
	cmd := newServeCmd()

	// Test that all expected flags exist
	flagNames := []string{
		"transport",
		"http-addr",
		"cluster-registry",
		"cluster-timeout",
		"qps-limit",
		"burst-limit",
		"gemini-api-key",
		"gemini-model",
		"log-level",
		"log-format",
		"enable-hsts",
		"allowed-origins",
	}

	for _, flagName := range flagNames {
		flag := cmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "Flag %s should exist", flagName)
	}
}

func TestServeCmdFlagDefaults(t *testing.T) {
	cmd := newServeCmd()

	// Test flag default values
	tests := []struct {
		flagName string
		expected string
	}{
		{"transport", "http"},
		{"http-addr", ":8080"},
		{"cluster-registry", ""},
		{"cluster-timeout", "15s"},
		{"qps-limit", "20"},
		{"burst-limit", "30"},
		{"gemini-api-key", ""},
		{"gemini-model", "gemini-1.5-flash"},
		{"log-level", "info"},
		{"log-format", "json"},
		{"enable-hsts", "false"},
	}

	for _, test := range tests {
		flag := cmd.Flags().Lookup(test.flagName)
		require.NotNil(t, flag, "Flag %s should exist", test.flagName)
		assert.Equal(t, test.expected, flag.DefValue,
			"Flag %s should have default value %s", test.flagName, test.expected)
	}
}

func TestRunServeRejectsUnknownTransport(t *testing.T) {
	// Transport validation runs before anything is assembled, so an
	// invalid value fails fast with no side effects.
	tests := []struct {
		name      string
		transport string
	}{
		{"empty transport", ""},
		{"sse transport", "sse"},
		{"streamable-http transport", "streamable-http"},
		{"arbitrary transport", "tcp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runServe(ServeConfig{Transport: tt.transport})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unsupported transport type")
			assert.Contains(t, err.Error(), "http, stdio")
		})
	}
}

func TestServeCmdFlagUsage(t *testing.T) {
	cmd := newServeCmd()

	// Test that help text contains transport information
	usage := cmd.UsageString()
	assert.Contains(t, usage, "--transport")
	assert.Contains(t, usage, "http or stdio")
	assert.Contains(t, usage, "--cluster-registry")
}

func TestServeCmdTransportSpecificFlags(t *testing.T) {
	cmd := newServeCmd()

	httpAddrFlag := cmd.Flags().Lookup("http-addr")
	assert.Contains(t, httpAddrFlag.Usage, "HTTP server address")
	assert.Contains(t, httpAddrFlag.Usage, "http transport")

	registryFlag := cmd.Flags().Lookup("cluster-registry")
	assert.Contains(t, registryFlag.Usage, "cluster registry YAML")

	originsFlag := cmd.Flags().Lookup("allowed-origins")
	assert.Contains(t, originsFlag.Usage, "CORS allow list")
}
