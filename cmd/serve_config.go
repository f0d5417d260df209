package cmd

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Environment variable names recognized by the serve command. Flags win
// when explicitly set; the environment fills in the rest. GEMINI_API_KEY
// deliberately has no KUBEQUERY_ prefix so the same variable works for
// other Gemini tooling.
const (
	envTransport      = "KUBEQUERY_TRANSPORT"
	envHTTPAddr       = "KUBEQUERY_HTTP_ADDR"
	envRegistryPath   = "KUBEQUERY_CLUSTER_REGISTRY"
	envClusterTimeout = "KUBEQUERY_CLUSTER_TIMEOUT"
	envQPSLimit       = "KUBEQUERY_QPS_LIMIT"
	envBurstLimit     = "KUBEQUERY_BURST_LIMIT"
	envLogLevel       = "KUBEQUERY_LOG_LEVEL"
	envLogFormat      = "KUBEQUERY_LOG_FORMAT"
	envGeminiAPIKey   = "GEMINI_API_KEY"
	envGeminiModel    = "KUBEQUERY_GEMINI_MODEL"
	envEnableHSTS     = "KUBEQUERY_ENABLE_HSTS"
	envAllowedOrigins = "KUBEQUERY_ALLOWED_ORIGINS"
)

// ServeConfig holds all configuration for the serve command.
type ServeConfig struct {
	// Transport settings
	Transport string
	HTTPAddr  string

	// Cluster registry settings
	RegistryPath   string
	ClusterTimeout time.Duration

	// Kubernetes client settings
	QPSLimit   float32
	BurstLimit int

	// Oracle settings
	GeminiAPIKey string
	GeminiModel  string

	// Logging settings
	LogLevel  string
	LogFormat string

	// HTTP hardening
	EnableHSTS     bool
	AllowedOrigins []string
}

// loadEnvIfEmpty loads an environment variable into a string pointer if it's empty.
func loadEnvIfEmpty(target *string, envKey string) {
	if *target == "" {
		*target = os.Getenv(envKey)
	}
}

// parseDurationEnv parses a duration from an environment variable value.
// Returns the parsed duration and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseDurationEnv(value, envName string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q: %v", envName, value, err)
		return 0, false
	}
	return d, true
}

// parseIntEnv parses an integer from an environment variable value.
// Returns the parsed int and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseIntEnv(value, envName string) (int, bool) {
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q: %v", envName, value, err)
		return 0, false
	}
	return n, true
}

// parseFloat32Env parses a float32 from an environment variable value.
// Returns the parsed float and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseFloat32Env(value, envName string) (float32, bool) {
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		log.Printf("Warning: invalid float for %s=%q: %v", envName, value, err)
		return 0, false
	}
	return float32(f), true
}

// parseBoolEnv parses a boolean from an environment variable value.
// Returns the parsed bool and true if successful, or false and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseBoolEnv(value, envName string) (bool, bool) {
	if value == "" {
		return false, false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean for %s=%q: %v", envName, value, err)
		return false, false
	}
	return b, true
}

// splitOrigins turns a comma-separated origin list into a slice, trimming
// whitespace and dropping empty elements.
func splitOrigins(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// loadServeEnvVars fills serve configuration from environment variables.
// Environment variables only override flag values when the flag was not
// explicitly set. The cmd parameter is used to check if flags were
// explicitly set by the user.
func loadServeEnvVars(cmd *cobra.Command, config *ServeConfig) {
	if !cmd.Flags().Changed("transport") {
		if transport := os.Getenv(envTransport); transport != "" {
			config.Transport = transport
		}
	}
	if !cmd.Flags().Changed("http-addr") {
		if addr := os.Getenv(envHTTPAddr); addr != "" {
			config.HTTPAddr = addr
		}
	}
	if !cmd.Flags().Changed("cluster-registry") {
		loadEnvIfEmpty(&config.RegistryPath, envRegistryPath)
	}
	if !cmd.Flags().Changed("cluster-timeout") {
		if d, ok := parseDurationEnv(os.Getenv(envClusterTimeout), envClusterTimeout); ok {
			config.ClusterTimeout = d
		}
	}
	if !cmd.Flags().Changed("qps-limit") {
		if f, ok := parseFloat32Env(os.Getenv(envQPSLimit), envQPSLimit); ok {
			config.QPSLimit = f
		}
	}
	if !cmd.Flags().Changed("burst-limit") {
		if n, ok := parseIntEnv(os.Getenv(envBurstLimit), envBurstLimit); ok {
			config.BurstLimit = n
		}
	}
	if !cmd.Flags().Changed("log-level") {
		if level := os.Getenv(envLogLevel); level != "" {
			config.LogLevel = level
		}
	}
	if !cmd.Flags().Changed("log-format") {
		if format := os.Getenv(envLogFormat); format != "" {
			config.LogFormat = format
		}
	}
	if !cmd.Flags().Changed("gemini-api-key") {
		loadEnvIfEmpty(&config.GeminiAPIKey, envGeminiAPIKey)
	}
	if !cmd.Flags().Changed("gemini-model") {
		if model := os.Getenv(envGeminiModel); model != "" {
			config.GeminiModel = model
		}
	}
	// This properly handles the case where the user explicitly sets
	// --enable-hsts=false.
	if !cmd.Flags().Changed("enable-hsts") {
		if b, ok := parseBoolEnv(os.Getenv(envEnableHSTS), envEnableHSTS); ok {
			config.EnableHSTS = b
		}
	}
	if !cmd.Flags().Changed("allowed-origins") && len(config.AllowedOrigins) == 0 {
		if origins := os.Getenv(envAllowedOrigins); origins != "" {
			config.AllowedOrigins = splitOrigins(origins)
		}
	}
}
