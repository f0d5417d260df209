package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		attr slog.Attr
		key  string
		want string
	}{
		{Operation("query.execute"), KeyOperation, "query.execute"},
		{Query("show me pods created yesterday"), KeyQuery, "show me pods created yesterday"},
		{Cluster("prod-eu"), KeyCluster, "prod-eu"},
		{Namespace("payments"), KeyNamespace, "payments"},
		{ResourceType("pods"), KeyResourceType, "pods"},
		{ResourceName("web-1"), KeyResourceName, "web-1"},
		{Duration(250 * time.Millisecond), KeyDuration, "250ms"},
		{Status("success"), KeyStatus, "success"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.want, tt.attr.Value.String())
		})
	}
}

func TestErrAttributes(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		attr := Err(nil)
		assert.Equal(t, KeyError, attr.Key)
		assert.Equal(t, "", attr.Value.String())
	})

	t.Run("error message", func(t *testing.T) {
		attr := Err(fmt.Errorf("registry unavailable"))
		assert.Equal(t, "registry unavailable", attr.Value.String())
	})

	t.Run("sanitized redacts IPs", func(t *testing.T) {
		attr := SanitizedErr(fmt.Errorf("failed to connect to https://192.168.1.100:6443: connection refused"))
		assert.Equal(t, KeyError, attr.Key)
		assert.NotContains(t, attr.Value.String(), "192.168.1.100")
		assert.Contains(t, attr.Value.String(), "<redacted-ip>")
		assert.Contains(t, attr.Value.String(), "connection refused")
	})

	t.Run("sanitized preserves hostnames", func(t *testing.T) {
		attr := SanitizedErr(fmt.Errorf("failed to connect to https://api.cluster.example.com:6443"))
		assert.Contains(t, attr.Value.String(), "api.cluster.example.com")
	})

	t.Run("sanitized nil error", func(t *testing.T) {
		assert.Equal(t, "", SanitizedErr(nil).Value.String())
	})
}

func TestSanitizeHost(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{"empty host", "", "<empty>"},
		{"bare IPv4", "192.168.1.100", "<redacted-ip>"},
		{"URL with IPv4", "https://192.168.1.100:6443", "https://<redacted-ip>:6443"},
		{"URL with hostname", "https://api.cluster.example.com:6443", "https://api.cluster.example.com:6443"},
		{"bare IPv6", "2001:db8::1", "<redacted-ip>"},
		{"URL with bracketed IPv6", "https://[2001:db8::1]:6443", "https://<redacted-ip>:6443"},
		{"IP inside message text", "dial tcp 10.0.3.7:6443: i/o timeout", "dial tcp <redacted-ip>:6443: i/o timeout"},
		{"port runs survive redaction", "connect: dial tcp 172.16.0.1:443: connection refused", "connect: dial tcp <redacted-ip>:443: connection refused"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeHost(tc.host))
		})
	}
}

func TestSetup(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup(&buf, "info", "json")
		logger.Info("hello", Operation("test"))

		assert.Contains(t, buf.String(), `"operation":"test"`)
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup(&buf, "info", "text")
		logger.Info("hello", Operation("test"))

		assert.Contains(t, buf.String(), "operation=test")
	})

	t.Run("debug level enables debug lines", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup(&buf, "debug", "text")
		logger.Debug("noisy")

		assert.Contains(t, buf.String(), "noisy")
	})

	t.Run("default level suppresses debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup(&buf, "", "text")
		logger.Debug("noisy")

		assert.Empty(t, buf.String())
	})

	t.Run("unknown inputs fall back", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Setup(&buf, "shout", "yaml")
		logger.Info("hello")

		assert.Contains(t, buf.String(), "hello")
	})
}
