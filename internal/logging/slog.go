package logging

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Attribute keys shared across the codebase so log streams stay greppable.
const (
	KeyOperation    = "operation"
	KeyQuery        = "query"
	KeyCluster      = "cluster"
	KeyNamespace    = "namespace"
	KeyResourceType = "resource_type"
	KeyResourceName = "resource_name"
	KeyDuration     = "duration"
	KeyStatus       = "status"
	KeyError        = "error"
)

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Query returns a slog attribute for the raw query text.
func Query(text string) slog.Attr {
	return slog.String(KeyQuery, text)
}

// Cluster returns a slog attribute for the cluster identifier.
func Cluster(name string) slog.Attr {
	return slog.String(KeyCluster, name)
}

// Namespace returns a slog attribute for the namespace.
func Namespace(ns string) slog.Attr {
	return slog.String(KeyNamespace, ns)
}

// ResourceType returns a slog attribute for the resource type.
func ResourceType(rt string) slog.Attr {
	return slog.String(KeyResourceType, rt)
}

// ResourceName returns a slog attribute for the resource name.
func ResourceName(name string) slog.Attr {
	return slog.String(KeyResourceName, name)
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizedErr returns a slog attribute for an error with IP addresses
// redacted. Use it for errors that may contain API server responses,
// which could leak network topology information.
func SanitizedErr(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, SanitizeHost(err.Error()))
}

var (
	ipv4Regex = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

	// ipv6Regex covers the full, compressed and bracketed URL forms.
	// The leading group must be non-empty so bare ":port:" runs left
	// over after IPv4 redaction never match.
	ipv6Regex = regexp.MustCompile(`\[?[0-9a-fA-F]{1,4}(?::[0-9a-fA-F]{0,4}){2,7}\]?`)
)

// SanitizeHost redacts IPv4 and IPv6 addresses while preserving
// hostnames, schemes and ports.
//
// Examples:
//   - "https://192.168.1.100:6443" -> "https://<redacted-ip>:6443"
//   - "https://api.cluster.example.com:6443" -> unchanged
//   - "" -> "<empty>"
func SanitizeHost(host string) string {
	if host == "" {
		return "<empty>"
	}

	redactIPs := func(s string) string {
		result := ipv4Regex.ReplaceAllString(s, "<redacted-ip>")
		result = ipv6Regex.ReplaceAllString(result, "<redacted-ip>")
		return result
	}

	if !strings.Contains(host, "://") {
		return redactIPs(host)
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return redactIPs(host)
	}

	if ipv4Regex.MatchString(parsed.Host) || ipv6Regex.MatchString(parsed.Host) {
		parsed.Host = redactIPs(parsed.Host)
		return parsed.String()
	}

	return host
}
