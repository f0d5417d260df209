package k8s

import (
	"context"
	"errors"
	"net"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/opsloom/kubequery/internal/cluster"
)

// ErrNoCredentials marks a cluster whose registry entry resolved but
// whose credentials could not be loaded. Classified as an auth failure.
var ErrNoCredentials = errors.New("no usable credentials for cluster")

// FailureKind is the coarse category attached to a per-cluster fetch
// failure. The query result reports one entry per failed cluster.
type FailureKind string

const (
	FailureAuth        FailureKind = "AuthError"
	FailureTimeout     FailureKind = "Timeout"
	FailureUnreachable FailureKind = "ClusterUnreachable"
)

// Classify buckets a fetch error into a FailureKind. API status errors
// are checked first, then context and net timeouts, then message
// patterns for transport errors that arrive unwrapped.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoCredentials) || errors.Is(err, cluster.ErrCredentialsUnavailable) {
		return FailureAuth
	}
	if apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) {
		return FailureAuth
	}
	if errors.Is(err, context.DeadlineExceeded) || apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timed out", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, pattern) {
			return FailureTimeout
		}
	}
	for _, pattern := range []string{"unauthorized", "forbidden", "invalid bearer token", "credentials"} {
		if strings.Contains(msg, pattern) {
			return FailureAuth
		}
	}
	return FailureUnreachable
}
