package cluster

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for resolver failures. Check with errors.Is().
var (
	// ErrUnknownCluster indicates a cluster hint that does not resolve to
	// any configured cluster.
	ErrUnknownCluster = errors.New("unknown cluster")

	// ErrCredentialsUnavailable indicates that a cluster's kubeconfig could
	// not be loaded or parsed.
	ErrCredentialsUnavailable = errors.New("cluster credentials unavailable")
)

// UnknownClusterError is the request-level failure for an unresolvable
// hint. It carries enough context for a useful message: the hint itself and
// the ids that would have resolved.
type UnknownClusterError struct {
	Hint  string
	Known []string
}

// Error implements the error interface.
func (e *UnknownClusterError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown cluster %q: no clusters configured", e.Hint)
	}
	return fmt.Sprintf("unknown cluster %q: configured clusters are %s", e.Hint, strings.Join(e.Known, ", "))
}

// Unwrap returns the sentinel for use with errors.Is().
func (e *UnknownClusterError) Unwrap() error {
	return ErrUnknownCluster
}

// UserFacingError returns a message safe to show to end users. kubequery is
// an operator-facing tool, so listing the configured ids is more helpful
// than hiding them.
func (e *UnknownClusterError) UserFacingError() string {
	return e.Error()
}

// CredentialError records why one cluster's credentials failed to load.
type CredentialError struct {
	ClusterID string
	Source    string
	Err       error
}

// Error implements the error interface.
func (e *CredentialError) Error() string {
	return fmt.Sprintf("loading credentials for cluster %q from %s: %v", e.ClusterID, e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Is matches the ErrCredentialsUnavailable sentinel.
func (e *CredentialError) Is(target error) bool {
	return target == ErrCredentialsUnavailable
}
