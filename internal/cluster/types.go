package cluster

import (
	"strings"

	"k8s.io/client-go/rest"
)

// Context is the resolved handle for one target cluster. The engine borrows
// it for the duration of a single request; nothing mutates a Context after
// Resolve returns it except the Reachable flag, which the engine sets once
// it has talked to the cluster.
type Context struct {
	// ClusterID is the registry identifier, unique per registry.
	ClusterID string

	// CredentialRef is the opaque credential handle. A nil ref means
	// credentials could not be loaded; the fetch engine records that as a
	// per-cluster auth failure instead of aborting the request.
	CredentialRef *rest.Config

	// Reachable is populated lazily by the fetch engine once it has talked
	// to the cluster. The resolver performs no network probing.
	Reachable bool
}

// Entry is one configured cluster in the registry file.
type Entry struct {
	// ID names the cluster in hints, results and error maps.
	ID string `yaml:"id"`

	// Kubeconfig locates the credentials: a local file path, a
	// gs://bucket/key object reference, or empty for the standard
	// kubeconfig loading rules ($KUBECONFIG, ~/.kube/config).
	Kubeconfig string `yaml:"kubeconfig,omitempty"`

	// Context optionally selects a kubeconfig context other than the
	// file's current-context.
	Context string `yaml:"context,omitempty"`
}

// SourceKind classifies where the entry's credentials come from:
// "default" for the standard loading rules, "gcs" for object storage,
// "file" for a local path.
func (e Entry) SourceKind() string {
	switch {
	case e.Kubeconfig == "":
		return "default"
	case strings.HasPrefix(e.Kubeconfig, gsScheme):
		return "gcs"
	default:
		return "file"
	}
}

// DefaultClusterID names the implicit single cluster used when no registry
// file is configured.
const DefaultClusterID = "default"
