package engine

import (
	"github.com/opsloom/kubequery/internal/k8s"
)

// Match is one resource that satisfied the filter, tagged with the
// cluster it came from.
type Match struct {
	ClusterID string `json:"cluster_id"`
	k8s.ResourceRecord
}

// ClusterError records one cluster that could not be queried. The
// result carries at most one entry per failed cluster.
type ClusterError struct {
	ClusterID string          `json:"cluster_id"`
	Kind      k8s.FailureKind `json:"kind"`
	Message   string          `json:"message"`
}

// Result is the merged outcome of a query across clusters.
//
// Matched is ordered by (cluster_id ascending, created_at descending,
// name ascending) and PerClusterErrors by cluster_id, so identical
// inputs against identical cluster state produce byte-identical
// results. Zero matches with zero errors is a valid outcome, not an
// error; both slices are always non-nil so they serialize as [].
type Result struct {
	Matched          []Match        `json:"matched"`
	PerClusterErrors []ClusterError `json:"per_cluster_errors"`
	TotalConsidered  int            `json:"total_considered"`
}
