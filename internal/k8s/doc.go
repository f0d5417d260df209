// Package k8s talks to Kubernetes clusters on behalf of the query
// engine. It maps resource kinds to their API group/version/resource
// coordinates, lists objects through the dynamic client with
// server-side label selection, and normalizes what comes back into
// flat ResourceRecord values that the engine can filter and order.
//
// Clients are built per cluster from the credentials resolved by the
// cluster registry and cached for the lifetime of the process. A
// singleflight group collapses concurrent construction for the same
// cluster so a fan-out across many clusters builds each client once.
//
// The package also classifies fetch failures into the coarse
// categories the engine reports per cluster: authentication failures,
// deadline overruns, and plain unreachability.
package k8s
