// Package engine executes a validated filter against a set of resolved
// clusters. It fans out one fetch per cluster, applies the filter
// client-side to normalized records, and merges everything into a
// single result with deterministic ordering.
//
// Failure isolation is the core contract: a cluster that cannot be
// reached, authenticated against, or listed in time contributes a
// per-cluster error entry and nothing else. One bad cluster never
// fails the request and never cancels the fetches of its siblings.
package engine
