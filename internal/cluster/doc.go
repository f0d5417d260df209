// Package cluster resolves cluster hints to credentialed cluster contexts.
//
// A Registry holds the configured clusters, loaded from a small YAML file or
// defaulted to the single local kubeconfig. Resolve maps a hint ("all", a
// cluster id, or nothing) to an ordered list of Contexts carrying opaque
// credential handles. Credentials come from a per-entry source chain: a
// local file path, a gs://bucket/key object, or the standard kubeconfig
// loading rules when no path is configured.
//
// Resolution is deliberately cheap and total: only an unresolvable hint is
// an error. A cluster whose credentials cannot be loaded still resolves,
// with a nil handle, so the fetch engine can report it as a per-cluster
// failure alongside results from healthy clusters.
package cluster
