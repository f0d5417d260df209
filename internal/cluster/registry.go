package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	"k8s.io/client-go/rest"

	"github.com/opsloom/kubequery/internal/logging"
)

// AllClusters is the reserved hint that resolves to every configured
// cluster. An empty hint means the same thing.
const AllClusters = "all"

// registryFile is the on-disk registry shape.
type registryFile struct {
	Clusters []Entry `yaml:"clusters"`
}

// Registry holds the configured clusters and resolves hints to contexts.
// Credential handles are loaded on first use and cached per cluster; failed
// loads are not cached, so a cluster whose credentials appear later heals on
// the next request.
type Registry struct {
	entries []Entry
	byID    map[string]Entry
	source  CredentialSource
	logger  *slog.Logger

	mu    sync.RWMutex
	creds map[string]*rest.Config
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCredentialSource replaces the default kubeconfig loader.
func WithCredentialSource(source CredentialSource) RegistryOption {
	return func(r *Registry) {
		if source != nil {
			r.source = source
		}
	}
}

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry from explicit entries. Entry ids must be
// non-empty and unique; order is preserved for resolution.
func NewRegistry(entries []Entry, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]Entry, len(entries)),
		source:  NewKubeconfigLoader(),
		logger:  slog.Default(),
		creds:   make(map[string]*rest.Config),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, fmt.Errorf("cluster entry with empty id")
		}
		if strings.EqualFold(e.ID, AllClusters) {
			return nil, fmt.Errorf("cluster id %q is reserved", e.ID)
		}
		if _, exists := r.byID[e.ID]; exists {
			return nil, fmt.Errorf("duplicate cluster id %q", e.ID)
		}
		r.entries = append(r.entries, e)
		r.byID[e.ID] = e
	}
	return r, nil
}

// LoadRegistry reads a registry YAML file.
func LoadRegistry(path string, opts ...RegistryOption) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cluster registry %s: %w", path, err)
	}
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing cluster registry %s: %w", path, err)
	}
	if len(file.Clusters) == 0 {
		return nil, fmt.Errorf("cluster registry %s configures no clusters", path)
	}
	return NewRegistry(file.Clusters, opts...)
}

// SingleCluster creates the implicit one-cluster registry backed by the
// standard kubeconfig loading rules. Used when no registry file is
// configured.
func SingleCluster(opts ...RegistryOption) *Registry {
	r, err := NewRegistry([]Entry{{ID: DefaultClusterID}}, opts...)
	if err != nil {
		// The single static entry always validates.
		panic(err)
	}
	return r
}

// IDs returns every configured cluster id in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// Entries returns a copy of the configured entries in registry order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of configured clusters.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Resolve maps a cluster hint to an ordered sequence of Contexts.
//
// An empty hint or the reserved "all" token resolves to every configured
// cluster; anything else must match exactly one id. A hint that matches
// nothing, including "all" against an empty registry, fails with an
// UnknownClusterError. Credential loading failures do not fail resolution:
// the affected Context carries a nil CredentialRef for the engine to report
// as a per-cluster failure.
func (r *Registry) Resolve(ctx context.Context, hint string) ([]Context, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" || strings.EqualFold(hint, AllClusters) {
		if len(r.entries) == 0 {
			return nil, &UnknownClusterError{Hint: AllClusters}
		}
		out := make([]Context, 0, len(r.entries))
		for _, e := range r.entries {
			out = append(out, r.contextFor(ctx, e))
		}
		return out, nil
	}

	e, ok := r.byID[hint]
	if !ok {
		return nil, &UnknownClusterError{Hint: hint, Known: r.IDs()}
	}
	return []Context{r.contextFor(ctx, e)}, nil
}

func (r *Registry) contextFor(ctx context.Context, e Entry) Context {
	cfg, err := r.credentials(ctx, e)
	if err != nil {
		r.logger.Warn("cluster credentials unavailable",
			logging.Cluster(e.ID),
			logging.Err(err))
		return Context{ClusterID: e.ID}
	}
	return Context{ClusterID: e.ID, CredentialRef: cfg}
}

func (r *Registry) credentials(ctx context.Context, e Entry) (*rest.Config, error) {
	r.mu.RLock()
	cfg, ok := r.creds[e.ID]
	r.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	cfg, err := r.source.RESTConfig(ctx, e)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.creds[e.ID]; ok {
		return cached, nil
	}
	r.creds[e.ID] = cfg
	return cfg, nil
}
