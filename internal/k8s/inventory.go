package k8s

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/instrumentation"
	"github.com/opsloom/kubequery/internal/logging"
	"github.com/opsloom/kubequery/internal/nlq"
)

const (
	// DefaultQPS and DefaultBurst bound client-side request rates so a
	// wide fan-out cannot hammer an API server.
	DefaultQPS   = 20.0
	DefaultBurst = 30
)

// ListOptions narrows a list call before client-side filtering runs.
// The label selector is pushed down to the API server; everything else
// the engine filters locally.
type ListOptions struct {
	// Namespace scopes the list for namespaced kinds. Empty means all
	// namespaces.
	Namespace string

	// LabelSelector is a prebuilt selector string, e.g. "app=web,tier=db".
	LabelSelector string
}

// Clients builds and caches Kubernetes clients per cluster. Both the
// dynamic client used for listing and the typed clientset used for pod
// diagnostics are cached for the lifetime of the process; construction
// for the same cluster is collapsed through a singleflight group.
type Clients struct {
	logger *slog.Logger
	qps    float32
	burst  int

	mu       sync.RWMutex
	dynamics map[string]dynamic.Interface
	typed    map[string]kubernetes.Interface

	group singleflight.Group
}

// ClientsOption configures a Clients factory.
type ClientsOption func(*Clients)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger *slog.Logger) ClientsOption {
	return func(c *Clients) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimits overrides the default client-side QPS and burst.
func WithRateLimits(qps float32, burst int) ClientsOption {
	return func(c *Clients) {
		if qps > 0 {
			c.qps = qps
		}
		if burst > 0 {
			c.burst = burst
		}
	}
}

// NewClients returns an empty client factory.
func NewClients(opts ...ClientsOption) *Clients {
	c := &Clients{
		logger:   slog.Default(),
		qps:      DefaultQPS,
		burst:    DefaultBurst,
		dynamics: make(map[string]dynamic.Interface),
		typed:    make(map[string]kubernetes.Interface),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches all objects of the given kind from one cluster and
// returns them unnormalized. Namespace scoping applies only to
// namespaced kinds; the label selector is evaluated server-side.
func (c *Clients) List(ctx context.Context, cl cluster.Context, kind nlq.Kind, opts ListOptions) ([]unstructured.Unstructured, error) {
	gvr, err := ResourceFor(kind)
	if err != nil {
		return nil, err
	}

	dyn, err := c.dynamicFor(cl)
	if err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartK8sSpan(ctx, "list", string(kind), opts.Namespace)
	defer span.End()

	listOpts := metav1.ListOptions{LabelSelector: opts.LabelSelector}

	var ri dynamic.ResourceInterface
	if kind.Info().Namespaced && opts.Namespace != "" {
		ri = dyn.Resource(gvr).Namespace(opts.Namespace)
	} else {
		ri = dyn.Resource(gvr)
	}

	list, err := ri.List(ctx, listOpts)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("list %s in cluster %s: %w", gvr.Resource, cl.ClusterID, err)
	}
	instrumentation.SetSpanSuccess(span)

	c.logger.Debug("listed resources",
		logging.Operation("list"),
		logging.Cluster(cl.ClusterID),
		logging.ResourceType(string(kind)),
		slog.Int("count", len(list.Items)))

	return list.Items, nil
}

// dynamicFor returns the cached dynamic client for a cluster, building
// it on first use.
func (c *Clients) dynamicFor(cl cluster.Context) (dynamic.Interface, error) {
	if cl.CredentialRef == nil {
		return nil, fmt.Errorf("cluster %s: %w", cl.ClusterID, ErrNoCredentials)
	}

	c.mu.RLock()
	dyn, ok := c.dynamics[cl.ClusterID]
	c.mu.RUnlock()
	if ok {
		return dyn, nil
	}

	v, err, _ := c.group.Do("dynamic:"+cl.ClusterID, func() (interface{}, error) {
		c.mu.RLock()
		dyn, ok := c.dynamics[cl.ClusterID]
		c.mu.RUnlock()
		if ok {
			return dyn, nil
		}

		built, err := dynamic.NewForConfig(c.restConfig(cl))
		if err != nil {
			return nil, fmt.Errorf("build dynamic client for cluster %s: %w", cl.ClusterID, err)
		}

		c.mu.Lock()
		c.dynamics[cl.ClusterID] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(dynamic.Interface), nil
}

// typedFor returns the cached typed clientset for a cluster, building
// it on first use.
func (c *Clients) typedFor(cl cluster.Context) (kubernetes.Interface, error) {
	if cl.CredentialRef == nil {
		return nil, fmt.Errorf("cluster %s: %w", cl.ClusterID, ErrNoCredentials)
	}

	c.mu.RLock()
	cs, ok := c.typed[cl.ClusterID]
	c.mu.RUnlock()
	if ok {
		return cs, nil
	}

	v, err, _ := c.group.Do("typed:"+cl.ClusterID, func() (interface{}, error) {
		c.mu.RLock()
		cs, ok := c.typed[cl.ClusterID]
		c.mu.RUnlock()
		if ok {
			return cs, nil
		}

		built, err := kubernetes.NewForConfig(c.restConfig(cl))
		if err != nil {
			return nil, fmt.Errorf("build clientset for cluster %s: %w", cl.ClusterID, err)
		}

		c.mu.Lock()
		c.typed[cl.ClusterID] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(kubernetes.Interface), nil
}

// restConfig copies the resolved credentials and applies rate limits.
// The registry's config is never mutated.
func (c *Clients) restConfig(cl cluster.Context) *rest.Config {
	cfg := rest.CopyConfig(cl.CredentialRef)
	cfg.QPS = c.qps
	cfg.Burst = c.burst
	return cfg
}
