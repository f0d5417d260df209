package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/instrumentation"
	"github.com/opsloom/kubequery/internal/k8s"
	"github.com/opsloom/kubequery/internal/logging"
	"github.com/opsloom/kubequery/internal/nlq"
	"github.com/opsloom/kubequery/internal/query"
)

const (
	// DefaultClusterTimeout bounds each per-cluster fetch. A slow
	// cluster times out on its own clock without delaying the others
	// past this bound.
	DefaultClusterTimeout = 15 * time.Second

	// DefaultConcurrency caps how many clusters are fetched at once.
	DefaultConcurrency = 8
)

// Inventory lists raw objects of one kind from one cluster. The
// k8s.Clients factory is the production implementation.
type Inventory interface {
	List(ctx context.Context, cl cluster.Context, kind nlq.Kind, opts k8s.ListOptions) ([]unstructured.Unstructured, error)
}

// FetchRecorder receives the outcome of every per-cluster fetch.
// *instrumentation.Metrics is the production implementation.
type FetchRecorder interface {
	RecordClusterFetch(ctx context.Context, clusterName, status string)
}

type noopFetchRecorder struct{}

func (noopFetchRecorder) RecordClusterFetch(context.Context, string, string) {}

// Engine fans a filter out across clusters and merges the results.
type Engine struct {
	inventory      Inventory
	logger         *slog.Logger
	recorder       FetchRecorder
	clusterTimeout time.Duration
	concurrency    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClusterTimeout overrides the per-cluster fetch timeout.
func WithClusterTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.clusterTimeout = timeout
		}
	}
}

// WithConcurrency overrides the fan-out width.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithFetchRecorder sets the per-cluster fetch outcome recorder.
func WithFetchRecorder(r FetchRecorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New returns an Engine backed by the given inventory.
func New(inventory Inventory, opts ...Option) *Engine {
	e := &Engine{
		inventory:      inventory,
		logger:         slog.Default(),
		recorder:       noopFetchRecorder{},
		clusterTimeout: DefaultClusterTimeout,
		concurrency:    DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute fetches, filters and merges resources from every cluster in
// the slice. Per-cluster failures of any sort are recorded in the
// result rather than returned, so the result is always usable. An
// empty cluster slice yields an empty result.
func (e *Engine) Execute(ctx context.Context, spec query.FilterSpec, clusters []cluster.Context) (*Result, error) {
	start := time.Now()
	result := &Result{
		Matched:          []Match{},
		PerClusterErrors: []ClusterError{},
	}
	if len(clusters) == 0 {
		return result, nil
	}

	ctx, span := instrumentation.StartQuerySpan(ctx, "execute",
		instrumentation.NewSpanAttributeBuilder().
			WithResource(string(spec.ResourceType), "").
			WithNamespace(spec.Namespace).
			Build()...)
	defer span.End()

	opts := k8s.ListOptions{
		Namespace:     spec.Namespace,
		LabelSelector: labelSelector(spec.LabelSelectors),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	// Each task owns one slice index, so marking reachability needs no
	// locking.
	for i := range clusters {
		cl := &clusters[i]
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, e.clusterTimeout)
			defer cancel()

			cctx, fetchSpan := instrumentation.StartClusterSpan(cctx, "fetch", cl.ClusterID)
			defer fetchSpan.End()

			items, err := e.inventory.List(cctx, *cl, spec.ResourceType, opts)
			if err != nil {
				failure := k8s.Classify(err)
				instrumentation.SetSpanError(fetchSpan, err)
				instrumentation.AddSpanEvent(span, "cluster.failed",
					attribute.String(instrumentation.SpanAttrCluster, cl.ClusterID),
					attribute.String("failure", string(failure)))
				e.logger.Warn("cluster fetch failed",
					logging.Cluster(cl.ClusterID),
					logging.ResourceType(string(spec.ResourceType)),
					slog.String("failure", string(failure)),
					logging.SanitizedErr(err))
				mu.Lock()
				result.PerClusterErrors = append(result.PerClusterErrors, ClusterError{
					ClusterID: cl.ClusterID,
					Kind:      failure,
					Message:   err.Error(),
				})
				mu.Unlock()
				e.recorder.RecordClusterFetch(cctx, cl.ClusterID, string(failure))
				// A failed cluster must not cancel its siblings, so the
				// closure records the failure and returns nil.
				return nil
			}
			instrumentation.SetSpanSuccess(fetchSpan)
			e.recorder.RecordClusterFetch(cctx, cl.ClusterID, instrumentation.StatusSuccess)
			cl.Reachable = true

			matched := make([]Match, 0, len(items))
			for i := range items {
				rec := k8s.RecordFrom(spec.ResourceType, &items[i])
				if Matches(spec, rec) {
					matched = append(matched, Match{ClusterID: cl.ClusterID, ResourceRecord: rec})
				}
			}

			mu.Lock()
			result.TotalConsidered += len(items)
			result.Matched = append(result.Matched, matched...)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors, so Wait only synchronizes.
	_ = g.Wait()

	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithMatchCount(len(result.Matched)).
		Build()...)

	sortMatches(result.Matched)
	sort.Slice(result.PerClusterErrors, func(i, j int) bool {
		return result.PerClusterErrors[i].ClusterID < result.PerClusterErrors[j].ClusterID
	})

	e.logger.Debug("query executed",
		logging.Operation("execute"),
		logging.ResourceType(string(spec.ResourceType)),
		logging.Duration(time.Since(start)),
		slog.Int("clusters", len(clusters)),
		slog.Int("matched", len(result.Matched)),
		slog.Int("considered", result.TotalConsidered),
		slog.Int("failed_clusters", len(result.PerClusterErrors)))

	return result, nil
}

// sortMatches orders by cluster id, then newest first, then name, then
// namespace. Namespace is the final tie-break so same-named resources in
// different namespaces always come back in one order.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].ClusterID != matches[j].ClusterID {
			return matches[i].ClusterID < matches[j].ClusterID
		}
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].Namespace < matches[j].Namespace
	})
}
