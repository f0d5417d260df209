package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/engine"
	"github.com/opsloom/kubequery/internal/k8s"
	"github.com/opsloom/kubequery/internal/logging"
	"github.com/opsloom/kubequery/internal/nlq"
	"github.com/opsloom/kubequery/internal/query"
)

// Action is the shape of answer a question asks for.
type Action string

const (
	// ActionList enumerates the matching resources.
	ActionList Action = "list"

	// ActionCount answers with how many resources matched.
	ActionCount Action = "count"

	// ActionDescribe renders the matching resources in detail.
	ActionDescribe Action = "describe"

	// ActionSummarize groups the matches by status and namespace.
	ActionSummarize Action = "summarize"
)

// Executor runs a validated filter against resolved clusters.
// *engine.Engine is the production implementation.
type Executor interface {
	Execute(ctx context.Context, spec query.FilterSpec, clusters []cluster.Context) (*engine.Result, error)
}

// Diagnoser fetches the diagnosis bundle for one pod. *k8s.Clients is
// the production implementation.
type Diagnoser interface {
	DiagnosePod(ctx context.Context, cl cluster.Context, namespace, name string, tailLines int64) (*k8s.PodDiagnostics, error)
}

// Answer is a rendered reply plus the structured data behind it, so
// callers can show the text and still inspect what was matched.
type Answer struct {
	Text   string           `json:"text"`
	Action Action           `json:"action"`
	Filter query.FilterSpec `json:"filter"`
	Result *engine.Result   `json:"result"`
}

// Agent answers questions about cluster state.
type Agent struct {
	extractor *nlq.Extractor
	registry  *cluster.Registry
	executor  Executor
	diagnoser Diagnoser
	logger    *slog.Logger
	logTail   int64
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the agent's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLogTail overrides how many log lines a diagnosis pulls.
func WithLogTail(lines int64) Option {
	return func(a *Agent) {
		if lines >= 0 {
			a.logTail = lines
		}
	}
}

// New assembles an agent from the pipeline pieces.
func New(extractor *nlq.Extractor, registry *cluster.Registry, executor Executor, diagnoser Diagnoser, opts ...Option) *Agent {
	a := &Agent{
		extractor: extractor,
		registry:  registry,
		executor:  executor,
		diagnoser: diagnoser,
		logger:    slog.Default(),
		logTail:   k8s.DefaultLogTailLines,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run answers a free-text question. The cluster hint scopes execution
// the same way it does for a plain query: empty means the default
// scope, "all" fans out, anything else names one cluster. A cluster
// named in the question itself ("in cluster prod-eu") scopes the same
// way when the explicit hint is empty.
func (a *Agent) Run(ctx context.Context, text, clusterHint string) (*Answer, error) {
	parsed := a.extractor.Extract(ctx, nlq.RawQuery{Text: text, ClusterHint: clusterHint})

	spec, err := query.Build(parsed)
	if err != nil {
		return nil, err
	}

	clusters, err := a.registry.Resolve(ctx, parsed.ClusterHint)
	if err != nil {
		return nil, err
	}

	result, err := a.executor.Execute(ctx, spec, clusters)
	if err != nil {
		return nil, err
	}

	action := classifyAction(text)
	answer := &Answer{
		Text:   compose(action, spec, result),
		Action: action,
		Filter: spec,
		Result: result,
	}

	a.logger.Info("question answered",
		logging.Operation("agent_answer"),
		logging.ResourceType(string(spec.ResourceType)),
		slog.String("action", string(action)),
		slog.Int("matched", len(result.Matched)))

	return answer, nil
}

// Diagnose reports on one pod in one cluster.
func (a *Agent) Diagnose(ctx context.Context, clusterID, namespace, pod string) (string, *k8s.PodDiagnostics, error) {
	if namespace == "" || pod == "" {
		return "", nil, fmt.Errorf("diagnosis needs both a namespace and a pod name")
	}

	clusters, err := a.registry.Resolve(ctx, clusterID)
	if err != nil {
		return "", nil, err
	}
	if len(clusters) != 1 {
		return "", nil, fmt.Errorf("diagnosis runs against exactly one cluster, got %d", len(clusters))
	}

	diag, err := a.diagnoser.DiagnosePod(ctx, clusters[0], namespace, pod, a.logTail)
	if err != nil {
		return "", nil, err
	}

	a.logger.Info("pod diagnosed",
		logging.Operation("diagnose_pod"),
		logging.Cluster(clusters[0].ClusterID),
		logging.Namespace(namespace),
		logging.ResourceName(pod),
		logging.Status(diag.Record.Status))

	return composeDiagnosis(clusters[0].ClusterID, diag), diag, nil
}

// classifyAction picks the answer shape from the question's phrasing.
// Counting questions win over describes, describes over summaries,
// summaries over plain lists.
func classifyAction(text string) Action {
	lowered := strings.ToLower(text)
	for _, marker := range []string{"how many", "count of", "count the", "number of"} {
		if strings.Contains(lowered, marker) {
			return ActionCount
		}
	}
	for _, marker := range []string{"describe", "tell me about", "details of", "details about"} {
		if strings.Contains(lowered, marker) {
			return ActionDescribe
		}
	}
	for _, marker := range []string{"summarize", "summary", "overview", "health of", "how are", "how is"} {
		if strings.Contains(lowered, marker) {
			return ActionSummarize
		}
	}
	return ActionList
}
