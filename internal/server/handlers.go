package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opsloom/kubequery/internal/agent"
	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/instrumentation"
	"github.com/opsloom/kubequery/internal/nlq"
	"github.com/opsloom/kubequery/internal/query"
)

// handleFilterQuery serves POST /api/filter/query: extract intent, build
// the filter, resolve the cluster hint, execute across clusters, and shape
// the aggregated response. Zero matches with no errors is a success; every
// cluster failing is an aggregate failure, never a silent empty result.
func (s *HTTPServer) handleFilterQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	sc := s.serverContext
	requestID := newRequestID()
	start := time.Now()

	var req FilterQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, requestID, "request body must be JSON with a query field")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeBadRequest(w, requestID, "query must not be empty")
		return
	}

	ctx, span := instrumentation.StartToolSpan(r.Context(), "filter_query")
	defer span.End()

	parsed := sc.Extractor().Extract(ctx, nlq.RawQuery{Text: req.Query, ClusterHint: req.ClusterHint})

	invocation := instrumentation.NewQueryInvocation("filter_query").
		WithSpanContext(ctx).
		WithCluster(auditCluster(parsed.ClusterHint))

	spec, err := query.Build(parsed)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit(invocation.CompleteWithError(err))
		sc.RecordQuery(ctx, "filter", "unknown", "", instrumentation.StatusError, 0, time.Since(start))
		writeError(w, sc.Logger(), requestID, err)
		return
	}

	invocation.WithResource(spec.Namespace, string(spec.ResourceType), spec.NameFilter)

	clusters, err := sc.Registry().Resolve(ctx, parsed.ClusterHint)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit(invocation.CompleteWithError(err))
		sc.RecordQuery(ctx, "filter", string(spec.ResourceType), spec.Namespace, instrumentation.StatusError, 0, time.Since(start))
		writeError(w, sc.Logger(), requestID, err)
		return
	}

	result, err := sc.Executor().Execute(ctx, spec, clusters)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit(invocation.CompleteWithError(err))
		sc.RecordQuery(ctx, "filter", string(spec.ResourceType), spec.Namespace, instrumentation.StatusError, 0, time.Since(start))
		writeError(w, sc.Logger(), requestID, err)
		return
	}

	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithConfidence(spec.Confidence).
		WithMatchCount(len(result.Matched)).
		WithNamespace(spec.Namespace).
		WithResource(string(spec.ResourceType), spec.NameFilter).
		Build()...)

	if len(clusters) > 0 && len(result.PerClusterErrors) == len(clusters) {
		aggErr := fmt.Errorf("all %d clusters failed", len(clusters))
		instrumentation.SetSpanError(span, aggErr)
		s.audit(invocation.WithResult(0, len(result.PerClusterErrors)).CompleteWithError(aggErr))
		sc.RecordQuery(ctx, "filter", string(spec.ResourceType), spec.Namespace, instrumentation.StatusError, 0, time.Since(start))
		writeAllClustersFailed(w, requestID, result)
		return
	}

	instrumentation.SetSpanSuccess(span)
	s.audit(invocation.
		WithResult(len(result.Matched), len(result.PerClusterErrors)).
		CompleteSuccess())
	sc.RecordQuery(ctx, "filter", string(spec.ResourceType), spec.Namespace, instrumentation.StatusSuccess, len(result.Matched), time.Since(start))

	writeJSON(w, http.StatusOK, FilterQueryResponse{
		Matched:         result.Matched,
		TotalConsidered: result.TotalConsidered,
		Errors:          clusterReasons(result.PerClusterErrors),
		QueryEcho:       spec,
		Warnings:        spec.Warnings,
		RequestID:       requestID,
	})
}

// handleAgentQuery serves POST /api/agent/query: answer a free-text
// question with composed text plus the records behind it.
func (s *HTTPServer) handleAgentQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	sc := s.serverContext
	requestID := newRequestID()
	start := time.Now()

	ag := sc.Agent()
	if ag == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     ErrorBody{Kind: ErrorKindInternal, Message: "agent is not configured"},
			RequestID: requestID,
		})
		return
	}

	clusterID := r.URL.Query().Get("cluster_id")

	var req AgentQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, requestID, "request body must be JSON with a prompt field")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeBadRequest(w, requestID, "prompt must not be empty")
		return
	}

	ctx, span := instrumentation.StartToolSpan(r.Context(), "agent_answer")
	defer span.End()

	invocation := instrumentation.NewQueryInvocation("agent_answer").
		WithSpanContext(ctx).
		WithCluster(auditCluster(clusterID))

	answer, err := ag.Run(ctx, req.Prompt, clusterID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit(invocation.CompleteWithError(err))
		sc.RecordQuery(ctx, "agent", "unknown", "", instrumentation.StatusError, 0, time.Since(start))
		writeError(w, sc.Logger(), requestID, err)
		return
	}

	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithAction(string(answer.Action)).
		WithMatchCount(len(answer.Result.Matched)).
		WithNamespace(answer.Filter.Namespace).
		WithResource(string(answer.Filter.ResourceType), answer.Filter.NameFilter).
		Build()...)
	instrumentation.SetSpanSuccess(span)

	s.audit(invocation.
		WithResource(answer.Filter.Namespace, string(answer.Filter.ResourceType), answer.Filter.NameFilter).
		WithAction(string(answer.Action)).
		WithResult(len(answer.Result.Matched), len(answer.Result.PerClusterErrors)).
		CompleteSuccess())
	sc.RecordQuery(ctx, string(answer.Action), string(answer.Filter.ResourceType), answer.Filter.Namespace, instrumentation.StatusSuccess, len(answer.Result.Matched), time.Since(start))

	writeJSON(w, http.StatusOK, AgentQueryResponse{
		Answer:    answer.Text,
		Action:    string(answer.Action),
		Records:   answer.Result.Matched,
		RequestID: requestID,
	})
}

// handleDiagnose serves POST /api/agent/diagnose: a read-only report on
// one pod in one cluster.
func (s *HTTPServer) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	sc := s.serverContext
	requestID := newRequestID()

	ag := sc.Agent()
	if ag == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     ErrorBody{Kind: ErrorKindInternal, Message: "agent is not configured"},
			RequestID: requestID,
		})
		return
	}

	params := r.URL.Query()
	clusterID := params.Get("cluster_id")
	namespace := params.Get("namespace")
	pod := params.Get("pod")
	if namespace == "" || pod == "" {
		writeBadRequest(w, requestID, "namespace and pod query parameters are required")
		return
	}

	ctx, span := instrumentation.StartToolSpan(r.Context(), "diagnose_pod")
	defer span.End()

	// Resolve first so the response can name the cluster even when the
	// caller relied on the default.
	clusters, err := sc.Registry().Resolve(ctx, clusterID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		writeError(w, sc.Logger(), requestID, err)
		return
	}
	if len(clusters) != 1 {
		writeBadRequest(w, requestID, "diagnosis targets exactly one cluster; pass cluster_id")
		return
	}
	resolved := clusters[0].ClusterID

	invocation := instrumentation.NewQueryInvocation("diagnose_pod").
		WithSpanContext(ctx).
		WithCluster(resolved).
		WithResource(namespace, "pod", pod)

	report, diag, err := ag.Diagnose(ctx, resolved, namespace, pod)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.audit(invocation.CompleteWithError(err))
		writeError(w, sc.Logger(), requestID, err)
		return
	}

	instrumentation.SetSpanSuccess(span)
	s.audit(invocation.WithResult(1, 0).CompleteSuccess())

	writeJSON(w, http.StatusOK, DiagnoseResponse{
		Pod:       diag.Record.Name,
		Namespace: diag.Record.Namespace,
		Cluster:   resolved,
		Phase:     diag.Record.Status,
		Issues:    agent.DeriveIssues(diag),
		Events:    diag.Events,
		LogTail:   diag.LogTail,
		Report:    report,
		RequestID: requestID,
	})
}

// handleClusters serves GET /api/clusters: the configured cluster ids and
// where each one's credentials come from.
func (s *HTTPServer) handleClusters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	requestID := newRequestID()

	entries := s.serverContext.Registry().Entries()
	infos := make([]ClusterInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, ClusterInfo{ID: e.ID, Source: e.SourceKind()})
	}

	writeJSON(w, http.StatusOK, ClustersResponse{
		Clusters:  infos,
		RequestID: requestID,
	})
}

// audit forwards a completed invocation to the audit logger when
// instrumentation is configured.
func (s *HTTPServer) audit(invocation *instrumentation.QueryInvocation) {
	if al := s.serverContext.AuditLogger(); al != nil {
		al.LogQueryInvocation(invocation)
	}
}

// auditCluster normalizes a hint for audit attribution: fan-out hints
// name no single cluster.
func auditCluster(hint string) string {
	hint = strings.TrimSpace(hint)
	if strings.EqualFold(hint, cluster.AllClusters) {
		return ""
	}
	return hint
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
