package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/engine"
	"github.com/opsloom/kubequery/internal/nlq"
	"github.com/opsloom/kubequery/internal/query"
	"github.com/opsloom/kubequery/internal/server"
)

// QueryResult is the JSON payload of the query_resources tool. It mirrors
// the REST response shape so both surfaces stay interchangeable.
type QueryResult struct {
	Matched         []engine.Match    `json:"matched"`
	TotalConsidered int               `json:"total_considered"`
	Errors          map[string]string `json:"errors,omitempty"`
	QueryEcho       query.FilterSpec  `json:"query_echo"`
	Warnings        []string          `json:"warnings,omitempty"`
}

// ClusterListing is the JSON payload of the list_clusters tool.
type ClusterListing struct {
	Clusters []ClusterInfo `json:"clusters"`
}

// ClusterInfo is one configured cluster.
type ClusterInfo struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// handleQueryResources runs the filter pipeline and returns the matches as
// JSON. Zero matches with no errors is a valid answer; every cluster
// failing is a tool error, never a silent empty result.
func handleQueryResources(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.IsShutdown() {
		return nil, server.ErrServerShutdown
	}

	args := request.GetArguments()
	text, _ := args["query"].(string)
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	clusterHint, _ := args["cluster"].(string)

	parsed := sc.Extractor().Extract(ctx, nlq.RawQuery{Text: text, ClusterHint: clusterHint})

	spec, err := query.Build(parsed)
	if err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	clusters, err := sc.Registry().Resolve(ctx, parsed.ClusterHint)
	if err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	result, err := sc.Executor().Execute(ctx, spec, clusters)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	if len(clusters) > 0 && len(result.PerClusterErrors) == len(clusters) {
		return mcp.NewToolResultError(allFailedMessage(result)), nil
	}

	payload := QueryResult{
		Matched:         result.Matched,
		TotalConsidered: result.TotalConsidered,
		Errors:          clusterReasons(result.PerClusterErrors),
		QueryEcho:       spec,
		Warnings:        spec.Warnings,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

// handleAgentAnswer answers a free-text question with composed prose.
func handleAgentAnswer(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.IsShutdown() {
		return nil, server.ErrServerShutdown
	}

	ag := sc.Agent()
	if ag == nil {
		return mcp.NewToolResultError("agent is not configured"), nil
	}

	args := request.GetArguments()
	prompt, _ := args["prompt"].(string)
	if strings.TrimSpace(prompt) == "" {
		return mcp.NewToolResultError("prompt is required"), nil
	}
	clusterHint, _ := args["cluster"].(string)

	answer, err := ag.Run(ctx, prompt, clusterHint)
	if err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	return mcp.NewToolResultText(answer.Text), nil
}

// handleDiagnosePod renders the diagnostic report for one pod.
func handleDiagnosePod(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.IsShutdown() {
		return nil, server.ErrServerShutdown
	}

	ag := sc.Agent()
	if ag == nil {
		return mcp.NewToolResultError("agent is not configured"), nil
	}

	args := request.GetArguments()
	namespace, _ := args["namespace"].(string)
	if namespace == "" {
		return mcp.NewToolResultError("namespace is required"), nil
	}
	pod, _ := args["pod"].(string)
	if pod == "" {
		return mcp.NewToolResultError("pod is required"), nil
	}
	clusterID, _ := args["cluster"].(string)

	report, _, err := ag.Diagnose(ctx, clusterID, namespace, pod)
	if err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	return mcp.NewToolResultText(report), nil
}

// handleListClusters lists the registry contents as JSON.
func handleListClusters(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.IsShutdown() {
		return nil, server.ErrServerShutdown
	}

	entries := sc.Registry().Entries()
	listing := ClusterListing{Clusters: make([]ClusterInfo, 0, len(entries))}
	for _, e := range entries {
		listing.Clusters = append(listing.Clusters, ClusterInfo{ID: e.ID, Source: e.SourceKind()})
	}

	data, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal clusters: %v", err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

// userMessage prefers the user-facing form of pipeline errors, falling back
// to the plain error text.
func userMessage(err error) string {
	var invalidFilter *query.InvalidFilterError
	if errors.As(err, &invalidFilter) {
		return invalidFilter.UserFacingError()
	}
	var unknownCluster *cluster.UnknownClusterError
	if errors.As(err, &unknownCluster) {
		return unknownCluster.UserFacingError()
	}
	return err.Error()
}

// allFailedMessage renders the aggregate failure for a query where no
// cluster could be reached.
func allFailedMessage(result *engine.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "all %d clusters failed:", len(result.PerClusterErrors))
	for _, ce := range result.PerClusterErrors {
		fmt.Fprintf(&b, "\n  %s (%s): %s", ce.ClusterID, ce.Kind, ce.Message)
	}
	return b.String()
}

// clusterReasons flattens per-cluster errors into the response map shape.
func clusterReasons(errs []engine.ClusterError) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, ce := range errs {
		out[ce.ClusterID] = fmt.Sprintf("%s: %s", ce.Kind, ce.Message)
	}
	return out
}
