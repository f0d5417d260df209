// Package tools exposes the query pipeline as MCP tools, so LLM hosts can
// call the same operations the REST API serves.
package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/opsloom/kubequery/internal/server"
)

// RegisterQueryTools registers the query tools with the MCP server. Every
// tool is read-only and wrapped with audit logging.
func RegisterQueryTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	queryTool := mcp.NewTool("query_resources",
		mcp.WithDescription("Query Kubernetes resources across the configured clusters with a natural-language filter. Returns the matching resources as JSON together with the filter that was applied."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The filter in plain language, e.g. 'failed pods in namespace payments created in the last 2 hours'"),
		),
		mcp.WithString("cluster",
			mcp.Description("Cluster id to target, or 'all' to query every configured cluster (optional, defaults to all)"),
		),
	)
	s.AddTool(queryTool, WrapWithAuditLogging("query_resources", handleQueryResources, sc))

	answerTool := mcp.NewTool("agent_answer",
		mcp.WithDescription("Answer a question about cluster state in plain language. Counting, describing, summarizing and listing questions are supported."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The question, e.g. 'how many pods are failing in namespace payments?'"),
		),
		mcp.WithString("cluster",
			mcp.Description("Cluster id to target, or 'all' to query every configured cluster (optional, defaults to all)"),
		),
	)
	s.AddTool(answerTool, WrapWithAuditLogging("agent_answer", handleAgentAnswer, sc))

	diagnoseTool := mcp.NewTool("diagnose_pod",
		mcp.WithDescription("Produce a read-only diagnostic report for one pod: phase, container states, recent events and a log tail."),
		mcp.WithString("cluster",
			mcp.Description("Cluster id the pod runs in (optional when exactly one cluster is configured)"),
		),
		mcp.WithString("namespace",
			mcp.Required(),
			mcp.Description("Namespace the pod is in"),
		),
		mcp.WithString("pod",
			mcp.Required(),
			mcp.Description("Name of the pod to diagnose"),
		),
	)
	s.AddTool(diagnoseTool, WrapWithAuditLogging("diagnose_pod", handleDiagnosePod, sc))

	clustersTool := mcp.NewTool("list_clusters",
		mcp.WithDescription("List the configured cluster ids and where each one's credentials come from."),
	)
	s.AddTool(clustersTool, WrapWithAuditLogging("list_clusters", handleListClusters, sc))

	return nil
}
