package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/opsloom/kubequery/internal/cluster"
	"github.com/opsloom/kubequery/internal/instrumentation"
	"github.com/opsloom/kubequery/internal/server"
)

// ToolHandler is the signature for MCP tool handlers that take the shared
// server context.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// WrapWithAuditLogging wraps a tool handler with audit logging. The wrapper
// captures invocation timing, the cluster and resource scope from the
// request arguments, the success or error outcome, and the OpenTelemetry
// trace context for correlation. Without an instrumentation provider the
// handler runs unwrapped.
func WrapWithAuditLogging(
	toolName string,
	handler ToolHandler,
	sc *server.ServerContext,
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		provider := sc.InstrumentationProvider()
		if provider == nil || provider.AuditLogger() == nil {
			return handler(ctx, request, sc)
		}

		auditLogger := provider.AuditLogger()

		invocation := instrumentation.NewQueryInvocation(toolName).
			WithSpanContext(ctx)

		extractAuditInfoFromArgs(invocation, request.GetArguments())

		result, err := handler(ctx, request, sc)

		if err != nil {
			invocation.CompleteWithError(err)
		} else if result != nil && result.IsError {
			// MCP tool errors travel in the result, not as Go errors.
			invocation.Complete(false, nil)
			if len(result.Content) > 0 {
				if textContent, ok := result.Content[0].(mcp.TextContent); ok {
					invocation.Error = textContent.Text
				}
			}
		} else {
			invocation.CompleteSuccess()
		}

		auditLogger.LogQueryInvocation(invocation)

		return result, err
	}
}

// extractAuditInfoFromArgs pulls the cluster and resource scope out of tool
// arguments for the audit record. Free-text arguments stay out of it; the
// scope a query resolves to is logged by the pipeline itself.
func extractAuditInfoFromArgs(invocation *instrumentation.QueryInvocation, args map[string]interface{}) {
	if hint, ok := args["cluster"].(string); ok && hint != "" {
		invocation.WithCluster(auditCluster(hint))
	}

	namespace, _ := args["namespace"].(string)
	pod, _ := args["pod"].(string)
	if namespace != "" || pod != "" {
		invocation.WithResource(namespace, "pod", pod)
	}
}

// auditCluster normalizes a hint for audit attribution: fan-out hints name
// no single cluster.
func auditCluster(hint string) string {
	hint = strings.TrimSpace(hint)
	if strings.EqualFold(hint, cluster.AllClusters) {
		return ""
	}
	return hint
}
