package cmd

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/opsloom/kubequery/internal/server"
	"github.com/opsloom/kubequery/internal/tools"
)

// runStdioServer serves the MCP tool surface over standard input/output.
// Nothing may be written to stdout here; it carries the protocol stream.
func runStdioServer(sc *server.ServerContext) error {
	mcpSrv := mcpserver.NewMCPServer(sc.Config().ServerName, sc.Config().Version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := tools.RegisterQueryTools(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register query tools: %w", err)
	}

	// Serve in a goroutine so a failure surfaces the same way a clean
	// stdin close does.
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	if err := <-serverDone; err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}
