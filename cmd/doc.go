// Package cmd provides the command-line interface for kubequery.
//
// This package implements a Cobra-based CLI with multiple subcommands:
//   - serve: Starts the query server (default behavior when no subcommand is provided)
//   - version: Displays the application version
//
// The CLI runs the serve command when no subcommand is specified, so plain
// `kubequery` starts the server.
//
// Command Structure:
//
//	kubequery [flags]                 # Starts the query server (default)
//	kubequery serve [flags]           # Explicitly starts the query server
//	kubequery version                 # Shows version information
//	kubequery help [command]          # Shows help information
//
// The serve command supports two transport options:
//   - http: REST API over HTTP (default) - for service deployments
//   - stdio: Model Context Protocol over standard input/output - for
//     command-line MCP integration
//
// Transport Configuration Examples:
//
//	kubequery serve                                        # REST API on :8080
//	kubequery serve --transport http --http-addr :9000     # REST API on :9000
//	kubequery serve --transport stdio                      # MCP over stdio
//
// The serve command also supports configuration flags for the cluster
// registry file, per-cluster fetch timeouts, Kubernetes API rate limiting,
// the optional Gemini oracle, and logging. Every flag has a KUBEQUERY_*
// environment variable fallback for containerized deployments.
package cmd
