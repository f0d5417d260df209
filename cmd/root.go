package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// versionTemplate renders the --version flag output; the version subcommand
// prints the same line with the platform appended.
const versionTemplate = `{{printf "kubequery version %s\n" .Version}}`

var rootCmd = &cobra.Command{
	Use:   "kubequery",
	Short: "Natural-language query service for Kubernetes clusters",
	Long: `kubequery answers natural-language questions about Kubernetes cluster
state ("show me pods created yesterday", "list all running pods in cluster
prod-eu"). It parses free text into a structured filter specification, fans
the filter out across the configured clusters, and returns the matching
resources or a composed plain-text answer.

When run without subcommands, it starts the query server (equivalent to 'kubequery serve').`,
	SilenceUsage: true,
}

// SetVersion injects the build version. Called by main before Execute.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI. A bare invocation is rewritten to the serve
// subcommand, so the binary can run as a server with no arguments.
func Execute() {
	rootCmd.SetVersionTemplate(versionTemplate)

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
	)
}
