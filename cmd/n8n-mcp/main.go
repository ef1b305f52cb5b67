// Command n8n-mcp serves n8n workflow management tools over the Model
// Context Protocol on stdio.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by the linker: -X main.version=...
var (
	version = "dev"
	commit  = "none"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "n8n-mcp",
	Short:         "MCP server for managing n8n workflows",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `n8n-mcp exposes the n8n REST API as MCP tools. Calls to n8n are retried,
guarded by per-operation circuit breakers and cached; an optional ops HTTP
server reports health, error statistics and metrics.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "n8n-mcp %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.SetVersionTemplate("n8n-mcp {{.Version}} (" + commit + ")\n")
	rootCmd.AddCommand(serveCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
