package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leonardsellem/n8n-mcp-server-sub013/config"
	"github.com/leonardsellem/n8n-mcp-server-sub013/secret"
)

const redacted = "[REDACTED]"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := config.Load(configPath); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
		return err
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML with credentials redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(redact(cfg)); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd, configShowCmd)
}

// redact returns a copy of cfg without credential values. Secret references
// are kept since they are not secrets themselves.
func redact(cfg *config.Config) *config.Config {
	out := *cfg
	if out.N8N.APIKey != "" && !isReference(out.N8N.APIKey) {
		out.N8N.APIKey = redacted
	}
	if out.Ops.JWTSecret != "" && !isReference(out.Ops.JWTSecret) {
		out.Ops.JWTSecret = redacted
	}
	if len(out.Ops.APIKeys) > 0 {
		keys := make([]string, len(out.Ops.APIKeys))
		for i, k := range out.Ops.APIKeys {
			keys[i] = redacted
			if isReference(k) {
				keys[i] = k
			}
		}
		out.Ops.APIKeys = keys
	}
	return &out
}

func isReference(v string) bool {
	if _, _, ok := secret.ParseSecretRef(v); ok {
		return true
	}
	return strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}")
}
