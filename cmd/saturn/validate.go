package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load the configuration file, apply defaults and SATURN_* environment
overrides, and report every invalid field.

Examples:
  saturn validate --config config.yaml
  SATURN_JOBS_BACKEND=sqlite saturn validate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid (%s)\n", root.configPathOrDefault())
			for _, u := range cfg.Upstreams.Each() {
				fmt.Fprintf(out, "  %-10s rpm=%d tpm=%d\n", u.Name, u.Config.RequestsPerMinute, u.Config.TokensPerMinute)
			}
			fmt.Fprintf(out, "  jobs backend: %s\n", cfg.Jobs.Backend)
			fmt.Fprintf(out, "  tenant settings: %s\n", cfg.Tenants.ConfigStore)
			return nil
		},
	}
}
