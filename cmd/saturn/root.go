package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "saturn",
		Short: "Saturn - shared rate limits and tenant isolation for ingestion services",
		Long: `Saturn keeps a multi-tenant ingestion service inside the request and token
budgets of its upstream model services.

It provides:
  - Sliding-window RPM/TPM limiting per upstream service
  - Concurrency budgets derived from rate limits, with operator overrides
  - A bounded pool of per-tenant engine instances
  - Job and batch tracking with duplicate-operation protection`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (defaults plus SATURN_* env when empty)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", string(cli.FormatTable), "output format: table, json, yaml")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newConcurrencyCmd(opts),
		newJobsCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

// loadConfig reads the configured file, applies env overrides and validates.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(o.configPath)
	if err != nil {
		return nil, cli.WrapConfigError(o.configPathOrDefault(), err)
	}
	return cfg, nil
}

func (o *rootOptions) configPathOrDefault() string {
	if o.configPath == "" {
		return "<defaults>"
	}
	return o.configPath
}

func (o *rootOptions) formatter() (cli.Formatter, error) {
	return cli.NewFormatter(cli.OutputFormat(o.output))
}
