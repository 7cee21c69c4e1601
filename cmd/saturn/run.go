package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/telemetry/logging"
)

type runOptions struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start Saturn",
		Long: `Start Saturn with the specified configuration.

The run command builds the admission gates for every configured upstream,
the tenant instance pool, the job store and its retention schedule, and serves
the operational endpoints (metrics, health, readiness, status) until it
receives SIGINT or SIGTERM.

Examples:
  # Start with defaults
  saturn run

  # Start with a config file
  saturn run --config /etc/saturn/config.yaml

  # Override the operational listen address
  saturn run --listen 0.0.0.0:9090

  # Validate config without starting
  saturn run --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listenAddress, "listen", "l", "", "override operational listen address")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate config without starting")
	return cmd
}

func runServer(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if opts.listenAddress != "" {
		cfg.Server.ListenAddress = opts.listenAddress
	}
	if opts.logLevel != "" {
		cfg.Telemetry.Logging.Level = opts.logLevel
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if opts.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	fmt.Fprintf(out, "Saturn v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", root.configPathOrDefault())

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		a.Close(shutdownCtx)
	}()

	fmt.Fprintf(out, "✓ Gates initialized (%d services)\n", a.registry.Len())
	fmt.Fprintf(out, "✓ Job store ready (%s)\n", a.jobs.Backend().Name())

	err = a.Serve(ctx, func(addr net.Addr) {
		fmt.Fprintf(out, "✓ Listening on %s\n", addr)
		fmt.Fprintln(out, "\nPress Ctrl+C to stop")
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Stopped")
	return nil
}
