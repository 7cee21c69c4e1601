package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/limits"
	"mercator-hq/saturn/pkg/telemetry/logging"
	"mercator-hq/saturn/pkg/tenant"
	"mercator-hq/saturn/pkg/tenant/settings"
)

// serviceConcurrency is one row of the concurrency report.
type serviceConcurrency struct {
	Service     string `json:"service" yaml:"service"`
	RPM         int    `json:"rpm" yaml:"rpm"`
	TPM         int    `json:"tpm" yaml:"tpm"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
	Source      string `json:"source" yaml:"source"`
	Clamped     bool   `json:"clamped,omitempty" yaml:"clamped,omitempty"`
}

type concurrencyReport []serviceConcurrency

func (r concurrencyReport) Headers() []string {
	return []string{"SERVICE", "RPM", "TPM", "CONCURRENCY", "SOURCE"}
}

func (r concurrencyReport) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, s := range r {
		source := s.Source
		if s.Clamped {
			source += " (clamped)"
		}
		rows = append(rows, []string{
			s.Service,
			limitString(s.RPM),
			limitString(s.TPM),
			strconv.Itoa(s.Concurrency),
			source,
		})
	}
	return rows
}

func limitString(v int) string {
	if v <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(v)
}

func newConcurrencyCmd(root *rootOptions) *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "concurrency",
		Short: "Show effective concurrency per upstream service",
		Long: `Print each upstream service's rate limits, the concurrency budget its gate
enforces, and where that budget came from: an explicit override, the operator
default, or the value computed from the rate limits.

With --tenant the tenant's stored settings are merged over the global
configuration first.

Examples:
  saturn concurrency
  saturn concurrency --tenant acme -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			f, err := root.formatter()
			if err != nil {
				return err
			}

			upstreams := cfg.Upstreams
			if tenantID != "" {
				if upstreams, err = tenantUpstreams(cmd.Context(), cfg, tenantID); err != nil {
					return err
				}
			}
			return f.FormatTo(cmd.OutOrStdout(), resolveConcurrency(cfg, &upstreams))
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "merge this tenant's settings before resolving")
	return cmd
}

// resolveConcurrency reports the decision the gate registry makes for each
// service.
func resolveConcurrency(cfg *config.Config, upstreams *config.UpstreamsConfig) concurrencyReport {
	registry := limits.NewRegistry(limits.RegistryConfigFrom(&cfg.Limits), limits.WithLogger(logging.Discard()))

	report := make(concurrencyReport, 0, 5)
	for _, u := range upstreams.Each() {
		sl := limits.FromUpstream(u.Config)
		d := registry.Resolve(u.Name, sl)
		report = append(report, serviceConcurrency{
			Service:     u.Name,
			RPM:         sl.RPM,
			TPM:         sl.TPM,
			Concurrency: d.Value,
			Source:      string(d.Source),
			Clamped:     d.Computed != nil && d.Computed.Clamped,
		})
	}
	return report
}

// tenantUpstreams merges the tenant's stored settings over the global
// upstream configuration.
func tenantUpstreams(ctx context.Context, cfg *config.Config, tenantID string) (config.UpstreamsConfig, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return config.UpstreamsConfig{}, err
	}

	store, client, err := openSettingsStore(ctx, cfg, logging.Discard())
	if err != nil {
		return config.UpstreamsConfig{}, err
	}
	if client != nil {
		defer client.Close()
	}

	s, err := store.Get(ctx, tenantID)
	if err != nil {
		return config.UpstreamsConfig{}, fmt.Errorf("load settings for tenant %s: %w", tenantID, err)
	}
	return settings.Merge(&cfg.Upstreams, s), nil
}
