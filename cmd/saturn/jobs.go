package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/jobs"
	"mercator-hq/saturn/pkg/jobs/storage"
	"mercator-hq/saturn/pkg/tenant"
)

// jobsOptions are shared by the jobs subcommands.
type jobsOptions struct {
	root     *rootOptions
	tenantID string
}

func newJobsCmd(root *rootOptions) *cobra.Command {
	opts := &jobsOptions{root: root}

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect jobs and batches",
		Long: `Read job and batch state from the configured jobs backend.

The backend is opened strictly: if it is unreachable the command fails
rather than reading an empty in-memory store.

Examples:
  saturn jobs list --tenant acme --status processing
  saturn jobs get --tenant acme 6f1c2b9e-...
  saturn jobs batch --tenant acme batch-42
  saturn jobs summary --tenant acme -o json`,
	}
	cmd.PersistentFlags().StringVar(&opts.tenantID, "tenant", "", "tenant id (required)")
	_ = cmd.MarkPersistentFlagRequired("tenant")

	cmd.AddCommand(
		newJobsListCmd(opts),
		newJobsGetCmd(opts),
		newJobsBatchCmd(opts),
		newJobsSummaryCmd(opts),
	)
	return cmd
}

// withStore opens the configured backend for the duration of fn.
func (o *jobsOptions) withStore(ctx context.Context, fn func(*jobs.Store, cli.Formatter) error) error {
	if err := tenant.ValidateID(o.tenantID); err != nil {
		return err
	}
	cfg, err := o.root.loadConfig()
	if err != nil {
		return err
	}
	f, err := o.root.formatter()
	if err != nil {
		return err
	}

	backend, err := storage.OpenStrict(ctx, cfg)
	if err != nil {
		return err
	}
	store := jobs.NewStore(backend, storage.TTL(cfg.Jobs.TTL))
	defer store.Close()

	return fn(store, f)
}

// jobTable renders jobs as rows.
type jobTable []*jobs.Job

func (t jobTable) Headers() []string {
	return []string{"JOB ID", "STATUS", "OPERATION", "SUBJECT", "LABEL", "UPDATED"}
}

func (t jobTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, j := range t {
		rows = append(rows, []string{
			j.ID,
			string(j.Status),
			dash(j.Operation),
			dash(j.SubjectID),
			dash(j.Label),
			j.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// statusCounts renders per-status counts in status order.
func statusCounts(counts map[jobs.Status]int) cli.Table {
	t := cli.Table{Columns: []string{"STATUS", "COUNT"}}
	for _, st := range jobs.Statuses {
		t.Values = append(t.Values, []string{string(st), strconv.Itoa(counts[st])})
	}
	return t
}

func newJobsListCmd(opts *jobsOptions) *cobra.Command {
	var (
		statuses   []string
		subjectID  string
		sortBy     string
		descending bool
		page       int
		pageSize   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := jobs.ListOptions{
				SubjectID:  subjectID,
				SortBy:     sortBy,
				Descending: descending,
				Page:       page,
				PageSize:   pageSize,
			}
			for _, s := range statuses {
				st := jobs.Status(s)
				if !st.Valid() {
					return fmt.Errorf("unknown job status %q", s)
				}
				q.Statuses = append(q.Statuses, st)
			}

			return opts.withStore(cmd.Context(), func(store *jobs.Store, f cli.Formatter) error {
				p, err := store.Query(cmd.Context(), opts.tenantID, q)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if _, ok := f.(*cli.TableFormatter); !ok {
					return f.FormatTo(out, p)
				}
				if err := f.FormatTo(out, jobTable(p.Jobs)); err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "\npage %d/%d, %d jobs\n", p.Page, p.TotalPages, p.Total)
				return err
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (repeatable)")
	cmd.Flags().StringVar(&subjectID, "subject", "", "filter by subject id")
	cmd.Flags().StringVar(&sortBy, "sort", jobs.SortByCreatedAt, "sort key: created_at, updated_at")
	cmd.Flags().BoolVar(&descending, "desc", false, "newest first")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", jobs.DefaultPageSize, "jobs per page")
	return cmd
}

func newJobsGetCmd(opts *jobsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get JOB_ID",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd.Context(), func(store *jobs.Store, f cli.Formatter) error {
				j, err := store.GetJob(cmd.Context(), opts.tenantID, args[0])
				if err != nil {
					return err
				}
				if _, ok := f.(*cli.TableFormatter); ok {
					return writeJobDetail(cmd.OutOrStdout(), j)
				}
				return f.FormatTo(cmd.OutOrStdout(), j)
			})
		},
	}
}

func writeJobDetail(w io.Writer, j *jobs.Job) error {
	t := cli.Table{Values: [][]string{
		{"Job ID:", j.ID},
		{"Status:", string(j.Status)},
		{"Operation:", dash(j.Operation)},
		{"Subject:", dash(j.SubjectID)},
		{"Label:", dash(j.Label)},
		{"Created:", j.CreatedAt.UTC().Format(time.RFC3339)},
		{"Updated:", j.UpdatedAt.UTC().Format(time.RFC3339)},
	}}
	if j.Error != "" {
		t.Values = append(t.Values, []string{"Error:", j.Error})
	}
	if len(j.Result) > 0 {
		t.Values = append(t.Values, []string{"Result:", string(j.Result)})
	}
	return (&cli.TableFormatter{}).FormatTo(w, t)
}

func newJobsBatchCmd(opts *jobsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch BATCH_ID",
		Short: "Show a batch's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd.Context(), func(store *jobs.Store, f cli.Formatter) error {
				p, err := store.BatchProgress(cmd.Context(), opts.tenantID, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if _, ok := f.(*cli.TableFormatter); !ok {
					return f.FormatTo(out, p)
				}

				finished := p.Counts[jobs.StatusCompleted] + p.Counts[jobs.StatusFailed] + p.Missing
				fmt.Fprintf(out, "Batch %s\n", p.BatchID)
				fmt.Fprintln(out, cli.ProgressBar(finished, p.Total, 30))
				if err := f.FormatTo(out, statusCounts(p.Counts)); err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "missing  %d\ndone     %t\n", p.Missing, p.Done)
				return err
			})
		},
	}
}

func newJobsSummaryCmd(opts *jobsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count a tenant's jobs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd.Context(), func(store *jobs.Store, f cli.Formatter) error {
				s, err := store.Summary(cmd.Context(), opts.tenantID)
				if err != nil {
					return err
				}
				if _, ok := f.(*cli.TableFormatter); !ok {
					return f.FormatTo(cmd.OutOrStdout(), s)
				}
				return f.FormatTo(cmd.OutOrStdout(), statusCounts(s.Counts))
			})
		},
	}
}
