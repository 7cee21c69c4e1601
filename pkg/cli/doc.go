/*
Package cli provides command-line helpers for the saturn command.

Output Formatting:

Command results render as an aligned table, JSON or YAML:

	formatter, err := cli.NewFormatter(cli.FormatTable)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, rows)

Values that implement Tabular render as columns in table mode; anything
else is printed with %v.

Progress:

ProgressBar renders a fixed-width completion bar for batch progress:

	fmt.Println(cli.ProgressBar(progress.Done(), progress.Total, 30))

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
