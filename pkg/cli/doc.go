/*
Package cli provides command-line interface utilities for Ganymede.

The cli package includes output formatters, progress reporters, and the
typed errors used by the ganymede command.

Output Formatting:

Commands support text and JSON output for their results:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Progress Reporting:

For long-running operations such as benchmarks:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(int64(totalItems))
	for i := 0; i < totalItems; i++ {
		// Do work
		progress.Update(int64(i + 1))
	}
	progress.Finish()
*/
package cli
