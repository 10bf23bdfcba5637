package commands

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/topicstats/pkg/report"
)

// diffArgCount is the number of arguments expected by the diff command.
const diffArgCount = 2

// ErrReportsDiffer is returned by the diff command when the reports differ.
var ErrReportsDiffer = errors.New("reports differ")

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Compare two reports",
		Long: `Compare two reports after normalizing their JSON layout, and exit with
status 1 when they differ. Useful to check that rebuilding from the same
inputs reproduces the same report.

Examples:
  topicstats diff old/dashboard_data.js dashboard_data.js
  topicstats diff report.json report.json.lz4`,
		Args: cobra.ExactArgs(diffArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.OutOrStdout(), args[0], args[1], noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func runDiff(out io.Writer, left, right string, noColor bool) error {
	a, err := report.ReadFile(left)
	if err != nil {
		return err
	}

	b, err := report.ReadFile(right)
	if err != nil {
		return err
	}

	result, err := report.Diff(a, b)
	if err != nil {
		return err
	}

	if result.Equal() {
		writeLine(out, "reports are identical")

		return nil
	}

	added, removed := palette(noColor)

	writeLine(out, "--- %s", left)
	writeLine(out, "+++ %s", right)

	for _, line := range result.Lines {
		if strings.HasPrefix(line, "-") {
			removed.Fprintln(out, line)
		} else {
			added.Fprintln(out, line)
		}
	}

	writeLine(out, "%d removed, %d added", result.Removed, result.Added)

	return ErrReportsDiffer
}
