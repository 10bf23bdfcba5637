package commands

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/topicstats/pkg/report"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <report|->",
		Short: "Validate a report against the schema and its consistency rules",
		Long: `Validate a js, json or lz4-compressed report produced by build.

Examples:
  topicstats validate dashboard_data.js
  topicstats validate report.json.lz4
  topicstats validate - < report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args[0], noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(out io.Writer, path string, noColor bool) error {
	data, err := report.ReadFile(path)
	if err != nil {
		return err
	}

	issues, err := report.Validate(data)
	if err != nil {
		return err
	}

	label := inputLabel(path)
	ok, bad := palette(noColor)

	if len(issues) > 0 {
		bad.Fprintf(out, "report validation failed (%s)\n", label)

		for _, issue := range issues {
			bad.Fprintf(out, "  - %s\n", issue)
		}

		return fmt.Errorf("%w: %d issues in %s", report.ErrInvalidReport, len(issues), label)
	}

	rep, err := report.Decode(data)
	if err != nil {
		return err
	}

	tokens, messages := rep.Totals()

	ok.Fprintf(out, "report is valid (%s)\n", label)
	writeLine(out, "  %s users, %s topics, %s messages, %s tokens",
		humanize.Comma(int64(len(rep.Users))),
		humanize.Comma(int64(len(rep.Topics))),
		humanize.Comma(int64(messages)),
		humanize.Comma(int64(tokens)),
	)

	return nil
}

func inputLabel(path string) string {
	if path == stdoutPath {
		return "stdin"
	}

	return path
}

// palette returns the success and failure colors.
func palette(noColor bool) (*color.Color, *color.Color) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	if noColor {
		ok.DisableColor()
		bad.DisableColor()
	}

	return ok, bad
}
