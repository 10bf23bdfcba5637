package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffResult is the line-level comparison of two reports.
type DiffResult struct {
	// Lines holds changed lines prefixed with "-" (only in the first report)
	// or "+" (only in the second).
	Lines   []string
	Removed int
	Added   int
}

// Equal reports whether the two reports had identical canonical forms.
func (d DiffResult) Equal() bool {
	return d.Removed == 0 && d.Added == 0
}

// Diff compares two serialized reports (JSON or script) line by line after
// re-indenting both payloads, so formatting differences do not count.
func Diff(a, b []byte) (DiffResult, error) {
	left, err := canonical(a)
	if err != nil {
		return DiffResult{}, fmt.Errorf("first report: %w", err)
	}

	right, err := canonical(b)
	if err != nil {
		return DiffResult{}, fmt.Errorf("second report: %w", err)
	}

	dmp := diffmatchpatch.New()
	leftChars, rightChars, lines := dmp.DiffLinesToChars(left, right)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(leftChars, rightChars, false), lines)

	var result DiffResult

	for _, d := range diffs {
		var prefix string

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffEqual:
			continue
		}

		for line := range strings.SplitSeq(strings.TrimSuffix(d.Text, "\n"), "\n") {
			result.Lines = append(result.Lines, prefix+line)

			if d.Type == diffmatchpatch.DiffDelete {
				result.Removed++
			} else {
				result.Added++
			}
		}
	}

	return result, nil
}

func canonical(data []byte) (string, error) {
	var buf bytes.Buffer

	err := json.Indent(&buf, Payload(data), "", defaultIndent)
	if err != nil {
		return "", fmt.Errorf("indent payload: %w", err)
	}

	buf.WriteByte('\n')

	return buf.String(), nil
}
