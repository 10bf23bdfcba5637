package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// defaultTextLimit is the number of users and topics the text summary lists.
const defaultTextLimit = 10

// TextCodec writes a human-readable summary: totals, the busiest users and
// the busiest topics. It is lossy and not meant to be parsed.
type TextCodec struct {
	NoColor bool
	// Limit caps the rows of each table; zero means defaultTextLimit.
	Limit int
}

// Encode implements Codec.
func (c *TextCodec) Encode(w io.Writer, r *Report) error {
	if r == nil {
		return ErrNilReport
	}

	limit := c.Limit
	if limit <= 0 {
		limit = defaultTextLimit
	}

	heading := color.New(color.FgBlue, color.Bold)
	if c.NoColor {
		heading.DisableColor()
	}

	tokens, messages := r.Totals()

	_, err := fmt.Fprintf(w, "%s\n  %s messages, %s tokens, %s users, %s topics\n\n",
		heading.Sprint("Summary"),
		humanize.Comma(int64(messages)),
		humanize.Comma(int64(tokens)),
		humanize.Comma(int64(len(r.Users))),
		humanize.Comma(int64(len(r.Topics))),
	)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	_, err = fmt.Fprintf(w, "%s\n%s\n\n", heading.Sprint("Top users"), c.usersTable(r.Users, limit))
	if err != nil {
		return fmt.Errorf("write users: %w", err)
	}

	_, err = fmt.Fprintf(w, "%s\n%s\n", heading.Sprint("Top topics"), c.topicsTable(r.Topics, limit))
	if err != nil {
		return fmt.Errorf("write topics: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *TextCodec) Extension() string { return ".txt" }

func (c *TextCodec) usersTable(users []User, limit int) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "Name", "Tokens", "Msgs", "Status", "Last"})

	for i, u := range users[:min(limit, len(users))] {
		tbl.AppendRow(table.Row{
			i + 1,
			u.Name,
			humanize.Comma(int64(u.Tokens)),
			humanize.Comma(int64(u.Messages)),
			c.status(u.Status),
			u.Last,
		})
	}

	tbl.AppendFooter(table.Row{"", "Total: " + strconv.Itoa(len(users)) + " users"})

	return tbl.Render()
}

func (c *TextCodec) topicsTable(topics []Topic, limit int) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "Title", "Tokens", "Msgs", "Users"})

	for i, t := range topics[:min(limit, len(topics))] {
		tbl.AppendRow(table.Row{
			i + 1,
			text.Trim(t.Title, maxTitleWidth),
			humanize.Comma(int64(t.Tokens)),
			humanize.Comma(int64(t.Messages)),
			t.UsersCount,
		})
	}

	tbl.AppendFooter(table.Row{"", "Total: " + strconv.Itoa(len(topics)) + " topics"})

	return tbl.Render()
}

// maxTitleWidth truncates long topic titles in the text table.
const maxTitleWidth = 48

func (c *TextCodec) status(s Status) string {
	var attr color.Attribute

	switch s {
	case StatusActive:
		attr = color.FgGreen
	case StatusOccasional:
		attr = color.FgYellow
	default:
		attr = color.FgRed
	}

	painter := color.New(attr)
	if c.NoColor {
		painter.DisableColor()
	}

	return painter.Sprint(string(s))
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}
