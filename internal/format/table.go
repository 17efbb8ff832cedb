// Package format renders CLI output tables for curves, phases and readings.
package format

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // box-drawn terminal tables
	Markdown             // GitHub-flavoured Markdown
	CSV
)

// ParseMode maps a --format flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "table", "ascii":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	}
	return ASCII, fmt.Errorf("unknown output format %q (want table, markdown or csv)", s)
}

// Align is a column's horizontal alignment.
type Align int

const (
	AlignDefault Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Table builds once and renders in the Mode chosen at creation.
type Table struct {
	w    table.Writer
	mode Mode
}

// NewTable returns an empty table.
func NewTable(m Mode) *Table {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return &Table{w: w, mode: m}
}

// Header sets the column headers.
func (t *Table) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	t.w.AppendHeader(row)
}

// Row appends a data row.
func (t *Table) Row(vals ...any) {
	t.w.AppendRow(table.Row(vals))
}

// Footer appends a footer row.
func (t *Table) Footer(vals ...any) {
	t.w.AppendFooter(table.Row(vals))
}

// Align sets the alignment of 1-based column numbers.
func (t *Table) Align(a Align, columns ...int) {
	cfgs := make([]table.ColumnConfig, len(columns))
	for i, n := range columns {
		cfgs[i] = table.ColumnConfig{Number: n, Align: toTextAlign(a)}
	}
	t.w.SetColumnConfigs(cfgs)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return t.w.Length()
}

func (t *Table) String() string {
	switch t.mode {
	case Markdown:
		return t.w.RenderMarkdown()
	case CSV:
		return t.w.RenderCSV()
	default:
		return t.w.Render()
	}
}

func toTextAlign(a Align) text.Align {
	switch a {
	case AlignLeft:
		return text.AlignLeft
	case AlignRight:
		return text.AlignRight
	case AlignCenter:
		return text.AlignCenter
	default:
		return text.AlignDefault
	}
}
