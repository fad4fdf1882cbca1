// Package table renders styled lipgloss tables for the dashboard and the CLI.
package table

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/grovetools/fleetview/tui/theme"
)

// CellStyler overrides the style of a data cell. Rows are 0-based data rows;
// the header is styled separately.
type CellStyler func(row, col int, base lipgloss.Style) lipgloss.Style

// Options configures a table.
type Options struct {
	Bordered bool
	Theme    *theme.Theme
	Styler   CellStyler
}

// DefaultOptions returns the bordered default table options.
func DefaultOptions() Options {
	return Options{
		Bordered: true,
		Theme:    theme.DefaultTheme,
	}
}

// Builder provides a fluent interface for creating styled tables.
type Builder struct {
	headers []string
	rows    [][]string
	width   int
	options Options
}

// NewBuilder creates a new table builder.
func NewBuilder() *Builder {
	return &Builder{options: DefaultOptions()}
}

// WithTheme sets the theme.
func (b *Builder) WithTheme(t *theme.Theme) *Builder {
	b.options.Theme = t
	return b
}

// WithBorder enables or disables the border.
func (b *Builder) WithBorder(bordered bool) *Builder {
	b.options.Bordered = bordered
	return b
}

// WithStyler sets a per-cell style override.
func (b *Builder) WithStyler(s CellStyler) *Builder {
	b.options.Styler = s
	return b
}

// WithHeaders sets the table headers.
func (b *Builder) WithHeaders(headers ...string) *Builder {
	b.headers = headers
	return b
}

// WithRows appends data rows.
func (b *Builder) WithRows(rows ...[]string) *Builder {
	b.rows = append(b.rows, rows...)
	return b
}

// WithWidth sets the total table width.
func (b *Builder) WithWidth(width int) *Builder {
	b.width = width
	return b
}

// Build creates the styled table.
func (b *Builder) Build() *ltable.Table {
	opts := b.options
	if opts.Theme == nil {
		opts.Theme = theme.DefaultTheme
	}
	t := opts.Theme

	tbl := ltable.New()
	if opts.Bordered {
		tbl = tbl.Border(lipgloss.RoundedBorder()).BorderStyle(t.TableBorder)
	} else {
		tbl = tbl.Border(lipgloss.HiddenBorder())
	}

	tbl = tbl.StyleFunc(func(row, col int) lipgloss.Style {
		if row == ltable.HeaderRow {
			return t.TableHeader.Padding(0, 1)
		}
		style := lipgloss.NewStyle().Padding(0, 1)
		if opts.Styler != nil {
			style = opts.Styler(row, col, style)
		}
		return style
	})

	if len(b.headers) > 0 {
		tbl = tbl.Headers(b.headers...)
	}
	tbl = tbl.Rows(b.rows...)
	if b.width > 0 {
		tbl = tbl.Width(b.width)
	}
	return tbl
}

// SimpleTable renders a bordered table with headers and rows.
func SimpleTable(headers []string, rows [][]string) string {
	return NewBuilder().WithHeaders(headers...).WithRows(rows...).Build().String()
}

// StatusTable renders label/value pairs without a border.
func StatusTable(items [][]string) string {
	t := theme.DefaultTheme
	var rows [][]string
	for _, item := range items {
		if len(item) >= 2 {
			rows = append(rows, []string{t.Muted.Render(item[0] + ":"), item[1]})
		}
	}
	return NewBuilder().WithBorder(false).WithRows(rows...).Build().String()
}
