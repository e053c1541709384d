package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int // 0 = fit the widest cell
	Align  lipgloss.Position
}

// TableRow represents a row of data
type TableRow struct {
	Data  []string
	Style lipgloss.Style
}

// Table renders rows under a header inside a rounded border.
type Table struct {
	columns []TableColumn
	rows    []TableRow

	headerStyle lipgloss.Style
	rowStyle    lipgloss.Style
	borderStyle lipgloss.Style
}

// NewTable creates a new table component
func NewTable() *Table {
	palette := DefaultPalette()

	return &Table{
		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 1),

		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),

		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),
	}
}

// AddColumn adds a column to the table
func (t *Table) AddColumn(header string, width int, align lipgloss.Position) *Table {
	t.columns = append(t.columns, TableColumn{
		Header: header,
		Width:  width,
		Align:  align,
	})
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(data ...string) *Table {
	t.rows = append(t.rows, TableRow{Data: data, Style: t.rowStyle})
	return t
}

// AddStyledRow adds a row with its own foreground color.
func (t *Table) AddStyledRow(color lipgloss.Color, data ...string) *Table {
	t.rows = append(t.rows, TableRow{Data: data, Style: t.rowStyle.Foreground(color)})
	return t
}

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return "No columns defined"
	}

	t.calculateColumnWidths()

	var content strings.Builder

	var headerRow strings.Builder
	for i, col := range t.columns {
		headerRow.WriteString(renderCell(col.Header, col.Width, col.Align, t.headerStyle))
		if i < len(t.columns)-1 {
			headerRow.WriteString("│")
		}
	}
	content.WriteString(headerRow.String())
	content.WriteString("\n")

	var separator strings.Builder
	for i, col := range t.columns {
		separator.WriteString(strings.Repeat("─", col.Width+2))
		if i < len(t.columns)-1 {
			separator.WriteString("┼")
		}
	}
	content.WriteString(separator.String())

	for _, row := range t.rows {
		content.WriteString("\n")
		for i, col := range t.columns {
			cellData := ""
			if i < len(row.Data) {
				cellData = row.Data[i]
			}
			content.WriteString(renderCell(cellData, col.Width, col.Align, row.Style))
			if i < len(t.columns)-1 {
				content.WriteString("│")
			}
		}
	}

	return t.borderStyle.Render(content.String())
}

// renderCell renders a single table cell. width excludes the padding.
func renderCell(content string, width int, align lipgloss.Position, style lipgloss.Style) string {
	if len(content) > width {
		if width > 3 {
			content = content[:width-3] + "..."
		} else {
			content = content[:width]
		}
	}
	return style.Width(width + 2).Align(align).Render(content)
}

// calculateColumnWidths sizes auto-width columns to their widest cell.
func (t *Table) calculateColumnWidths() {
	for i := range t.columns {
		if t.columns[i].Width > 0 {
			continue
		}
		w := len(t.columns[i].Header)
		for _, row := range t.rows {
			if i < len(row.Data) && len(row.Data[i]) > w {
				w = len(row.Data[i])
			}
		}
		t.columns[i].Width = w
	}
}
