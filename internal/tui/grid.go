package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/samber/lo"
)

const (
	minColumnWidth = 4
	maxColumnWidth = 36
	columnGap      = 2
)

// cellText is what a cell shows: the formatted value, or the raw value when
// raw display is on.
func (m Model) cellText(cell core.FormattedData) string {
	if !m.inspector.ShowRaw {
		return cell.Formatted
	}
	switch v := cell.Raw.(type) {
	case nil:
		return "null"
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}

func (m Model) columnWidths() []int {
	return lo.Map(m.data.Columns, func(col core.TabularColumn, _ int) int {
		w := lipgloss.Width(col.Name)
		for _, row := range m.data.Rows {
			w = max(w, lipgloss.Width(m.cellText(row[col.Field])))
		}
		return clamp(w, minColumnWidth, maxColumnWidth)
	})
}

// visibleColumns counts the columns from offset that fit in width. At least
// one column is always shown.
func visibleColumns(widths []int, offset, width int) int {
	used, n := 0, 0
	for i := offset; i < len(widths); i++ {
		need := widths[i]
		if n > 0 {
			need += columnGap
		}
		if n > 0 && used+need > width-1 {
			break
		}
		used += need
		n++
	}
	return n
}

// isMetricColumn reports whether column i holds metric values, which are
// right-aligned.
func (m Model) isMetricColumn(i int) bool {
	if i >= len(m.table.Columns) || m.table.Columns[i].AggConfig == nil {
		return false
	}
	agg, ok := m.table.Columns[i].AggConfig.(interface{ IsBucket() bool })
	return ok && !agg.IsBucket()
}

func (m Model) renderGrid(w, h int) string {
	widths := m.columnWidths()
	first := clamp(m.colOffset, 0, len(widths)-1)
	count := visibleColumns(widths, first, w)
	rows := max(h-2, 1)

	var lines []string

	var header []string
	for i := first; i < first+count; i++ {
		style := columnHeaderStyle
		if i == m.colCursor {
			style = columnHeaderActiveStyle
		}
		header = append(header, style.Render(fitCell(m.data.Columns[i].Name, widths[i], m.isMetricColumn(i))))
	}
	lines = append(lines, fitAnsiWidth(" "+strings.Join(header, strings.Repeat(" ", columnGap)), w))

	if len(m.data.Rows) == 0 {
		lines = append(lines, " "+emptyStateStyle.Render("No results match the current filters."))
	}

	end := min(m.rowOffset+rows, len(m.data.Rows))
	for r := m.rowOffset; r < end; r++ {
		lines = append(lines, m.renderGridRow(r, widths, first, count, w))
	}
	for len(lines) < rows+1 {
		lines = append(lines, "")
	}

	half := w / 2
	scroll := renderScrollBarLine(half, m.rowOffset, rows, len(m.data.Rows), axisRows)
	if scroll == "" {
		scroll = strings.Repeat(" ", half)
	}
	scroll += renderScrollBarLine(w-half, first, count, len(widths), axisColumns)
	lines = append(lines, scroll)

	return strings.Join(lines, "\n")
}

func (m Model) renderGridRow(r int, widths []int, first, count, w int) string {
	row := m.data.Rows[r]
	selectedRow := r == m.rowCursor
	gap := strings.Repeat(" ", columnGap)
	if selectedRow {
		gap = rowCursorStyle.Render(gap)
	}

	var cells []string
	for i := first; i < first+count; i++ {
		cell := row[m.data.Columns[i].Field]
		style := cellStyle
		switch {
		case core.IsSentinelBucket(cell.Raw):
			style = cellSentinelStyle
		case m.isMetricColumn(i):
			style = cellNumberStyle
		}
		if selectedRow {
			style = style.Background(colorSurface0)
		}
		if selectedRow && i == m.colCursor {
			style = cellCursorStyle
		}
		cells = append(cells, style.Render(fitCell(m.cellText(cell), widths[i], m.isMetricColumn(i))))
	}

	marker := " "
	if selectedRow {
		marker = lipgloss.NewStyle().Foreground(colorAccent).Render("▌")
	}
	return fitAnsiWidth(marker+strings.Join(cells, gap), w)
}

// fitCell truncates or pads text to width, right-aligned when right is set.
func fitCell(text string, width int, right bool) string {
	text = ansi.Truncate(strings.ReplaceAll(text, "\n", " "), width, "…")
	pad := width - lipgloss.Width(text)
	if pad <= 0 {
		return text
	}
	if right {
		return strings.Repeat(" ", pad) + text
	}
	return text + strings.Repeat(" ", pad)
}

// renderFilterBar lists the active filters as pills, in the order the
// n/p/d keys address them.
func (m Model) renderFilterBar(w int) string {
	if m.filters == nil {
		return ""
	}
	active := m.filters.Filters()
	if len(active) == 0 {
		return fitAnsiWidth(" "+dimStyle.Render("no filters · f on a cell to add one"), w)
	}

	pills := lo.Map(active, func(f core.Filter, _ int) string {
		label := f.Label()
		style := pillStyle
		switch {
		case f.Meta.Disabled:
			style = pillDisabledStyle
		case f.Meta.Negate:
			style = pillNegatedStyle
		case f.Pinned():
			style = pillPinnedStyle
		}
		if f.Pinned() {
			label = "● " + label
		}
		return style.Render(ansi.Truncate(label, 40, "…"))
	})
	return fitAnsiWidth(" "+strings.Join(pills, " "), w)
}
