package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

type scrollAxis int

const (
	axisRows scrollAxis = iota
	axisColumns
)

// renderScrollBarLine draws a one-line scroll indicator for a window of
// visible items starting at offset out of total. It is empty when
// everything fits.
func renderScrollBarLine(width, offset, visible, total int, axis scrollAxis) string {
	if width <= 0 || visible <= 0 || total <= visible {
		return ""
	}

	maxOffset := total - visible
	offset = clamp(offset, 0, maxOffset)

	prefix, startArrow, endArrow := " rows ", "▲", "▼"
	if axis == axisColumns {
		prefix, startArrow, endArrow = " cols ", "◀", "▶"
	}
	suffix := fmt.Sprintf(" %d-%d/%d", offset+1, offset+visible, total)

	trackW := width - lipgloss.Width(prefix) - lipgloss.Width(suffix) - 2
	if trackW < 6 {
		return fitAnsiWidth(prefix+strings.TrimSpace(suffix), width)
	}

	thumbW := int(math.Round(float64(visible) / float64(total) * float64(trackW)))
	thumbW = clamp(thumbW, 1, trackW)
	thumbPos := 0
	if trackW > thumbW {
		thumbPos = int(math.Round(float64(offset) / float64(maxOffset) * float64(trackW-thumbW)))
	}

	railStyle := lipgloss.NewStyle().Foreground(colorSurface1)
	thumbStyle := lipgloss.NewStyle().Foreground(colorAccent)

	line := dimStyle.Render(prefix+startArrow) +
		railStyle.Render(strings.Repeat("─", thumbPos)) +
		thumbStyle.Render(strings.Repeat("━", thumbW)) +
		railStyle.Render(strings.Repeat("─", trackW-thumbPos-thumbW)) +
		dimStyle.Render(endArrow+suffix)

	return fitAnsiWidth(line, width)
}

// fitAnsiWidth cuts or pads s to exactly width cells, keeping escape codes intact.
func fitAnsiWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	out := ansi.Cut(s, 0, width)
	if pad := width - lipgloss.Width(out); pad > 0 {
		out += strings.Repeat(" ", pad)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
