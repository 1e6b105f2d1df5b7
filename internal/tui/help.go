package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelpOverlay draws a centered popup with the key bindings and how
// cell filters behave. Dismissed by pressing any key.
func (m Model) renderHelpOverlay(screenW, screenH int) string {
	headingStyle := lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	descStyle := lipgloss.NewStyle().Foreground(colorSubtext)

	h := m.help
	h.ShowAll = true
	h.Styles.FullKey = lipgloss.NewStyle().Bold(true).Foreground(colorSapphire)
	h.Styles.FullDesc = descStyle
	h.Styles.FullSeparator = dimStyle

	var lines []string
	lines = append(lines, overlayTitleStyle.Render("aggscope help"), "")

	lines = append(lines, headingStyle.Render("Keys"), "")
	lines = append(lines, h.FullHelpView(m.keys.FullHelp()), "")

	lines = append(lines, headingStyle.Render("Cell filters"), "")
	notes := []struct{ label, desc string }{
		{"f", "keep rows whose value equals the cell"},
		{"F", "exclude the cell value, negating the filter"},
		{"Other", "filters out every term listed beside it"},
		{"Missing", "matches rows where the field does not exist"},
		{"●", "pinned filter, kept across requests"},
	}
	for _, n := range notes {
		lines = append(lines, "  "+
			lipgloss.NewStyle().Bold(true).Foreground(colorSapphire).Render(padRight(n.label, 9))+
			descStyle.Render(n.desc))
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(colorDim).Italic(true).Render("press any key to close"))

	panel := overlayBoxStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(screenW, screenH, lipgloss.Center, lipgloss.Center, panel)
}

func padRight(s string, w int) string {
	if pad := w - lipgloss.Width(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
