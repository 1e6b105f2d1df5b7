package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBase     lipgloss.Color
	colorMantle   lipgloss.Color
	colorSurface0 lipgloss.Color
	colorSurface1 lipgloss.Color
	colorText     lipgloss.Color
	colorSubtext  lipgloss.Color
	colorDim      lipgloss.Color
	colorAccent   lipgloss.Color
	colorBlue     lipgloss.Color
	colorSapphire lipgloss.Color
	colorGreen    lipgloss.Color
	colorYellow   lipgloss.Color
	colorRed      lipgloss.Color
	colorPeach    lipgloss.Color
	colorTeal     lipgloss.Color
	colorLavender lipgloss.Color
)

var (
	headerBrandStyle lipgloss.Style
	headerTitleStyle lipgloss.Style
	headerMetaStyle  lipgloss.Style
	separatorStyle   lipgloss.Style

	columnHeaderStyle       lipgloss.Style
	columnHeaderActiveStyle lipgloss.Style
	cellStyle               lipgloss.Style
	cellNumberStyle         lipgloss.Style
	cellSentinelStyle       lipgloss.Style
	cellCursorStyle         lipgloss.Style
	rowCursorStyle          lipgloss.Style

	pillStyle         lipgloss.Style
	pillNegatedStyle  lipgloss.Style
	pillPinnedStyle   lipgloss.Style
	pillDisabledStyle lipgloss.Style

	statusStyle       lipgloss.Style
	errorStyle        lipgloss.Style
	dimStyle          lipgloss.Style
	emptyStateStyle   lipgloss.Style
	overlayBoxStyle   lipgloss.Style
	overlayTitleStyle lipgloss.Style
)

// applyTheme sets the color tokens and rebuilds every style from them.
func applyTheme(t Theme) {
	colorBase = t.Base
	colorMantle = t.Mantle
	colorSurface0 = t.Surface0
	colorSurface1 = t.Surface1
	colorText = t.Text
	colorSubtext = t.Subtext
	colorDim = t.Dim
	colorAccent = t.Accent
	colorBlue = t.Blue
	colorSapphire = t.Sapphire
	colorGreen = t.Green
	colorYellow = t.Yellow
	colorRed = t.Red
	colorPeach = t.Peach
	colorTeal = t.Teal
	colorLavender = t.Lavender

	headerBrandStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	headerMetaStyle = lipgloss.NewStyle().Foreground(colorSubtext)
	separatorStyle = lipgloss.NewStyle().Foreground(colorSurface1)

	columnHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	columnHeaderActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Underline(true)
	cellStyle = lipgloss.NewStyle().Foreground(colorText)
	cellNumberStyle = lipgloss.NewStyle().Foreground(colorTeal)
	cellSentinelStyle = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	cellCursorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBase).Background(colorAccent)
	rowCursorStyle = lipgloss.NewStyle().Background(colorSurface0)

	pillStyle = lipgloss.NewStyle().Foreground(colorMantle).Background(colorGreen).Padding(0, 1)
	pillNegatedStyle = lipgloss.NewStyle().Foreground(colorMantle).Background(colorRed).Padding(0, 1)
	pillPinnedStyle = lipgloss.NewStyle().Foreground(colorMantle).Background(colorLavender).Padding(0, 1)
	pillDisabledStyle = lipgloss.NewStyle().Foreground(colorDim).Background(colorSurface0).Strikethrough(true).Padding(0, 1)

	statusStyle = lipgloss.NewStyle().Foreground(colorYellow)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	dimStyle = lipgloss.NewStyle().Foreground(colorDim)
	emptyStateStyle = lipgloss.NewStyle().Foreground(colorSubtext).Italic(true)
	overlayBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(1, 2)
	overlayTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
}
