package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/janekbaraniewski/aggscope/internal/config"
	"github.com/janekbaraniewski/aggscope/internal/form"
)

const (
	settingPinFilters = "pin_filters"
	settingShowRaw    = "show_raw"
	settingLiveReload = "live_reload"
)

func (m *Model) buildSettingsForm() {
	pin := form.NewField(settingPinFilters, "Pin new filters", m.inspector.PinFilters)
	pin.HelpText = "Filters added from cells go to the global store and survive across requests."

	raw := form.NewField(settingShowRaw, "Show raw values", m.inspector.ShowRaw)
	raw.HelpText = "Display the stored value of each cell instead of its formatted text."

	live := form.NewField(settingLiveReload, "Live reload", m.inspector.LiveReload)
	live.HelpTextFunc = func() string {
		if v, _ := live.Value.(bool); v {
			return "Re-running whenever the database file changes."
		}
		return "Re-run the request whenever the database file changes."
	}

	m.settingsForm = form.New(pin, raw, live)
	m.settingsBoxes = []*form.CheckboxField{
		form.NewCheckbox(pin, settingPinFilters),
		form.NewCheckbox(raw, settingShowRaw),
		form.NewCheckbox(live, settingLiveReload),
	}
}

func (m *Model) openSettingsModal() {
	m.showSettingsModal = true
	m.settingsStatus = ""
	m.settingsCursor = clamp(m.settingsCursor, 0, len(m.settingsBoxes)-1)
}

func (m *Model) closeSettingsModal() {
	m.showSettingsModal = false
	m.settingsStatus = ""
}

func (m *Model) setShowRaw(show bool) {
	if f, ok := m.settingsForm.Field(settingShowRaw); ok {
		f.SetValue(show)
	}
	m.syncInspectorFromForm()
}

// syncInspectorFromForm copies the checkbox values into the inspector
// settings and applies them.
func (m *Model) syncInspectorFromForm() {
	values, _ := m.settingsForm.Submit()
	next := config.InspectorConfig{}
	next.PinFilters, _ = values[settingPinFilters].(bool)
	next.ShowRaw, _ = values[settingShowRaw].(bool)
	next.LiveReload, _ = values[settingLiveReload].(bool)
	m.inspector = next
	if m.filters != nil {
		m.filters.SetPinByDefault(next.PinFilters)
	}
	m.scrollIntoView()
}

func (m Model) handleSettingsModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc", "backspace", ",":
		m.closeSettingsModal()
		return m, nil
	case "up", "k":
		if m.settingsCursor > 0 {
			m.settingsCursor--
		}
	case "down", "j", "tab":
		if m.settingsCursor < len(m.settingsBoxes)-1 {
			m.settingsCursor++
		}
	case " ", "enter", "x":
		if len(m.settingsBoxes) == 0 {
			return m, nil
		}
		m.settingsBoxes[m.settingsCursor].Toggle()
		m.syncInspectorFromForm()
		m.settingsStatus = "saving settings..."
		return m, m.persistInspectorCmd()
	}
	return m, nil
}

func (m Model) renderSettingsModalOverlay() string {
	contentW := clamp(m.width-24, 40, 72)

	styles := form.CheckboxStyles{
		Box:     lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Label:   lipgloss.NewStyle().Foreground(colorText),
		Focused: lipgloss.NewStyle().Bold(true).Foreground(colorBase).Background(colorAccent),
		Help:    lipgloss.NewStyle().Foreground(colorSubtext),
		Error:   lipgloss.NewStyle().Foreground(colorRed),
	}

	var body []string
	for i, box := range m.settingsBoxes {
		box.Focused = i == m.settingsCursor
		body = append(body, box.View(contentW, styles))
	}

	rule := lipgloss.NewStyle().Foreground(colorSurface1).Render(strings.Repeat("─", contentW))
	lines := []string{
		overlayTitleStyle.Render("Settings"),
		rule,
		strings.Join(body, "\n\n"),
		rule,
		dimStyle.Render("↑/↓ move · space toggle · esc close"),
	}
	if m.settingsStatus != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(colorSapphire).Render(m.settingsStatus))
	}

	panel := overlayBoxStyle.
		Background(colorBase).
		Width(contentW).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}
