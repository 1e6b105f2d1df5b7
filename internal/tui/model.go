package tui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/janekbaraniewski/aggscope/internal/config"
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/filters"
	"github.com/janekbaraniewski/aggscope/internal/form"
	"github.com/janekbaraniewski/aggscope/internal/inspector"
)

// TableMsg delivers a freshly tabified result. Seq orders concurrent runs;
// results older than the last applied one are dropped.
type TableMsg struct {
	Seq   uint64
	Table core.TabbedTable
	Took  time.Duration
}

// ErrorMsg reports a failed run.
type ErrorMsg struct {
	Seq uint64
	Err error
}

// FiltersChangedMsg is sent after a cell action or filter bar edit changed
// the active filters.
type FiltersChangedMsg struct{}

// RefreshMsg asks for a re-run when live reload is enabled. The data file
// watcher sends it.
type RefreshMsg struct{}

type Model struct {
	title   string
	filters *filters.Manager
	formats core.FormatFactory

	table   core.TabbedTable
	data    core.TabularData
	hasData bool
	err     error
	took    time.Duration
	seq     uint64

	rowCursor int
	colCursor int
	rowOffset int
	colOffset int

	width    int
	height   int
	showHelp bool
	status   string

	refreshing bool
	window     core.TimeWindow

	inspector         config.InspectorConfig
	showSettingsModal bool
	settingsForm      *form.Form
	settingsBoxes     []*form.CheckboxField
	settingsCursor    int
	settingsStatus    string

	keys keyMap
	help help.Model

	// onRefresh is called when the current request should run again with
	// the active filters. Set from main.go to wire into the runner.
	onRefresh    func()
	onTimeWindow func(core.TimeWindow)
}

// NewModel builds an inspector for the request titled title. Cell filters
// are added to manager; formats builds the per-column formatters.
func NewModel(title string, manager *filters.Manager, formats core.FormatFactory, inspectorCfg config.InspectorConfig) Model {
	m := Model{
		title:     title,
		filters:   manager,
		formats:   formats,
		inspector: inspectorCfg,
		keys:      defaultKeyMap(),
		help:      help.New(),
	}
	m.buildSettingsForm()
	if manager != nil {
		manager.SetPinByDefault(inspectorCfg.PinFilters)
	}
	return m
}

// SetOnRefresh sets a callback invoked when the request should re-run.
func (m *Model) SetOnRefresh(fn func()) {
	m.onRefresh = fn
}

// SetTimeWindow sets the window shown in the header. fn, when non-nil, is
// called with the new window each time the user cycles it.
func (m *Model) SetTimeWindow(window core.TimeWindow, fn func(core.TimeWindow)) {
	m.window = window
	m.onTimeWindow = fn
}

// Inspector returns the current inspector toggles.
func (m Model) Inspector() config.InspectorConfig {
	return m.inspector
}

type themePersistedMsg struct {
	err error
}

type inspectorPersistedMsg struct {
	err error
}

func (m Model) persistThemeCmd(themeName string) tea.Cmd {
	return func() tea.Msg {
		err := config.SaveTheme(themeName)
		if err != nil {
			log.Printf("theme persist: %v", err)
		}
		return themePersistedMsg{err: err}
	}
}

func (m Model) persistInspectorCmd() tea.Cmd {
	inspectorCfg := m.inspector
	return func() tea.Msg {
		err := config.SaveInspector(inspectorCfg)
		if err != nil {
			log.Printf("inspector settings persist: %v", err)
		}
		return inspectorPersistedMsg{err: err}
	}
}

func filtersChangedCmd() tea.Msg { return FiltersChangedMsg{} }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scrollIntoView()
		return m, nil

	case TableMsg:
		if msg.Seq < m.seq {
			return m, nil
		}
		m.seq = msg.Seq
		m.refreshing = false
		return m.applyTable(msg.Table, msg.Took), nil

	case ErrorMsg:
		if msg.Seq < m.seq {
			return m, nil
		}
		m.seq = msg.Seq
		m.refreshing = false
		m.err = msg.Err
		return m, nil

	case FiltersChangedMsg:
		return m.requestRefresh(), nil

	case RefreshMsg:
		if !m.inspector.LiveReload {
			return m, nil
		}
		return m.requestRefresh(), nil

	case themePersistedMsg:
		if msg.err != nil {
			m.status = "theme save failed"
		} else {
			m.status = "theme saved"
		}
		return m, nil

	case inspectorPersistedMsg:
		if msg.err != nil {
			m.settingsStatus = "save failed"
		} else {
			m.settingsStatus = "saved"
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// applyTable projects table into display rows and keeps the cursor in range.
func (m Model) applyTable(table core.TabbedTable, took time.Duration) Model {
	opts := inspector.Options{DeserializeFieldFormat: m.formats}
	if m.filters != nil {
		opts.AddFilters = m.filters.Add
	}
	data, err := inspector.BuildTabularData(context.Background(), table, opts)
	if err != nil {
		m.err = err
		return m
	}
	m.table = table
	m.data = data
	m.took = took
	m.err = nil
	m.hasData = true
	m.rowCursor = clamp(m.rowCursor, 0, len(data.Rows)-1)
	m.colCursor = clamp(m.colCursor, 0, len(data.Columns)-1)
	m.scrollIntoView()
	return m
}

func (m Model) requestRefresh() Model {
	m.refreshing = true
	if m.onRefresh != nil {
		m.onRefresh()
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Help) && !m.showSettingsModal {
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.showSettingsModal {
		return m.handleSettingsModalKey(msg)
	}

	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.rowCursor--
	case key.Matches(msg, m.keys.Down):
		m.rowCursor++
	case key.Matches(msg, m.keys.Left):
		m.colCursor--
	case key.Matches(msg, m.keys.Right):
		m.colCursor++
	case key.Matches(msg, m.keys.Top):
		m.rowCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.rowCursor = len(m.data.Rows) - 1
	case key.Matches(msg, m.keys.Filter):
		return m.filterSelected(false)
	case key.Matches(msg, m.keys.FilterOut):
		return m.filterSelected(true)
	case key.Matches(msg, m.keys.Negate):
		return m.editLastFilter("negate", m.filters.ToggleNegate)
	case key.Matches(msg, m.keys.Pin):
		return m.editLastFilter("pin", m.filters.TogglePinned)
	case key.Matches(msg, m.keys.Drop):
		return m.editLastFilter("drop", m.filters.RemoveFilter)
	case key.Matches(msg, m.keys.Clear):
		if m.filters == nil || len(m.filters.AppFilters()) == 0 {
			m.status = "no unpinned filters"
			return m, nil
		}
		m.filters.ClearApp()
		return m, filtersChangedCmd
	case key.Matches(msg, m.keys.Refresh):
		return m.requestRefresh(), nil
	case key.Matches(msg, m.keys.Window):
		if m.onTimeWindow == nil {
			m.status = "request has no time field"
			return m, nil
		}
		m.window = core.NextTimeWindow(m.window)
		m.onTimeWindow(m.window)
		m.status = m.window.Label()
		return m.requestRefresh(), nil
	case key.Matches(msg, m.keys.Raw):
		m.setShowRaw(!m.inspector.ShowRaw)
		return m, m.persistInspectorCmd()
	case key.Matches(msg, m.keys.Settings):
		m.openSettingsModal()
		return m, nil
	case key.Matches(msg, m.keys.Theme):
		name := CycleTheme()
		return m, m.persistThemeCmd(name)
	default:
		return m, nil
	}

	m.rowCursor = clamp(m.rowCursor, 0, len(m.data.Rows)-1)
	m.colCursor = clamp(m.colCursor, 0, len(m.data.Columns)-1)
	m.scrollIntoView()
	return m, nil
}

// selectedCell returns the column and value under the cursor.
func (m Model) selectedCell() (core.TabularColumn, core.FormattedData, bool) {
	if m.rowCursor < 0 || m.rowCursor >= len(m.data.Rows) ||
		m.colCursor < 0 || m.colCursor >= len(m.data.Columns) {
		return core.TabularColumn{}, core.FormattedData{}, false
	}
	col := m.data.Columns[m.colCursor]
	return col, m.data.Rows[m.rowCursor][col.Field], true
}

func (m Model) filterSelected(out bool) (tea.Model, tea.Cmd) {
	col, cell, ok := m.selectedCell()
	if !ok {
		return m, nil
	}
	callback := col.Filter
	if out {
		callback = col.FilterOut
	}
	if callback == nil {
		m.status = fmt.Sprintf("%s is not filterable", col.Name)
		return m, nil
	}
	if err := callback(cell); err != nil {
		m.status = "filter: " + err.Error()
		return m, nil
	}
	return m, filtersChangedCmd
}

// editLastFilter applies fn to the most recently listed filter.
func (m Model) editLastFilter(action string, fn func(int) bool) (tea.Model, tea.Cmd) {
	if m.filters == nil {
		return m, nil
	}
	n := len(m.filters.Filters())
	if n == 0 || !fn(n-1) {
		m.status = "no filter to " + action
		return m, nil
	}
	return m, filtersChangedCmd
}

// gridRows is the number of data rows that fit below the column header.
func (m Model) gridRows() int {
	// header, filter bar, separator, column header, scroll line, footer separator, footer
	return max(m.height-7, 1)
}

func (m *Model) scrollIntoView() {
	rows := m.gridRows()
	if m.rowCursor < m.rowOffset {
		m.rowOffset = m.rowCursor
	}
	if m.rowCursor >= m.rowOffset+rows {
		m.rowOffset = m.rowCursor - rows + 1
	}
	m.rowOffset = clamp(m.rowOffset, 0, max(len(m.data.Rows)-rows, 0))

	if m.colCursor < m.colOffset {
		m.colOffset = m.colCursor
	}
	widths := m.columnWidths()
	for m.colOffset < m.colCursor && m.colCursor >= m.colOffset+visibleColumns(widths, m.colOffset, m.width) {
		m.colOffset++
	}
	m.colOffset = clamp(m.colOffset, 0, max(len(m.data.Columns)-1, 0))
}

func (m Model) View() string {
	if m.width < 30 || m.height < 8 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Render("\n  Terminal too small. Resize to at least 30×8.")
	}
	if m.showHelp {
		return m.renderHelpOverlay(m.width, m.height)
	}
	if m.showSettingsModal {
		return m.renderSettingsModalOverlay()
	}

	w := m.width
	sep := separatorStyle.Render(strings.Repeat("━", w))
	body := m.renderBody(w, m.height-5)
	view := strings.Join([]string{
		m.renderHeader(w),
		m.renderFilterBar(w),
		sep,
		body,
		m.renderFooter(w),
	}, "\n")
	return padToSize(view, w, m.height)
}

func (m Model) renderHeader(w int) string {
	left := headerBrandStyle.Render(" aggscope ") + headerTitleStyle.Render(m.title)

	var meta []string
	switch {
	case m.refreshing:
		meta = append(meta, "running…")
	case m.hasData:
		meta = append(meta, fmt.Sprintf("%d rows", len(m.data.Rows)))
		meta = append(meta, fmt.Sprintf("%d cols", len(m.data.Columns)))
		meta = append(meta, m.took.Round(time.Millisecond).String())
	}
	if m.window != "" && m.window != core.TimeWindowAll {
		meta = append(meta, m.window.Label())
	}
	if m.inspector.ShowRaw {
		meta = append(meta, "raw")
	}
	if m.inspector.LiveReload {
		meta = append(meta, "live")
	}
	meta = append(meta, ThemeName())
	right := headerMetaStyle.Render(strings.Join(meta, " · ") + " ")

	gap := w - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return fitAnsiWidth(left+" "+right, w)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderBody(w, h int) string {
	switch {
	case m.err != nil:
		return padToSize("\n "+errorStyle.Render("error: ")+m.err.Error(), w, h)
	case !m.hasData:
		return padToSize("\n "+emptyStateStyle.Render("Running request…"), w, h)
	case len(m.data.Columns) == 0:
		return padToSize("\n "+emptyStateStyle.Render("The request has no aggregations."), w, h)
	}
	return padToSize(m.renderGrid(w, h), w, h)
}

func (m Model) renderFooter(w int) string {
	sep := separatorStyle.Render(strings.Repeat("━", w))
	var line string
	switch {
	case m.status != "":
		line = " " + statusStyle.Render(m.status)
	default:
		line = " " + m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return sep + "\n" + fitAnsiWidth(line, w)
}

func padToSize(content string, w, h int) string {
	lines := strings.Split(content, "\n")
	for len(lines) < h {
		lines = append(lines, "")
	}
	if len(lines) > h {
		lines = lines[:h]
	}
	return strings.Join(lines, "\n")
}
