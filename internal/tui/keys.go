package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Filter    key.Binding
	FilterOut key.Binding
	Negate    key.Binding
	Pin       key.Binding
	Drop      key.Binding
	Clear     key.Binding
	Refresh   key.Binding
	Window    key.Binding
	Raw       key.Binding
	Theme     key.Binding
	Settings  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Top:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first row")),
		Bottom:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last row")),
		Filter:    key.NewBinding(key.WithKeys("f", "+"), key.WithHelp("f", "filter for value")),
		FilterOut: key.NewBinding(key.WithKeys("F", "-"), key.WithHelp("F", "filter out value")),
		Negate:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "negate last filter")),
		Pin:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin last filter")),
		Drop:      key.NewBinding(key.WithKeys("d", "backspace"), key.WithHelp("d", "drop last filter")),
		Clear:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear unpinned")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "re-run")),
		Window:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "time window")),
		Raw:       key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "raw values")),
		Theme:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "next theme")),
		Settings:  key.NewBinding(key.WithKeys(","), key.WithHelp(",", "settings")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp and FullHelp satisfy help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Filter, k.FilterOut, k.Clear, k.Settings, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Top, k.Bottom},
		{k.Filter, k.FilterOut, k.Negate, k.Pin, k.Drop, k.Clear},
		{k.Refresh, k.Window, k.Raw, k.Theme, k.Settings, k.Help, k.Quit},
	}
}
