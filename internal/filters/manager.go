package filters

import (
	"slices"
	"sync"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/samber/lo"
)

// Manager holds the active filters. Pinned filters live in the global store
// and survive request changes; the rest belong to the current app state.
type Manager struct {
	mu           sync.Mutex
	global       []core.Filter
	app          []core.Filter
	pinByDefault bool
	listeners    []func([]core.Filter)
}

func NewManager(pinByDefault bool) *Manager {
	return &Manager{pinByDefault: pinByDefault}
}

func (m *Manager) SetPinByDefault(pin bool) {
	m.mu.Lock()
	m.pinByDefault = pin
	m.mu.Unlock()
}

// OnChange registers fn to receive the filter list after every change.
func (m *Manager) OnChange(fn func([]core.Filter)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Add adds filters using the default pin status. It satisfies core.AddFilters.
func (m *Manager) Add(filters []core.Filter) {
	m.mu.Lock()
	pinned := m.pinByDefault
	m.mu.Unlock()
	m.AddFilters(filters, pinned)
}

// AddFilters adds filters to the global store when pinned, the app store
// otherwise. A filter equal to an existing one replaces it.
func (m *Manager) AddFilters(filters []core.Filter, pinned bool) {
	if len(filters) == 0 {
		return
	}
	store := core.AppState
	if pinned {
		store = core.GlobalState
	}

	m.mu.Lock()
	for _, f := range filters {
		f = f.Clone()
		f.State.Store = store
		m.global = removeSame(m.global, f)
		m.app = removeSame(m.app, f)
		if pinned {
			m.global = append(m.global, f)
		} else {
			m.app = append(m.app, f)
		}
	}
	m.mu.Unlock()
	m.emit()
}

// SetFilters replaces all filters, sorting them into stores by their state.
func (m *Manager) SetFilters(filters []core.Filter) {
	m.mu.Lock()
	m.global, m.app = nil, nil
	for _, f := range filters {
		f = f.Clone()
		if f.Pinned() {
			m.global = append(removeSame(m.global, f), f)
			continue
		}
		f.State.Store = core.AppState
		m.app = append(removeSame(m.app, f), f)
	}
	m.mu.Unlock()
	m.emit()
}

// Filters returns global filters followed by app filters.
func (m *Manager) Filters() []core.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Manager) GlobalFilters() []core.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(m.global, func(f core.Filter, _ int) core.Filter { return f.Clone() })
}

func (m *Manager) AppFilters() []core.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(m.app, func(f core.Filter, _ int) core.Filter { return f.Clone() })
}

// RemoveFilter drops the filter at index i of Filters().
func (m *Manager) RemoveFilter(i int) bool {
	return m.update(i, func(f core.Filter) (core.Filter, bool) { return f, false })
}

func (m *Manager) ToggleNegate(i int) bool {
	return m.update(i, func(f core.Filter) (core.Filter, bool) {
		return f.WithNegate(!f.Meta.Negate), true
	})
}

func (m *Manager) ToggleDisabled(i int) bool {
	return m.update(i, func(f core.Filter) (core.Filter, bool) {
		f.Meta.Disabled = !f.Meta.Disabled
		return f, true
	})
}

// TogglePinned moves the filter at index i between the global and app stores.
func (m *Manager) TogglePinned(i int) bool {
	m.mu.Lock()
	all := m.snapshot()
	if i < 0 || i >= len(all) {
		m.mu.Unlock()
		return false
	}
	f := all[i]
	m.global = removeSame(m.global, f)
	m.app = removeSame(m.app, f)
	if f.Pinned() {
		f.State.Store = core.AppState
		m.app = append(m.app, f)
	} else {
		f.State.Store = core.GlobalState
		m.global = append(m.global, f)
	}
	m.mu.Unlock()
	m.emit()
	return true
}

// ClearApp removes every unpinned filter.
func (m *Manager) ClearApp() {
	m.mu.Lock()
	m.app = nil
	m.mu.Unlock()
	m.emit()
}

func (m *Manager) Clear() {
	m.mu.Lock()
	m.app, m.global = nil, nil
	m.mu.Unlock()
	m.emit()
}

func (m *Manager) update(i int, fn func(core.Filter) (core.Filter, bool)) bool {
	m.mu.Lock()
	var list *[]core.Filter
	idx := i
	switch {
	case i < 0:
	case i < len(m.global):
		list = &m.global
	case i-len(m.global) < len(m.app):
		list = &m.app
		idx = i - len(m.global)
	}
	if list == nil {
		m.mu.Unlock()
		return false
	}
	updated, keep := fn((*list)[idx])
	if keep {
		(*list)[idx] = updated
	} else {
		*list = append((*list)[:idx:idx], (*list)[idx+1:]...)
	}
	m.mu.Unlock()
	m.emit()
	return true
}

func (m *Manager) snapshot() []core.Filter {
	out := make([]core.Filter, 0, len(m.global)+len(m.app))
	for _, f := range m.global {
		out = append(out, f.Clone())
	}
	for _, f := range m.app {
		out = append(out, f.Clone())
	}
	return out
}

func (m *Manager) emit() {
	m.mu.Lock()
	listeners := slices.Clone(m.listeners)
	filters := m.snapshot()
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(filters)
	}
}

func removeSame(list []core.Filter, f core.Filter) []core.Filter {
	return lo.Reject(list, func(existing core.Filter, _ int) bool { return existing.SameAs(f) })
}
