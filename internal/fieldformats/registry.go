// Package fieldformats turns serialized format descriptors into formatters
// that render raw aggregation values as display text.
package fieldformats

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrUnknownFormat is returned when a descriptor names an unregistered format.
var ErrUnknownFormat = errors.New("fieldformats: unknown format")

// Constructor builds a formatter from descriptor params. Nested formats are
// resolved through the registry.
type Constructor func(r *Registry, params map[string]any) (core.Formatter, error)

type Registry struct {
	mu      sync.RWMutex
	ctors   map[string]Constructor
	locale  language.Tag
	printer *message.Printer
}

// NewRegistry returns a registry with the built-in formats registered.
func NewRegistry(locale language.Tag) *Registry {
	r := &Registry{
		ctors:   make(map[string]Constructor),
		locale:  locale,
		printer: message.NewPrinter(locale),
	}
	r.Register(FormatString, newStringFormat)
	r.Register(FormatNumber, newNumberFormat)
	r.Register(FormatPercent, newPercentFormat)
	r.Register(FormatBytes, newBytesFormat)
	r.Register(FormatBoolean, newBooleanFormat)
	r.Register(FormatDate, newDateFormat)
	r.Register(FormatTerms, newTermsFormat)
	r.Register(FormatRange, newRangeFormat)
	return r
}

// ParseLocale resolves a BCP-47 tag, falling back to English.
func ParseLocale(s string) language.Tag {
	s = strings.TrimSpace(s)
	if s == "" {
		return language.English
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}

func (r *Registry) Locale() language.Tag {
	return r.locale
}

// Register adds or replaces the constructor for id.
func (r *Registry) Register(id string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[id] = ctor
}

// IDs lists registered format ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.ctors))
	for id := range r.ctors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Deserialize instantiates the formatter described by f.
func (r *Registry) Deserialize(f core.SerializedFieldFormat) (core.Formatter, error) {
	id := f.ID
	if id == "" {
		id = FormatString
	}
	r.mu.RLock()
	ctor, ok := r.ctors[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, id)
	}
	formatter, err := ctor(r, f.Params)
	if err != nil {
		return nil, fmt.Errorf("fieldformats: building %s format: %w", id, err)
	}
	return formatter, nil
}

// Factory exposes Deserialize as a core.FormatFactory.
func (r *Registry) Factory() core.FormatFactory {
	return r.Deserialize
}

func (r *Registry) nested(params map[string]any) (core.Formatter, error) {
	inner := core.SerializedFieldFormat{ID: stringParam(params, "id", "")}
	if p, ok := params["params"].(map[string]any); ok {
		inner.Params = p
	}
	return r.Deserialize(inner)
}
