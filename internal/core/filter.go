package core

import (
	"fmt"
	"reflect"
	"strings"
)

type FilterStore string

const (
	AppState    FilterStore = "appState"
	GlobalState FilterStore = "globalState"
)

type ClauseKind string

const (
	ClausePhrase  ClauseKind = "phrase"
	ClausePhrases ClauseKind = "phrases"
	ClauseRange   ClauseKind = "range"
	ClauseExists  ClauseKind = "exists"
)

// Range is a half-open interval; nil bounds are unbounded.
type Range struct {
	GTE any `json:"gte,omitempty" yaml:"gte,omitempty"`
	LT  any `json:"lt,omitempty" yaml:"lt,omitempty"`
}

// Clause is the query a filter applies.
type Clause struct {
	Kind   ClauseKind `json:"kind" yaml:"kind"`
	Field  string     `json:"field" yaml:"field"`
	Values []any      `json:"values,omitempty" yaml:"values,omitempty"`
	Range  *Range     `json:"range,omitempty" yaml:"range,omitempty"`
}

type FilterMeta struct {
	Index    string `json:"index,omitempty" yaml:"index,omitempty"`
	Key      string `json:"key" yaml:"key"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Alias    string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Negate   bool   `json:"negate" yaml:"negate"`
	Disabled bool   `json:"disabled" yaml:"disabled"`
}

type FilterState struct {
	Store FilterStore `json:"store" yaml:"store"`
}

type Filter struct {
	Meta   FilterMeta  `json:"meta" yaml:"meta"`
	Clause Clause      `json:"clause" yaml:"clause"`
	State  FilterState `json:"state" yaml:"state"`
}

// Clone returns a copy that shares no slices with f.
func (f Filter) Clone() Filter {
	out := f
	if f.Clause.Values != nil {
		out.Clause.Values = append([]any(nil), f.Clause.Values...)
	}
	if f.Clause.Range != nil {
		r := *f.Clause.Range
		out.Clause.Range = &r
	}
	return out
}

// WithNegate returns a copy of f with Meta.Negate set.
func (f Filter) WithNegate(negate bool) Filter {
	out := f.Clone()
	out.Meta.Negate = negate
	return out
}

func (f Filter) Pinned() bool {
	return f.State.Store == GlobalState
}

// SameAs compares filters ignoring their store and disabled flag.
func (f Filter) SameAs(other Filter) bool {
	return f.Meta.Key == other.Meta.Key &&
		f.Meta.Index == other.Meta.Index &&
		f.Meta.Negate == other.Meta.Negate &&
		reflect.DeepEqual(f.Clause, other.Clause)
}

// Label renders the filter the way it is shown in the filter bar.
func (f Filter) Label() string {
	if f.Meta.Alias != "" {
		return f.Meta.Alias
	}
	var b strings.Builder
	if f.Meta.Negate {
		b.WriteString("NOT ")
	}
	b.WriteString(f.Meta.Key)
	switch f.Clause.Kind {
	case ClauseExists:
		b.WriteString(": exists")
	case ClausePhrases:
		b.WriteString(" is one of ")
		b.WriteString(f.Meta.Value)
	default:
		b.WriteString(": ")
		b.WriteString(f.Meta.Value)
	}
	return b.String()
}

func (f Filter) String() string {
	return fmt.Sprintf("%s [%s]", f.Label(), f.State.Store)
}
