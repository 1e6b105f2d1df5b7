// Package search loads aggregation requests and runs them against a
// datasource store.
package search

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/aggs"
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/filters"
	"gopkg.in/yaml.v3"
)

var ErrInvalidRequest = errors.New("search: invalid request")

// Schema names the role of an aggregation in a request.
type Schema string

const (
	SchemaMetric  Schema = "metric"
	SchemaBucket  Schema = "bucket"
	SchemaSegment Schema = "segment"
	SchemaSplit   Schema = "split"
)

type AggDef struct {
	aggs.Def `yaml:",inline"`
	Schema   Schema `yaml:"schema,omitempty"`
}

// FilterDef is the request file form of a filter. Exactly one of Phrase,
// Phrases, Range or Exists selects the clause.
type FilterDef struct {
	Field    string    `yaml:"field"`
	Phrase   any       `yaml:"phrase,omitempty"`
	Phrases  []any     `yaml:"phrases,omitempty"`
	Range    *RangeDef `yaml:"range,omitempty"`
	Exists   bool      `yaml:"exists,omitempty"`
	Negate   bool      `yaml:"negate,omitempty"`
	Disabled bool      `yaml:"disabled,omitempty"`
	Alias    string    `yaml:"alias,omitempty"`
}

type RangeDef struct {
	GTE any `yaml:"gte,omitempty"`
	LT  any `yaml:"lt,omitempty"`
}

type Request struct {
	Title   string      `yaml:"title,omitempty"`
	Table   string      `yaml:"table"`
	Aggs    []AggDef    `yaml:"aggs"`
	Filters []FilterDef `yaml:"filters,omitempty"`
	// TimeField and TimeRange restrict the request to a window ending now,
	// e.g. timeField: ts, timeRange: 7d.
	TimeField string `yaml:"timeField,omitempty"`
	TimeRange string `yaml:"timeRange,omitempty"`
}

// Load reads a request file.
func Load(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("search: reading request: %w", err)
	}
	req, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

func Parse(data []byte) (*Request, error) {
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("search: parsing request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Title == "" {
		req.Title = req.Table
	}
	return &req, nil
}

// Validate checks the parts of the request that do not depend on the table.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Table) == "" {
		return fmt.Errorf("%w: no table", ErrInvalidRequest)
	}
	window, err := core.ParseTimeWindow(r.TimeRange)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if window != core.TimeWindowAll && strings.TrimSpace(r.TimeField) == "" {
		return fmt.Errorf("%w: timeRange %s needs a timeField", ErrInvalidRequest, window)
	}
	for _, agg := range r.Aggs {
		switch agg.Schema {
		case "":
		case SchemaMetric:
			if agg.Type.IsBucket() {
				return fmt.Errorf("%w: aggregation %s: %s is not a metric", ErrInvalidRequest, agg.ID, agg.Type)
			}
		case SchemaBucket, SchemaSegment, SchemaSplit:
			if !agg.Type.IsBucket() {
				return fmt.Errorf("%w: aggregation %s: %s is not a bucket aggregation", ErrInvalidRequest, agg.ID, agg.Type)
			}
		default:
			return fmt.Errorf("%w: aggregation %s: unknown schema %q", ErrInvalidRequest, agg.ID, agg.Schema)
		}
	}
	return nil
}

// Defs returns the aggregation definitions in request order.
func (r *Request) Defs() []aggs.Def {
	out := make([]aggs.Def, len(r.Aggs))
	for i, a := range r.Aggs {
		out[i] = a.Def
	}
	return out
}

// Window returns the request time window; TimeWindowAll when unset or invalid.
func (r *Request) Window() core.TimeWindow {
	window, err := core.ParseTimeWindow(r.TimeRange)
	if err != nil {
		return core.TimeWindowAll
	}
	return window
}

// TimeFilter returns the range filter for the request time window ending at
// now, or nil when the request is not time restricted.
func (r *Request) TimeFilter(pattern core.IndexPattern, now time.Time) (*core.Filter, error) {
	window := r.Window()
	from, to, ok := window.Bounds(now)
	if !ok || r.TimeField == "" {
		return nil, nil
	}
	field := pattern.FieldByName(r.TimeField)
	if field == nil {
		return nil, fmt.Errorf("search: timeField: %w: %q", filters.ErrUnknownField, r.TimeField)
	}
	if field.Type != core.FieldTypeDate {
		return nil, fmt.Errorf("%w: timeField %s is %s, not a date", ErrInvalidRequest, field.Name, field.Type)
	}
	f := filters.BuildRangeFilter(*field, core.Range{GTE: from.UTC(), LT: to.UTC()}, pattern.Title)
	f.Meta.Alias = field.Name + ": " + window.Label()
	return &f, nil
}

// BuildFilters resolves the request filters against pattern.
func (r *Request) BuildFilters(pattern core.IndexPattern) ([]core.Filter, error) {
	out := make([]core.Filter, 0, len(r.Filters))
	for i, def := range r.Filters {
		field := pattern.FieldByName(def.Field)
		if field == nil {
			return nil, fmt.Errorf("search: filter %d: %w: %q", i, filters.ErrUnknownField, def.Field)
		}

		var f core.Filter
		switch {
		case def.Exists:
			f = filters.BuildExistsFilter(*field, pattern.Title)
		case def.Range != nil:
			f = filters.BuildRangeFilter(*field, core.Range{GTE: def.Range.GTE, LT: def.Range.LT}, pattern.Title)
		case len(def.Phrases) > 0:
			f = filters.BuildPhrasesFilter(*field, def.Phrases, pattern.Title)
		case def.Phrase != nil:
			f = filters.BuildPhraseFilter(*field, def.Phrase, pattern.Title)
		default:
			return nil, fmt.Errorf("%w: filter %d on %s has no clause", ErrInvalidRequest, i, def.Field)
		}
		f.Meta.Negate = def.Negate
		f.Meta.Disabled = def.Disabled
		f.Meta.Alias = def.Alias
		out = append(out, f)
	}
	filters.RestoreRangeTimes(out)
	return out, nil
}
