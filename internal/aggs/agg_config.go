// Package aggs defines the bucket and metric aggregations a search request
// runs and the per-column capabilities the inspector reads from them.
package aggs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/filters"
)

var (
	ErrUnknownAggType = errors.New("aggs: unknown aggregation type")
	ErrUnknownField   = errors.New("aggs: unknown field")
	ErrInvalidParams  = errors.New("aggs: invalid params")
)

type Type string

const (
	TypeTerms         Type = "terms"
	TypeHistogram     Type = "histogram"
	TypeDateHistogram Type = "date_histogram"
	TypeRange         Type = "range"

	TypeCount       Type = "count"
	TypeSum         Type = "sum"
	TypeAvg         Type = "avg"
	TypeMin         Type = "min"
	TypeMax         Type = "max"
	TypeCardinality Type = "cardinality"
)

// OrderByCount orders terms buckets by document count.
const OrderByCount = "_count"

func (t Type) IsBucket() bool {
	switch t {
	case TypeTerms, TypeHistogram, TypeDateHistogram, TypeRange:
		return true
	}
	return false
}

func (t Type) known() bool {
	switch t {
	case TypeTerms, TypeHistogram, TypeDateHistogram, TypeRange,
		TypeCount, TypeSum, TypeAvg, TypeMin, TypeMax, TypeCardinality:
		return true
	}
	return false
}

type RangeParam struct {
	From *float64 `yaml:"from,omitempty" json:"from,omitempty"`
	To   *float64 `yaml:"to,omitempty" json:"to,omitempty"`
}

// Key is the raw bucket key of the range.
func (r RangeParam) Key() map[string]any {
	key := map[string]any{"from": nil, "to": nil}
	if r.From != nil {
		key["from"] = *r.From
	}
	if r.To != nil {
		key["to"] = *r.To
	}
	return key
}

func (r RangeParam) Contains(v float64) bool {
	if r.From != nil && v < *r.From {
		return false
	}
	if r.To != nil && v >= *r.To {
		return false
	}
	return true
}

type Params struct {
	Field              string       `yaml:"field,omitempty" json:"field,omitempty"`
	Size               int          `yaml:"size,omitempty" json:"size,omitempty"`
	OrderBy            string       `yaml:"orderBy,omitempty" json:"orderBy,omitempty"`
	OtherBucket        bool         `yaml:"otherBucket,omitempty" json:"otherBucket,omitempty"`
	OtherBucketLabel   string       `yaml:"otherBucketLabel,omitempty" json:"otherBucketLabel,omitempty"`
	MissingBucket      bool         `yaml:"missingBucket,omitempty" json:"missingBucket,omitempty"`
	MissingBucketLabel string       `yaml:"missingBucketLabel,omitempty" json:"missingBucketLabel,omitempty"`
	Interval           string       `yaml:"interval,omitempty" json:"interval,omitempty"`
	Ranges             []RangeParam `yaml:"ranges,omitempty" json:"ranges,omitempty"`
}

// Def is the serialized form of an aggregation.
type Def struct {
	ID          string `yaml:"id" json:"id"`
	Type        Type   `yaml:"type" json:"type"`
	Params      Params `yaml:"params,omitempty" json:"params,omitempty"`
	CustomLabel string `yaml:"customLabel,omitempty" json:"customLabel,omitempty"`
}

// AggConfig is a configured aggregation bound to a field of an index pattern.
type AggConfig struct {
	id          string
	typ         Type
	params      Params
	customLabel string
	index       string
	field       *core.Field

	interval     float64
	dateInterval time.Duration
}

var _ core.BucketAggConfig = (*AggConfig)(nil)

func newAggConfig(def Def, pattern core.IndexPattern) (*AggConfig, error) {
	if !def.Type.known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggType, def.Type)
	}
	if strings.TrimSpace(def.ID) == "" {
		return nil, fmt.Errorf("%w: %s aggregation without id", ErrInvalidParams, def.Type)
	}

	agg := &AggConfig{
		id:          def.ID,
		typ:         def.Type,
		params:      def.Params,
		customLabel: def.CustomLabel,
		index:       pattern.Title,
	}

	if def.Type != TypeCount {
		if def.Params.Field == "" {
			return nil, fmt.Errorf("%w: %s aggregation %s needs a field", ErrInvalidParams, def.Type, def.ID)
		}
		agg.field = pattern.FieldByName(def.Params.Field)
		if agg.field == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, def.Params.Field)
		}
	}

	switch def.Type {
	case TypeTerms:
		if agg.params.Size <= 0 {
			agg.params.Size = 5
		}
		if agg.params.OrderBy == "" {
			agg.params.OrderBy = OrderByCount
		}
	case TypeHistogram:
		v, err := strconv.ParseFloat(def.Params.Interval, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("%w: histogram interval %q", ErrInvalidParams, def.Params.Interval)
		}
		agg.interval = v
	case TypeDateHistogram:
		d, err := ParseInterval(def.Params.Interval)
		if err != nil {
			return nil, err
		}
		agg.dateInterval = d
	case TypeRange:
		if len(def.Params.Ranges) == 0 {
			return nil, fmt.Errorf("%w: range aggregation %s has no ranges", ErrInvalidParams, def.ID)
		}
	case TypeSum, TypeAvg:
		if agg.field.Type != core.FieldTypeNumber {
			return nil, fmt.Errorf("%w: %s needs a number field, %s is %s", ErrInvalidParams, def.Type, agg.field.Name, agg.field.Type)
		}
	}
	return agg, nil
}

// ParseInterval parses a date histogram interval. Besides Go durations it
// accepts day ("1d") and week ("1w") units.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty interval", ErrInvalidParams)
	}
	unit := s[len(s)-1]
	if unit == 'd' || unit == 'w' {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: interval %q", ErrInvalidParams, s)
		}
		d := time.Duration(n) * 24 * time.Hour
		if unit == 'w' {
			d *= 7
		}
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: interval %q", ErrInvalidParams, s)
	}
	return d, nil
}

func (a *AggConfig) ID() string                  { return a.id }
func (a *AggConfig) Type() string                { return string(a.typ) }
func (a *AggConfig) AggType() Type               { return a.typ }
func (a *AggConfig) Params() Params              { return a.params }
func (a *AggConfig) IsBucket() bool              { return a.typ.IsBucket() }
func (a *AggConfig) Interval() float64           { return a.interval }
func (a *AggConfig) DateInterval() time.Duration { return a.dateInterval }

func (a *AggConfig) Field() *core.Field {
	if a.field == nil {
		return nil
	}
	f := *a.field
	return &f
}

// IsFilterable reports whether buckets of this aggregation can become filters.
func (a *AggConfig) IsFilterable() bool {
	return a.typ.IsBucket()
}

// Label is the column title.
func (a *AggConfig) Label() string {
	if a.customLabel != "" {
		return a.customLabel
	}
	name := ""
	if a.field != nil {
		name = a.field.Name
	}
	switch a.typ {
	case TypeTerms:
		return fmt.Sprintf("Top %d %s", a.params.Size, name)
	case TypeHistogram:
		return name
	case TypeDateHistogram:
		return fmt.Sprintf("%s per %s", name, a.params.Interval)
	case TypeRange:
		return name + " ranges"
	case TypeCount:
		return "Count"
	case TypeSum:
		return "Sum of " + name
	case TypeAvg:
		return "Average " + name
	case TypeMin:
		return "Min " + name
	case TypeMax:
		return "Max " + name
	case TypeCardinality:
		return "Unique count of " + name
	}
	return a.id
}

// SerializedFormat describes how values of this column are rendered.
func (a *AggConfig) SerializedFormat() core.SerializedFieldFormat {
	switch a.typ {
	case TypeCount, TypeCardinality:
		return core.SerializedFieldFormat{ID: "number"}
	case TypeTerms:
		inner := a.fieldFormat()
		params := map[string]any{"id": inner.ID}
		if inner.Params != nil {
			params["params"] = inner.Params
		}
		if a.params.OtherBucketLabel != "" {
			params["otherBucketLabel"] = a.params.OtherBucketLabel
		}
		if a.params.MissingBucketLabel != "" {
			params["missingBucketLabel"] = a.params.MissingBucketLabel
		}
		return core.SerializedFieldFormat{ID: "terms", Params: params}
	case TypeDateHistogram:
		pattern := "2006-01-02 15:04"
		if a.dateInterval >= 24*time.Hour {
			pattern = "2006-01-02"
		}
		return core.SerializedFieldFormat{ID: "date", Params: map[string]any{"pattern": pattern}}
	case TypeRange:
		inner := a.fieldFormat()
		params := map[string]any{"id": inner.ID}
		if inner.Params != nil {
			params["params"] = inner.Params
		}
		return core.SerializedFieldFormat{ID: "range", Params: params}
	}
	return a.fieldFormat()
}

func (a *AggConfig) fieldFormat() core.SerializedFieldFormat {
	if a.field == nil {
		return core.SerializedFieldFormat{}
	}
	if !a.field.Format.IsEmpty() {
		return a.field.Format
	}
	switch a.field.Type {
	case core.FieldTypeNumber:
		return core.SerializedFieldFormat{ID: "number"}
	case core.FieldTypeDate:
		return core.SerializedFieldFormat{ID: "date"}
	case core.FieldTypeBoolean:
		return core.SerializedFieldFormat{ID: "boolean"}
	}
	return core.SerializedFieldFormat{}
}

// CreateFilter builds the filters selecting the bucket with the given key.
func (a *AggConfig) CreateFilter(key any, params core.FilterParams) ([]core.Filter, error) {
	if !a.typ.IsBucket() || a.field == nil {
		return nil, nil
	}
	field := *a.field

	switch a.typ {
	case TypeTerms:
		switch key {
		case core.OtherBucketKey:
			if len(params.Terms) == 0 {
				return nil, nil
			}
			return []core.Filter{filters.BuildPhrasesFilter(field, params.Terms, a.index).WithNegate(true)}, nil
		case core.MissingBucketKey:
			return []core.Filter{filters.BuildExistsFilter(field, a.index).WithNegate(true)}, nil
		}
		return []core.Filter{filters.BuildPhraseFilter(field, key, a.index)}, nil

	case TypeHistogram:
		start, ok := toFloat(key)
		if !ok {
			return nil, fmt.Errorf("%w: histogram key %v", ErrInvalidParams, key)
		}
		r := core.Range{GTE: start, LT: start + a.interval}
		return []core.Filter{filters.BuildRangeFilter(field, r, a.index)}, nil

	case TypeDateHistogram:
		ms, ok := toFloat(key)
		if !ok {
			return nil, fmt.Errorf("%w: date histogram key %v", ErrInvalidParams, key)
		}
		start := time.UnixMilli(int64(ms)).UTC()
		r := core.Range{GTE: start, LT: start.Add(a.dateInterval)}
		return []core.Filter{filters.BuildRangeFilter(field, r, a.index)}, nil

	case TypeRange:
		bounds, ok := key.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: range key %v", ErrInvalidParams, key)
		}
		r := core.Range{GTE: bounds["from"], LT: bounds["to"]}
		return []core.Filter{filters.BuildRangeFilter(field, r, a.index)}, nil
	}
	return nil, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	}
	return 0, false
}
