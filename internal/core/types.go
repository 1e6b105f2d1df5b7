package core

import (
	"fmt"
	"reflect"
)

// Bucket keys produced by terms aggregations for rolled-up rows.
const (
	OtherBucketKey   = "__other__"
	MissingBucketKey = "__missing__"
)

// IsSentinelBucket reports whether raw is one of the synthetic bucket keys.
func IsSentinelBucket(raw any) bool {
	s, ok := raw.(string)
	return ok && (s == OtherBucketKey || s == MissingBucketKey)
}

type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeDate    FieldType = "date"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeUnknown FieldType = "unknown"
)

// Field is one column of the index pattern an aggregation reads from.
type Field struct {
	Name         string                `json:"name"`
	Type         FieldType             `json:"type"`
	Filterable   bool                  `json:"filterable"`
	Aggregatable bool                  `json:"aggregatable"`
	Format       SerializedFieldFormat `json:"format,omitempty"`
}

// SerializedFieldFormat describes a formatter by id and parameters.
type SerializedFieldFormat struct {
	ID     string         `json:"id,omitempty" yaml:"id,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

func (f SerializedFieldFormat) IsEmpty() bool {
	return f.ID == "" && len(f.Params) == 0
}

// AggConfig is the per-column aggregation capability the inspector reads.
type AggConfig interface {
	ID() string
	SerializedFormat() SerializedFieldFormat
	IsFilterable() bool
	// Field returns the backing field, or nil when the aggregation has none.
	Field() *Field
}

// FilterParams carries extra context for bucket filter creation.
type FilterParams struct {
	// Terms lists the sibling terms an "other" bucket stands in for.
	Terms []any
}

// BucketAggConfig is implemented by aggregations whose buckets can be turned
// into filters.
type BucketAggConfig interface {
	AggConfig
	Type() string
	CreateFilter(key any, params FilterParams) ([]Filter, error)
}

type TabbedColumn struct {
	ID        string
	Name      string
	AggConfig AggConfig
}

// Row maps column ids to raw values.
type Row map[string]any

// TabbedTable is the tabified aggregation response.
type TabbedTable struct {
	Columns []TabbedColumn
	Rows    []Row
}

// AggConfigs returns the aggregation of every column, in column order.
func (t TabbedTable) AggConfigs() []AggConfig {
	out := make([]AggConfig, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.AggConfig
	}
	return out
}

// ColumnKey is the synthetic field key of a projected column.
func ColumnKey(index int, aggID string) string {
	return fmt.Sprintf("col-%d-%s", index, aggID)
}

// FormattedData pairs a raw cell value with its display text.
type FormattedData struct {
	Raw       any    `json:"raw"`
	Formatted string `json:"formatted"`
}

func NewFormattedData(raw any, formatted string) FormattedData {
	return FormattedData{Raw: raw, Formatted: formatted}
}

// TabularDataValue is the cell value handed to filter callbacks.
type TabularDataValue = FormattedData

// TabularCallback reacts to a cell value selected in the inspector.
type TabularCallback func(value TabularDataValue) error

type TabularColumn struct {
	Name      string
	Field     string
	Filter    TabularCallback
	FilterOut TabularCallback
}

type TabularRow map[string]FormattedData

// TabularData is the display-ready projection of a TabbedTable.
type TabularData struct {
	Columns []TabularColumn
	Rows    []TabularRow
}

// SameRaw compares raw cell values. Uncomparable values such as range keys
// are compared structurally.
func SameRaw(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Formatter converts raw values to display text. Convert has no error
// return: construction errors surface through FormatFactory, and a formatter
// that cannot convert a value panics. Callers do not recover that panic.
type Formatter interface {
	Convert(value any) string
}

// FormatFactory instantiates a formatter from its serialized description.
type FormatFactory func(format SerializedFieldFormat) (Formatter, error)

// AddFilters receives filters derived from inspector interactions.
type AddFilters func(filters []Filter)

// CreateFilterFunc derives filters for a cell of a tabbed table. It returns
// nil when no filter applies.
type CreateFilterFunc func(aggs []AggConfig, table TabbedTable, columnIndex, rowIndex int, cellValue any) ([]Filter, error)
