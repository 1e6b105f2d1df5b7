// Package inspector projects tabbed aggregation results into the grid shown
// by the data inspector, with per-column filter callbacks.
package inspector

import (
	"context"
	"fmt"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/filters"
	"github.com/samber/lo"
)

const defaultFormatID = "string"

type Options struct {
	// AddFilters receives filters derived from cell interactions. When nil
	// no column gets filter callbacks.
	AddFilters core.AddFilters
	// DeserializeFieldFormat builds the formatter of each column. Required.
	DeserializeFieldFormat core.FormatFactory
	// CreateFilter derives filters from a cell. Defaults to filters.CreateFilter.
	CreateFilter core.CreateFilterFunc
}

// BuildTabularData formats every cell of table and wires filter callbacks
// onto the filterable columns. Factory errors abort the projection and are
// returned wrapped; a panicking Convert propagates to the caller unrecovered.
func BuildTabularData(ctx context.Context, table core.TabbedTable, opts Options) (core.TabularData, error) {
	if opts.DeserializeFieldFormat == nil {
		return core.TabularData{}, fmt.Errorf("inspector: no field format factory")
	}
	createFilter := opts.CreateFilter
	if createFilter == nil {
		createFilter = filters.CreateFilter
	}

	aggConfigs := table.AggConfigs()
	keys := lo.Map(table.Columns, func(col core.TabbedColumn, i int) string {
		return core.ColumnKey(i, col.AggConfig.ID())
	})

	rows := make([]core.TabularRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return core.TabularData{}, err
		}
		out := make(core.TabularRow, len(table.Columns))
		for colIndex, col := range table.Columns {
			format := col.AggConfig.SerializedFormat()
			if format.IsEmpty() {
				format = core.SerializedFieldFormat{ID: defaultFormatID}
			}
			formatter, err := opts.DeserializeFieldFormat(format)
			if err != nil {
				return core.TabularData{}, fmt.Errorf("inspector: column %q: %w", col.Name, err)
			}
			value := row[col.ID]
			out[keys[colIndex]] = core.NewFormattedData(value, formatter.Convert(value))
		}
		rows = append(rows, out)
	}

	columns := make([]core.TabularColumn, len(table.Columns))
	for colIndex, col := range table.Columns {
		columns[colIndex] = core.TabularColumn{Name: col.Name, Field: keys[colIndex]}
		if opts.AddFilters == nil || !isCellContentFilterable(col.AggConfig) {
			continue
		}

		key := keys[colIndex]
		derive := func(value core.TabularDataValue) ([]core.Filter, error) {
			// First match wins when raw values repeat across rows.
			_, rowIndex, _ := lo.FindIndexOf(rows, func(r core.TabularRow) bool {
				return core.SameRaw(r[key].Raw, value.Raw)
			})
			return createFilter(aggConfigs, table, colIndex, rowIndex, value.Raw)
		}

		columns[colIndex].Filter = func(value core.TabularDataValue) error {
			derived, err := derive(value)
			if err != nil {
				return err
			}
			if len(derived) > 0 {
				opts.AddFilters(derived)
			}
			return nil
		}
		columns[colIndex].FilterOut = func(value core.TabularDataValue) error {
			derived, err := derive(value)
			if err != nil {
				return err
			}
			if len(derived) == 0 {
				return nil
			}
			negate := !core.IsSentinelBucket(value.Raw)
			opts.AddFilters(lo.Map(derived, func(f core.Filter, _ int) core.Filter {
				return f.WithNegate(negate)
			}))
			return nil
		}
	}

	return core.TabularData{Columns: columns, Rows: rows}, nil
}

func isCellContentFilterable(agg core.AggConfig) bool {
	if !agg.IsFilterable() {
		return false
	}
	field := agg.Field()
	return field == nil || field.Filterable
}
