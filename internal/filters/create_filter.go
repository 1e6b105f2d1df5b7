// Package filters derives, manages and compiles the filters a user adds
// while inspecting aggregation results.
package filters

import (
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/samber/lo"
)

const termsAggType = "terms"

// CreateFilter derives the filters selecting the bucket at
// (columnIndex, rowIndex). When rowIndex is negative cellValue is used as the
// bucket key. It returns nil when the column cannot be filtered on.
func CreateFilter(aggs []core.AggConfig, table core.TabbedTable, columnIndex, rowIndex int, cellValue any) ([]core.Filter, error) {
	if columnIndex < 0 || columnIndex >= len(table.Columns) {
		return nil, nil
	}
	column := table.Columns[columnIndex]
	if column.AggConfig == nil {
		return nil, nil
	}
	match, ok := lo.Find(aggs, func(a core.AggConfig) bool {
		return a != nil && a.ID() == column.AggConfig.ID()
	})
	if !ok {
		return nil, nil
	}
	bucket, ok := match.(core.BucketAggConfig)
	if !ok || !bucket.IsFilterable() {
		return nil, nil
	}

	value := cellValue
	if rowIndex >= 0 && rowIndex < len(table.Rows) {
		value = table.Rows[rowIndex][column.ID]
	}
	if value == nil {
		return nil, nil
	}

	var params core.FilterParams
	if bucket.Type() == termsAggType && value == core.OtherBucketKey {
		params.Terms = otherBucketTerms(table, columnIndex, rowIndex)
	}

	out, err := bucket.CreateFilter(value, params)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// otherBucketTerms lists the distinct terms of the column among rows sharing
// every earlier column value with the selected row.
func otherBucketTerms(table core.TabbedTable, columnIndex, rowIndex int) []any {
	if rowIndex < 0 || rowIndex >= len(table.Rows) {
		return nil
	}
	selected := table.Rows[rowIndex]
	columnID := table.Columns[columnIndex].ID

	var terms []any
	for _, row := range table.Rows {
		sameParent := true
		for i := 0; i < columnIndex; i++ {
			id := table.Columns[i].ID
			if !core.SameRaw(row[id], selected[id]) {
				sameParent = false
				break
			}
		}
		if !sameParent {
			continue
		}
		term := row[columnID]
		if term == nil || core.IsSentinelBucket(term) {
			continue
		}
		if lo.ContainsBy(terms, func(t any) bool { return core.SameRaw(t, term) }) {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}
