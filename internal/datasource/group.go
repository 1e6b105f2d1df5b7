package datasource

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/janekbaraniewski/aggscope/internal/filters"
	"github.com/samber/lo"
)

// GroupQuery selects per-group statistics at the finest grain needed by an
// aggregation: one row per distinct combination of the group fields.
type GroupQuery struct {
	Table        string
	GroupFields  []string
	MetricFields []string
	Where        string
	Args         []any
}

// FieldStats holds additive statistics of one numeric field within a group.
type FieldStats struct {
	Sum     float64
	NonNull int64
	Min     any
	Max     any
}

type GroupRow struct {
	Keys  map[string]any
	Count int64
	Stats map[string]FieldStats
}

// GroupRows runs q and returns the non-empty groups.
func (s *Store) GroupRows(ctx context.Context, q GroupQuery) ([]GroupRow, error) {
	groupFields := lo.Uniq(q.GroupFields)
	metricFields := lo.Uniq(q.MetricFields)

	cols := lo.Map(groupFields, func(f string, _ int) string { return filters.QuoteIdent(f) })
	selects := append([]string(nil), cols...)
	selects = append(selects, "COUNT(*)")
	for _, f := range metricFields {
		ident := filters.QuoteIdent(f)
		selects = append(selects,
			"SUM("+ident+")",
			"COUNT("+ident+")",
			"MIN("+ident+")",
			"MAX("+ident+")",
		)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selects, ", "))
	b.WriteString(" FROM ")
	b.WriteString(filters.QuoteIdent(q.Table))
	if strings.TrimSpace(q.Where) != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	if len(cols) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(cols, ", "))
	}
	query := b.String()
	log.Printf("datasource: %s %v", query, q.Args)

	rows, err := s.db.QueryContext(ctx, query, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("datasource: group query on %s: %w", q.Table, err)
	}
	defer rows.Close()

	width := len(groupFields) + 1 + 4*len(metricFields)
	var out []GroupRow
	for rows.Next() {
		values := make([]any, width)
		ptrs := make([]any, width)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("datasource: scan group row: %w", err)
		}

		row := GroupRow{
			Keys:  make(map[string]any, len(groupFields)),
			Stats: make(map[string]FieldStats, len(metricFields)),
		}
		for i, f := range groupFields {
			row.Keys[f] = normalizeValue(values[i])
		}
		row.Count = toInt64(values[len(groupFields)])
		if row.Count == 0 {
			continue
		}
		offset := len(groupFields) + 1
		for i, f := range metricFields {
			base := offset + 4*i
			sum, _ := toFloat64(values[base])
			row.Stats[f] = FieldStats{
				Sum:     sum,
				NonNull: toInt64(values[base+1]),
				Min:     normalizeValue(values[base+2]),
				Max:     normalizeValue(values[base+3]),
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datasource: group rows: %w", err)
	}
	return out, nil
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	}
	return 0
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
