// Package tabify rebuilds bucket trees from grouped SQL rows and flattens
// them into tabbed tables, one row per leaf bucket.
package tabify

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/aggs"
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/datasource"
	"github.com/janekbaraniewski/aggscope/internal/fieldformats"
	"github.com/samber/lo"
)

// Query returns the grouped query that feeds Table for the given
// aggregations. Bucket and cardinality fields are grouped on; sum, avg, min
// and max fields are summarized per group.
func Query(configs *aggs.AggConfigs, table string) datasource.GroupQuery {
	q := datasource.GroupQuery{Table: table}
	for _, agg := range configs.Buckets() {
		q.GroupFields = append(q.GroupFields, agg.Params().Field)
	}
	for _, agg := range configs.Metrics() {
		switch agg.AggType() {
		case aggs.TypeCardinality:
			q.GroupFields = append(q.GroupFields, agg.Params().Field)
		case aggs.TypeSum, aggs.TypeAvg, aggs.TypeMin, aggs.TypeMax:
			q.MetricFields = append(q.MetricFields, agg.Params().Field)
		}
	}
	q.GroupFields = lo.Uniq(q.GroupFields)
	q.MetricFields = lo.Uniq(q.MetricFields)
	return q
}

// Table flattens grouped rows into a tabbed table. Bucket columns come first
// in request order, then metric columns.
func Table(configs *aggs.AggConfigs, rows []datasource.GroupRow) (core.TabbedTable, error) {
	t := newTabifier(configs)
	buckets, metrics := t.buckets, t.metrics
	root := newNode(nil)
	for _, row := range rows {
		if err := t.insert(root, 0, row); err != nil {
			return core.TabbedTable{}, err
		}
	}
	t.shape(root, 0)

	var columns []core.TabbedColumn
	for _, agg := range append(append([]*aggs.AggConfig(nil), buckets...), metrics...) {
		i := len(columns)
		columns = append(columns, core.TabbedColumn{
			ID:        core.ColumnKey(i, agg.ID()),
			Name:      agg.Label(),
			AggConfig: agg,
		})
	}

	out := core.TabbedTable{Columns: columns, Rows: []core.Row{}}
	keys := make([]any, 0, len(buckets))
	var walk func(n *node, level int)
	walk = func(n *node, level int) {
		if level == len(buckets) {
			row := make(core.Row, len(columns))
			for i, k := range keys {
				row[columns[i].ID] = k
			}
			for i, agg := range metrics {
				row[columns[len(buckets)+i].ID] = t.metricValue(n.acc, agg)
			}
			out.Rows = append(out.Rows, row)
			return
		}
		for _, child := range n.ordered {
			keys = append(keys, child.raw)
			walk(child, level+1)
			keys = keys[:len(keys)-1]
		}
	}
	walk(root, 0)
	return out, nil
}

type tabifier struct {
	configs *aggs.AggConfigs
	buckets []*aggs.AggConfig
	metrics []*aggs.AggConfig

	statFields     []core.Field
	distinctFields []string
}

func newTabifier(configs *aggs.AggConfigs) *tabifier {
	t := &tabifier{configs: configs, buckets: configs.Buckets(), metrics: configs.Metrics()}
	seen := map[string]bool{}
	for _, agg := range t.metrics {
		field := agg.Field()
		if field == nil {
			continue
		}
		switch agg.AggType() {
		case aggs.TypeCardinality:
			if !lo.Contains(t.distinctFields, field.Name) {
				t.distinctFields = append(t.distinctFields, field.Name)
			}
		case aggs.TypeSum, aggs.TypeAvg, aggs.TypeMin, aggs.TypeMax:
			if !seen[field.Name] {
				seen[field.Name] = true
				t.statFields = append(t.statFields, *field)
			}
		}
	}
	return t
}

type missingKey struct{}
type otherKey struct{}
type rangeKey int

type node struct {
	raw      any
	acc      *accumulator
	children map[any]*node
	ordered  []*node
}

func newNode(raw any) *node {
	return &node{raw: raw, acc: newAccumulator(), children: map[any]*node{}}
}

func (n *node) child(key, raw any) *node {
	c, ok := n.children[key]
	if !ok {
		c = newNode(raw)
		n.children[key] = c
	}
	return c
}

// merge folds other into n, including every descendant.
func (n *node) merge(other *node) {
	n.acc.merge(other.acc)
	for key, oc := range other.children {
		if c, ok := n.children[key]; ok {
			c.merge(oc)
			continue
		}
		n.children[key] = oc
	}
}

func (t *tabifier) insert(n *node, level int, row datasource.GroupRow) error {
	t.accumulate(n.acc, row)
	if level == len(t.buckets) {
		return nil
	}
	agg := t.buckets[level]
	value := row.Keys[agg.Params().Field]

	switch agg.AggType() {
	case aggs.TypeTerms:
		if value == nil {
			return t.insert(n.child(missingKey{}, core.MissingBucketKey), level+1, row)
		}
		return t.insert(n.child(value, value), level+1, row)

	case aggs.TypeHistogram:
		v, ok := toFloat(value)
		if !ok {
			return nil
		}
		key := math.Floor(v/agg.Interval()) * agg.Interval()
		return t.insert(n.child(key, key), level+1, row)

	case aggs.TypeDateHistogram:
		if value == nil {
			return nil
		}
		ts, ok := fieldformats.ToTime(value)
		if !ok {
			return fmt.Errorf("tabify: %s: cannot read %v as a time", agg.Params().Field, value)
		}
		step := max(agg.DateInterval().Milliseconds(), 1)
		ms := ts.UnixMilli()
		key := ms - ((ms%step)+step)%step
		return t.insert(n.child(key, key), level+1, row)

	case aggs.TypeRange:
		v, ok := toFloat(value)
		if !ok {
			return nil
		}
		for i, r := range agg.Params().Ranges {
			if !r.Contains(v) {
				continue
			}
			if err := t.insert(n.child(rangeKey(i), r.Key()), level+1, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// shape orders the children of every node and applies the terms size,
// other and missing bucket settings.
func (t *tabifier) shape(n *node, level int) {
	if level == len(t.buckets) {
		return
	}
	agg := t.buckets[level]
	params := agg.Params()

	var missing *node
	if m, ok := n.children[missingKey{}]; ok {
		delete(n.children, missingKey{})
		if agg.AggType() == aggs.TypeTerms && params.MissingBucket {
			missing = m
		}
	}
	ordered := lo.Values(n.children)

	switch agg.AggType() {
	case aggs.TypeTerms:
		orderMetric, _ := t.configs.ByID(params.OrderBy)
		sort.SliceStable(ordered, func(i, j int) bool {
			a, b := t.orderValue(ordered[i], orderMetric), t.orderValue(ordered[j], orderMetric)
			if a != b {
				return a > b
			}
			return compareValues(ordered[i].raw, ordered[j].raw) < 0
		})
		if len(ordered) > params.Size {
			rest := ordered[params.Size:]
			ordered = ordered[:params.Size]
			if params.OtherBucket {
				other := newNode(core.OtherBucketKey)
				for _, r := range rest {
					other.merge(r)
				}
				n.children[otherKey{}] = other
				ordered = append(ordered, other)
			}
		}
		if missing != nil {
			ordered = append(ordered, missing)
		}

	case aggs.TypeRange:
		ranges := params.Ranges
		sort.SliceStable(ordered, func(i, j int) bool {
			return rangeIndex(ranges, ordered[i].raw) < rangeIndex(ranges, ordered[j].raw)
		})

	default:
		sort.SliceStable(ordered, func(i, j int) bool {
			return compareValues(ordered[i].raw, ordered[j].raw) < 0
		})
	}

	n.ordered = ordered
	for _, c := range ordered {
		t.shape(c, level+1)
	}
}

func (t *tabifier) orderValue(n *node, metric *aggs.AggConfig) float64 {
	if metric == nil {
		return float64(n.acc.count)
	}
	v, ok := toFloat(t.metricValue(n.acc, metric))
	if !ok {
		return math.Inf(-1)
	}
	return v
}

func rangeIndex(ranges []aggs.RangeParam, raw any) int {
	key, _ := raw.(map[string]any)
	for i, r := range ranges {
		k := r.Key()
		if k["from"] == key["from"] && k["to"] == key["to"] {
			return i
		}
	}
	return len(ranges)
}

func (t *tabifier) accumulate(acc *accumulator, row datasource.GroupRow) {
	acc.count += row.Count
	for _, f := range t.statFields {
		if stats, ok := row.Stats[f.Name]; ok {
			acc.field(f.Name).add(stats, f.Type)
		}
	}
	for _, name := range t.distinctFields {
		if v := row.Keys[name]; v != nil {
			acc.field(name).distinct[v] = struct{}{}
		}
	}
}

func (t *tabifier) metricValue(acc *accumulator, agg *aggs.AggConfig) any {
	if agg.AggType() == aggs.TypeCount {
		return acc.count
	}
	field := agg.Field()
	if field == nil {
		return nil
	}
	fa := acc.fields[field.Name]
	switch agg.AggType() {
	case aggs.TypeCardinality:
		if fa == nil {
			return int64(0)
		}
		return int64(len(fa.distinct))
	case aggs.TypeSum:
		if fa == nil {
			return 0.0
		}
		return fa.sum
	case aggs.TypeAvg:
		if fa == nil || fa.nonNull == 0 {
			return nil
		}
		return fa.sum / float64(fa.nonNull)
	case aggs.TypeMin:
		if fa == nil {
			return nil
		}
		return fa.min
	case aggs.TypeMax:
		if fa == nil {
			return nil
		}
		return fa.max
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// compareValues orders bucket keys: numbers and times by value, anything
// else by its text.
func compareValues(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
