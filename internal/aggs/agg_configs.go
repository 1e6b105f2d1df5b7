package aggs

import (
	"fmt"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/samber/lo"
)

// AggConfigs is the ordered set of aggregations of one request.
type AggConfigs struct {
	index core.IndexPattern
	aggs  []*AggConfig
}

// New validates defs against the index pattern. Ids must be unique.
func New(pattern core.IndexPattern, defs []Def) (*AggConfigs, error) {
	out := &AggConfigs{index: pattern}
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if seen[def.ID] {
			return nil, fmt.Errorf("%w: duplicate aggregation id %q", ErrInvalidParams, def.ID)
		}
		seen[def.ID] = true

		agg, err := newAggConfig(def, pattern)
		if err != nil {
			return nil, err
		}
		out.aggs = append(out.aggs, agg)
	}
	if len(out.Metrics()) == 0 {
		count, _ := newAggConfig(Def{ID: nextID(seen), Type: TypeCount}, pattern)
		out.aggs = append(out.aggs, count)
	}

	for _, agg := range out.aggs {
		if agg.typ != TypeTerms || agg.params.OrderBy == OrderByCount {
			continue
		}
		metric, ok := out.ByID(agg.params.OrderBy)
		if !ok || metric.IsBucket() {
			return nil, fmt.Errorf("%w: terms %s orders by unknown metric %q", ErrInvalidParams, agg.id, agg.params.OrderBy)
		}
	}
	return out, nil
}

func nextID(seen map[string]bool) string {
	for i := 1; ; i++ {
		id := fmt.Sprint(i)
		if !seen[id] {
			return id
		}
	}
}

func (c *AggConfigs) IndexPattern() core.IndexPattern { return c.index }

func (c *AggConfigs) All() []*AggConfig {
	return append([]*AggConfig(nil), c.aggs...)
}

func (c *AggConfigs) ByID(id string) (*AggConfig, bool) {
	return lo.Find(c.aggs, func(a *AggConfig) bool { return a.id == id })
}

// Buckets returns bucket aggregations in request order.
func (c *AggConfigs) Buckets() []*AggConfig {
	return lo.Filter(c.aggs, func(a *AggConfig, _ int) bool { return a.IsBucket() })
}

// Metrics returns metric aggregations in request order.
func (c *AggConfigs) Metrics() []*AggConfig {
	return lo.Filter(c.aggs, func(a *AggConfig, _ int) bool { return !a.IsBucket() })
}
