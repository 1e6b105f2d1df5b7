package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/aggs"
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/datasource"
	"github.com/janekbaraniewski/aggscope/internal/filters"
	"github.com/janekbaraniewski/aggscope/internal/tabify"
)

// Runner executes requests against one store.
type Runner struct {
	store     *datasource.Store
	overrides map[string]map[string]datasource.FieldOverride
	now       func() time.Time
}

// NewRunner returns a runner. overrides maps table name to per-field
// overrides and may be nil.
func NewRunner(store *datasource.Store, overrides map[string]map[string]datasource.FieldOverride) *Runner {
	return &Runner{store: store, overrides: overrides, now: time.Now}
}

// Result is a tabbed table plus what produced it.
type Result struct {
	Table   core.TabbedTable
	Aggs    *aggs.AggConfigs
	Pattern core.IndexPattern
	Filters []core.Filter
	Took    time.Duration
}

// Prepare resolves the index pattern and aggregations of req.
func (r *Runner) Prepare(ctx context.Context, req *Request) (core.IndexPattern, *aggs.AggConfigs, error) {
	pattern, err := r.store.IndexPattern(ctx, req.Table, r.overrides[req.Table])
	if err != nil {
		return core.IndexPattern{}, nil, err
	}
	configs, err := aggs.New(pattern, req.Defs())
	if err != nil {
		return core.IndexPattern{}, nil, fmt.Errorf("search: %s: %w", req.Title, err)
	}
	return pattern, configs, nil
}

// Run executes req with the request filters and extra applied.
func (r *Runner) Run(ctx context.Context, req *Request, extra []core.Filter) (Result, error) {
	start := time.Now()
	pattern, configs, err := r.Prepare(ctx, req)
	if err != nil {
		return Result{}, err
	}

	reqFilters, err := req.BuildFilters(pattern)
	if err != nil {
		return Result{}, err
	}
	timeFilter, err := req.TimeFilter(pattern, r.now())
	if err != nil {
		return Result{}, err
	}
	if timeFilter != nil {
		reqFilters = append(reqFilters, *timeFilter)
	}
	applied := append(reqFilters, extra...)
	where, args, err := filters.ToSQL(applied, pattern)
	if err != nil {
		return Result{}, fmt.Errorf("search: %s: %w", req.Title, err)
	}

	q := tabify.Query(configs, req.Table)
	q.Where, q.Args = where, args
	rows, err := r.store.GroupRows(ctx, q)
	if err != nil {
		return Result{}, err
	}

	table, err := tabify.Table(configs, rows)
	if err != nil {
		return Result{}, err
	}
	took := time.Since(start)
	log.Printf("search: %s: %d groups, %d rows in %s", req.Title, len(rows), len(table.Rows), took)

	return Result{
		Table:   table,
		Aggs:    configs,
		Pattern: pattern,
		Filters: applied,
		Took:    took,
	}, nil
}
