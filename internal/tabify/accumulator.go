package tabify

import (
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/datasource"
	"github.com/janekbaraniewski/aggscope/internal/fieldformats"
)

// accumulator re-aggregates metric inputs of the groups under one bucket.
type accumulator struct {
	count  int64
	fields map[string]*fieldAccumulator
}

type fieldAccumulator struct {
	sum      float64
	nonNull  int64
	min, max any
	distinct map[any]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{fields: map[string]*fieldAccumulator{}}
}

func (a *accumulator) field(name string) *fieldAccumulator {
	f, ok := a.fields[name]
	if !ok {
		f = &fieldAccumulator{distinct: map[any]struct{}{}}
		a.fields[name] = f
	}
	return f
}

func (a *accumulator) merge(other *accumulator) {
	a.count += other.count
	for name, of := range other.fields {
		f := a.field(name)
		f.sum += of.sum
		f.nonNull += of.nonNull
		f.observe(of.min)
		f.observe(of.max)
		for v := range of.distinct {
			f.distinct[v] = struct{}{}
		}
	}
}

func (f *fieldAccumulator) add(stats datasource.FieldStats, typ core.FieldType) {
	f.sum += stats.Sum
	f.nonNull += stats.NonNull
	f.observe(metricValue(stats.Min, typ))
	f.observe(metricValue(stats.Max, typ))
}

func (f *fieldAccumulator) observe(v any) {
	if v == nil {
		return
	}
	if f.min == nil || compareValues(v, f.min) < 0 {
		f.min = v
	}
	if f.max == nil || compareValues(v, f.max) > 0 {
		f.max = v
	}
}

// metricValue normalizes a MIN or MAX result: dates become times, numbers
// become float64.
func metricValue(v any, typ core.FieldType) any {
	if v == nil {
		return nil
	}
	if typ == core.FieldTypeDate {
		if t, ok := fieldformats.ToTime(v); ok {
			return t
		}
		return v
	}
	if n, ok := toFloat(v); ok {
		return n
	}
	return v
}
