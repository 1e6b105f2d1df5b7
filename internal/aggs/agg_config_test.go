package aggs

import (
	"testing"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPattern() core.IndexPattern {
	return core.IndexPattern{
		Title: "requests",
		Fields: []core.Field{
			{Name: "country", Type: core.FieldTypeString, Filterable: true, Aggregatable: true},
			{Name: "bytes", Type: core.FieldTypeNumber, Filterable: true, Aggregatable: true,
				Format: core.SerializedFieldFormat{ID: "bytes"}},
			{Name: "latency", Type: core.FieldTypeNumber, Filterable: true, Aggregatable: true},
			{Name: "ts", Type: core.FieldTypeDate, Filterable: true, Aggregatable: true},
		},
	}
}

func f64(v float64) *float64 { return &v }

func TestNew_AddsCountWhenNoMetric(t *testing.T) {
	configs, err := New(testPattern(), []Def{
		{ID: "1", Type: TypeTerms, Params: Params{Field: "country"}},
	})
	require.NoError(t, err)

	metrics := configs.Metrics()
	require.Len(t, metrics, 1)
	assert.Equal(t, TypeCount, metrics[0].AggType())
	assert.Equal(t, "2", metrics[0].ID())

	terms, ok := configs.ByID("1")
	require.True(t, ok)
	assert.Equal(t, 5, terms.Params().Size)
	assert.Equal(t, OrderByCount, terms.Params().OrderBy)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		defs []Def
		want error
	}{
		{"unknown type", []Def{{ID: "1", Type: "geohash"}}, ErrUnknownAggType},
		{"unknown field", []Def{{ID: "1", Type: TypeTerms, Params: Params{Field: "city"}}}, ErrUnknownField},
		{"missing field", []Def{{ID: "1", Type: TypeSum}}, ErrInvalidParams},
		{"sum on string", []Def{{ID: "1", Type: TypeSum, Params: Params{Field: "country"}}}, ErrInvalidParams},
		{"bad histogram interval", []Def{{ID: "1", Type: TypeHistogram, Params: Params{Field: "bytes", Interval: "x"}}}, ErrInvalidParams},
		{"duplicate ids", []Def{{ID: "1", Type: TypeCount}, {ID: "1", Type: TypeCount}}, ErrInvalidParams},
		{"order by unknown metric", []Def{{ID: "1", Type: TypeTerms, Params: Params{Field: "country", OrderBy: "9"}}}, ErrInvalidParams},
		{"range without ranges", []Def{{ID: "1", Type: TypeRange, Params: Params{Field: "bytes"}}}, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(testPattern(), tt.defs)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseInterval(t *testing.T) {
	d, err := ParseInterval("1d")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d)

	d, err = ParseInterval("2w")
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, d)

	d, err = ParseInterval("30m")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, d)

	_, err = ParseInterval("0d")
	require.Error(t, err)
}

func TestSerializedFormat(t *testing.T) {
	configs, err := New(testPattern(), []Def{
		{ID: "1", Type: TypeTerms, Params: Params{Field: "bytes", OtherBucketLabel: "Rest"}},
		{ID: "2", Type: TypeDateHistogram, Params: Params{Field: "ts", Interval: "1d"}},
		{ID: "3", Type: TypeAvg, Params: Params{Field: "latency"}},
		{ID: "4", Type: TypeCount},
		{ID: "5", Type: TypeMax, Params: Params{Field: "country"}},
	})
	require.NoError(t, err)

	terms, _ := configs.ByID("1")
	assert.Equal(t, core.SerializedFieldFormat{ID: "terms", Params: map[string]any{"id": "bytes", "otherBucketLabel": "Rest"}}, terms.SerializedFormat())

	hist, _ := configs.ByID("2")
	assert.Equal(t, "date", hist.SerializedFormat().ID)
	assert.Equal(t, "2006-01-02", hist.SerializedFormat().Params["pattern"])

	avg, _ := configs.ByID("3")
	assert.Equal(t, core.SerializedFieldFormat{ID: "number"}, avg.SerializedFormat())

	count, _ := configs.ByID("4")
	assert.Equal(t, "number", count.SerializedFormat().ID)

	maxCountry, _ := configs.ByID("5")
	assert.True(t, maxCountry.SerializedFormat().IsEmpty())
}

func TestFilterability(t *testing.T) {
	configs, err := New(testPattern(), []Def{
		{ID: "1", Type: TypeTerms, Params: Params{Field: "country"}},
		{ID: "2", Type: TypeSum, Params: Params{Field: "bytes"}},
	})
	require.NoError(t, err)

	terms, _ := configs.ByID("1")
	sum, _ := configs.ByID("2")
	assert.True(t, terms.IsFilterable())
	assert.False(t, sum.IsFilterable())
	assert.Equal(t, "Top 5 country", terms.Label())
	assert.Equal(t, "Sum of bytes", sum.Label())
}

func TestCreateFilter_Terms(t *testing.T) {
	configs, err := New(testPattern(), []Def{{ID: "1", Type: TypeTerms, Params: Params{Field: "country", OtherBucket: true}}})
	require.NoError(t, err)
	terms, _ := configs.ByID("1")

	got, err := terms.CreateFilter("DE", core.FilterParams{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.ClausePhrase, got[0].Clause.Kind)
	assert.Equal(t, []any{"DE"}, got[0].Clause.Values)
	assert.False(t, got[0].Meta.Negate)
	assert.Equal(t, "requests", got[0].Meta.Index)

	other, err := terms.CreateFilter(core.OtherBucketKey, core.FilterParams{Terms: []any{"DE", "FR"}})
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, core.ClausePhrases, other[0].Clause.Kind)
	assert.Equal(t, []any{"DE", "FR"}, other[0].Clause.Values)
	assert.True(t, other[0].Meta.Negate)

	missing, err := terms.CreateFilter(core.MissingBucketKey, core.FilterParams{})
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, core.ClauseExists, missing[0].Clause.Kind)
	assert.True(t, missing[0].Meta.Negate)

	none, err := terms.CreateFilter(core.OtherBucketKey, core.FilterParams{})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreateFilter_Histograms(t *testing.T) {
	configs, err := New(testPattern(), []Def{
		{ID: "1", Type: TypeHistogram, Params: Params{Field: "bytes", Interval: "100"}},
		{ID: "2", Type: TypeDateHistogram, Params: Params{Field: "ts", Interval: "1h"}},
		{ID: "3", Type: TypeRange, Params: Params{Field: "latency", Ranges: []RangeParam{{To: f64(10)}}}},
	})
	require.NoError(t, err)

	hist, _ := configs.ByID("1")
	got, err := hist.CreateFilter(200.0, core.FilterParams{})
	require.NoError(t, err)
	assert.Equal(t, &core.Range{GTE: 200.0, LT: 300.0}, got[0].Clause.Range)

	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	dateHist, _ := configs.ByID("2")
	got, err = dateHist.CreateFilter(start.UnixMilli(), core.FilterParams{})
	require.NoError(t, err)
	assert.Equal(t, &core.Range{GTE: start, LT: start.Add(time.Hour)}, got[0].Clause.Range)

	ranges, _ := configs.ByID("3")
	got, err = ranges.CreateFilter(map[string]any{"from": nil, "to": 10.0}, core.FilterParams{})
	require.NoError(t, err)
	assert.Equal(t, &core.Range{GTE: nil, LT: 10.0}, got[0].Clause.Range)

	_, err = hist.CreateFilter("abc", core.FilterParams{})
	require.ErrorIs(t, err, ErrInvalidParams)
}
