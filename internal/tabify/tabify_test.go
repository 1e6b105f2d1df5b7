package tabify

import (
	"testing"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/aggs"
	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPattern() core.IndexPattern {
	return core.IndexPattern{
		Title: "requests",
		Fields: []core.Field{
			{Name: "country", Type: core.FieldTypeString, Filterable: true, Aggregatable: true},
			{Name: "region", Type: core.FieldTypeString, Filterable: true, Aggregatable: true},
			{Name: "host", Type: core.FieldTypeString, Filterable: true, Aggregatable: true},
			{Name: "bytes", Type: core.FieldTypeNumber, Filterable: true, Aggregatable: true},
			{Name: "ts", Type: core.FieldTypeDate, Filterable: true, Aggregatable: true},
		},
	}
}

func mustConfigs(t *testing.T, defs ...aggs.Def) *aggs.AggConfigs {
	t.Helper()
	configs, err := aggs.New(testPattern(), defs)
	require.NoError(t, err)
	return configs
}

func group(count int64, keys map[string]any, bytes float64) datasource.GroupRow {
	return datasource.GroupRow{
		Keys:  keys,
		Count: count,
		Stats: map[string]datasource.FieldStats{
			"bytes": {Sum: bytes, NonNull: count, Min: bytes / float64(count), Max: bytes},
		},
	}
}

func column(table core.TabbedTable, i int) []any {
	out := make([]any, len(table.Rows))
	for r, row := range table.Rows {
		out[r] = row[table.Columns[i].ID]
	}
	return out
}

func TestQuery_GroupsOnBucketAndCardinalityFields(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeTerms, Params: aggs.Params{Field: "country"}},
		aggs.Def{ID: "2", Type: aggs.TypeSum, Params: aggs.Params{Field: "bytes"}},
		aggs.Def{ID: "3", Type: aggs.TypeAvg, Params: aggs.Params{Field: "bytes"}},
		aggs.Def{ID: "4", Type: aggs.TypeCardinality, Params: aggs.Params{Field: "host"}},
		aggs.Def{ID: "5", Type: aggs.TypeCardinality, Params: aggs.Params{Field: "country"}},
	)

	q := Query(configs, "requests")
	assert.Equal(t, "requests", q.Table)
	assert.Equal(t, []string{"country", "host"}, q.GroupFields)
	assert.Equal(t, []string{"bytes"}, q.MetricFields)
}

func TestTable_TermsTopWithOtherAndMissing(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeTerms, Params: aggs.Params{
			Field: "country", Size: 2, OtherBucket: true, MissingBucket: true,
		}},
		aggs.Def{ID: "2", Type: aggs.TypeCount},
		aggs.Def{ID: "3", Type: aggs.TypeSum, Params: aggs.Params{Field: "bytes"}},
	)
	rows := []datasource.GroupRow{
		group(5, map[string]any{"country": "DE"}, 50),
		group(3, map[string]any{"country": "FR"}, 30),
		group(8, map[string]any{"country": "US"}, 80),
		group(1, map[string]any{"country": "IT"}, 10),
		group(2, map[string]any{"country": nil}, 4),
	}

	table, err := Table(configs, rows)
	require.NoError(t, err)

	require.Len(t, table.Columns, 3)
	assert.Equal(t, "col-0-1", table.Columns[0].ID)
	assert.Equal(t, "Top 2 country", table.Columns[0].Name)
	assert.Equal(t, "col-1-2", table.Columns[1].ID)
	assert.Equal(t, "Count", table.Columns[1].Name)
	assert.Equal(t, "col-2-3", table.Columns[2].ID)
	assert.Equal(t, "Sum of bytes", table.Columns[2].Name)

	assert.Equal(t, []any{"US", "DE", core.OtherBucketKey, core.MissingBucketKey}, column(table, 0))
	assert.Equal(t, []any{int64(8), int64(5), int64(4), int64(2)}, column(table, 1))
	assert.Equal(t, []any{80.0, 50.0, 40.0, 4.0}, column(table, 2))
}

func TestTable_TermsDropsRestWithoutOtherBucket(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeTerms, Params: aggs.Params{Field: "country", Size: 1}},
	)
	rows := []datasource.GroupRow{
		group(5, map[string]any{"country": "DE"}, 50),
		group(8, map[string]any{"country": "US"}, 80),
		group(9, map[string]any{"country": nil}, 4),
	}

	table, err := Table(configs, rows)
	require.NoError(t, err)
	assert.Equal(t, []any{"US"}, column(table, 0))
	// The count metric is added automatically.
	assert.Equal(t, "col-1-2", table.Columns[1].ID)
	assert.Equal(t, []any{int64(8)}, column(table, 1))
}

func TestTable_TermsOrderedByMetric(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeTerms, Params: aggs.Params{Field: "country", OrderBy: "2"}},
		aggs.Def{ID: "2", Type: aggs.TypeMax, Params: aggs.Params{Field: "bytes"}},
	)
	rows := []datasource.GroupRow{
		group(10, map[string]any{"country": "DE"}, 20),
		group(1, map[string]any{"country": "FR"}, 90),
		group(4, map[string]any{"country": "US"}, 40),
	}

	table, err := Table(configs, rows)
	require.NoError(t, err)
	assert.Equal(t, []any{"FR", "US", "DE"}, column(table, 0))
	assert.Equal(t, []any{90.0, 40.0, 20.0}, column(table, 1))
}

func TestTable_NestedTermsRankWithinParent(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeTerms, Params: aggs.Params{Field: "region", Size: 2}},
		aggs.Def{ID: "2", Type: aggs.TypeTerms, Params: aggs.Params{Field: "country", Size: 1, OtherBucket: true}},
	)
	rows := []datasource.GroupRow{
		group(6, map[string]any{"region": "eu", "country": "DE"}, 1),
		group(4, map[string]any{"region": "eu", "country": "FR"}, 1),
		group(3, map[string]any{"region": "eu", "country": "IT"}, 1),
		group(9, map[string]any{"region": "us", "country": "US"}, 1),
		group(1, map[string]any{"region": "us", "country": "CA"}, 1),
	}

	table, err := Table(configs, rows)
	require.NoError(t, err)
	assert.Equal(t, []any{"eu", "eu", "us", "us"}, column(table, 0))
	assert.Equal(t, []any{"DE", core.OtherBucketKey, "US", core.OtherBucketKey}, column(table, 1))
	assert.Equal(t, []any{int64(6), int64(7), int64(9), int64(1)}, column(table, 2))
}

func TestTable_OtherBucketMergesSubBuckets(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeTerms, Params: aggs.Params{Field: "country", Size: 1, OtherBucket: true}},
		aggs.Def{ID: "2", Type: aggs.TypeTerms, Params: aggs.Params{Field: "host"}},
	)
	rows := []datasource.GroupRow{
		group(10, map[string]any{"country": "US", "host": "a"}, 1),
		group(2, map[string]any{"country": "DE", "host": "a"}, 1),
		group(3, map[string]any{"country": "FR", "host": "a"}, 1),
		group(4, map[string]any{"country": "FR", "host": "b"}, 1),
	}

	table, err := Table(configs, rows)
	require.NoError(t, err)
	assert.Equal(t, []any{"US", core.OtherBucketKey, core.OtherBucketKey}, column(table, 0))
	assert.Equal(t, []any{"a", "a", "b"}, column(table, 1))
	assert.Equal(t, []any{int64(10), int64(5), int64(4)}, column(table, 2))
}

func TestTable_HistogramFloorsKeysAscending(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeHistogram, Params: aggs.Params{Field: "bytes", Interval: "100"}},
	)
	rows := []datasource.GroupRow{
		{Keys: map[string]any{"bytes": int64(250)}, Count: 1},
		{Keys: map[string]any{"bytes": 99.5}, Count: 2},
		{Keys: map[string]any{"bytes": int64(210)}, Count: 3},
		{Keys: map[string]any{"bytes": nil}, Count: 7},
	}

	table, err := Table(configs, rows)
	require.NoError(t, err)
	assert.Equal(t, []any{0.0, 200.0}, column(table, 0))
	assert.Equal(t, []any{int64(2), int64(4)}, column(table, 1))
}

func TestTable_DateHistogramKeysAreMillis(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeDateHistogram, Params: aggs.Params{Field: "ts", Interval: "1d"}},
	)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	rows := []datasource.GroupRow{
		{Keys: map[string]any{"ts": day.Add(26 * time.Hour)}, Count: 1},
		{Keys: map[string]any{"ts": day.Add(3 * time.Hour)}, Count: 2},
		{Keys: map[string]any{"ts": "2026-03-02 20:15:00+00:00"}, Count: 4},
	}

	table, err := Table(configs, rows)
	require.NoError(t, err)
	assert.Equal(t, []any{day.UnixMilli(), day.Add(24 * time.Hour).UnixMilli()}, column(table, 0))
	assert.Equal(t, []any{int64(6), int64(1)}, column(table, 1))
}

func TestTable_DateHistogramRejectsNonTimes(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeDateHistogram, Params: aggs.Params{Field: "ts", Interval: "1h"}},
	)
	_, err := Table(configs, []datasource.GroupRow{{Keys: map[string]any{"ts": "yesterday"}, Count: 1}})
	require.Error(t, err)
}

func TestTable_RangesInDeclaredOrder(t *testing.T) {
	lo, mid, hi := 0.0, 1000.0, 5000.0
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeRange, Params: aggs.Params{Field: "bytes", Ranges: []aggs.RangeParam{
			{From: &mid, To: &hi},
			{From: &lo, To: &mid},
			{From: &lo},
		}}},
	)
	rows := []datasource.GroupRow{
		{Keys: map[string]any{"bytes": int64(10)}, Count: 1},
		{Keys: map[string]any{"bytes": int64(1500)}, Count: 2},
		{Keys: map[string]any{"bytes": int64(9000)}, Count: 4},
	}

	table, err := Table(configs, rows)
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"from": 1000.0, "to": 5000.0},
		map[string]any{"from": 0.0, "to": 1000.0},
		map[string]any{"from": 0.0, "to": nil},
	}, column(table, 0))
	assert.Equal(t, []any{int64(2), int64(1), int64(7)}, column(table, 1))
}

func TestTable_MetricsWithoutBuckets(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeAvg, Params: aggs.Params{Field: "bytes"}},
		aggs.Def{ID: "2", Type: aggs.TypeMin, Params: aggs.Params{Field: "bytes"}},
		aggs.Def{ID: "3", Type: aggs.TypeCardinality, Params: aggs.Params{Field: "host"}},
		aggs.Def{ID: "4", Type: aggs.TypeMax, Params: aggs.Params{Field: "ts"}},
	)
	rows := []datasource.GroupRow{
		{
			Keys:  map[string]any{"host": "a"},
			Count: 2,
			Stats: map[string]datasource.FieldStats{
				"bytes": {Sum: 30, NonNull: 2, Min: int64(10), Max: int64(20)},
				"ts":    {NonNull: 2, Min: "2026-03-01 10:00:00+00:00", Max: "2026-03-02 10:00:00+00:00"},
			},
		},
		{
			Keys:  map[string]any{"host": "b"},
			Count: 2,
			Stats: map[string]datasource.FieldStats{
				"bytes": {Sum: 6, NonNull: 1, Min: int64(6), Max: int64(6)},
				"ts":    {NonNull: 2, Min: "2026-02-01 10:00:00+00:00", Max: "2026-02-02 10:00:00+00:00"},
			},
		},
		{Keys: map[string]any{"host": nil}, Count: 1},
	}

	table, err := Table(configs, rows)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.InDelta(t, 12.0, row["col-0-1"], 1e-9)
	assert.Equal(t, 6.0, row["col-1-2"])
	assert.Equal(t, int64(2), row["col-2-3"])
	assert.Equal(t, time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC), row["col-3-4"].(time.Time).UTC())
}

func TestTable_EmptyInputWithoutBuckets(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeAvg, Params: aggs.Params{Field: "bytes"}},
	)

	table, err := Table(configs, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Nil(t, table.Rows[0]["col-0-1"])
}

func TestTable_EmptyInputWithBuckets(t *testing.T) {
	configs := mustConfigs(t,
		aggs.Def{ID: "1", Type: aggs.TypeTerms, Params: aggs.Params{Field: "country"}},
	)

	table, err := Table(configs, nil)
	require.NoError(t, err)
	assert.Len(t, table.Columns, 2)
	assert.Empty(t, table.Rows)
}
