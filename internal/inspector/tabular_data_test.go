package inspector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgg struct {
	id         string
	format     core.SerializedFieldFormat
	filterable bool
	field      *core.Field
}

func (a fakeAgg) ID() string                                   { return a.id }
func (a fakeAgg) SerializedFormat() core.SerializedFieldFormat { return a.format }
func (a fakeAgg) IsFilterable() bool                           { return a.filterable }
func (a fakeAgg) Field() *core.Field                           { return a.field }

type identityFormatter struct{}

func (identityFormatter) Convert(v any) string { return fmt.Sprint(v) }

type prefixFormatter string

func (p prefixFormatter) Convert(v any) string { return string(p) + fmt.Sprint(v) }

type filterCall struct {
	columnIndex int
	rowIndex    int
	value       any
}

type recorder struct {
	created []filterCall
	added   [][]core.Filter
	result  func(value any) []core.Filter
}

func (r *recorder) createFilter(_ []core.AggConfig, _ core.TabbedTable, columnIndex, rowIndex int, value any) ([]core.Filter, error) {
	r.created = append(r.created, filterCall{columnIndex, rowIndex, value})
	if r.result != nil {
		return r.result(value), nil
	}
	return []core.Filter{{
		Meta:   core.FilterMeta{Key: "k", Value: fmt.Sprint(value)},
		Clause: core.Clause{Kind: core.ClausePhrase, Field: "k", Values: []any{value}},
	}}, nil
}

func (r *recorder) addFilters(f []core.Filter) {
	r.added = append(r.added, f)
}

func identityFactory(formats *[]core.SerializedFieldFormat) core.FormatFactory {
	return func(f core.SerializedFieldFormat) (core.Formatter, error) {
		if formats != nil {
			*formats = append(*formats, f)
		}
		return identityFormatter{}, nil
	}
}

func oneColumnTable() core.TabbedTable {
	return core.TabbedTable{
		Columns: []core.TabbedColumn{{ID: "1", Name: "Top 2 letters", AggConfig: fakeAgg{id: "1", filterable: true}}},
		Rows:    []core.Row{{"1": "a"}, {"1": "b"}},
	}
}

func TestBuildTabularData_Example(t *testing.T) {
	rec := &recorder{}
	data, err := BuildTabularData(context.Background(), oneColumnTable(), Options{
		AddFilters:             rec.addFilters,
		DeserializeFieldFormat: identityFactory(nil),
		CreateFilter:           rec.createFilter,
	})
	require.NoError(t, err)

	assert.Equal(t, []core.TabularRow{
		{"col-0-1": {Raw: "a", Formatted: "a"}},
		{"col-0-1": {Raw: "b", Formatted: "b"}},
	}, data.Rows)
	require.Len(t, data.Columns, 1)
	assert.Equal(t, "Top 2 letters", data.Columns[0].Name)
	assert.Equal(t, "col-0-1", data.Columns[0].Field)
	assert.NotNil(t, data.Columns[0].Filter)
	assert.NotNil(t, data.Columns[0].FilterOut)
}

func TestBuildTabularData_Shape(t *testing.T) {
	table := core.TabbedTable{
		Columns: []core.TabbedColumn{
			{ID: "a", Name: "A", AggConfig: fakeAgg{id: "7"}},
			{ID: "b", Name: "B", AggConfig: fakeAgg{id: "8"}},
			{ID: "c", Name: "C", AggConfig: fakeAgg{id: "9"}},
		},
	}
	for i := 0; i < 4; i++ {
		table.Rows = append(table.Rows, core.Row{"a": i, "b": i * 2, "c": nil})
	}

	data, err := BuildTabularData(context.Background(), table, Options{DeserializeFieldFormat: identityFactory(nil)})
	require.NoError(t, err)

	require.Len(t, data.Columns, 3)
	require.Len(t, data.Rows, 4)
	for _, row := range data.Rows {
		require.Len(t, row, 3)
		assert.Contains(t, row, "col-0-7")
		assert.Contains(t, row, "col-1-8")
		assert.Contains(t, row, "col-2-9")
	}
	assert.Equal(t, 6, data.Rows[3]["col-1-8"].Raw)
	assert.Equal(t, "6", data.Rows[3]["col-1-8"].Formatted)
}

func TestBuildTabularData_EmptyFormatFallsBackToString(t *testing.T) {
	table := core.TabbedTable{
		Columns: []core.TabbedColumn{
			{ID: "a", Name: "A", AggConfig: fakeAgg{id: "1"}},
			{ID: "b", Name: "B", AggConfig: fakeAgg{id: "2", format: core.SerializedFieldFormat{ID: "number"}}},
		},
		Rows: []core.Row{{"a": 12.5, "b": 3}},
	}
	var seen []core.SerializedFieldFormat
	data, err := BuildTabularData(context.Background(), table, Options{DeserializeFieldFormat: identityFactory(&seen)})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, core.SerializedFieldFormat{ID: "string"}, seen[0])
	assert.Equal(t, core.SerializedFieldFormat{ID: "number"}, seen[1])
	assert.Equal(t, "12.5", data.Rows[0]["col-0-1"].Formatted)
}

func TestBuildTabularData_FormatterPerColumn(t *testing.T) {
	table := core.TabbedTable{
		Columns: []core.TabbedColumn{
			{ID: "a", Name: "A", AggConfig: fakeAgg{id: "1", format: core.SerializedFieldFormat{ID: "x"}}},
			{ID: "b", Name: "B", AggConfig: fakeAgg{id: "2", format: core.SerializedFieldFormat{ID: "y"}}},
		},
		Rows: []core.Row{{"a": 1, "b": 2}},
	}
	factory := func(f core.SerializedFieldFormat) (core.Formatter, error) {
		return prefixFormatter(f.ID + ":"), nil
	}
	data, err := BuildTabularData(context.Background(), table, Options{DeserializeFieldFormat: factory})
	require.NoError(t, err)
	assert.Equal(t, "x:1", data.Rows[0]["col-0-1"].Formatted)
	assert.Equal(t, "y:2", data.Rows[0]["col-1-2"].Formatted)
}

func TestBuildTabularData_NoCallbacks(t *testing.T) {
	nonFilterableField := &core.Field{Name: "script", Filterable: false}
	filterableField := &core.Field{Name: "country", Filterable: true}
	table := core.TabbedTable{
		Columns: []core.TabbedColumn{
			{ID: "a", Name: "metric", AggConfig: fakeAgg{id: "1", filterable: false}},
			{ID: "b", Name: "scripted", AggConfig: fakeAgg{id: "2", filterable: true, field: nonFilterableField}},
			{ID: "c", Name: "country", AggConfig: fakeAgg{id: "3", filterable: true, field: filterableField}},
		},
		Rows: []core.Row{{"a": 1, "b": "x", "c": "DE"}},
	}

	rec := &recorder{}
	data, err := BuildTabularData(context.Background(), table, Options{
		AddFilters:             rec.addFilters,
		DeserializeFieldFormat: identityFactory(nil),
		CreateFilter:           rec.createFilter,
	})
	require.NoError(t, err)
	assert.Nil(t, data.Columns[0].Filter)
	assert.Nil(t, data.Columns[0].FilterOut)
	assert.Nil(t, data.Columns[1].Filter)
	assert.Nil(t, data.Columns[1].FilterOut)
	assert.NotNil(t, data.Columns[2].Filter)
	assert.NotNil(t, data.Columns[2].FilterOut)

	withoutAdd, err := BuildTabularData(context.Background(), table, Options{DeserializeFieldFormat: identityFactory(nil)})
	require.NoError(t, err)
	for _, col := range withoutAdd.Columns {
		assert.Nil(t, col.Filter)
		assert.Nil(t, col.FilterOut)
	}
}

func TestFilter_FirstMatchingRowWins(t *testing.T) {
	table := core.TabbedTable{
		Columns: []core.TabbedColumn{
			{ID: "x", Name: "host", AggConfig: fakeAgg{id: "1", filterable: true}},
			{ID: "y", Name: "path", AggConfig: fakeAgg{id: "2", filterable: true}},
		},
		Rows: []core.Row{
			{"x": "h1", "y": "/a"},
			{"x": "h2", "y": "/b"},
			{"x": "h2", "y": "/c"},
		},
	}
	rec := &recorder{}
	data, err := BuildTabularData(context.Background(), table, Options{
		AddFilters:             rec.addFilters,
		DeserializeFieldFormat: identityFactory(nil),
		CreateFilter:           rec.createFilter,
	})
	require.NoError(t, err)

	require.NoError(t, data.Columns[0].Filter(data.Rows[2]["col-0-1"]))
	require.Len(t, rec.created, 1)
	assert.Equal(t, filterCall{columnIndex: 0, rowIndex: 1, value: "h2"}, rec.created[0])
	require.Len(t, rec.added, 1)
	assert.False(t, rec.added[0][0].Meta.Negate)

	require.NoError(t, data.Columns[1].Filter(core.NewFormattedData("/zzz", "/zzz")))
	assert.Equal(t, filterCall{columnIndex: 1, rowIndex: -1, value: "/zzz"}, rec.created[1])
}

func TestFilterOut_NegatesUnlessSentinel(t *testing.T) {
	table := core.TabbedTable{
		Columns: []core.TabbedColumn{{ID: "x", Name: "country", AggConfig: fakeAgg{id: "1", filterable: true}}},
		Rows: []core.Row{
			{"x": "DE"},
			{"x": core.OtherBucketKey},
			{"x": core.MissingBucketKey},
		},
	}
	rec := &recorder{
		result: func(value any) []core.Filter {
			return []core.Filter{
				{Meta: core.FilterMeta{Key: "country", Value: fmt.Sprint(value)}},
				{Meta: core.FilterMeta{Key: "region", Value: "eu"}},
			}
		},
	}
	data, err := BuildTabularData(context.Background(), table, Options{
		AddFilters:             rec.addFilters,
		DeserializeFieldFormat: identityFactory(nil),
		CreateFilter:           rec.createFilter,
	})
	require.NoError(t, err)
	filterOut := data.Columns[0].FilterOut

	require.NoError(t, filterOut(data.Rows[0]["col-0-1"]))
	require.NoError(t, filterOut(data.Rows[1]["col-0-1"]))
	require.NoError(t, filterOut(data.Rows[2]["col-0-1"]))
	require.Len(t, rec.added, 3)

	for _, f := range rec.added[0] {
		assert.True(t, f.Meta.Negate, "regular value should be negated")
	}
	for _, f := range rec.added[1] {
		assert.False(t, f.Meta.Negate, "__other__ must not be negated")
	}
	for _, f := range rec.added[2] {
		assert.False(t, f.Meta.Negate, "__missing__ must not be negated")
	}
}

func TestFilterOut_DoesNotMutateDerivedFilters(t *testing.T) {
	shared := []core.Filter{{Meta: core.FilterMeta{Key: "country", Value: "DE"}}}
	rec := &recorder{result: func(any) []core.Filter { return shared }}
	data, err := BuildTabularData(context.Background(), oneColumnTable(), Options{
		AddFilters:             rec.addFilters,
		DeserializeFieldFormat: identityFactory(nil),
		CreateFilter:           rec.createFilter,
	})
	require.NoError(t, err)

	require.NoError(t, data.Columns[0].FilterOut(data.Rows[0]["col-0-1"]))
	assert.True(t, rec.added[0][0].Meta.Negate)
	assert.False(t, shared[0].Meta.Negate)
}

func TestCallbacks_SkipAddWhenNoFilterDerived(t *testing.T) {
	rec := &recorder{result: func(any) []core.Filter { return nil }}
	data, err := BuildTabularData(context.Background(), oneColumnTable(), Options{
		AddFilters:             rec.addFilters,
		DeserializeFieldFormat: identityFactory(nil),
		CreateFilter:           rec.createFilter,
	})
	require.NoError(t, err)

	require.NoError(t, data.Columns[0].Filter(data.Rows[0]["col-0-1"]))
	require.NoError(t, data.Columns[0].FilterOut(data.Rows[0]["col-0-1"]))
	assert.Len(t, rec.created, 2)
	assert.Empty(t, rec.added)
}

func TestCallbacks_PropagateDerivationError(t *testing.T) {
	boom := errors.New("boom")
	var added int
	data, err := BuildTabularData(context.Background(), oneColumnTable(), Options{
		AddFilters:             func([]core.Filter) { added++ },
		DeserializeFieldFormat: identityFactory(nil),
		CreateFilter: func([]core.AggConfig, core.TabbedTable, int, int, any) ([]core.Filter, error) {
			return nil, boom
		},
	})
	require.NoError(t, err)
	require.ErrorIs(t, data.Columns[0].Filter(data.Rows[0]["col-0-1"]), boom)
	require.ErrorIs(t, data.Columns[0].FilterOut(data.Rows[0]["col-0-1"]), boom)
	assert.Zero(t, added)
}

func TestBuildTabularData_FactoryErrorAborts(t *testing.T) {
	boom := errors.New("bad format")
	_, err := BuildTabularData(context.Background(), oneColumnTable(), Options{
		DeserializeFieldFormat: func(core.SerializedFieldFormat) (core.Formatter, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
}

type panicFormatter struct{}

func (panicFormatter) Convert(any) string { panic("cannot convert") }

func TestBuildTabularData_ConvertPanicPropagates(t *testing.T) {
	assert.PanicsWithValue(t, "cannot convert", func() {
		_, _ = BuildTabularData(context.Background(), oneColumnTable(), Options{
			DeserializeFieldFormat: func(core.SerializedFieldFormat) (core.Formatter, error) { return panicFormatter{}, nil },
		})
	})
}

func TestBuildTabularData_RequiresFactory(t *testing.T) {
	_, err := BuildTabularData(context.Background(), oneColumnTable(), Options{})
	require.Error(t, err)
}

func TestBuildTabularData_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildTabularData(ctx, oneColumnTable(), Options{DeserializeFieldFormat: identityFactory(nil)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildTabularData_EmptyTable(t *testing.T) {
	table := core.TabbedTable{Columns: []core.TabbedColumn{{ID: "a", Name: "A", AggConfig: fakeAgg{id: "1"}}}}
	data, err := BuildTabularData(context.Background(), table, Options{DeserializeFieldFormat: identityFactory(nil)})
	require.NoError(t, err)
	assert.Len(t, data.Columns, 1)
	assert.Empty(t, data.Rows)
}
