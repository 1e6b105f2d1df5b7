package filters

import (
	"fmt"
	"strings"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/core"
)

func BuildPhraseFilter(field core.Field, value any, index string) core.Filter {
	return core.Filter{
		Meta:   core.FilterMeta{Index: index, Key: field.Name, Value: displayValue(value)},
		Clause: core.Clause{Kind: core.ClausePhrase, Field: field.Name, Values: []any{value}},
		State:  core.FilterState{Store: core.AppState},
	}
}

func BuildPhrasesFilter(field core.Field, values []any, index string) core.Filter {
	labels := make([]string, len(values))
	for i, v := range values {
		labels[i] = displayValue(v)
	}
	return core.Filter{
		Meta:   core.FilterMeta{Index: index, Key: field.Name, Value: strings.Join(labels, ", ")},
		Clause: core.Clause{Kind: core.ClausePhrases, Field: field.Name, Values: append([]any(nil), values...)},
		State:  core.FilterState{Store: core.AppState},
	}
}

func BuildRangeFilter(field core.Field, r core.Range, index string) core.Filter {
	from, to := "-∞", "+∞"
	if r.GTE != nil {
		from = displayValue(r.GTE)
	}
	if r.LT != nil {
		to = displayValue(r.LT)
	}
	bounds := r
	return core.Filter{
		Meta:   core.FilterMeta{Index: index, Key: field.Name, Value: from + " to " + to},
		Clause: core.Clause{Kind: core.ClauseRange, Field: field.Name, Range: &bounds},
		State:  core.FilterState{Store: core.AppState},
	}
}

func BuildExistsFilter(field core.Field, index string) core.Filter {
	return core.Filter{
		Meta:   core.FilterMeta{Index: index, Key: field.Name, Value: "exists"},
		Clause: core.Clause{Kind: core.ClauseExists, Field: field.Name},
		State:  core.FilterState{Store: core.AppState},
	}
}

func displayValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
