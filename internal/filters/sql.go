package filters

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/core"
)

var ErrUnknownField = errors.New("filters: unknown field")

// SQLTimeLayout is the text form date parameters are bound with.
const SQLTimeLayout = "2006-01-02T15:04:05.000Z"

// QuoteIdent quotes a SQLite identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ToSQL compiles enabled filters into a WHERE condition. It returns an empty
// clause when nothing applies. Negated filters also match rows where the
// field is NULL.
func ToSQL(filters []core.Filter, pattern core.IndexPattern) (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	for _, f := range filters {
		if f.Meta.Disabled {
			continue
		}
		field := pattern.FieldByName(f.Clause.Field)
		if field == nil {
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownField, f.Clause.Field)
		}
		expr, exprArgs, err := clauseSQL(f.Clause, *field)
		if err != nil {
			return "", nil, err
		}
		if f.Meta.Negate {
			expr = "NOT COALESCE((" + expr + "), 0)"
		}
		parts = append(parts, expr)
		args = append(args, exprArgs...)
	}
	return strings.Join(parts, " AND "), args, nil
}

func clauseSQL(c core.Clause, field core.Field) (string, []any, error) {
	col := QuoteIdent(field.Name)
	isDate := field.Type == core.FieldTypeDate

	switch c.Kind {
	case core.ClauseExists:
		return col + " IS NOT NULL", nil, nil

	case core.ClausePhrase:
		if len(c.Values) != 1 {
			return "", nil, fmt.Errorf("filters: phrase filter on %s needs one value", field.Name)
		}
		if c.Values[0] == nil {
			return col + " IS NULL", nil, nil
		}
		if isDate {
			return "julianday(" + col + ") = julianday(?)", []any{sqlParam(c.Values[0])}, nil
		}
		return col + " = ?", []any{sqlParam(c.Values[0])}, nil

	case core.ClausePhrases:
		if len(c.Values) == 0 {
			return "0", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(c.Values)), ", ")
		args := make([]any, len(c.Values))
		for i, v := range c.Values {
			args[i] = sqlParam(v)
		}
		return col + " IN (" + marks + ")", args, nil

	case core.ClauseRange:
		if c.Range == nil || (c.Range.GTE == nil && c.Range.LT == nil) {
			return col + " IS NOT NULL", nil, nil
		}
		lhs, mark := col, "?"
		if isDate {
			lhs, mark = "julianday("+col+")", "julianday(?)"
		}
		var (
			conds []string
			args  []any
		)
		if c.Range.GTE != nil {
			conds = append(conds, lhs+" >= "+mark)
			args = append(args, sqlParam(c.Range.GTE))
		}
		if c.Range.LT != nil {
			conds = append(conds, lhs+" < "+mark)
			args = append(args, sqlParam(c.Range.LT))
		}
		return strings.Join(conds, " AND "), args, nil
	}
	return "", nil, fmt.Errorf("filters: unsupported clause %q", c.Kind)
}

func sqlParam(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(SQLTimeLayout)
	}
	return v
}
