package fieldformats

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/janekbaraniewski/aggscope/internal/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	FormatString  = "string"
	FormatNumber  = "number"
	FormatPercent = "percent"
	FormatBytes   = "bytes"
	FormatBoolean = "boolean"
	FormatDate    = "date"
	FormatTerms   = "terms"
	FormatRange   = "range"
)

const (
	emptyValue         = "-"
	defaultDatePattern = "Jan 2, 2006 @ 15:04:05.000"
	defaultDecimals    = 3
)

// ─── string ─────────────────────────────────────────────────────────────────

type stringFormat struct {
	transform func(string) string
}

func newStringFormat(r *Registry, params map[string]any) (core.Formatter, error) {
	f := stringFormat{}
	switch t := stringParam(params, "transform", ""); t {
	case "", "none":
	case "lower":
		f.transform = strings.ToLower
	case "upper":
		f.transform = strings.ToUpper
	case "title":
		caser := cases.Title(r.locale)
		f.transform = caser.String
	default:
		return nil, fmt.Errorf("unknown transform %q", t)
	}
	return f, nil
}

func (f stringFormat) Convert(value any) string {
	s := asPrettyString(value)
	if f.transform != nil && value != nil {
		return f.transform(s)
	}
	return s
}

// ─── number / percent ───────────────────────────────────────────────────────

type numberFormat struct {
	printer  *message.Printer
	decimals int
	percent  bool
}

func newNumberFormat(r *Registry, params map[string]any) (core.Formatter, error) {
	return numberFormat{printer: r.printer, decimals: intParam(params, "decimals", defaultDecimals)}, nil
}

func newPercentFormat(r *Registry, params map[string]any) (core.Formatter, error) {
	return numberFormat{printer: r.printer, decimals: intParam(params, "decimals", 1), percent: true}, nil
}

func (f numberFormat) Convert(value any) string {
	v, ok := toFloat(value)
	if !ok {
		return asPrettyString(value)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if f.percent {
		return f.printer.Sprint(number.Percent(v, number.MaxFractionDigits(f.decimals)))
	}
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(f.decimals)))
}

// ─── bytes ──────────────────────────────────────────────────────────────────

type bytesFormat struct {
	binary bool
}

func newBytesFormat(_ *Registry, params map[string]any) (core.Formatter, error) {
	return bytesFormat{binary: boolParam(params, "binary", false)}, nil
}

func (f bytesFormat) Convert(value any) string {
	v, ok := toFloat(value)
	if !ok {
		return asPrettyString(value)
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	if f.binary {
		return sign + humanize.IBytes(uint64(v))
	}
	return sign + humanize.Bytes(uint64(v))
}

// ─── boolean ────────────────────────────────────────────────────────────────

type booleanFormat struct{}

func newBooleanFormat(_ *Registry, _ map[string]any) (core.Formatter, error) {
	return booleanFormat{}, nil
}

func (booleanFormat) Convert(value any) string {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "t", "yes":
			return "true"
		case "false", "0", "f", "no":
			return "false"
		}
	default:
		if n, ok := toFloat(value); ok {
			if n == 1 {
				return "true"
			}
			if n == 0 {
				return "false"
			}
		}
	}
	return asPrettyString(value)
}

// ─── date ───────────────────────────────────────────────────────────────────

type dateFormat struct {
	pattern  string
	location *time.Location
}

func newDateFormat(_ *Registry, params map[string]any) (core.Formatter, error) {
	f := dateFormat{
		pattern:  stringParam(params, "pattern", defaultDatePattern),
		location: time.UTC,
	}
	if tz := stringParam(params, "timezone", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
		}
		f.location = loc
	}
	return f, nil
}

func (f dateFormat) Convert(value any) string {
	t, ok := ToTime(value)
	if !ok {
		return asPrettyString(value)
	}
	return t.In(f.location).Format(f.pattern)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ToTime interprets value as a timestamp: time.Time, unix milliseconds or
// RFC 3339 / SQL datetime text.
func ToTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case nil, bool:
		return time.Time{}, false
	}
	if ms, ok := toFloat(value); ok {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}

// ─── terms ──────────────────────────────────────────────────────────────────

type termsFormat struct {
	inner        core.Formatter
	otherLabel   string
	missingLabel string
}

func newTermsFormat(r *Registry, params map[string]any) (core.Formatter, error) {
	inner, err := r.nested(params)
	if err != nil {
		return nil, err
	}
	return termsFormat{
		inner:        inner,
		otherLabel:   stringParam(params, "otherBucketLabel", "Other"),
		missingLabel: stringParam(params, "missingBucketLabel", "Missing"),
	}, nil
}

func (f termsFormat) Convert(value any) string {
	switch value {
	case core.OtherBucketKey:
		return f.otherLabel
	case core.MissingBucketKey:
		return f.missingLabel
	}
	return f.inner.Convert(value)
}

// ─── range ──────────────────────────────────────────────────────────────────

type rangeFormat struct {
	inner core.Formatter
}

func newRangeFormat(r *Registry, params map[string]any) (core.Formatter, error) {
	inner, err := r.nested(params)
	if err != nil {
		return nil, err
	}
	return rangeFormat{inner: inner}, nil
}

func (f rangeFormat) Convert(value any) string {
	bounds, ok := value.(map[string]any)
	if !ok {
		return f.inner.Convert(value)
	}
	from, to := "-∞", "+∞"
	if v, ok := bounds["from"]; ok && v != nil {
		from = f.inner.Convert(v)
	}
	if v, ok := bounds["to"]; ok && v != nil {
		to = f.inner.Convert(v)
	}
	return fmt.Sprintf("≥ %s and < %s", from, to)
}

// ─── helpers ────────────────────────────────────────────────────────────────

func asPrettyString(value any) string {
	switch v := value.(type) {
	case nil:
		return emptyValue
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intParam(params map[string]any, key string, fallback int) int {
	if v, ok := toFloat(params[key]); ok && v >= 0 {
		return int(v)
	}
	return fallback
}

func boolParam(params map[string]any, key string, fallback bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}
