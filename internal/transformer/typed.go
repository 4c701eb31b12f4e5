package transformer

// Typed coercion turns cleaned text rows ([]string) into database-ready rows
// ([]any) for export. Rows flow through channels so the loader can insert
// batches while later rows are still being converted.
//
// A per-column coercion plan is compiled once to avoid per-row map lookups.
// Blank cells become NULL. A cell that does not fit its column type also
// becomes NULL and is reported through onReject; the row itself is kept.

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Column types understood by the coercion plan.
const (
	TypeText      = "text"
	TypeInteger   = "integer"
	TypeReal      = "real"
	TypeBoolean   = "boolean"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
)

// CoerceSpec describes how string fields are converted to typed values.
type CoerceSpec struct {
	// Types maps column name -> one of the Type* constants. Missing or
	// unrecognized types default to text (pass-through).
	Types map[string]string
	// Truthy/Falsy are optional custom boolean vocabularies. If empty,
	// a default set is used.
	Truthy []string
	Falsy  []string
}

// RejectFunc receives cells that could not be converted. line is 1-based
// over the data rows.
type RejectFunc func(line int, column, value string)

// TransformLoop reads text rows from 'in', coerces them according to the
// provided columns (positional order) and CoerceSpec, and sends typed rows
// to 'out'. The function returns when 'in' is closed or the context is
// canceled. The caller closes 'out'.
func TransformLoop(
	ctx context.Context,
	columns []string,
	in <-chan []string,
	out chan<- []any,
	spec CoerceSpec,
	onReject RejectFunc,
) {
	plan := compilePlan(columns, spec)

	line := 0
	for raw := range in {
		line++
		select {
		case <-ctx.Done():
			return
		default:
		}

		if len(raw) != len(columns) {
			if onReject != nil {
				onReject(line, "", fmt.Sprintf("width %d, want %d", len(raw), len(columns)))
			}
			continue
		}

		row := make([]any, len(columns))
		for i := range columns {
			field := strings.TrimSpace(raw[i])
			if field == "" {
				continue
			}
			if !plan.cols[i].coerce(&row[i], field) {
				row[i] = nil
				if onReject != nil {
					onReject(line, columns[i], field)
				}
			}
		}

		select {
		case out <- row:
		case <-ctx.Done():
			return
		}
	}
}

// CoerceRows is the synchronous form of TransformLoop for small inputs.
func CoerceRows(columns []string, rows [][]string, spec CoerceSpec, onReject RejectFunc) [][]any {
	plan := compilePlan(columns, spec)
	out := make([][]any, 0, len(rows))
	for n, raw := range rows {
		row := make([]any, len(columns))
		for i := range columns {
			if i >= len(raw) {
				break
			}
			field := strings.TrimSpace(raw[i])
			if field == "" {
				continue
			}
			if !plan.cols[i].coerce(&row[i], field) {
				row[i] = nil
				if onReject != nil {
					onReject(n+1, columns[i], field)
				}
			}
		}
		out = append(out, row)
	}
	return out
}

// ValidateSpecSanity returns an error if the coercion rules mention columns
// that are not in the provided positional 'columns' slice.
func ValidateSpecSanity(columns []string, spec CoerceSpec) error {
	pos := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		pos[c] = struct{}{}
	}
	for k := range spec.Types {
		if _, ok := pos[k]; !ok {
			return fmt.Errorf("coerce spec references unknown column %q", k)
		}
	}
	return nil
}

// --- plan compilation ---------------------------------------------------------

type coercer func(dst *any, s string) bool

type compiledPlan struct {
	cols []struct{ coerce coercer }
}

func compilePlan(columns []string, spec CoerceSpec) compiledPlan {
	cols := make([]struct{ coerce coercer }, len(columns))

	truthy := lowerSet(spec.Truthy)
	falsy := lowerSet(spec.Falsy)
	useCustomBools := len(truthy) > 0 || len(falsy) > 0

	for i, col := range columns {
		switch strings.ToLower(spec.Types[col]) {
		case TypeInteger:
			cols[i].coerce = func(dst *any, s string) bool {
				v, ok := toIntFast(s)
				if ok {
					*dst = v
				}
				return ok
			}

		case TypeReal:
			cols[i].coerce = func(dst *any, s string) bool {
				f, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return false
				}
				*dst = f
				return true
			}

		case TypeBoolean:
			cols[i].coerce = func(dst *any, s string) bool {
				v, ok := toBoolFast(s, useCustomBools, truthy, falsy)
				if ok {
					*dst = v
				}
				return ok
			}

		case TypeDate:
			cols[i].coerce = func(dst *any, s string) bool {
				if t, ok := parseISODate(s); ok {
					*dst = t
					return true
				}
				return false
			}

		case TypeTimestamp:
			cols[i].coerce = func(dst *any, s string) bool {
				for _, layout := range timestampLayouts {
					if t, err := time.Parse(layout, s); err == nil {
						*dst = t
						return true
					}
				}
				if t, ok := parseISODate(s); ok {
					*dst = t
					return true
				}
				return false
			}

		default:
			cols[i].coerce = func(dst *any, s string) bool {
				*dst = s
				return true
			}
		}
	}
	return compiledPlan{cols: cols}
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// --- helpers ------------------------------------------------------------------

// lowerSet builds a lowercased membership set. Empty input returns nil to
// allow a quick "custom disabled" check.
func lowerSet(in []string) map[string]struct{} {
	if len(in) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(in))
	for _, s := range in {
		m[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return m
}

// toIntFast parses integers quickly and only falls back to float parsing when
// the field contains a '.' (supporting inputs like "42.0").
func toIntFast(s string) (int64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if strings.IndexByte(s, '.') >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f == float64(int64(f)) {
				return int64(f), true
			}
		}
	}
	return 0, false
}

// toBoolFast resolves booleans with optional custom vocabularies.
func toBoolFast(s string, custom bool, truthy, falsy map[string]struct{}) (bool, bool) {
	ls := strings.ToLower(s)
	if custom {
		if _, ok := truthy[ls]; ok {
			return true, true
		}
		if _, ok := falsy[ls]; ok {
			return false, true
		}
		return false, false
	}
	switch ls {
	case "1", "t", "true", "yes", "y":
		return true, true
	case "0", "f", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}

// parseISODate is a zero-allocation parser for "2006-01-02" (the layout
// parse_dates writes). Day is range-checked against the month.
func parseISODate(s string) (time.Time, bool) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}
	y3, y2, y1, y0 := s[0]-'0', s[1]-'0', s[2]-'0', s[3]-'0'
	m1, m0 := s[5]-'0', s[6]-'0'
	d1, d0 := s[8]-'0', s[9]-'0'
	if y3 > 9 || y2 > 9 || y1 > 9 || y0 > 9 || m1 > 9 || m0 > 9 || d1 > 9 || d0 > 9 {
		return time.Time{}, false
	}
	year := int(y3)*1000 + int(y2)*100 + int(y1)*10 + int(y0)
	mon := int(m1)*10 + int(m0)
	day := int(d1)*10 + int(d0)
	if mon < 1 || mon > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(mon), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
