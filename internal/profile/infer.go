package profile

import (
	"strconv"
	"strings"
	"time"

	"csvclean/internal/transformer"
)

// inferSampleRows bounds how many rows feed type inference.
const inferSampleRows = 1000

// InferTypes returns one inferred type per column of the sampled rows.
// Types are the transformer.Type* names.
func InferTypes(columns []string, rows [][]string) []string {
	if len(rows) > inferSampleRows {
		rows = rows[:inferSampleRows]
	}
	n := len(columns)
	cols := make([][]string, n)
	for _, row := range rows {
		for i := 0; i < n && i < len(row); i++ {
			cols[i] = append(cols[i], row[i])
		}
	}
	types := make([]string, n)
	for i := range types {
		types[i] = InferColumn(cols[i])
	}
	return types
}

// InferColumn guesses the narrowest type every non-blank value satisfies,
// trying integer, boolean, real, then date or timestamp. A column with no
// values is text.
func InferColumn(values []string) string {
	nonEmpty := nonEmptyTrimmed(values)
	if len(nonEmpty) == 0 {
		return transformer.TypeText
	}
	if allMatch(nonEmpty, isInt) {
		return transformer.TypeInteger
	}
	if allMatch(nonEmpty, isBool) {
		return transformer.TypeBoolean
	}
	if allMatch(nonEmpty, isFloat) {
		return transformer.TypeReal
	}

	anyTime := false
	for _, v := range nonEmpty {
		ok, hasTime := parseDateOrTimestamp(v)
		if !ok {
			return transformer.TypeText
		}
		anyTime = anyTime || hasTime
	}
	if anyTime {
		return transformer.TypeTimestamp
	}
	return transformer.TypeDate
}

func nonEmptyTrimmed(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isBool accepts common textual booleans. 1/0 columns are caught by isInt first.
func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "t", "f", "yes", "no", "y", "n", "1", "0":
		return true
	}
	return false
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloat rejects plain integers and the non-finite spellings ParseFloat accepts.
func isFloat(s string) bool {
	if isInt(s) {
		return false
	}
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "inf", "infinity", "nan":
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func parseDateOrTimestamp(s string) (ok bool, hasTime bool) {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, true
		}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, false
		}
	}
	return false, false
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01.02.2006",
	"02/01/2006",
	"01/02/2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2006/01/02",
	"20060102",
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
}
