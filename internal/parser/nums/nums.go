// Package nums provides helpers for reading and rendering numbers stored as
// text. Cleaned datasets keep every cell as a string, so numeric columns are
// normalized to one canonical rendering.
package nums

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders f in the canonical shortest form used for cleaned
// numeric cells: fixed notation with at least one fractional digit
// ("2278845.0", "1234.5") for magnitudes in [1e-4, 1e16), and exponent
// notation ("1e+16", "1.5e-05") outside it.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	abs := math.Abs(f)
	if abs >= 1e16 || abs < 1e-4 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseFloat parses s after trimming whitespace. NaN is rejected so callers
// can treat it like any other non-numeric value.
func ParseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// IsInt requires a signed base-10 integer that fits in int64.
func IsInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// IsFloat accepts decimal or scientific notation floats. Values that parse
// as int are not floats, which keeps integer columns typed as integer.
func IsFloat(s string) bool {
	if IsInt(s) {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
