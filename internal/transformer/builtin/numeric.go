package builtin

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"csvclean/internal/dataset"
	"csvclean/internal/parser/nums"
	"csvclean/internal/plan"
)

type Numeric struct {
	Columns   []string
	Type      plan.NumericType
	Currency  bool
	Thousands bool
	Typos     bool
}

// NumericFrom builds the transform for a parse_numeric action.
func NumericFrom(a plan.ParseNumeric) Numeric {
	return Numeric{
		Columns:   a.Columns,
		Type:      a.NumericType,
		Currency:  a.AllowCurrency,
		Thousands: a.AllowThousandsSeparators,
		Typos:     a.FixCommonTypos,
	}
}

// NumericStat is the outcome for one requested column.
type NumericStat struct {
	Column  string
	Missing bool
	Changed int
}

func (n Numeric) Apply(in *dataset.Dataset) *dataset.Dataset {
	out, _ := n.Run(in)
	return out
}

// Run parses the requested columns and reports, per column, how many cells
// differ from their trimmed pre-parse text.
func (n Numeric) Run(in *dataset.Dataset) (*dataset.Dataset, []NumericStat) {
	out := in.Clone()
	stats := make([]NumericStat, 0, len(n.Columns))
	for _, col := range n.Columns {
		idx := out.Index(col)
		if idx < 0 {
			stats = append(stats, NumericStat{Column: col, Missing: true})
			continue
		}
		changed := 0
		for _, r := range out.Rows {
			before := strings.TrimSpace(r[idx])
			after := n.Parse(r[idx])
			if after != before {
				changed++
			}
			r[idx] = after
		}
		stats = append(stats, NumericStat{Column: col, Changed: changed})
	}
	return out, stats
}

// Parse normalizes a single cell. It never fails; anything that does not
// survive the cleanup becomes "".
func (n Numeric) Parse(raw string) string {
	s := strings.TrimSpace(raw)

	if n.Typos {
		s = strings.NewReplacer("o", "0", "O", "0").Replace(s)
	}
	if n.Currency {
		s = strings.Map(func(r rune) rune {
			switch r {
			case '$', '€', '£', '¥':
				return -1
			}
			return r
		}, s)
	}
	if n.Thousands {
		s = strings.Map(func(r rune) rune {
			if r == ',' || unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
		s = stripThousandsDots(s)
	}

	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	s = collapseDots(s)
	if s == "" {
		return ""
	}

	if n.Type == plan.NumericInt {
		if i := strings.IndexByte(s, '.'); i >= 0 {
			s = s[:i]
		}
		return s
	}

	if strings.HasSuffix(s, ".") && isSignedDigits(s[:len(s)-1]) {
		s += "0"
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var ne *strconv.NumError
		if !errors.As(err, &ne) || !errors.Is(ne.Err, strconv.ErrRange) {
			return ""
		}
	}
	return nums.FormatFloat(f)
}

// stripThousandsDots removes every "." that follows a digit and is followed
// by exactly three digits and then a word boundary, e.g. 2.278.845 -> 2278845.
// Neighbours are judged against the input, so consecutive groups all match.
func stripThousandsDots(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if r == '.' && i > 0 && isDigit(rs[i-1]) && i+3 < len(rs) &&
			isDigit(rs[i+1]) && isDigit(rs[i+2]) && isDigit(rs[i+3]) &&
			(i+4 == len(rs) || !isWord(rs[i+4])) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func collapseDots(s string) string {
	if !strings.Contains(s, "..") {
		return s
	}
	var b strings.Builder
	prevDot := false
	for _, r := range s {
		if r == '.' {
			if prevDot {
				continue
			}
			prevDot = true
		} else {
			prevDot = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isSignedDigits matches -?\d+.
func isSignedDigits(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

func isDigit(r rune) bool { return unicode.IsDigit(r) }

func isWord(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }
