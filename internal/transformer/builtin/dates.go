package builtin

import (
	"strings"
	"time"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
)

// Dates parses the named columns as dates. Blank cells stay blank and
// unparseable cells become blank. Parsed cells are written as 2006-01-02,
// or as 2006-01-02 15:04:05 when any value in the column carries a time of
// day.
//
// DayFirst decides how ambiguous numeric dates such as 01/02/2020 are read.
// Values that only parse in the other order (31-12-2020 with DayFirst off)
// still succeed through the fallback.
type Dates struct {
	Columns  []string
	DayFirst bool
}

// DatesFrom builds the transform for a parse_dates action. OutputFormat is
// not consulted here; it only affects how exporters type the column.
func DatesFrom(a plan.ParseDates) Dates {
	return Dates{Columns: a.Columns, DayFirst: a.DayFirst}
}

// DateStat is the outcome for one requested column.
type DateStat struct {
	Column  string
	Missing bool
	Parsed  int
	Total   int
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// isoLayouts are unambiguous and always tried first.
var isoLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"20060102",
	time.RFC3339Nano,
	"2006-1-2T15:04:05",
	"2006-1-2 15:04:05.999999999",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
}

var dmyLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2.1.2006",
	"2-1-06",
	"2/1/06",
	"2.1.06",
	"2-1-2006 15:04:05",
	"2/1/2006 15:04:05",
	"2.1.2006 15:04:05",
	"2-1-2006 15:04",
	"2/1/2006 15:04",
	"2.1.2006 15:04",
}

var mdyLayouts = []string{
	"1-2-2006",
	"1/2/2006",
	"1.2.2006",
	"1-2-06",
	"1/2/06",
	"1.2.06",
	"1-2-2006 15:04:05",
	"1/2/2006 15:04:05",
	"1.2.2006 15:04:05",
	"1-2-2006 15:04",
	"1/2/2006 15:04",
	"1.2.2006 15:04",
}

// textLayouts spell the month out, so day order is never ambiguous.
var textLayouts = []string{
	"2 Jan 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"2 January 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"Mon, 2 Jan 2006",
	"Monday, January 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
}

func (d Dates) layouts() []string {
	first, second := mdyLayouts, dmyLayouts
	if d.DayFirst {
		first, second = dmyLayouts, mdyLayouts
	}
	out := make([]string, 0, len(isoLayouts)+len(first)+len(second)+len(textLayouts))
	out = append(out, isoLayouts...)
	out = append(out, first...)
	out = append(out, second...)
	return append(out, textLayouts...)
}

// ParseValue parses one trimmed, non-blank value.
func (d Dates) ParseValue(s string) (time.Time, bool) {
	for _, layout := range d.layouts() {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (d Dates) Apply(in *dataset.Dataset) *dataset.Dataset {
	out, _ := d.Run(in)
	return out
}

// Run parses the requested columns and reports, per column, how many cells
// hold a date afterwards and how many rows were seen.
func (d Dates) Run(in *dataset.Dataset) (*dataset.Dataset, []DateStat) {
	out := in.Clone()
	layouts := d.layouts()
	stats := make([]DateStat, 0, len(d.Columns))

	for _, col := range d.Columns {
		idx := out.Index(col)
		if idx < 0 {
			stats = append(stats, DateStat{Column: col, Missing: true})
			continue
		}

		parsed := make([]*time.Time, len(out.Rows))
		withTime := false
		for n, r := range out.Rows {
			s := strings.TrimSpace(r[idx])
			if s == "" {
				continue
			}
			for _, layout := range layouts {
				if t, err := time.Parse(layout, s); err == nil {
					parsed[n] = &t
					if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
						withTime = true
					}
					break
				}
			}
		}

		render := dateLayout
		if withTime {
			render = timestampLayout
		}
		count := 0
		for n, r := range out.Rows {
			if parsed[n] == nil {
				r[idx] = ""
				continue
			}
			r[idx] = parsed[n].Format(render)
			count++
		}
		stats = append(stats, DateStat{Column: col, Parsed: count, Total: len(out.Rows)})
	}
	return out, stats
}
