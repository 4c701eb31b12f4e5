package storage

import (
	"strings"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
	"csvclean/internal/transformer"
)

// ColumnsFromPlan types the columns of a dataset produced by executing p.
// Columns parsed by parse_numeric become integer or real, columns parsed by
// parse_dates become date (timestamp when a cell carries a time of day, year
// for output_format=year). Renames and drops after parsing are followed.
// Everything else is text.
func ColumnsFromPlan(ds *dataset.Dataset, p *plan.Plan) []Column {
	types := map[string]string{}
	if p != nil {
		for _, a := range p.Actions {
			switch a := a.(type) {
			case plan.ParseNumeric:
				t := transformer.TypeReal
				if a.NumericType == plan.NumericInt {
					t = transformer.TypeInteger
				}
				for _, c := range a.Columns {
					types[c] = t
				}
			case plan.ParseDates:
				t := transformer.TypeDate
				if a.OutputFormat == plan.DateYear {
					t = TypeYear
				}
				for _, c := range a.Columns {
					types[c] = t
				}
			case plan.RenameColumns:
				types = renameTypes(types, a.Mapping)
			case plan.DropColumns:
				for _, c := range a.Columns {
					delete(types, c)
				}
			}
		}
	}

	cols := make([]Column, ds.Width())
	for i, name := range ds.Columns {
		t, ok := types[name]
		if !ok {
			t = transformer.TypeText
		}
		if t == transformer.TypeDate && hasTimeOfDay(ds, i) {
			t = transformer.TypeTimestamp
		}
		cols[i] = Column{Name: name, Type: t}
	}
	return cols
}

// renameTypes applies m simultaneously, as the rename action does.
func renameTypes(types map[string]string, m plan.Mapping) map[string]string {
	out := make(map[string]string, len(types))
	for c, t := range types {
		if to, ok := m.Get(c); !ok || strings.TrimSpace(to) == "" {
			out[c] = t
		}
	}
	for c, t := range types {
		if to, ok := m.Get(c); ok && strings.TrimSpace(to) != "" {
			out[to] = t
		}
	}
	return out
}

func hasTimeOfDay(ds *dataset.Dataset, col int) bool {
	for _, r := range ds.Rows {
		if len(r[col]) > len("2006-01-02") {
			return true
		}
	}
	return false
}
