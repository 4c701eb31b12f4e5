// Package builtin contains the dataset transforms a cleaning plan is built
// from. Each transform returns a new dataset and leaves its input intact;
// the ones whose effect the execution report describes also expose a Run
// method returning that detail.
package builtin

import (
	"strings"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
)

// Trim strips leading and trailing whitespace. Columns absent from the
// dataset are skipped.
type Trim struct {
	Columns plan.Filter
}

func (t Trim) Apply(in *dataset.Dataset) *dataset.Dataset {
	out := in.Clone()
	for _, idx := range indexes(out, t.Columns.Resolve(out.Columns)) {
		for _, r := range out.Rows {
			r[idx] = strings.TrimSpace(r[idx])
		}
	}
	return out
}

// Nulls trims every cell and blanks those whose lowercased value is one of
// Tokens (compared trimmed and lowercased).
type Nulls struct {
	Tokens []string
}

// BasicNullTokens extends the default tokens with the extra placeholders
// the basic cleaning pass also treats as missing.
func BasicNullTokens() []string {
	return append(plan.DefaultNullTokens(), "inf", "-inf", "—", "-")
}

func (n Nulls) Apply(in *dataset.Dataset) *dataset.Dataset {
	set := make(map[string]struct{}, len(n.Tokens))
	for _, t := range n.Tokens {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	out := in.Clone()
	for _, r := range out.Rows {
		for i, v := range r {
			v = strings.TrimSpace(v)
			if _, ok := set[strings.ToLower(v)]; ok {
				v = ""
			}
			r[i] = v
		}
	}
	return out
}

// Rename renames columns. Entries whose source is absent or whose target is
// blank are ignored; the rest apply simultaneously, so {a: b, b: a} swaps.
type Rename struct {
	Mapping plan.Mapping
}

func (r Rename) Apply(in *dataset.Dataset) *dataset.Dataset {
	out, _ := r.Run(in)
	return out
}

// Run renames and returns the entries that were applied, in mapping order.
func (r Rename) Run(in *dataset.Dataset) (*dataset.Dataset, plan.Mapping) {
	applied := plan.Mapping{}
	for _, p := range r.Mapping {
		if strings.TrimSpace(p.To) != "" && in.Has(p.From) {
			applied = applied.With(p.From, p.To)
		}
	}
	out := in.Clone()
	for i, c := range out.Columns {
		if to, ok := applied.Get(c); ok {
			out.Columns[i] = to
		}
	}
	return out, applied
}

// Drop removes the named columns that exist.
type Drop struct {
	Columns []string
}

func (d Drop) Apply(in *dataset.Dataset) *dataset.Dataset {
	out, _ := d.Run(in)
	return out
}

// Run drops and returns the names actually dropped, in request order.
func (d Drop) Run(in *dataset.Dataset) (*dataset.Dataset, []string) {
	dropped := []string{}
	gone := make(map[string]bool)
	for _, c := range d.Columns {
		if in.Has(c) && !gone[c] {
			dropped = append(dropped, c)
			gone[c] = true
		}
	}
	return keepColumns(in, func(_ int, c string) bool { return !gone[c] }), dropped
}

// keepColumns returns a dataset with only the columns for which keep is true.
func keepColumns(in *dataset.Dataset, keep func(i int, c string) bool) *dataset.Dataset {
	var idx []int
	var cols []string
	for i, c := range in.Columns {
		if keep(i, c) {
			idx = append(idx, i)
			cols = append(cols, c)
		}
	}
	rows := make([][]string, len(in.Rows))
	for n, r := range in.Rows {
		row := make([]string, len(idx))
		for j, i := range idx {
			row[j] = r[i]
		}
		rows[n] = row
	}
	return &dataset.Dataset{Columns: append([]string{}, cols...), Rows: rows}
}

// indexes maps names to column positions, skipping absent names. A column
// named more than once is returned once.
func indexes(ds *dataset.Dataset, names []string) []int {
	seen := make(map[int]bool, len(names))
	var out []int
	for _, n := range names {
		if i := ds.Index(n); i >= 0 && !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}
