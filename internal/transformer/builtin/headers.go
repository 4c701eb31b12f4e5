package builtin

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
)

// NormalizeHeaders tidies column names: NFC form, trimmed, U+FFFD
// replacement characters removed, inner whitespace runs collapsed to one
// space.
type NormalizeHeaders struct{}

func (n NormalizeHeaders) Apply(in *dataset.Dataset) *dataset.Dataset {
	out, _ := n.Run(in)
	return out
}

// Run returns the dataset with normalized names and the names that changed.
func (NormalizeHeaders) Run(in *dataset.Dataset) (*dataset.Dataset, plan.Mapping) {
	out := in.Clone()
	renamed := plan.Mapping{}
	for i, c := range out.Columns {
		n := NormalizeName(c)
		if n != c {
			renamed = renamed.With(c, n)
		}
		out.Columns[i] = n
	}
	return out, renamed
}

// NormalizeName applies the NormalizeHeaders rules to one name.
func NormalizeName(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "�", "")
	return strings.Join(strings.Fields(s), " ")
}

// DropEmptyColumns removes columns that are blank (after trimming) in every
// row. A dataset without rows loses all its columns.
type DropEmptyColumns struct{}

func (d DropEmptyColumns) Apply(in *dataset.Dataset) *dataset.Dataset {
	out, _ := d.Run(in)
	return out
}

// Run drops the empty columns and returns their names in column order.
func (DropEmptyColumns) Run(in *dataset.Dataset) (*dataset.Dataset, []string) {
	filled := make([]bool, in.Width())
	for _, r := range in.Rows {
		for i, v := range r {
			if !filled[i] && strings.TrimSpace(v) != "" {
				filled[i] = true
			}
		}
	}
	dropped := []string{}
	for i, c := range in.Columns {
		if !filled[i] {
			dropped = append(dropped, c)
		}
	}
	return keepColumns(in, func(i int, _ string) bool { return filled[i] }), dropped
}
