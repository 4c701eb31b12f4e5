// Package basicclean is the conservative, plan-free cleaning pass: tidy
// headers, trim cells, blank null-like placeholders, drop empty columns and
// exact duplicate rows. It never parses numbers or dates.
package basicclean

import (
	"sort"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
	"csvclean/internal/profile"
	"csvclean/internal/transformer"
	"csvclean/internal/transformer/builtin"
)

// Stats describes what Clean changed.
type Stats struct {
	BeforeShape    profile.Shape `json:"before_shape"`
	AfterShape     profile.Shape `json:"after_shape"`
	RenamedColumns plan.Mapping  `json:"renamed_columns"`
	DroppedColumns []string      `json:"dropped_columns"`
}

// Steps is the cell-level chain Clean runs after header normalization.
func Steps() transformer.Chain {
	return transformer.Chain{
		builtin.Trim{Columns: plan.All()},
		builtin.Nulls{Tokens: builtin.BasicNullTokens()},
		builtin.DropEmptyColumns{},
		builtin.DeDup{},
	}
}

// Clean runs the basic pass over a copy of ds.
func Clean(ds *dataset.Dataset) (*dataset.Dataset, Stats) {
	named, renamed := builtin.NormalizeHeaders{}.Run(ds)
	out := Steps().Apply(named)

	kept := make(map[string]struct{}, out.Width())
	for _, c := range out.Columns {
		kept[c] = struct{}{}
	}
	seen := map[string]struct{}{}
	dropped := []string{}
	for _, c := range named.Columns {
		if _, ok := kept[c]; ok {
			continue
		}
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			dropped = append(dropped, c)
		}
	}
	sort.Strings(dropped)

	return out, Stats{
		BeforeShape:    profile.Shape{Rows: ds.Len(), Columns: ds.Width()},
		AfterShape:     profile.Shape{Rows: out.Len(), Columns: out.Width()},
		RenamedColumns: renamed,
		DroppedColumns: dropped,
	}
}
