package builtin

import (
	"encoding/json"
	"sort"
	"strings"

	"csvclean/internal/dataset"
	"csvclean/internal/parser/nums"
	"csvclean/internal/plan"
)

// maxBadValues caps the distinct offending values listed per enum rule.
const maxBadValues = 50

const reasonMissingColumn = "missing column"

// Validations is the outcome of checking a dataset against a plan's
// validation rules. It never fails; each rule reports pass or fail.
type Validations struct {
	Required []RequiredResult `json:"required"`
	Ranges   []RangeResult    `json:"ranges"`
	Enums    []EnumResult     `json:"enums"`
}

type RequiredResult struct {
	Column string `json:"column"`
	OK     bool   `json:"ok"`
}

// RangeResult reports one range rule. Checked counts the non-blank values
// that parsed as numbers; values that did not parse are neither checked nor
// violations.
type RangeResult struct {
	Column     string
	OK         bool
	Missing    bool
	Checked    int
	Violations int
	Min        *float64
	Max        *float64
}

// EnumResult reports one enum rule. BadValues is sorted and capped;
// BadValueCount is the uncapped number of distinct offending values.
type EnumResult struct {
	Column        string
	OK            bool
	Missing       bool
	BadValues     []string
	BadValueCount int
	AllowedCount  int
}

// CheckValidations evaluates spec against ds.
func CheckValidations(ds *dataset.Dataset, spec plan.ValidationSpec) Validations {
	v := Validations{
		Required: make([]RequiredResult, 0, len(spec.Required)),
		Ranges:   make([]RangeResult, 0, len(spec.Ranges)),
		Enums:    make([]EnumResult, 0, len(spec.Enums)),
	}
	for _, r := range spec.Required {
		v.Required = append(v.Required, RequiredResult{Column: r.Column, OK: ds.Has(r.Column)})
	}
	for _, r := range spec.Ranges {
		v.Ranges = append(v.Ranges, checkRange(ds, r))
	}
	for _, r := range spec.Enums {
		v.Enums = append(v.Enums, checkEnum(ds, r))
	}
	return v
}

func checkRange(ds *dataset.Dataset, r plan.RangeRule) RangeResult {
	if !ds.Has(r.Column) {
		return RangeResult{Column: r.Column, Missing: true}
	}
	res := RangeResult{Column: r.Column, Min: r.Min, Max: r.Max}
	for _, raw := range ds.Column(r.Column) {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		f, ok := nums.ParseFloat(s)
		if !ok {
			continue
		}
		res.Checked++
		if r.Min != nil && f < *r.Min {
			res.Violations++
		}
		if r.Max != nil && f > *r.Max {
			res.Violations++
		}
	}
	res.OK = res.Violations == 0
	return res
}

func checkEnum(ds *dataset.Dataset, r plan.EnumRule) EnumResult {
	if !ds.Has(r.Column) {
		return EnumResult{Column: r.Column, Missing: true}
	}
	allowed := make(map[string]struct{}, len(r.Allowed))
	for _, a := range r.Allowed {
		allowed[a] = struct{}{}
	}

	badSet := make(map[string]struct{})
	for _, raw := range ds.Column(r.Column) {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if _, ok := allowed[s]; !ok {
			badSet[s] = struct{}{}
		}
	}
	bad := make([]string, 0, len(badSet))
	for s := range badSet {
		bad = append(bad, s)
	}
	sort.Strings(bad)

	res := EnumResult{
		Column:        r.Column,
		OK:            len(bad) == 0,
		BadValueCount: len(bad),
		AllowedCount:  len(allowed),
	}
	if len(bad) > maxBadValues {
		bad = bad[:maxBadValues]
	}
	res.BadValues = bad
	return res
}

type missingResult struct {
	Column string `json:"column"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

func (r RangeResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Missing:
		return json.Marshal(missingResult{Column: r.Column, Reason: reasonMissingColumn})
	case r.Checked == 0:
		return json.Marshal(struct {
			Column     string `json:"column"`
			OK         bool   `json:"ok"`
			Checked    int    `json:"checked"`
			Violations int    `json:"violations"`
		}{r.Column, true, 0, 0})
	}
	return json.Marshal(struct {
		Column     string   `json:"column"`
		OK         bool     `json:"ok"`
		Checked    int      `json:"checked"`
		Violations int      `json:"violations"`
		Min        *float64 `json:"min"`
		Max        *float64 `json:"max"`
	}{r.Column, r.OK, r.Checked, r.Violations, r.Min, r.Max})
}

func (r EnumResult) MarshalJSON() ([]byte, error) {
	if r.Missing {
		return json.Marshal(missingResult{Column: r.Column, Reason: reasonMissingColumn})
	}
	bad := r.BadValues
	if bad == nil {
		bad = []string{}
	}
	return json.Marshal(struct {
		Column        string   `json:"column"`
		OK            bool     `json:"ok"`
		BadValues     []string `json:"bad_values"`
		BadValueCount int      `json:"bad_value_count"`
		AllowedCount  int      `json:"allowed_count"`
	}{r.Column, r.OK, bad, r.BadValueCount, r.AllowedCount})
}
