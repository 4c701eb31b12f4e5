package builtin

import (
	"encoding/json"
	"fmt"
	"testing"

	"csvclean/internal/plan"
)

/*
TestCheckValidations verifies each rule kind and the JSON shapes reported
for missing columns, unchecked ranges and enum violations.
*/
func TestCheckValidations(t *testing.T) {
	ds := mk([]string{"score", "status", "blank"},
		[]string{"5", "open", ""},
		[]string{" 12 ", "closed", ""},
		[]string{"x", "weird", ""},
		[]string{"-1", " open ", ""},
		[]string{"", "", ""},
	)
	spec := plan.ValidationSpec{
		Required: []plan.RequiredRule{{Column: "score"}, {Column: "ghost"}},
		Ranges: []plan.RangeRule{
			{Column: "score", Min: plan.Bound(0), Max: plan.Bound(10)},
			{Column: "blank", Min: plan.Bound(0)},
			{Column: "ghost"},
		},
		Enums: []plan.EnumRule{
			{Column: "status", Allowed: []string{"open", "closed", "open"}},
			{Column: "ghost", Allowed: []string{"a"}},
		},
	}

	got, err := json.Marshal(CheckValidations(ds, spec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"required":[{"column":"score","ok":true},{"column":"ghost","ok":false}],` +
		`"ranges":[{"column":"score","ok":false,"checked":3,"violations":2,"min":0,"max":10},` +
		`{"column":"blank","ok":true,"checked":0,"violations":0},` +
		`{"column":"ghost","ok":false,"reason":"missing column"}],` +
		`"enums":[{"column":"status","ok":false,"bad_values":["weird"],"bad_value_count":1,"allowed_count":2},` +
		`{"column":"ghost","ok":false,"reason":"missing column"}]}`
	if string(got) != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestCheckValidations_EmptySpec(t *testing.T) {
	got, _ := json.Marshal(CheckValidations(mk([]string{"a"}), plan.ValidationSpec{}))
	if string(got) != `{"required":[],"ranges":[],"enums":[]}` {
		t.Fatalf("got %s", got)
	}
}

func TestCheckValidations_BadValuesCapped(t *testing.T) {
	var rows [][]string
	for i := 0; i < 60; i++ {
		rows = append(rows, []string{fmt.Sprintf("v%02d", i)})
	}
	ds := mk([]string{"c"}, rows...)
	v := CheckValidations(ds, plan.ValidationSpec{Enums: []plan.EnumRule{{Column: "c", Allowed: []string{"v00"}}}})
	e := v.Enums[0]
	if e.OK || e.BadValueCount != 59 || len(e.BadValues) != 50 || e.BadValues[0] != "v01" {
		t.Fatalf("unexpected enum result %+v", e)
	}
}
