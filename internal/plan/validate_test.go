package plan

import (
	"reflect"
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given path and
// a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

/*
TestValidate_RenameThenRequire verifies that a rename feeds the simulated
column set, so a required rule on the new name raises no warning.
*/
func TestValidate_RenameThenRequire(t *testing.T) {
	p := &Plan{
		Version: "1",
		Actions: []Action{RenameColumns{Mapping: MappingOf("A", "B")}},
		Validations: ValidationSpec{
			Required: []RequiredRule{{Column: "B"}},
		},
	}

	res := Validate(p, WithColumns([]string{"A"}))

	if !res.OK || len(res.Errors) != 0 {
		t.Fatalf("expected ok; got %+v", res)
	}
	if want := []string{"B"}; !reflect.DeepEqual(res.FinalColumns, want) {
		t.Fatalf("final columns: want %v, got %v", want, res.FinalColumns)
	}
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "'B'") {
			t.Fatalf("unexpected warning about B: %+v", w)
		}
	}
}

/*
TestValidate_RangeMinGreaterThanMax verifies one error naming both bounds.
*/
func TestValidate_RangeMinGreaterThanMax(t *testing.T) {
	p := &Plan{
		Version: "1",
		Validations: ValidationSpec{
			Ranges: []RangeRule{{Column: "x", Min: Bound(10), Max: Bound(0)}},
		},
	}

	res := Validate(p)

	if res.OK || len(res.Errors) != 1 {
		t.Fatalf("expected exactly one error; got %+v", res.Errors)
	}
	msg := res.Errors[0].Message
	if msg != "Min (10.0) cannot be greater than max (0.0) for column 'x'" {
		t.Fatalf("unexpected message %q", msg)
	}
	if res.Errors[0].Path != "validations.ranges[0]" {
		t.Fatalf("unexpected path %q", res.Errors[0].Path)
	}
	if res.FinalColumns != nil {
		t.Fatalf("final columns must be nil without input columns; got %v", res.FinalColumns)
	}
}

/*
TestValidate_EnumEmptyAllowed verifies an empty allowed list is an error and
blank allowed values are a warning.
*/
func TestValidate_EnumEmptyAllowed(t *testing.T) {
	p := &Plan{
		Version: "1",
		Validations: ValidationSpec{
			Enums: []EnumRule{
				{Column: "status", Allowed: []string{}},
				{Column: "kind", Allowed: []string{"a", " ", ""}},
			},
		},
	}

	res := Validate(p)

	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly one error; got %+v", res.Errors)
	}
	if !hasIssue(t, res.Errors, "validations.enums[0].allowed", "Allowed list cannot be empty for column 'status'") {
		t.Fatalf("missing empty-allowed error; got %+v", res.Errors)
	}
	if len(res.Warnings) != 1 || !hasIssue(t, res.Warnings, "validations.enums[1].allowed", "empty/non-string values for column 'kind'") {
		t.Fatalf("expected one blank-value warning; got %+v", res.Warnings)
	}
}

/*
TestValidate_EmptyVersion verifies a blank version is an error at "version".
*/
func TestValidate_EmptyVersion(t *testing.T) {
	res := Validate(&Plan{Version: "  "})
	if res.OK || !hasIssue(t, res.Errors, "version", "Version must be a non-empty string") {
		t.Fatalf("expected version error; got %+v", res)
	}
}

/*
TestValidate_DuplicateRequired verifies duplicate required columns are
reported once as a sorted list.
*/
func TestValidate_DuplicateRequired(t *testing.T) {
	p := &Plan{
		Version: "1",
		Validations: ValidationSpec{Required: []RequiredRule{
			{Column: "b"}, {Column: "a"}, {Column: "b"}, {Column: "a"}, {Column: "c"},
		}},
	}
	res := Validate(p)
	if !res.OK {
		t.Fatalf("duplicates are warnings; got errors %+v", res.Errors)
	}
	if !hasIssue(t, res.Warnings, "validations.required", "Duplicate required columns: ['a', 'b']") {
		t.Fatalf("expected duplicate warning; got %+v", res.Warnings)
	}
}

/*
TestValidate_Simulation verifies reference checks for every action kind
against the evolving column set.
*/
func TestValidate_Simulation(t *testing.T) {
	p := &Plan{
		Version: "1",
		Actions: []Action{
			RenameColumns{Mapping: MappingOf("Price", "price", "ghost", "g", "Qty", "")},
			DropColumns{Columns: []string{"Notes", "missing"}},
			TrimWhitespace{Columns: Only("Notes")},
			NewParseNumeric("price", "Price"),
			NewParseDates(),
			DeduplicateRows{Subset: Only("price", "nope")},
			DeduplicateRows{Subset: Only()},
			TrimWhitespace{Columns: All()},
		},
		Validations: ValidationSpec{
			Required: []RequiredRule{{Column: "Notes"}},
			Ranges:   []RangeRule{{Column: "Price", Min: Bound(0)}},
			Enums:    []EnumRule{{Column: "Status", Allowed: []string{"x"}}},
		},
	}

	res := Validate(p, WithColumns([]string{"Price", "Qty", "Notes"}))

	if len(res.Errors) != 1 || !hasIssue(t, res.Errors, "actions[0].mapping", "Rename target for 'Qty' must be a non-empty string") {
		t.Fatalf("expected only the blank rename target error; got %+v", res.Errors)
	}

	wantWarnings := []struct{ path, msg string }{
		{"actions[0].mapping", "Rename source column 'ghost' not found in current columns"},
		{"actions[1].columns", "drop_columns references missing column 'missing'"},
		{"actions[2].columns", "trim_whitespace references missing column 'Notes'"},
		{"actions[3].columns", "parse_numeric references missing column 'Price'"},
		{"actions[4].columns", "parse_dates has empty columns list"},
		{"actions[5].subset", "deduplicate_rows subset references missing column 'nope'"},
		{"actions[6].subset", "deduplicate_rows has empty subset list"},
		{"validations.required", "required column 'Notes' not present after actions"},
		{"validations.ranges", "range rule column 'Price' not present after actions"},
		{"validations.enums", "Enum rule column 'Status' not present after actions"},
	}
	for _, w := range wantWarnings {
		if !hasIssue(t, res.Warnings, w.path, w.msg) {
			t.Errorf("missing warning %s: %s", w.path, w.msg)
		}
	}
	if len(res.Warnings) != len(wantWarnings) {
		t.Fatalf("want %d warnings, got %d: %+v", len(wantWarnings), len(res.Warnings), res.Warnings)
	}

	if want := []string{"Qty", "price"}; !reflect.DeepEqual(res.FinalColumns, want) {
		t.Fatalf("final columns: want %v, got %v", want, res.FinalColumns)
	}
}

/*
TestValidate_RenameDuplicateTargets verifies the duplicate-target warning and
that an empty mapping is only warned about.
*/
func TestValidate_RenameDuplicateTargets(t *testing.T) {
	p := &Plan{
		Version: "1",
		Actions: []Action{
			RenameColumns{},
			RenameColumns{Mapping: MappingOf("a", "x", "b", "x")},
		},
	}
	res := Validate(p, WithColumns([]string{"a", "b"}))
	if !res.OK {
		t.Fatalf("unexpected errors %+v", res.Errors)
	}
	if !hasIssue(t, res.Warnings, "actions[0].mapping", "rename_columns mapping is empty") {
		t.Fatalf("missing empty mapping warning; got %+v", res.Warnings)
	}
	if !hasIssue(t, res.Warnings, "actions[1].mapping", "Rename mapping has duplicate targets: ['x']") {
		t.Fatalf("missing duplicate target warning; got %+v", res.Warnings)
	}
	if want := []string{"x"}; !reflect.DeepEqual(res.FinalColumns, want) {
		t.Fatalf("final columns: want %v, got %v", want, res.FinalColumns)
	}
}

type customAction struct{ DropColumns }

func (customAction) Kind() string { return "explode" }

/*
TestValidate_UnknownAction verifies actions outside the known set are errors.
*/
func TestValidate_UnknownAction(t *testing.T) {
	p := &Plan{Version: "1", Actions: []Action{customAction{}}}
	res := Validate(p, WithColumns(nil))
	if res.OK || !hasIssue(t, res.Errors, "actions[0].action", "unknown action 'explode'") {
		t.Fatalf("expected unknown action error; got %+v", res)
	}
	if res.FinalColumns == nil || len(res.FinalColumns) != 0 {
		t.Fatalf("known empty columns should give empty final columns; got %#v", res.FinalColumns)
	}
}

/*
TestEnsureValid verifies the error carries both lists.
*/
func TestEnsureValid(t *testing.T) {
	p := &Plan{
		Version: "1",
		Actions: []Action{DropColumns{Columns: []string{"zzz"}}},
		Validations: ValidationSpec{
			Enums: []EnumRule{{Column: "a", Allowed: nil}},
		},
	}
	_, err := EnsureValid(p, WithColumns([]string{"a"}))
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	if len(ve.Errors) != 1 || len(ve.Warnings) != 1 {
		t.Fatalf("unexpected lists: %+v", ve)
	}

	if _, err := EnsureValid(&Plan{Version: "1"}); err != nil {
		t.Fatalf("empty plan should be valid: %v", err)
	}
}

/*
TestValidate_DoesNotMutate verifies the plan is left untouched.
*/
func TestValidate_DoesNotMutate(t *testing.T) {
	p := &Plan{
		Version: "1",
		Actions: []Action{RenameColumns{Mapping: MappingOf("a", "b")}, DropColumns{Columns: []string{"b"}}},
	}
	before, _ := p.MarshalJSON()
	Validate(p, WithColumns([]string{"a"}))
	after, _ := p.MarshalJSON()
	if string(before) != string(after) {
		t.Fatalf("plan mutated:\n%s\n%s", before, after)
	}
}

/*
TestValidate_RenameIsSimultaneous verifies that swaps and chains inside one
rename resolve against the columns before the action, so a required rule on
a swapped name is not reported missing.
*/
func TestValidate_RenameIsSimultaneous(t *testing.T) {
	cases := []struct {
		name    string
		mapping Mapping
		want    []string
	}{
		{"swap", MappingOf("a", "b", "b", "a"), []string{"a", "b"}},
		{"chain", MappingOf("a", "b", "b", "c"), []string{"b", "c"}},
		{"chain into missing source", MappingOf("x", "a", "a", "z"), []string{"b", "z"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Plan{
				Version:     "1",
				Actions:     []Action{RenameColumns{Mapping: tc.mapping}},
				Validations: ValidationSpec{Required: []RequiredRule{{Column: "b"}}},
			}
			res := Validate(p, WithColumns([]string{"a", "b"}))
			if !reflect.DeepEqual(res.FinalColumns, tc.want) {
				t.Fatalf("final columns: want %v, got %v", tc.want, res.FinalColumns)
			}
			wantMissing := !contains(tc.want, "b")
			if got := hasIssue(t, res.Warnings, "validations.required", "'b'"); got != wantMissing {
				t.Fatalf("required b warning = %v want %v: %+v", got, wantMissing, res.Warnings)
			}
		})
	}
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
