package executor

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
)

// explode is an action type the executor has never heard of.
type explode struct{ plan.DropColumns }

func (explode) Kind() string { return "explode" }

func numericPlan(a plan.ParseNumeric) *plan.Plan {
	return &plan.Plan{Version: "1", Actions: []plan.Action{a}}
}

func TestExecute_NumericExamples(t *testing.T) {
	ds := dataset.New([]string{"price"}, [][]string{{"2.278.845"}, {"$1,234.50"}})
	a := plan.NewParseNumeric("price")
	a.AllowCurrency = true

	out, _, err := Execute(ds, numericPlan(a))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.Column("price"); !reflect.DeepEqual(got, []string{"2278845.0", "1234.5"}) {
		t.Fatalf("price=%v", got)
	}
	if ds.Rows[0][0] != "2.278.845" {
		t.Fatalf("input dataset mutated")
	}
}

func TestExecute_Dedupe(t *testing.T) {
	ds := dataset.New([]string{"a"}, [][]string{{"1"}, {"1"}, {"2"}})
	out, rep, err := Execute(ds, &plan.Plan{Version: "1", Actions: []plan.Action{plan.DeduplicateRows{}}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !reflect.DeepEqual(out.Rows, [][]string{{"1"}, {"2"}}) {
		t.Fatalf("rows=%v", out.Rows)
	}
	if d := rep.ActionsApplied[0].(DedupOutcome); d.DroppedRows != 1 {
		t.Fatalf("dropped_rows=%d", d.DroppedRows)
	}
}

func TestExecute_EmptyPlanReturnsCopy(t *testing.T) {
	ds := dataset.New([]string{"a"}, [][]string{{"x"}})
	out, rep, err := Execute(ds, &plan.Plan{Version: "1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out == ds || !reflect.DeepEqual(out, ds) {
		t.Fatalf("expected an equal copy")
	}
	if len(rep.ActionsApplied) != 0 || rep.Warnings == nil {
		t.Fatalf("unexpected report %+v", rep)
	}
}

/*
TestExecute_Report verifies the full report document for a plan using
every action kind, including skipped columns and attached plan warnings.
*/
func TestExecute_Report(t *testing.T) {
	ds := dataset.New([]string{"name", "qty", "when", "junk"}, [][]string{
		{" a ", "1,000", "2021-01-02", "x"},
		{"a", "1000", "2021-01-02", "y"},
		{"b", "n/a", "bad", "z"},
	})
	p := &plan.Plan{
		Version: "1",
		Summary: "demo",
		Actions: []plan.Action{
			plan.TrimWhitespace{},
			plan.NewStandardizeNulls(),
			plan.RenameColumns{Mapping: plan.MappingOf("qty", "quantity", "ghost", "g")},
			plan.DropColumns{Columns: []string{"junk", "ghost"}},
			plan.NewParseNumeric("quantity", "ghost"),
			plan.NewParseDates("when"),
			plan.DeduplicateRows{},
		},
		Validations: plan.ValidationSpec{
			Required: []plan.RequiredRule{{Column: "quantity"}},
			Ranges:   []plan.RangeRule{{Column: "quantity", Min: plan.Bound(0), Max: plan.Bound(500)}},
		},
	}

	out, rep, err := Execute(ds, p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	rep.AddPlanWarnings([]plan.Issue{{Severity: plan.SeverityWarning, Path: "actions[2].mapping", Message: "m"}})

	wantRows := [][]string{{"a", "1000.0", "2021-01-02"}, {"b", "", ""}}
	if !reflect.DeepEqual(out.Columns, []string{"name", "quantity", "when"}) || !reflect.DeepEqual(out.Rows, wantRows) {
		t.Fatalf("unexpected dataset %+v", out)
	}

	got, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"plan_version":"1","summary":"demo","actions_applied":[` +
		`{"action":"trim_whitespace","columns":null,"columns_seen":["name","qty","when","junk"]},` +
		`{"action":"standardize_nulls","null_tokens":["","na","n/a","null","none","nan"]},` +
		`{"action":"rename_columns","mapping":{"qty":"quantity","ghost":"g"},"applied":{"qty":"quantity"}},` +
		`{"action":"drop_columns","columns":["junk","ghost"],"dropped":["junk"]},` +
		`{"action":"parse_numeric","columns":["quantity","ghost"],"stats":{"quantity":{"changed_cells":2},"ghost":{"skipped":true,"reason":"missing column"}}},` +
		`{"action":"parse_dates","columns":["when"],"stats":{"when":{"status":"ok","parsed_non_null":2,"total":3}}},` +
		`{"action":"deduplicate_rows","subset":null,"dropped_rows":1}],` +
		`"warnings":[{"type":"plan_validation","path":"actions[2].mapping","message":"m"}],` +
		`"validations":{"required":[{"column":"quantity","ok":true}],` +
		`"ranges":[{"column":"quantity","ok":false,"checked":1,"violations":1,"min":0,"max":500}],"enums":[]}}`
	if string(got) != want {
		t.Fatalf("report mismatch\ngot  %s\nwant %s", got, want)
	}
}

func TestExecute_DateStatsSkipped(t *testing.T) {
	ds := dataset.New([]string{"a"}, nil)
	_, rep, err := Execute(ds, &plan.Plan{Version: "1", Actions: []plan.Action{plan.NewParseDates("ghost", "a")}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, _ := json.Marshal(rep.ActionsApplied[0])
	want := `{"action":"parse_dates","columns":["ghost","a"],"stats":{"ghost":{"status":"skipped","reason":"missing column"},"a":{"status":"ok","parsed_non_null":0,"total":0}}}`
	if string(got) != want {
		t.Fatalf("got %s", got)
	}
}

/*
TestExecute_UnknownAction verifies that an unknown action stops execution
with an *ExecutionError while keeping the work done before it.
*/
func TestExecute_UnknownAction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := New(WithLogger(zap.New(core)), WithJob("t1"))

	ds := dataset.New([]string{"a", "b"}, [][]string{{" x ", "y"}})
	p := &plan.Plan{Version: "1", Actions: []plan.Action{
		plan.TrimWhitespace{},
		explode{},
		plan.DropColumns{Columns: []string{"a"}},
	}}

	out, rep, err := e.Execute(ds, p)
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExecutionError, got %v", err)
	}
	if ee.Error() != "unknown action: explode" || ee.Index != 1 {
		t.Fatalf("unexpected error %+v", ee)
	}
	if len(rep.ActionsApplied) != 1 || rep.ActionsApplied[0].Kind() != plan.KindTrimWhitespace {
		t.Fatalf("partial report: %+v", rep.ActionsApplied)
	}
	if !reflect.DeepEqual(out.Rows, [][]string{{"x", "y"}}) || out.Width() != 2 {
		t.Fatalf("dataset should hold the trimmed state only: %+v", out)
	}

	failed := logs.FilterMessage("plan action failed").All()
	if len(failed) != 1 || failed[0].ContextMap()["job"] != "t1" || failed[0].ContextMap()["action"] != "explode" {
		t.Fatalf("expected one failure log, got %+v", failed)
	}
}

func TestExecute_DoesNotMutatePlan(t *testing.T) {
	p := &plan.Plan{Version: "1", Actions: []plan.Action{
		plan.RenameColumns{Mapping: plan.MappingOf("a", "b")},
	}}
	before, _ := json.Marshal(p)
	if _, _, err := Execute(dataset.New([]string{"a"}, nil), p); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	after, _ := json.Marshal(p)
	if string(before) != string(after) {
		t.Fatalf("plan mutated: %s vs %s", before, after)
	}
}

/*
TestExecute_FinalColumnsMatchValidator verifies that the validator's
simulated column set equals the columns execution produces, including
renames that swap or chain names within one action.
*/
func TestExecute_FinalColumnsMatchValidator(t *testing.T) {
	mappings := map[string]plan.Mapping{
		"swap":  plan.MappingOf("a", "b", "b", "a"),
		"chain": plan.MappingOf("a", "b", "b", "c"),
		"cycle": plan.MappingOf("a", "b", "b", "c", "c", "a"),
	}
	for name, m := range mappings {
		t.Run(name, func(t *testing.T) {
			p := &plan.Plan{
				Version:     "1",
				Actions:     []plan.Action{plan.RenameColumns{Mapping: m}, plan.DropColumns{Columns: []string{"c"}}},
				Validations: plan.ValidationSpec{Required: []plan.RequiredRule{{Column: "b"}}},
			}
			in := dataset.New([]string{"a", "b", "c"}, [][]string{{"1", "2", "3"}})

			res := plan.Validate(p, plan.WithColumns(in.Columns))
			out, rep, err := Execute(in, p)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			got := append([]string(nil), out.Columns...)
			sort.Strings(got)
			if !reflect.DeepEqual(res.FinalColumns, got) {
				t.Fatalf("simulated %v, executed %v", res.FinalColumns, got)
			}
			for _, r := range rep.Validations.Required {
				if r.Column == "b" && !r.OK {
					t.Fatalf("required b failed at runtime")
				}
			}
		})
	}
}
