package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
	"csvclean/internal/transformer"
)

var testDialect = Dialect{
	Name:  "test",
	Quote: QuoteDouble,
	Types: map[string]string{
		transformer.TypeText:    "TEXT",
		transformer.TypeInteger: "BIGINT",
		transformer.TypeReal:    "DOUBLE",
		transformer.TypeDate:    "DATE",
		TypeYear:                "INT",
	},
}

func TestCreateTableSQL(t *testing.T) {
	got, err := testDialect.CreateTableSQL("s.t", []Column{
		{Name: "a", Type: transformer.TypeInteger},
		{Name: "b", Type: transformer.TypeBoolean}, // unmapped falls back to text
	})
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"s\".\"t\" (\n  \"a\" BIGINT,\n  \"b\" TEXT\n);"
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}

	for _, tc := range []struct {
		table string
		cols  []Column
	}{
		{"", []Column{{Name: "a"}}},
		{"t", nil},
		{"t", []Column{{Name: " "}}},
	} {
		if _, err := testDialect.CreateTableSQL(tc.table, tc.cols); err == nil {
			t.Fatalf("CreateTableSQL(%q, %v): expected error", tc.table, tc.cols)
		}
	}
}

/*
TestColumnsFromPlan verifies typing from parse actions, following renames
(including swaps) and drops, and the timestamp upgrade for date columns
with a time of day.
*/
func TestColumnsFromPlan(t *testing.T) {
	ds := dataset.New([]string{"qty", "cost", "when", "stamp", "yr", "name"}, [][]string{
		{"1", "2.5", "2024-01-01", "2024-01-01 10:00:00", "2024-05-05", "x"},
	})
	p := &plan.Plan{Actions: []plan.Action{
		plan.ParseNumeric{Columns: []string{"amount"}, NumericType: plan.NumericInt},
		plan.ParseNumeric{Columns: []string{"price"}, NumericType: plan.NumericFloat},
		plan.ParseDates{Columns: []string{"when", "stamp", "gone"}, OutputFormat: plan.DateISO},
		plan.ParseDates{Columns: []string{"yr"}, OutputFormat: plan.DateYear},
		plan.RenameColumns{Mapping: plan.MappingOf("amount", "cost", "price", "qty")},
		plan.DropColumns{Columns: []string{"gone"}},
	}}

	got := ColumnsFromPlan(ds, p)
	want := []Column{
		{Name: "qty", Type: transformer.TypeReal},
		{Name: "cost", Type: transformer.TypeInteger},
		{Name: "when", Type: transformer.TypeDate},
		{Name: "stamp", Type: transformer.TypeTimestamp},
		{Name: "yr", Type: TypeYear},
		{Name: "name", Type: transformer.TypeText},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}

	plain := ColumnsFromPlan(ds, nil)
	for _, c := range plain {
		if c.Type != transformer.TypeText {
			t.Fatalf("nil plan: %+v", c)
		}
	}
}

func TestExport(t *testing.T) {
	ds := dataset.New([]string{"id", "yr", "note"}, [][]string{
		{"1", "2024-03-01", "a"},
		{"x", "", ""},
		{"3", "1999-12-31 23:59:00", "c"},
	})
	cols := []Column{
		{Name: "id", Type: transformer.TypeInteger},
		{Name: "yr", Type: TypeYear},
		{Name: "note", Type: transformer.TypeText},
	}
	repo := &memRepo{}

	n, err := Export(context.Background(), repo, testDialect, "t", ds, cols, 2, zap.NewNop())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 || repo.batches != 2 {
		t.Fatalf("n=%d batches=%d", n, repo.batches)
	}
	if len(repo.execs) != 1 || !strings.HasPrefix(repo.execs[0], `CREATE TABLE IF NOT EXISTS "t"`) {
		t.Fatalf("execs=%q", repo.execs)
	}
	want := [][]any{
		{int64(1), int64(2024), "a"},
		{nil, nil, nil},
		{int64(3), int64(1999), "c"},
	}
	if diff := cmp.Diff(want, repo.rows); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
	if ds.Rows[0][1] != "2024-03-01" {
		t.Fatalf("dataset mutated: %v", ds.Rows[0])
	}
}

func TestExport_Errors(t *testing.T) {
	ds := dataset.New([]string{"a"}, [][]string{{"1"}, {"2"}})
	cols := []Column{{Name: "a", Type: transformer.TypeInteger}}
	ctx := context.Background()

	if _, err := Export(ctx, &memRepo{}, testDialect, "t", ds, nil, 1, nil); err == nil {
		t.Fatalf("expected width mismatch error")
	}

	ddlErr := errors.New("no permission")
	if _, err := Export(ctx, &memRepo{execErr: ddlErr}, testDialect, "t", ds, cols, 1, nil); !errors.Is(err, ddlErr) {
		t.Fatalf("want ddl error, got %v", err)
	}

	copyErr := errors.New("disk full")
	done := make(chan error, 1)
	go func() {
		_, err := Export(ctx, &memRepo{copyErr: copyErr}, testDialect, "t", ds, cols, 1, nil)
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, copyErr) {
			t.Fatalf("want copy error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Export did not return after a copy failure")
	}
}

func TestYearOf(t *testing.T) {
	for in, want := range map[string]string{
		"2024-01-02":          "2024",
		"2024-01-02 03:04:05": "2024",
		"2024":                "2024",
		"n/a":                 "n/a",
	} {
		if got := yearOf(in); got != want {
			t.Fatalf("yearOf(%q)=%q want %q", in, got, want)
		}
	}
}
