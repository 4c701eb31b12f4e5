package basicclean

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"csvclean/internal/dataset"
)

/*
TestClean verifies the full pass: header tidy-up, trimming, extended null
tokens, empty column removal and exact duplicate removal, plus the stats.
*/
func TestClean(t *testing.T) {
	in := dataset.New([]string{" Name ", "Unit  Price", "empty", "ok"}, [][]string{
		{" a ", "1", "-", "x"},
		{"a", " 1 ", "N/A", "x"},
		{"b", "inf", "", "y"},
		{"c", "—", " ", "NULL"},
	})

	out, stats := Clean(in)

	wantCols := []string{"Name", "Unit Price", "ok"}
	wantRows := [][]string{{"a", "1", "x"}, {"b", "", "y"}, {"c", "", ""}}
	if diff := cmp.Diff(wantCols, out.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantRows, out.Rows); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}

	got, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"before_shape":{"rows":4,"columns":4},"after_shape":{"rows":3,"columns":3},` +
		`"renamed_columns":{" Name ":"Name","Unit  Price":"Unit Price"},"dropped_columns":["empty"]}`
	if string(got) != want {
		t.Fatalf("stats\ngot  %s\nwant %s", got, want)
	}

	if in.Columns[0] != " Name " || in.Rows[0][0] != " a " {
		t.Fatalf("input mutated")
	}
}

func TestClean_NothingToDo(t *testing.T) {
	in := dataset.New([]string{"a"}, [][]string{{"1"}, {"2"}})
	out, stats := Clean(in)
	if diff := cmp.Diff(in.Rows, out.Rows); diff != "" {
		t.Fatalf("rows changed:\n%s", diff)
	}
	got, _ := json.Marshal(stats)
	want := `{"before_shape":{"rows":2,"columns":1},"after_shape":{"rows":2,"columns":1},"renamed_columns":{},"dropped_columns":[]}`
	if string(got) != want {
		t.Fatalf("got %s", got)
	}
}
