package builtin

import (
	"reflect"
	"testing"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
)

func mk(columns []string, rows ...[]string) *dataset.Dataset {
	return dataset.New(columns, rows)
}

func TestDeDupFullRow(t *testing.T) {
	in := mk([]string{"a"}, []string{"1"}, []string{"1"}, []string{"2"})
	got, dropped := DeDup{}.Run(in)
	if want := [][]string{{"1"}, {"2"}}; !reflect.DeepEqual(got.Rows, want) {
		t.Fatalf("full row: got %#v want %#v", got.Rows, want)
	}
	if dropped != 1 {
		t.Fatalf("dropped=%d want 1", dropped)
	}
	if in.Len() != 3 {
		t.Fatalf("input mutated")
	}
}

func TestDeDupSubsetKeepFirst(t *testing.T) {
	in := mk([]string{"id", "reason"},
		[]string{"1", "A"},
		[]string{"2", "C"},
		[]string{"1", "B"},
	)
	got, dropped := DeDup{Subset: plan.Only("id", "ghost")}.Run(in)
	want := [][]string{{"1", "A"}, {"2", "C"}}
	if !reflect.DeepEqual(got.Rows, want) || dropped != 1 {
		t.Fatalf("keep-first: got %#v (dropped %d) want %#v", got.Rows, dropped, want)
	}
}

func TestDeDupEmptySubsetIsNoop(t *testing.T) {
	in := mk([]string{"a"}, []string{"1"}, []string{"1"})
	for _, f := range []plan.Filter{plan.Only(), plan.Only("ghost")} {
		got, dropped := DeDup{Subset: f}.Run(in)
		if dropped != 0 || got.Len() != 2 {
			t.Fatalf("subset %v: dropped %d rows", f.Names(), dropped)
		}
	}
}

func TestDeDupIdempotent(t *testing.T) {
	in := mk([]string{"a", "b"},
		[]string{"1", "x"}, []string{"1", "x"}, []string{"2", "y"}, []string{"1", "z"}, []string{"2", "y"},
	)
	once := DeDup{}.Apply(in)
	twice := DeDup{}.Apply(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent: %#v vs %#v", once.Rows, twice.Rows)
	}
	if CountDuplicates(in) != 2 {
		t.Fatalf("CountDuplicates=%d want 2", CountDuplicates(in))
	}
}

func TestDeDupSeparatorDoesNotMergeCells(t *testing.T) {
	in := mk([]string{"a", "b"}, []string{"ab", "c"}, []string{"a", "bc"})
	if _, dropped := (DeDup{}).Run(in); dropped != 0 {
		t.Fatalf("distinct rows merged")
	}
}
