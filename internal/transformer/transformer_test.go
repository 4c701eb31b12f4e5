package transformer

import (
	"context"
	"reflect"
	"testing"
	"time"

	"csvclean/internal/dataset"
)

/*
TestChain_AppliesInOrder verifies that a Chain feeds each transformer the
output of the previous one.
*/
func TestChain_AppliesInOrder(t *testing.T) {
	appendCol := func(name string) Transformer {
		return Func(func(in *dataset.Dataset) *dataset.Dataset {
			out := in.Clone()
			out.Columns = append(out.Columns, name)
			for i := range out.Rows {
				out.Rows[i] = append(out.Rows[i], name)
			}
			return out
		})
	}
	in := dataset.New([]string{"a"}, [][]string{{"1"}})
	got := Chain{appendCol("b"), appendCol("c")}.Apply(in)

	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got.Columns, want) {
		t.Fatalf("columns=%v want %v", got.Columns, want)
	}
	if !reflect.DeepEqual(in.Columns, []string{"a"}) {
		t.Fatalf("input mutated: %v", in.Columns)
	}
	if Chain(nil).Apply(in) != in {
		t.Fatalf("empty chain should return input")
	}
}

/*
TestCoerceRows verifies typed conversion, NULL for blanks, and rejects for
cells that do not fit their type.
*/
func TestCoerceRows(t *testing.T) {
	cols := []string{"id", "price", "ok", "day", "name"}
	spec := CoerceSpec{Types: map[string]string{
		"id": TypeInteger, "price": TypeReal, "ok": TypeBoolean, "day": TypeDate,
	}}
	var rejects []string
	rows := CoerceRows(cols, [][]string{
		{"42.0", "1234.5", "yes", "2020-02-29", "Ann"},
		{"x", "", "maybe", "2021-02-29", ""},
	}, spec, func(line int, column, value string) {
		rejects = append(rejects, column+"="+value)
	})

	want0 := []any{int64(42), 1234.5, true, time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC), "Ann"}
	if !reflect.DeepEqual(rows[0], want0) {
		t.Fatalf("row0=%#v want %#v", rows[0], want0)
	}
	want1 := []any{nil, nil, nil, nil, nil}
	if !reflect.DeepEqual(rows[1], want1) {
		t.Fatalf("row1=%#v", rows[1])
	}
	if want := []string{"id=x", "ok=maybe", "day=2021-02-29"}; !reflect.DeepEqual(rejects, want) {
		t.Fatalf("rejects=%v want %v", rejects, want)
	}
}

/*
TestTransformLoop_Streams verifies the channel form converts every row and
drops rows of the wrong width.
*/
func TestTransformLoop_Streams(t *testing.T) {
	in := make(chan []string, 3)
	out := make(chan []any, 3)
	in <- []string{"1", "2020-01-01 10:00:00"}
	in <- []string{"only-one"}
	in <- []string{"2", ""}
	close(in)

	var widthRejects int
	TransformLoop(context.Background(), []string{"n", "ts"}, in, out,
		CoerceSpec{Types: map[string]string{"n": TypeInteger, "ts": TypeTimestamp}},
		func(line int, column, value string) {
			if column == "" {
				widthRejects++
			}
		})
	close(out)

	var got [][]any
	for r := range out {
		got = append(got, r)
	}
	if len(got) != 2 || widthRejects != 1 {
		t.Fatalf("got %d rows, %d width rejects", len(got), widthRejects)
	}
	if got[0][0] != int64(1) || got[1][1] != nil {
		t.Fatalf("unexpected rows %#v", got)
	}
	if ts, ok := got[0][1].(time.Time); !ok || ts.Hour() != 10 {
		t.Fatalf("timestamp=%#v", got[0][1])
	}
}

func TestValidateSpecSanity(t *testing.T) {
	spec := CoerceSpec{Types: map[string]string{"ghost": TypeInteger}}
	if err := ValidateSpecSanity([]string{"a"}, spec); err == nil {
		t.Fatalf("expected error for unknown column")
	}
	if err := ValidateSpecSanity([]string{"ghost"}, spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
