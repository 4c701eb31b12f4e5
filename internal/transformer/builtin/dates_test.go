package builtin

import (
	"reflect"
	"testing"

	"csvclean/internal/plan"
)

func TestDatesDayFirst(t *testing.T) {
	in := mk([]string{"d"}, []string{"01/02/2020"}, []string{"31-12-2020"})

	dmy, _ := Dates{Columns: []string{"d"}, DayFirst: true}.Run(in)
	mdy, _ := Dates{Columns: []string{"d"}}.Run(in)

	if got := dmy.Column("d"); !reflect.DeepEqual(got, []string{"2020-02-01", "2020-12-31"}) {
		t.Fatalf("day_first=true: %v", got)
	}
	if got := mdy.Column("d"); !reflect.DeepEqual(got, []string{"2020-01-02", "2020-12-31"}) {
		t.Fatalf("day_first=false: %v", got)
	}
}

func TestDatesFormatsAndStats(t *testing.T) {
	in := mk([]string{"d", "other"},
		[]string{"2021-03-04", "x"},
		[]string{"Mar 5, 2021", "x"},
		[]string{"7 Apr 2021", "x"},
		[]string{"20210102", "x"},
		[]string{"not a date", "x"},
		[]string{"", "x"},
	)
	out, stats := DatesFrom(plan.NewParseDates("d", "ghost")).Run(in)

	want := []string{"2021-03-04", "2021-03-05", "2021-04-07", "2021-01-02", "", ""}
	if got := out.Column("d"); !reflect.DeepEqual(got, want) {
		t.Fatalf("d=%v want %v", got, want)
	}
	wantStats := []DateStat{
		{Column: "d", Parsed: 4, Total: 6},
		{Column: "ghost", Missing: true},
	}
	if !reflect.DeepEqual(stats, wantStats) {
		t.Fatalf("stats=%+v want %+v", stats, wantStats)
	}
}

func TestDatesKeepTimeOfDay(t *testing.T) {
	in := mk([]string{"ts"}, []string{"2021-03-04 10:30:00"}, []string{"2021-03-05"})
	out, _ := Dates{Columns: []string{"ts"}}.Run(in)
	want := []string{"2021-03-04 10:30:00", "2021-03-05 00:00:00"}
	if got := out.Column("ts"); !reflect.DeepEqual(got, want) {
		t.Fatalf("ts=%v want %v", got, want)
	}
}
