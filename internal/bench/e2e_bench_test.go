package bench

import (
	"context"
	"strconv"
	"testing"

	"csvclean/internal/basicclean"
	"csvclean/internal/dataset"
	"csvclean/internal/executor"
	"csvclean/internal/plan"
	"csvclean/internal/storage"
	"csvclean/internal/storage/postgres"
)

// countingRepo accepts every batch without I/O.
type countingRepo struct{ rows int64 }

func (r *countingRepo) CopyFrom(_ context.Context, _ []string, rows [][]any) (int64, error) {
	r.rows += int64(len(rows))
	return int64(len(rows)), nil
}
func (r *countingRepo) Exec(context.Context, string) error { return nil }
func (r *countingRepo) Close()                             {}

// messyRows builds n rows with padded text, null tokens and one duplicate
// every tenth row.
func messyRows(n int) *dataset.Dataset {
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		id := strconv.Itoa(i)
		if i%10 == 9 {
			id = strconv.Itoa(i - 1)
		}
		amount := " 1,234." + strconv.Itoa(i%100) + " "
		if i%7 == 0 {
			amount = "N/A"
		}
		rows = append(rows, []string{id, "  Evidenční  ", "07.10.2011", amount, "True"})
	}
	return dataset.New([]string{"ID", " Type ", "Valid From", "Amount", "Current"}, rows)
}

var benchPlan = &plan.Plan{
	Version: "1",
	Actions: []plan.Action{
		plan.RenameColumns{Mapping: plan.MappingOf("ID", "id", "Valid From", "valid_from", "Amount", "amount")},
		plan.ParseNumeric{Columns: []string{"id"}, NumericType: plan.NumericInt},
		plan.ParseNumeric{Columns: []string{"amount"}, NumericType: plan.NumericFloat, AllowThousandsSeparators: true},
		plan.ParseDates{Columns: []string{"valid_from"}, DayFirst: true, OutputFormat: plan.DateISO},
		plan.DeduplicateRows{},
	},
}

/*
BenchmarkEndToEnd measures the basic pass, plan execution and the typed
export loop for 10k rows. The repository is in memory so only coercion and
batching are measured.

	go test -run=^$ -bench ^BenchmarkEndToEnd$ -cpuprofile cpu.out -memprofile mem.out -count=1
*/
func BenchmarkEndToEnd(b *testing.B) {
	ctx := context.Background()
	in := messyRows(10_000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cleaned, _ := basicclean.Clean(in)
		out, _, err := executor.Execute(cleaned, benchPlan)
		if err != nil {
			b.Fatalf("Execute: %v", err)
		}
		repo := &countingRepo{}
		n, err := storage.Export(ctx, repo, postgres.Dialect, "bench", out,
			storage.ColumnsFromPlan(out, benchPlan), 4096, nil)
		if err != nil {
			b.Fatalf("Export: %v", err)
		}
		if n != int64(out.Len()) {
			b.Fatalf("exported %d rows, want %d", n, out.Len())
		}
	}
}

// BenchmarkBasicClean isolates the plan-free pass.
func BenchmarkBasicClean(b *testing.B) {
	in := messyRows(10_000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		basicclean.Clean(in)
	}
}
