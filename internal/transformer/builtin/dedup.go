package builtin

// DeDup removes rows that repeat an earlier row. It compares rows on a
// configured subset of columns, or on every column when the subset is All,
// and always keeps the first occurrence. Kept rows stay in their original
// relative order, so running DeDup twice gives the same result as once.
//
// Keys: a row's key is the concatenation of the selected cells joined with
// '\x1f'. Keys are bucketed by their xxh3 hash and compared exactly inside a
// bucket, so a hash collision never drops a distinct row.
//
// Subset handling:
//   - subset columns absent from the dataset are ignored;
//   - an explicit empty subset, or a subset with no present column, drops
//     nothing.

import (
	"strings"

	"github.com/zeebo/xxh3"

	"csvclean/internal/dataset"
	"csvclean/internal/plan"
)

// DeDup implements keep-first de-duplication.
type DeDup struct {
	// Subset selects the columns forming the key. The zero value is All.
	Subset plan.Filter
}

func (d DeDup) Apply(in *dataset.Dataset) *dataset.Dataset {
	out, _ := d.Run(in)
	return out
}

// Run de-duplicates and returns the number of rows dropped.
func (d DeDup) Run(in *dataset.Dataset) (*dataset.Dataset, int) {
	cols := indexes(in, d.Subset.Resolve(in.Columns))
	if len(cols) == 0 || in.Len() == 0 {
		return in.Clone(), 0
	}

	seen := make(map[uint64][]string, in.Len())
	kept := make([][]string, 0, in.Len())
	var b strings.Builder

	for _, r := range in.Rows {
		b.Reset()
		for i, c := range cols {
			if i > 0 {
				b.WriteByte('\x1f')
			}
			b.WriteString(r[c])
		}
		key := b.String()
		h := xxh3.HashString(key)

		dup := false
		for _, k := range seen[h] {
			if k == key {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[h] = append(seen[h], key)
		kept = append(kept, append([]string{}, r...))
	}

	out := &dataset.Dataset{Columns: append([]string{}, in.Columns...), Rows: kept}
	return out, in.Len() - len(kept)
}

// CountDuplicates returns how many rows repeat an earlier row across all
// columns.
func CountDuplicates(ds *dataset.Dataset) int {
	_, dropped := DeDup{}.Run(ds)
	return dropped
}
