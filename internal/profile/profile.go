// Package profile summarizes a dataset for display and for the LLM planner:
// shape, per-column missingness, duplicate rows, a preview and inferred
// column types.
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"csvclean/internal/dataset"
	"csvclean/internal/transformer/builtin"
)

// PreviewRows is the number of leading rows included in a profile.
const PreviewRows = 10

// ErrNoColumns is returned for a dataset without columns.
var ErrNoColumns = errors.New("dataframe has no columns")

type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// Missing counts blank cells of one column.
type Missing struct {
	Column string  `json:"-"`
	Count  int     `json:"missing_count"`
	Pct    float64 `json:"missing_pct"`
}

// MissingByColumn encodes as an object keyed by column, in column order.
type MissingByColumn []Missing

// ColumnTypes encodes as an object keyed by column, in column order.
type ColumnTypes struct {
	Columns []string
	Types   []string
}

// Profile is the JSON document returned by the profile endpoint.
type Profile struct {
	Shape             Shape            `json:"shape"`
	Columns           []string         `json:"columns"`
	MissingByColumn   MissingByColumn  `json:"missing_by_column"`
	DuplicateRowCount int              `json:"duplicate_row_count"`
	PreviewRows       []dataset.Record `json:"preview_rows"`
	InferredTypes     ColumnTypes      `json:"inferred_types"`
	Filename          string           `json:"filename,omitempty"`
}

// Build profiles ds. Filename is recorded when non-empty.
func Build(ds *dataset.Dataset, filename string) (*Profile, error) {
	if ds.Width() == 0 {
		return nil, ErrNoColumns
	}

	rows := ds.Len()
	missing := make(MissingByColumn, ds.Width())
	for i, col := range ds.Columns {
		n := 0
		for _, r := range ds.Rows {
			if strings.TrimSpace(r[i]) == "" {
				n++
			}
		}
		missing[i] = Missing{Column: col, Count: n, Pct: float64(n) / float64(max(rows, 1))}
	}

	columns := append([]string{}, ds.Columns...)
	return &Profile{
		Shape:             Shape{Rows: rows, Columns: ds.Width()},
		Columns:           columns,
		MissingByColumn:   missing,
		DuplicateRowCount: builtin.CountDuplicates(ds),
		PreviewRows:       ds.Preview(PreviewRows),
		InferredTypes:     ColumnTypes{Columns: columns, Types: InferTypes(ds.Columns, ds.Rows)},
		Filename:          filename,
	}, nil
}

// Get returns the missing counts for col.
func (m MissingByColumn) Get(col string) (Missing, bool) {
	for _, x := range m {
		if x.Column == col {
			return x, true
		}
	}
	return Missing{}, false
}

func (m MissingByColumn) MarshalJSON() ([]byte, error) {
	keys := make([]string, len(m))
	vals := make([]any, len(m))
	for i, x := range m {
		keys[i], vals[i] = x.Column, x
	}
	return orderedJSON(keys, vals)
}

// Get returns the inferred type of col.
func (c ColumnTypes) Get(col string) (string, bool) {
	for i, name := range c.Columns {
		if name == col {
			return c.Types[i], true
		}
	}
	return "", false
}

func (c ColumnTypes) MarshalJSON() ([]byte, error) {
	vals := make([]any, len(c.Types))
	for i, t := range c.Types {
		vals[i] = t
	}
	return orderedJSON(c.Columns, vals)
}

func orderedJSON(keys []string, vals []any) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(vals[i])
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
