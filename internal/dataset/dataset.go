// Package dataset holds the in-memory table that cleaning operates on.
//
// Every cell is a string and the empty string means missing. Transforms
// never modify a Dataset in place; they build a new one, so a caller can keep
// a snapshot (e.g. the input for a "before" profile) while a plan runs.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	pcsv "csvclean/internal/parser/csv"
)

// Dataset is a rectangular table of string cells.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// New returns a Dataset whose rows are padded or truncated to the width of
// columns. The inputs are copied.
func New(columns []string, rows [][]string) *Dataset {
	d := &Dataset{
		Columns: append([]string{}, columns...),
		Rows:    make([][]string, len(rows)),
	}
	w := len(columns)
	for i, r := range rows {
		row := make([]string, w)
		copy(row, r)
		d.Rows[i] = row
	}
	return d
}

// Clone returns a deep copy of d.
func (d *Dataset) Clone() *Dataset {
	return New(d.Columns, d.Rows)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Width returns the number of columns.
func (d *Dataset) Width() int { return len(d.Columns) }

// Index returns the position of col, or -1.
func (d *Dataset) Index(col string) int {
	for i, c := range d.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether col exists.
func (d *Dataset) Has(col string) bool { return d.Index(col) >= 0 }

// Column returns a copy of the values of col, or nil when it is absent.
func (d *Dataset) Column(col string) []string {
	idx := d.Index(col)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[idx]
	}
	return out
}

// Preview returns up to n leading rows as ordered records.
func (d *Dataset) Preview(n int) []Record {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	out := make([]Record, 0, n)
	for _, r := range d.Rows[:n] {
		out = append(out, Record{Columns: d.Columns, Values: append([]string{}, r...)})
	}
	return out
}

// Record is one row keyed by column name. It encodes as a JSON object whose
// keys follow column order.
type Record struct {
	Columns []string
	Values  []string
}

// Get returns the value for col.
func (r Record) Get(col string) (string, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return "", false
}

func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// ReadCSV decodes raw CSV bytes, detecting encoding and delimiter.
func ReadCSV(data []byte) (*Dataset, error) {
	t, err := pcsv.Read(data)
	if err != nil {
		return nil, err
	}
	return &Dataset{Columns: t.Header, Rows: t.Rows}, nil
}

// ReadCSVFrom reads all of r and decodes it with ReadCSV.
func ReadCSVFrom(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return ReadCSV(data)
}

// WriteCSV encodes d as comma-separated UTF-8 with a header row.
func (d *Dataset) WriteCSV(w io.Writer) error {
	if err := pcsv.Write(w, d.Columns, d.Rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Bytes returns the CSV encoding of d.
func (d *Dataset) Bytes() ([]byte, error) {
	var b bytes.Buffer
	if err := d.WriteCSV(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
