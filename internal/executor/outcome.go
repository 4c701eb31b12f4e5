package executor

import (
	"bytes"
	"encoding/json"

	"csvclean/internal/plan"
	"csvclean/internal/transformer/builtin"
)

// Outcome is the record one applied action leaves in Report.ActionsApplied.
type Outcome interface {
	Kind() string
}

type TrimOutcome struct {
	Action      string      `json:"action"`
	Columns     plan.Filter `json:"columns"`
	ColumnsSeen []string    `json:"columns_seen"`
}

type NullsOutcome struct {
	Action     string   `json:"action"`
	NullTokens []string `json:"null_tokens"`
}

type RenameOutcome struct {
	Action  string       `json:"action"`
	Mapping plan.Mapping `json:"mapping"`
	Applied plan.Mapping `json:"applied"`
}

type DropOutcome struct {
	Action  string   `json:"action"`
	Columns []string `json:"columns"`
	Dropped []string `json:"dropped"`
}

type NumericOutcome struct {
	Action  string       `json:"action"`
	Columns []string     `json:"columns"`
	Stats   NumericStats `json:"stats"`
}

type DatesOutcome struct {
	Action  string    `json:"action"`
	Columns []string  `json:"columns"`
	Stats   DateStats `json:"stats"`
}

type DedupOutcome struct {
	Action      string      `json:"action"`
	Subset      plan.Filter `json:"subset"`
	DroppedRows int         `json:"dropped_rows"`
}

func (o TrimOutcome) Kind() string    { return o.Action }
func (o NullsOutcome) Kind() string   { return o.Action }
func (o RenameOutcome) Kind() string  { return o.Action }
func (o DropOutcome) Kind() string    { return o.Action }
func (o NumericOutcome) Kind() string { return o.Action }
func (o DatesOutcome) Kind() string   { return o.Action }
func (o DedupOutcome) Kind() string   { return o.Action }

// NumericStats encodes as an object keyed by column, in request order.
type NumericStats []builtin.NumericStat

func (s NumericStats) MarshalJSON() ([]byte, error) {
	var obj object
	for _, st := range s {
		if st.Missing {
			obj.set(st.Column, skipped{Skipped: true, Reason: missingColumn})
			continue
		}
		obj.set(st.Column, struct {
			ChangedCells int `json:"changed_cells"`
		}{st.Changed})
	}
	return obj.MarshalJSON()
}

// DateStats encodes as an object keyed by column, in request order.
type DateStats []builtin.DateStat

func (s DateStats) MarshalJSON() ([]byte, error) {
	var obj object
	for _, st := range s {
		if st.Missing {
			obj.set(st.Column, struct {
				Status string `json:"status"`
				Reason string `json:"reason"`
			}{"skipped", missingColumn})
			continue
		}
		obj.set(st.Column, struct {
			Status        string `json:"status"`
			ParsedNonNull int    `json:"parsed_non_null"`
			Total         int    `json:"total"`
		}{"ok", st.Parsed, st.Total})
	}
	return obj.MarshalJSON()
}

const missingColumn = "missing column"

type skipped struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason"`
}

// object is an insertion-ordered JSON object. Setting an existing key
// replaces its value in place.
type object struct {
	keys []string
	vals []any
}

func (o *object) set(k string, v any) {
	for i, existing := range o.keys {
		if existing == k {
			o.vals[i] = v
			return
		}
	}
	o.keys = append(o.keys, k)
	o.vals = append(o.vals, v)
}

func (o object) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.vals[i])
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
