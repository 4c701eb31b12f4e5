package plan

import (
	"bytes"
	"encoding/json"
)

// Filter selects the columns an action applies to: either every column or
// an explicit list of names. The zero value selects every column and
// encodes as JSON null.
type Filter struct {
	names    []string
	specific bool
}

// All returns a Filter that selects every column.
func All() Filter { return Filter{} }

// Only returns a Filter restricted to names. Only() with no names is an
// explicit empty selection, which is not the same as All.
func Only(names ...string) Filter {
	return Filter{names: append([]string{}, names...), specific: true}
}

// IsAll reports whether the filter selects every column.
func (f Filter) IsAll() bool { return !f.specific }

// Names returns the selected names. It is nil for All.
func (f Filter) Names() []string {
	if !f.specific {
		return nil
	}
	return append([]string{}, f.names...)
}

// Resolve returns the concrete names the filter selects given the current
// column order.
func (f Filter) Resolve(columns []string) []string {
	if !f.specific {
		return append([]string{}, columns...)
	}
	return f.Names()
}

func (f Filter) MarshalJSON() ([]byte, error) {
	if !f.specific {
		return []byte("null"), nil
	}
	return json.Marshal(nonNil(f.names))
}

func (f *Filter) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*f = All()
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*f = Only(names...)
	return nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
