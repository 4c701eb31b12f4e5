package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Pair is a single old → new entry of a Mapping.
type Pair struct {
	From string
	To   string
}

// Mapping is an insertion-ordered old → new column name map. It encodes as
// a JSON object whose keys keep their order.
type Mapping []Pair

// MappingOf builds a Mapping from alternating old, new names.
func MappingOf(kv ...string) Mapping {
	var m Mapping
	for i := 0; i+1 < len(kv); i += 2 {
		m = m.With(kv[i], kv[i+1])
	}
	return m
}

// With returns a copy of m with from mapped to to. An existing key keeps
// its position and takes the new value.
func (m Mapping) With(from, to string) Mapping {
	out := append(Mapping{}, m...)
	for i := range out {
		if out[i].From == from {
			out[i].To = to
			return out
		}
	}
	return append(out, Pair{From: from, To: to})
}

// Get returns the target for from.
func (m Mapping) Get(from string) (string, bool) {
	for _, p := range m {
		if p.From == from {
			return p.To, true
		}
	}
	return "", false
}

func (m Mapping) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(p.From)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.To)
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

func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("mapping must be an object")
	}

	var out Mapping
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("mapping value for %q must be a string", key)
		}
		out = out.With(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
