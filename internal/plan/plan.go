// Package plan defines cleaning plans: an ordered list of declarative
// actions plus post-execution validation rules, the schema that decodes them
// from external JSON/YAML documents, and a semantic validator that simulates
// the column set as actions would apply.
//
// A Plan is immutable once constructed. Neither Validate nor the executor
// mutates it.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultVersion is the plan version assumed when a document omits one.
const DefaultVersion = "1"

// Plan is a versioned cleaning plan.
type Plan struct {
	Version     string
	Summary     string
	Actions     []Action
	Validations ValidationSpec
}

// ValidationSpec holds the constraints checked after execution.
type ValidationSpec struct {
	Required []RequiredRule `json:"required"`
	Ranges   []RangeRule    `json:"ranges"`
	Enums    []EnumRule     `json:"enums"`
}

// RequiredRule asserts that a column exists.
type RequiredRule struct {
	Column string `json:"column"`
}

// RangeRule bounds the numeric values of a column. Either bound may be nil.
type RangeRule struct {
	Column string   `json:"column"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
}

// EnumRule restricts the non-blank values of a column to Allowed.
type EnumRule struct {
	Column  string   `json:"column"`
	Allowed []string `json:"allowed"`
}

// Bound returns a pointer to v, for building RangeRule values.
func Bound(v float64) *float64 { return &v }

// SchemaError reports a document that does not match the plan shape.
// Path is a dotted path into the document, e.g. "actions[2].action".
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "invalid plan: " + e.Message
	}
	return fmt.Sprintf("invalid plan: %s: %s", e.Path, e.Message)
}

// Parse decodes a JSON plan document.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &SchemaError{Message: err.Error()}
	}
	return &p, nil
}

// Decode reads a JSON plan document from r.
func Decode(r io.Reader) (*Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(data)
}

// Kinds returns the action tags of p in order.
func (p *Plan) Kinds() []string {
	out := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		out[i] = a.Kind()
	}
	return out
}

func (p Plan) MarshalJSON() ([]byte, error) {
	actions := p.Actions
	if actions == nil {
		actions = []Action{}
	}
	return json.Marshal(struct {
		Version     string         `json:"version"`
		Summary     string         `json:"summary"`
		Actions     []Action       `json:"actions"`
		Validations ValidationSpec `json:"validations"`
	}{p.Version, p.Summary, actions, p.Validations})
}

func (v ValidationSpec) MarshalJSON() ([]byte, error) {
	type spec ValidationSpec
	if v.Required == nil {
		v.Required = []RequiredRule{}
	}
	if v.Ranges == nil {
		v.Ranges = []RangeRule{}
	}
	enums := make([]EnumRule, len(v.Enums))
	for i, e := range v.Enums {
		enums[i] = EnumRule{Column: e.Column, Allowed: nonNil(e.Allowed)}
	}
	v.Enums = enums
	return json.Marshal(spec(v))
}

// UnmarshalJSON decodes a plan document, applying defaults for absent
// fields and dispatching each action on its discriminator. All failures
// are *SchemaError.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return &SchemaError{Message: "plan must be a JSON object"}
	}

	out := Plan{Version: DefaultVersion}

	if raw, ok := fields["version"]; ok {
		if isNull(raw) || json.Unmarshal(raw, &out.Version) != nil {
			return &SchemaError{Path: "version", Message: "version must be a string"}
		}
	}
	if raw, ok := fields["summary"]; ok {
		if isNull(raw) || json.Unmarshal(raw, &out.Summary) != nil {
			return &SchemaError{Path: "summary", Message: "summary must be a string"}
		}
	}

	for _, f := range []string{"actions", "validations"} {
		if raw, ok := fields[f]; ok && isNull(raw) {
			return &SchemaError{Path: f, Message: "field must not be null"}
		}
	}

	if raw, ok := fields["actions"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return &SchemaError{Path: "actions", Message: "actions must be a list"}
		}
		out.Actions = make([]Action, 0, len(items))
		for i, item := range items {
			a, err := decodeAction(item)
			if err != nil {
				se := err.(*SchemaError)
				return &SchemaError{Path: joinPath(fmt.Sprintf("actions[%d]", i), se.Path), Message: se.Message}
			}
			out.Actions = append(out.Actions, a)
		}
	}

	if raw, ok := fields["validations"]; ok {
		spec, err := decodeValidations(raw)
		if err != nil {
			return err
		}
		out.Validations = spec
	}

	*p = out
	return nil
}

func decodeValidations(raw json.RawMessage) (ValidationSpec, error) {
	if se := nullField(raw, "required", "ranges", "enums"); se != nil {
		se.Path = joinPath("validations", se.Path)
		return ValidationSpec{}, se
	}
	var doc struct {
		Required []struct {
			Column *string `json:"column"`
		} `json:"required"`
		Ranges []struct {
			Column *string  `json:"column"`
			Min    *float64 `json:"min"`
			Max    *float64 `json:"max"`
		} `json:"ranges"`
		Enums []struct {
			Column  *string   `json:"column"`
			Allowed *[]string `json:"allowed"`
		} `json:"enums"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		se := fieldError(err)
		se.Path = joinPath("validations", se.Path)
		return ValidationSpec{}, se
	}

	var spec ValidationSpec
	for i, r := range doc.Required {
		if r.Column == nil {
			return spec, missingField(fmt.Sprintf("validations.required[%d].column", i))
		}
		spec.Required = append(spec.Required, RequiredRule{Column: *r.Column})
	}
	for i, r := range doc.Ranges {
		if r.Column == nil {
			return spec, missingField(fmt.Sprintf("validations.ranges[%d].column", i))
		}
		spec.Ranges = append(spec.Ranges, RangeRule{Column: *r.Column, Min: r.Min, Max: r.Max})
	}
	for i, r := range doc.Enums {
		if r.Column == nil {
			return spec, missingField(fmt.Sprintf("validations.enums[%d].column", i))
		}
		if r.Allowed == nil {
			return spec, missingField(fmt.Sprintf("validations.enums[%d].allowed", i))
		}
		spec.Enums = append(spec.Enums, EnumRule{Column: *r.Column, Allowed: nonNil(*r.Allowed)})
	}
	return spec, nil
}

func missingField(path string) *SchemaError {
	return &SchemaError{Path: path, Message: "field required"}
}

func joinPath(prefix, rest string) string {
	switch {
	case rest == "":
		return prefix
	case strings.HasPrefix(rest, "["):
		return prefix + rest
	default:
		return prefix + "." + rest
	}
}
