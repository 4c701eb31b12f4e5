package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Action tags as they appear in the "action" discriminator.
const (
	KindDropColumns      = "drop_columns"
	KindRenameColumns    = "rename_columns"
	KindStandardizeNulls = "standardize_nulls"
	KindParseNumeric     = "parse_numeric"
	KindParseDates       = "parse_dates"
	KindTrimWhitespace   = "trim_whitespace"
	KindDeduplicateRows  = "deduplicate_rows"
)

// Kinds lists every known action tag in schema order.
var Kinds = []string{
	KindDropColumns,
	KindRenameColumns,
	KindStandardizeNulls,
	KindParseNumeric,
	KindParseDates,
	KindTrimWhitespace,
	KindDeduplicateRows,
}

// Action is one declarative transform step of a Plan.
//
// The set of implementations is closed: DropColumns, RenameColumns,
// StandardizeNulls, ParseNumeric, ParseDates, TrimWhitespace and
// DeduplicateRows. Consumers dispatch with a type switch.
type Action interface {
	// Kind returns the action tag, e.g. "drop_columns".
	Kind() string
	action()
}

// NumericType selects the canonical output of ParseNumeric.
type NumericType string

const (
	NumericInt   NumericType = "int"
	NumericFloat NumericType = "float"
)

// DateFormat selects how ParseDates renders parsed values.
type DateFormat string

const (
	DateISO  DateFormat = "iso_date"
	DateYear DateFormat = "year"
)

// DefaultNullTokens returns the tokens StandardizeNulls uses when none are given.
func DefaultNullTokens() []string {
	return []string{"", "na", "n/a", "null", "none", "nan"}
}

// DropColumns removes the named columns if present.
type DropColumns struct {
	Columns []string `json:"columns"`
}

// RenameColumns renames columns; entries whose source is absent are ignored.
type RenameColumns struct {
	Mapping Mapping `json:"mapping"`
}

// StandardizeNulls blanks every cell whose trimmed, lowercased value is one
// of NullTokens.
type StandardizeNulls struct {
	NullTokens []string `json:"null_tokens"`
}

// ParseNumeric normalizes text into a canonical numeric string.
type ParseNumeric struct {
	Columns                  []string    `json:"columns"`
	NumericType              NumericType `json:"numeric_type"`
	AllowCurrency            bool        `json:"allow_currency"`
	AllowThousandsSeparators bool        `json:"allow_thousands_separators"`
	FixCommonTypos           bool        `json:"fix_common_typos"`
}

// ParseDates parses values as dates; unparseable values become missing.
type ParseDates struct {
	Columns      []string   `json:"columns"`
	DayFirst     bool       `json:"day_first"`
	OutputFormat DateFormat `json:"output_format"`
}

// TrimWhitespace strips leading and trailing whitespace.
type TrimWhitespace struct {
	Columns Filter `json:"columns"`
}

// DeduplicateRows drops rows that repeat an earlier row on Subset.
type DeduplicateRows struct {
	Subset Filter `json:"subset"`
}

// NewStandardizeNulls returns a StandardizeNulls with the default tokens.
func NewStandardizeNulls() StandardizeNulls {
	return StandardizeNulls{NullTokens: DefaultNullTokens()}
}

// NewParseNumeric returns a ParseNumeric with default options.
func NewParseNumeric(columns ...string) ParseNumeric {
	return ParseNumeric{
		Columns:                  nonNil(columns),
		NumericType:              NumericFloat,
		AllowThousandsSeparators: true,
		FixCommonTypos:           true,
	}
}

// NewParseDates returns a ParseDates with default options.
func NewParseDates(columns ...string) ParseDates {
	return ParseDates{Columns: nonNil(columns), OutputFormat: DateISO}
}

func (DropColumns) Kind() string      { return KindDropColumns }
func (RenameColumns) Kind() string    { return KindRenameColumns }
func (StandardizeNulls) Kind() string { return KindStandardizeNulls }
func (ParseNumeric) Kind() string     { return KindParseNumeric }
func (ParseDates) Kind() string       { return KindParseDates }
func (TrimWhitespace) Kind() string   { return KindTrimWhitespace }
func (DeduplicateRows) Kind() string  { return KindDeduplicateRows }

func (DropColumns) action()      {}
func (RenameColumns) action()    {}
func (StandardizeNulls) action() {}
func (ParseNumeric) action()     {}
func (ParseDates) action()       {}
func (TrimWhitespace) action()   {}
func (DeduplicateRows) action()  {}

type (
	dropColumns      DropColumns
	renameColumns    RenameColumns
	standardizeNulls StandardizeNulls
	parseNumeric     ParseNumeric
	parseDates       ParseDates
	trimWhitespace   TrimWhitespace
	deduplicateRows  DeduplicateRows
)

func (a DropColumns) MarshalJSON() ([]byte, error) {
	a.Columns = nonNil(a.Columns)
	return tagged(a.Kind(), dropColumns(a))
}

func (a RenameColumns) MarshalJSON() ([]byte, error) {
	if a.Mapping == nil {
		a.Mapping = Mapping{}
	}
	return tagged(a.Kind(), renameColumns(a))
}

func (a StandardizeNulls) MarshalJSON() ([]byte, error) {
	a.NullTokens = nonNil(a.NullTokens)
	return tagged(a.Kind(), standardizeNulls(a))
}

func (a ParseNumeric) MarshalJSON() ([]byte, error) {
	a.Columns = nonNil(a.Columns)
	return tagged(a.Kind(), parseNumeric(a))
}

func (a ParseDates) MarshalJSON() ([]byte, error) {
	a.Columns = nonNil(a.Columns)
	return tagged(a.Kind(), parseDates(a))
}

func (a TrimWhitespace) MarshalJSON() ([]byte, error) {
	return tagged(a.Kind(), trimWhitespace(a))
}

func (a DeduplicateRows) MarshalJSON() ([]byte, error) {
	return tagged(a.Kind(), deduplicateRows(a))
}

// tagged encodes v as a JSON object and prepends the "action" discriminator.
func tagged(kind string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head := `{"action":` + strconv.Quote(kind)
	if len(body) <= 2 {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), body[1:]...), nil
}

// UnmarshalAction decodes a single action document, dispatching on its
// "action" field. Fields absent from the document take their defaults.
func UnmarshalAction(data []byte) (Action, error) {
	a, err := decodeAction(data)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &SchemaError{Message: err.Error()}
	}
	return a, nil
}

// decodeAction returns *SchemaError values with paths relative to the
// action object; callers prefix them.
func decodeAction(raw []byte) (Action, error) {
	var head struct {
		Action *string `json:"action"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &SchemaError{Path: "action", Message: "action must be an object with a string \"action\" field"}
	}
	if head.Action == nil {
		return nil, &SchemaError{Path: "action", Message: "missing action discriminator"}
	}
	if se := nullField(raw, nonNullable[*head.Action]...); se != nil {
		return nil, se
	}

	var (
		out Action
		err error
	)
	switch *head.Action {
	case KindDropColumns:
		a := DropColumns{Columns: []string{}}
		err = json.Unmarshal(raw, (*dropColumns)(&a))
		a.Columns = nonNil(a.Columns)
		out = a
	case KindRenameColumns:
		a := RenameColumns{Mapping: Mapping{}}
		err = json.Unmarshal(raw, (*renameColumns)(&a))
		out = a
	case KindStandardizeNulls:
		a := NewStandardizeNulls()
		err = json.Unmarshal(raw, (*standardizeNulls)(&a))
		a.NullTokens = nonNil(a.NullTokens)
		out = a
	case KindParseNumeric:
		a := NewParseNumeric()
		err = json.Unmarshal(raw, (*parseNumeric)(&a))
		if err == nil && a.NumericType != NumericInt && a.NumericType != NumericFloat {
			return nil, &SchemaError{Path: "numeric_type", Message: fmt.Sprintf("numeric_type must be one of 'int', 'float'; got %q", a.NumericType)}
		}
		a.Columns = nonNil(a.Columns)
		out = a
	case KindParseDates:
		a := NewParseDates()
		err = json.Unmarshal(raw, (*parseDates)(&a))
		if err == nil && a.OutputFormat != DateISO && a.OutputFormat != DateYear {
			return nil, &SchemaError{Path: "output_format", Message: fmt.Sprintf("output_format must be one of 'iso_date', 'year'; got %q", a.OutputFormat)}
		}
		a.Columns = nonNil(a.Columns)
		out = a
	case KindTrimWhitespace:
		var a TrimWhitespace
		err = json.Unmarshal(raw, (*trimWhitespace)(&a))
		out = a
	case KindDeduplicateRows:
		var a DeduplicateRows
		err = json.Unmarshal(raw, (*deduplicateRows)(&a))
		out = a
	default:
		return nil, &SchemaError{Path: "action", Message: fmt.Sprintf("unknown action %q", *head.Action)}
	}
	if err != nil {
		return nil, fieldError(err)
	}
	return out, nil
}

// nonNullable lists, per action, the fields that may be omitted but not
// set to null. trim_whitespace.columns and deduplicate_rows.subset are
// absent because null selects every column there.
var nonNullable = map[string][]string{
	KindDropColumns:      {"columns"},
	KindRenameColumns:    {"mapping"},
	KindStandardizeNulls: {"null_tokens"},
	KindParseNumeric:     {"columns", "numeric_type", "allow_currency", "allow_thousands_separators", "fix_common_typos"},
	KindParseDates:       {"columns", "day_first", "output_format"},
}

// nullField returns a SchemaError for the first of fields that raw sets to
// null. raw must be a JSON object.
func nullField(raw []byte, fields ...string) *SchemaError {
	if len(fields) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	for _, f := range fields {
		if v, ok := obj[f]; ok && isNull(v) {
			return &SchemaError{Path: f, Message: "field must not be null"}
		}
	}
	return nil
}

// fieldError converts a json decoding failure into a SchemaError naming the
// offending field where encoding/json reports one.
func fieldError(err error) *SchemaError {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return &SchemaError{
			Path:    te.Field,
			Message: fmt.Sprintf("expected %s, got %s", te.Type, te.Value),
		}
	}
	return &SchemaError{Message: err.Error()}
}
