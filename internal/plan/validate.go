package plan

// This file adds the semantic validator. Schema decoding guarantees shape;
// Validate catches plan-level inconsistencies and, when the input column set
// is known, simulates how renames and drops evolve it so that references to
// missing columns are flagged before execution.

import (
	"fmt"
	"sort"
	"strings"

	"csvclean/internal/parser/nums"
)

// IssueSeverity represents the severity of a plan issue.
type IssueSeverity string

const (
	// SeverityError indicates a problem that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a problem worth surfacing that leaves the
	// plan executable (the action degrades to a partial no-op).
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the plan (e.g. "actions[1].mapping",
// "validations.ranges[0]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity `json:"-"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Result is the outcome of one Validate call.
type Result struct {
	OK       bool    `json:"ok"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	// FinalColumns is the sorted simulated column set after all actions. It
	// is nil unless the input columns were supplied.
	FinalColumns []string `json:"final_columns"`
}

// ValidationError is returned by EnsureValid when a plan has errors.
type ValidationError struct {
	Errors   []Issue
	Warnings []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "plan validation failed"
	}
	return fmt.Sprintf("plan validation failed: %s (and %d more)", e.Errors[0].Error(), len(e.Errors)-1)
}

// Option configures Validate.
type Option func(*options)

type options struct {
	columns []string
	known   bool
}

// WithColumns supplies the real input column names. Validate then simulates
// the column set across the actions and reports FinalColumns.
func WithColumns(columns []string) Option {
	return func(o *options) {
		o.columns = columns
		o.known = true
	}
}

// Validate checks plan semantics and returns errors and warnings.
//
// It never mutates p. Errors are things that should stop execution;
// warnings flag actions that will partially or fully no-op.
func Validate(p *Plan, opts ...Option) Result {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	var issues []Issue
	if strings.TrimSpace(p.Version) == "" {
		issues = append(issues, errorAt("version", "Version must be a non-empty string"))
	}
	issues = append(issues, validateSpec(p.Validations)...)

	var final []string
	if o.known {
		var simulated []Issue
		final, simulated = simulateColumns(p, o.columns)
		issues = append(issues, simulated...)
	}

	res := Result{Errors: []Issue{}, Warnings: []Issue{}, FinalColumns: final}
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			res.Errors = append(res.Errors, iss)
		} else {
			res.Warnings = append(res.Warnings, iss)
		}
	}
	res.OK = len(res.Errors) == 0
	return res
}

// EnsureValid validates p and returns a *ValidationError carrying every
// error and warning when the plan is not OK.
func EnsureValid(p *Plan, opts ...Option) (Result, error) {
	res := Validate(p, opts...)
	if !res.OK {
		return res, &ValidationError{Errors: res.Errors, Warnings: res.Warnings}
	}
	return res, nil
}

// validateSpec checks the validation rules on their own.
func validateSpec(spec ValidationSpec) []Issue {
	var issues []Issue

	required := make([]string, len(spec.Required))
	for i, r := range spec.Required {
		required[i] = r.Column
	}
	if dupes := findDupes(required); len(dupes) > 0 {
		issues = append(issues, warningAt("validations.required",
			fmt.Sprintf("Duplicate required columns: %s", listRepr(dupes))))
	}

	for i, r := range spec.Ranges {
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			issues = append(issues, errorAt(fmt.Sprintf("validations.ranges[%d]", i),
				fmt.Sprintf("Min (%s) cannot be greater than max (%s) for column '%s'",
					nums.FormatFloat(*r.Min), nums.FormatFloat(*r.Max), r.Column)))
		}
	}

	for i, r := range spec.Enums {
		path := fmt.Sprintf("validations.enums[%d].allowed", i)
		if len(r.Allowed) == 0 {
			issues = append(issues, errorAt(path,
				fmt.Sprintf("Allowed list cannot be empty for column '%s'", r.Column)))
		}
		for _, v := range r.Allowed {
			if strings.TrimSpace(v) == "" {
				issues = append(issues, warningAt(path,
					fmt.Sprintf("Allowed list contains empty/non-string values for column '%s'", r.Column)))
				break
			}
		}
	}
	return issues
}

// columnSet is the working set threaded through the simulation.
type columnSet map[string]struct{}

func (s columnSet) has(c string) bool { _, ok := s[c]; return ok }

// simulateColumns walks the actions in order, mirroring what execution would
// do to the column set, and re-checks the validation rules against the
// final set.
func simulateColumns(p *Plan, input []string) ([]string, []Issue) {
	cols := make(columnSet, len(input))
	for _, c := range input {
		cols[c] = struct{}{}
	}

	var issues []Issue
	for idx, a := range p.Actions {
		at := func(field string) string { return fmt.Sprintf("actions[%d].%s", idx, field) }

		switch a := a.(type) {
		case RenameColumns:
			if len(a.Mapping) == 0 {
				issues = append(issues, warningAt(at("mapping"), "rename_columns mapping is empty"))
				continue
			}
			var targets []string
			for _, pr := range a.Mapping {
				if strings.TrimSpace(pr.To) != "" {
					targets = append(targets, pr.To)
				}
			}
			if dupes := findDupes(targets); len(dupes) > 0 {
				issues = append(issues, warningAt(at("mapping"),
					fmt.Sprintf("Rename mapping has duplicate targets: %s", listRepr(dupes))))
			}
			// Entries are resolved against the columns before the action and
			// applied together, as execution renames in one pass.
			var applied []Pair
			for _, pr := range a.Mapping {
				if strings.TrimSpace(pr.To) == "" {
					issues = append(issues, errorAt(at("mapping"),
						fmt.Sprintf("Rename target for '%s' must be a non-empty string", pr.From)))
					continue
				}
				if !cols.has(pr.From) {
					issues = append(issues, warningAt(at("mapping"),
						fmt.Sprintf("Rename source column '%s' not found in current columns", pr.From)))
					continue
				}
				applied = append(applied, pr)
			}
			for _, pr := range applied {
				delete(cols, pr.From)
			}
			for _, pr := range applied {
				cols[pr.To] = struct{}{}
			}

		case DropColumns:
			if len(a.Columns) == 0 {
				issues = append(issues, warningAt(at("columns"), "drop_columns has empty columns list"))
			}
			for _, c := range a.Columns {
				if !cols.has(c) {
					issues = append(issues, warningAt(at("columns"),
						fmt.Sprintf("drop_columns references missing column '%s'", c)))
					continue
				}
				delete(cols, c)
			}

		case TrimWhitespace:
			if a.Columns.IsAll() {
				continue
			}
			names := a.Columns.Names()
			if len(names) == 0 {
				issues = append(issues, warningAt(at("columns"), "trim_whitespace has empty columns list"))
			}
			issues = append(issues, missingRefs(cols, names, at("columns"), "trim_whitespace references missing column '%s'")...)

		case StandardizeNulls:
			// No column references.

		case ParseNumeric:
			if len(a.Columns) == 0 {
				issues = append(issues, warningAt(at("columns"), "parse_numeric has empty columns list"))
			}
			issues = append(issues, missingRefs(cols, a.Columns, at("columns"), "parse_numeric references missing column '%s'")...)

		case ParseDates:
			if len(a.Columns) == 0 {
				issues = append(issues, warningAt(at("columns"), "parse_dates has empty columns list"))
			}
			issues = append(issues, missingRefs(cols, a.Columns, at("columns"), "parse_dates references missing column '%s'")...)

		case DeduplicateRows:
			if a.Subset.IsAll() {
				continue
			}
			names := a.Subset.Names()
			if len(names) == 0 {
				issues = append(issues, warningAt(at("subset"), "deduplicate_rows has empty subset list"))
			}
			issues = append(issues, missingRefs(cols, names, at("subset"), "deduplicate_rows subset references missing column '%s'")...)

		default:
			issues = append(issues, errorAt(at("action"), fmt.Sprintf("unknown action '%s'", a.Kind())))
		}
	}

	for _, r := range p.Validations.Required {
		if !cols.has(r.Column) {
			issues = append(issues, warningAt("validations.required",
				fmt.Sprintf("required column '%s' not present after actions (may fail at runtime validation)", r.Column)))
		}
	}
	for _, r := range p.Validations.Ranges {
		if !cols.has(r.Column) {
			issues = append(issues, warningAt("validations.ranges",
				fmt.Sprintf("range rule column '%s' not present after actions (will be skipped/fail at runtime)", r.Column)))
		}
	}
	for _, r := range p.Validations.Enums {
		if !cols.has(r.Column) {
			issues = append(issues, warningAt("validations.enums",
				fmt.Sprintf("Enum rule column '%s' not present after actions (will be skipped/fail at runtime)", r.Column)))
		}
	}

	final := make([]string, 0, len(cols))
	for c := range cols {
		final = append(final, c)
	}
	sort.Strings(final)
	return final, issues
}

func missingRefs(cols columnSet, names []string, path, format string) []Issue {
	var issues []Issue
	for _, c := range names {
		if !cols.has(c) {
			issues = append(issues, warningAt(path, fmt.Sprintf(format, c)))
		}
	}
	return issues
}

func errorAt(path, msg string) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: msg}
}

func warningAt(path, msg string) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: msg}
}

// findDupes returns the sorted values that occur more than once.
func findDupes(items []string) []string {
	seen := make(map[string]int, len(items))
	for _, x := range items {
		seen[x]++
	}
	var dupes []string
	for x, n := range seen {
		if n > 1 {
			dupes = append(dupes, x)
		}
	}
	sort.Strings(dupes)
	return dupes
}

// listRepr renders names as ['a', 'b'].
func listRepr(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
