// Package executor applies a validated plan to a dataset and produces an
// execution report.
//
// Actions run in order against immutable dataset snapshots. Each action
// leaves an Outcome record in the report, and the plan's validation rules
// are checked once all actions have run.
package executor

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"csvclean/internal/dataset"
	"csvclean/internal/metrics"
	"csvclean/internal/plan"
	"csvclean/internal/transformer/builtin"
)

// WarningPlanValidation tags warnings copied from the semantic validator.
const WarningPlanValidation = "plan_validation"

// Report summarizes one execution.
type Report struct {
	PlanVersion    string              `json:"plan_version"`
	Summary        string              `json:"summary"`
	ActionsApplied []Outcome           `json:"actions_applied"`
	Warnings       []Warning           `json:"warnings"`
	Validations    builtin.Validations `json:"validations"`
}

// Warning is a non-fatal note attached to a report.
type Warning struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// AddPlanWarnings appends validator warnings to the report.
func (r *Report) AddPlanWarnings(issues []plan.Issue) {
	for _, is := range issues {
		r.Warnings = append(r.Warnings, Warning{
			Type:    WarningPlanValidation,
			Path:    is.Path,
			Message: is.Message,
		})
	}
}

// ExecutionError reports an action the executor cannot apply.
type ExecutionError struct {
	Index  int
	Action string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("unknown action: %s", e.Action)
}

// Executor runs plans. The zero value is not usable; call New.
type Executor struct {
	log *zap.Logger
	job string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithJob sets the job label used for metrics and log fields.
func WithJob(job string) Option {
	return func(e *Executor) { e.job = job }
}

// New returns an Executor with a no-op logger and job "csvclean" unless
// overridden.
func New(opts ...Option) *Executor {
	e := &Executor{log: zap.NewNop(), job: "csvclean"}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute runs p against ds with a default Executor.
func Execute(ds *dataset.Dataset, p *plan.Plan) (*dataset.Dataset, *Report, error) {
	return New().Execute(ds, p)
}

// Execute applies every action of p to a copy of ds, in order, then checks
// the plan's validations against the result.
//
// On an *ExecutionError the dataset reached so far and a report holding the
// actions applied before the failure are returned with the error. Earlier
// actions are not rolled back and validations are not run.
func (e *Executor) Execute(ds *dataset.Dataset, p *plan.Plan) (*dataset.Dataset, *Report, error) {
	report := &Report{
		PlanVersion:    p.Version,
		Summary:        p.Summary,
		ActionsApplied: []Outcome{},
		Warnings:       []Warning{},
	}
	log := e.log.With(zap.String("job", e.job))
	started := time.Now()

	out := ds
	for i, a := range p.Actions {
		t0 := time.Now()
		next, outcome, ok := apply(out, a)
		if !ok {
			err := &ExecutionError{Index: i, Action: a.Kind()}
			metrics.RecordStep(e.job, a.Kind(), err, time.Since(t0))
			log.Error("plan action failed",
				zap.Int("index", i),
				zap.String("action", a.Kind()),
				zap.Error(err))
			if out == ds {
				out = ds.Clone()
			}
			return out, report, err
		}
		metrics.RecordStep(e.job, a.Kind(), nil, time.Since(t0))
		if d, ok := outcome.(DedupOutcome); ok {
			metrics.RecordRow(e.job, "deduplicated", int64(d.DroppedRows))
		}
		log.Debug("plan action applied",
			zap.Int("index", i),
			zap.String("action", a.Kind()),
			zap.Int("rows", next.Len()),
			zap.Int("columns", next.Width()),
			zap.Duration("duration", time.Since(t0)))
		report.ActionsApplied = append(report.ActionsApplied, outcome)
		out = next
	}
	if out == ds {
		out = ds.Clone()
	}

	report.Validations = builtin.CheckValidations(out, p.Validations)
	log.Info("plan executed",
		zap.String("plan_version", p.Version),
		zap.Int("actions", len(p.Actions)),
		zap.Int("rows", out.Len()),
		zap.Duration("duration", time.Since(started)))
	return out, report, nil
}

// apply runs one action and returns the new snapshot with its outcome.
// It reports false for an action type it does not know.
func apply(ds *dataset.Dataset, a plan.Action) (*dataset.Dataset, Outcome, bool) {
	kind := a.Kind()
	switch a := a.(type) {
	case plan.TrimWhitespace:
		seen := append([]string{}, ds.Columns...)
		return builtin.Trim{Columns: a.Columns}.Apply(ds),
			TrimOutcome{Action: kind, Columns: a.Columns, ColumnsSeen: seen}, true

	case plan.StandardizeNulls:
		return builtin.Nulls{Tokens: a.NullTokens}.Apply(ds),
			NullsOutcome{Action: kind, NullTokens: strs(a.NullTokens)}, true

	case plan.RenameColumns:
		out, applied := builtin.Rename{Mapping: a.Mapping}.Run(ds)
		return out, RenameOutcome{Action: kind, Mapping: a.Mapping, Applied: applied}, true

	case plan.DropColumns:
		out, dropped := builtin.Drop{Columns: a.Columns}.Run(ds)
		return out, DropOutcome{Action: kind, Columns: strs(a.Columns), Dropped: dropped}, true

	case plan.ParseNumeric:
		out, stats := builtin.NumericFrom(a).Run(ds)
		return out, NumericOutcome{Action: kind, Columns: strs(a.Columns), Stats: stats}, true

	case plan.ParseDates:
		out, stats := builtin.DatesFrom(a).Run(ds)
		return out, DatesOutcome{Action: kind, Columns: strs(a.Columns), Stats: stats}, true

	case plan.DeduplicateRows:
		out, dropped := builtin.DeDup{Subset: a.Subset}.Run(ds)
		return out, DedupOutcome{Action: kind, Subset: a.Subset, DroppedRows: dropped}, true
	}
	return ds, nil, false
}

func strs(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
