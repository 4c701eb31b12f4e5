// Package planner turns a dataset profile into a cleaning plan by asking a
// language model for a JSON plan document and decoding it with the plan
// schema.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"csvclean/internal/metrics"
	"csvclean/internal/plan"
	"csvclean/internal/profile"
)

// PlanError reports that no usable plan could be generated.
type PlanError struct {
	Msg string
	Err error
}

func (e *PlanError) Error() string { return e.Msg }
func (e *PlanError) Unwrap() error { return e.Err }

// Planner generates plans through a Client.
type Planner struct {
	client Client
	log    *zap.Logger
	job    string
}

type Option func(*Planner)

func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

// WithJob labels metrics and logs.
func WithJob(job string) Option {
	return func(p *Planner) { p.job = job }
}

func New(client Client, opts ...Option) *Planner {
	p := &Planner{client: client, log: zap.NewNop(), job: "csvclean"}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Model names the model behind the client, or "" when the client does not
// say.
func (p *Planner) Model() string {
	if m, ok := p.client.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

// Generate asks the model for a plan for prof. The result is schema-valid;
// semantic validation against the columns is left to the caller.
func (p *Planner) Generate(ctx context.Context, prof *profile.Profile) (pl *plan.Plan, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(p.job, "generate_plan", err, time.Since(start)) }()

	prompt, err := BuildPrompt(prof)
	if err != nil {
		return nil, &PlanError{Msg: err.Error(), Err: err}
	}

	raw, err := p.client.GenerateJSON(ctx, prompt.System, prompt.User)
	if err != nil {
		p.log.Warn("llm call failed", zap.String("job", p.job), zap.Error(err))
		var le *LLMError
		if errors.As(err, &le) {
			return nil, &PlanError{Msg: le.Msg, Err: err}
		}
		return nil, &PlanError{Msg: err.Error(), Err: err}
	}

	pl, err = plan.Parse(raw)
	if err != nil {
		p.log.Warn("llm returned invalid plan", zap.String("job", p.job), zap.Error(err))
		return nil, &PlanError{Msg: fmt.Sprintf("LLM returned invalid plan schema: %v", err), Err: err}
	}

	p.log.Info("plan generated",
		zap.String("job", p.job),
		zap.Int("actions", len(pl.Actions)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return pl, nil
}
