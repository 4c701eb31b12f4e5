package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csvclean/internal/artifacts"
	"csvclean/internal/basicclean"
	"csvclean/internal/dataset"
	"csvclean/internal/executor"
	"csvclean/internal/metrics"
	"csvclean/internal/plan"
	"csvclean/internal/profile"
	"csvclean/internal/storage"
)

type cleanOptions struct {
	planPath string
	llm      bool
	basic    bool
	out      string
	save     bool
	export   bool
	table    string
}

// cleanReport is printed on stdout and, with --save, stored as the report
// artifact.
type cleanReport struct {
	JobID           string            `json:"job_id"`
	Filename        string            `json:"filename"`
	CleaningMode    string            `json:"cleaning_mode"`
	CleanStats      *basicclean.Stats `json:"clean_stats,omitempty"`
	Plan            *plan.Plan        `json:"plan,omitempty"`
	ExecutionReport *executor.Report  `json:"execution_report,omitempty"`
	Before          *profile.Profile  `json:"before"`
	After           *profile.Profile  `json:"after"`
	Artifacts       *artifacts.Paths  `json:"artifacts,omitempty"`
	Export          *exportResult     `json:"export,omitempty"`
}

type exportResult struct {
	Kind  string `json:"kind"`
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

func newCleanCmd(a *app) *cobra.Command {
	var o cleanOptions
	cmd := &cobra.Command{
		Use:   "clean <csv|url>",
		Short: "Clean a CSV with the basic pass, a plan file or an LLM plan",
		Long: `Clean a CSV and print a JSON report.

  --plan FILE   run a JSON or YAML plan
  --llm         ask the configured LLM for a plan, then run it
  --basic       run the deterministic basic pass; combined with --plan or
                --llm it runs first and the plan sees its output

Without --plan or --llm only the basic pass runs. Plans are validated
against the input columns before execution and nothing runs when they have
errors.

  --out FILE    write the cleaned CSV ("-" for stdout, which suppresses the report)
  --save        save the cleaned CSV, report and plan under the output directory
  --export      load the cleaned rows into the configured storage backend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.planPath != "" && o.llm {
				return errors.New("use either --plan or --llm, not both")
			}
			return a.clean(background(cmd), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.planPath, "plan", "", "plan file (.json, .yaml or .yml)")
	f.BoolVar(&o.llm, "llm", false, "generate the plan with the configured LLM")
	f.BoolVar(&o.basic, "basic", false, "run the basic cleaning pass")
	f.StringVarP(&o.out, "out", "o", "", "write the cleaned CSV to this file")
	f.BoolVar(&o.save, "save", false, "save artifacts under the output directory")
	f.BoolVar(&o.export, "export", false, "export the cleaned rows to the configured storage")
	f.StringVar(&o.table, "table", "", "export table (default storage.table, or one named after the job id)")
	f.String("storage-kind", "", "storage backend for --export: postgres, sqlite or mssql")
	f.String("storage-dsn", "", "storage DSN for --export")
	bindFlags(a.v, cmd, map[string]string{
		"storage.kind": "storage-kind",
		"storage.dsn":  "storage-dsn",
	})
	return cmd
}

func (a *app) clean(ctx context.Context, stdout, stderr io.Writer, loc string, o cleanOptions) (err error) {
	jobID := artifacts.NewJobID()
	job := a.cfg.Metrics.Job
	start := time.Now()
	defer func() { metrics.RecordStep(job, "clean", err, time.Since(start)) }()

	in, err := a.load(ctx, loc)
	if err != nil {
		return err
	}
	metrics.RecordRow(job, "read", int64(in.Data.Len()))
	before, err := profile.Build(in.Data, in.Name)
	if err != nil {
		return err
	}

	rep := cleanReport{JobID: jobID, Filename: in.Name, Before: before}
	usePlan := o.planPath != "" || o.llm

	cleaned := in.Data
	if o.basic || !usePlan {
		var stats basicclean.Stats
		cleaned, stats = basicclean.Clean(cleaned)
		rep.CleaningMode = "basic"
		rep.CleanStats = &stats
	}

	if usePlan {
		var p *plan.Plan
		if o.planPath != "" {
			if p, err = readPlanFile(o.planPath); err != nil {
				return err
			}
			rep.CleaningMode = joinMode(rep.CleaningMode, "plan")
		} else {
			pl, err := a.newPlanner(job)
			if err != nil {
				return err
			}
			prof, err := profile.Build(cleaned, in.Name)
			if err != nil {
				return err
			}
			if p, err = pl.Generate(ctx, prof); err != nil {
				return fmt.Errorf("planning failed: %w", err)
			}
			rep.CleaningMode = joinMode(rep.CleaningMode, "llm")
		}

		res, err := plan.EnsureValid(p, plan.WithColumns(cleaned.Columns))
		if err != nil {
			printIssues(stderr, res.Errors)
			printIssues(stderr, res.Warnings)
			return err
		}

		exec := executor.New(executor.WithLogger(a.log), executor.WithJob(job))
		out, er, err := exec.Execute(cleaned, p)
		if err != nil {
			return fmt.Errorf("execution failed: %w", err)
		}
		er.AddPlanWarnings(res.Warnings)
		cleaned = out
		rep.Plan = p
		rep.ExecutionReport = er
	}

	if rep.After, err = profile.Build(cleaned, in.Name); err != nil {
		// Every column may have been dropped; report the empty shape.
		if !errors.Is(err, profile.ErrNoColumns) {
			return err
		}
		rep.After = &profile.Profile{Filename: in.Name}
	}

	if o.save {
		store, err := artifacts.NewStore(a.cfg.OutputDir, a.log)
		if err != nil {
			return err
		}
		paths, err := store.Save(ctx, artifacts.Job{ID: jobID, Cleaned: cleaned, Report: rep, Plan: rep.Plan})
		if err != nil {
			return err
		}
		rep.Artifacts = &paths
	}

	if o.export {
		res, err := a.export(ctx, jobID, cleaned, rep.Plan, o.table)
		if err != nil {
			return err
		}
		rep.Export = res
	}

	if o.out != "" {
		if err := writeCSV(stdout, o.out, cleaned); err != nil {
			return err
		}
		metrics.RecordRow(job, "written", int64(cleaned.Len()))
		if o.out == "-" {
			return nil
		}
	}

	a.log.Info("clean finished",
		zap.String("job_id", jobID),
		zap.String("mode", rep.CleaningMode),
		zap.Int("rows_in", in.Data.Len()),
		zap.Int("rows_out", cleaned.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return writeJSON(stdout, rep)
}

func joinMode(prev, next string) string {
	if prev == "" {
		return next
	}
	return prev + "+" + next
}

func writeCSV(stdout io.Writer, path string, ds *dataset.Dataset) error {
	if path == "-" {
		return ds.WriteCSV(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ds.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// export loads ds into the configured storage backend, deriving column
// types from p when there is one.
func (a *app) export(ctx context.Context, jobID string, ds *dataset.Dataset, p *plan.Plan, table string) (*exportResult, error) {
	sc := a.cfg.Storage
	if sc.Kind == "" {
		return nil, errors.New("export: storage.kind is not configured")
	}
	if table == "" {
		table = sc.Table
	}
	if table == "" {
		table = "clean_" + jobID
	}

	d, err := storage.DialectFor(sc.Kind)
	if err != nil {
		return nil, err
	}
	repo, err := storage.New(ctx, storage.Config{Kind: sc.Kind, DSN: sc.DSN, Table: table})
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", sc.Kind, err)
	}
	defer repo.Close()

	n, err := storage.Export(ctx, repo, d, table, ds, storage.ColumnsFromPlan(ds, p), sc.BatchSize, a.log)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	a.log.Info("export finished",
		zap.String("kind", sc.Kind),
		zap.String("table", table),
		zap.Int64("rows", n))
	return &exportResult{Kind: sc.Kind, Table: table, Rows: n}, nil
}
