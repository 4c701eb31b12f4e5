package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csvclean/internal/artifacts"
	"csvclean/internal/plan"
	"csvclean/internal/profile"
)

func newPlanCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "plan <csv|url>",
		Short: "Ask the LLM for a cleaning plan and print it",
		Long: `Profile the file, ask the configured LLM for a cleaning plan, validate it
against the file's columns and print it as JSON. The data is not modified.
With --save the plan is also written to <output-dir>/plans/<job_id>.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := background(cmd)
			in, err := a.load(ctx, args[0])
			if err != nil {
				return err
			}
			prof, err := profile.Build(in.Data, in.Name)
			if err != nil {
				return err
			}

			jobID := artifacts.NewJobID()
			pl, err := a.newPlanner(a.cfg.Metrics.Job)
			if err != nil {
				return err
			}
			p, err := pl.Generate(ctx, prof)
			if err != nil {
				return fmt.Errorf("planning failed: %w", err)
			}

			res, err := plan.EnsureValid(p, plan.WithColumns(in.Data.Columns))
			if err != nil {
				printIssues(cmd.ErrOrStderr(), res.Errors)
				printIssues(cmd.ErrOrStderr(), res.Warnings)
				return err
			}
			printIssues(cmd.ErrOrStderr(), res.Warnings)

			if save {
				store, err := artifacts.NewStore(a.cfg.OutputDir, a.log)
				if err != nil {
					return err
				}
				paths, err := store.Save(ctx, artifacts.Job{ID: jobID, Plan: p})
				if err != nil {
					return err
				}
				a.log.Info("plan saved", zap.String("job_id", jobID), zap.String("path", paths.PlanJSON))
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save the plan under the output directory")
	return cmd
}
