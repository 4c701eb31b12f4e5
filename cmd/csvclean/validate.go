package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"csvclean/internal/plan"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		columns []string
		csvPath string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "validate <plan.json|plan.yaml>",
		Short: "Check a cleaning plan without running it",
		Long: `Decode a plan and run the semantic validator. With --columns or --csv the
column set is simulated across the actions, so references to missing
columns are reported. Exits non-zero when the plan has errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(columns) > 0 && csvPath != "" {
				return fmt.Errorf("use either --columns or --csv, not both")
			}
			p, err := readPlanFile(args[0])
			if err != nil {
				return err
			}

			var opts []plan.Option
			switch {
			case csvPath != "":
				in, err := a.load(background(cmd), csvPath)
				if err != nil {
					return err
				}
				opts = append(opts, plan.WithColumns(in.Data.Columns))
			case len(columns) > 0:
				for i := range columns {
					columns[i] = strings.TrimSpace(columns[i])
				}
				opts = append(opts, plan.WithColumns(columns))
			}

			res := plan.Validate(p, opts...)
			w := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(w, res); err != nil {
					return err
				}
			} else {
				printIssues(w, res.Errors)
				printIssues(w, res.Warnings)
				if res.FinalColumns != nil {
					fmt.Fprintf(w, "final columns: %s\n", strings.Join(res.FinalColumns, ", "))
				}
				if res.OK {
					fmt.Fprintf(w, "plan is valid: %s\n", args[0])
				}
			}
			if !res.OK {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "input column names, comma separated")
	cmd.Flags().StringVar(&csvPath, "csv", "", "read input column names from this CSV")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the validation result as JSON")
	return cmd
}
