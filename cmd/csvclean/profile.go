package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csvclean/internal/datasource/file"
	"csvclean/internal/profile"
)

func newProfileCmd(a *app) *cobra.Command {
	var (
		listPath string
		peek     int
	)
	cmd := &cobra.Command{
		Use:   "profile [csv|url]...",
		Short: "Print a JSON profile of one or more CSV files",
		Long: `Print a JSON profile (shape, columns, missingness, duplicate rows, preview
rows and inferred types) for each location. Locations are local paths or
http(s) URLs. With --list, locations are also read from a file, one per
line. With --peek N only the first N bytes are read, which profiles a sample
of a large remote file without downloading it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			locs := append([]string{}, args...)
			if listPath != "" {
				more, err := file.ReadList(listPath)
				if err != nil {
					return fmt.Errorf("read list: %w", err)
				}
				locs = append(locs, more...)
			}
			if len(locs) == 0 {
				return errors.New("profile: no locations given")
			}

			ctx := background(cmd)
			var out []*profile.Profile
			for _, loc := range locs {
				var (
					in  *input
					err error
				)
				if peek > 0 {
					in, err = a.peek(ctx, loc, peek)
				} else {
					in, err = a.load(ctx, loc)
				}
				if err != nil {
					return err
				}
				p, err := profile.Build(in.Data, in.Name)
				if err != nil {
					return fmt.Errorf("%s: %w", loc, err)
				}
				a.log.Debug("profiled",
					zap.String("location", loc),
					zap.Int("rows", p.Shape.Rows),
					zap.Int("columns", p.Shape.Columns))
				out = append(out, p)
			}

			if len(out) == 1 {
				return writeJSON(cmd.OutOrStdout(), out[0])
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&listPath, "list", "", "file with one CSV location per line")
	cmd.Flags().IntVar(&peek, "peek", 0, "profile only the first N bytes of each location")
	return cmd
}
