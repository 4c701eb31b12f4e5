package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csvclean/internal/artifacts"
	"csvclean/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Uploaded files are profiled, cleaned and saved under
the output directory; saved jobs are served back under /jobs/<job_id>.

Open http://<addr>/ in a browser for a small upload form.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, iss := range a.issues {
				a.log.Warn("config warning", zap.String("path", iss.Path), zap.String("message", iss.Message))
			}

			store, err := artifacts.NewStore(a.cfg.OutputDir, a.log)
			if err != nil {
				return err
			}
			pl, err := a.newPlanner(a.cfg.Metrics.Job)
			if err != nil {
				return err
			}
			srv := server.New(server.Config{
				Addr:           a.cfg.Server.Addr,
				MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
				PreviewRows:    a.cfg.Server.PreviewRows,
				Job:            a.cfg.Metrics.Job,
			}, store, pl, a.log)

			ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", `listen address (default ":8000")`)
	cmd.Flags().Int64("max-upload-bytes", 0, "largest accepted upload")
	bindFlags(a.v, cmd, map[string]string{
		"server.addr":             "addr",
		"server.max_upload_bytes": "max-upload-bytes",
	})
	return cmd
}

// background returns cmd's context, which is nil when a command is invoked
// outside Execute.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
