package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"csvclean/internal/config"
	"csvclean/internal/datasource/httpds"
	"csvclean/internal/metrics"
	"csvclean/internal/metrics/datadog"
	"csvclean/internal/metrics/prompush"
	"csvclean/internal/planner"
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

// app carries state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool

	cfg    *config.Config
	issues []config.Issue
	log    *zap.Logger

	metricsOn bool
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "csvclean",
		Short: "Profile and clean messy CSV files",
		Long: `csvclean profiles messy CSV files and cleans them, either with a
conservative deterministic pass or with a cleaning plan. Plans are JSON or
YAML documents, written by hand or generated by an LLM from a profile of the
data, and are validated before anything runs.

Configuration is read from ./csvclean.yaml (or --config), a .env file,
CSVCLEAN_* environment variables and flags, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./csvclean.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.String("output-dir", "", `directory for saved artifacts (default "outputs")`)
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("llm-provider", "", "LLM provider: openai or gemini")
	pf.String("llm-model", "", "LLM model name (provider default when empty)")
	bindFlags(a.v, root, map[string]string{
		"output_dir":   "output-dir",
		"log_level":    "log-level",
		"llm.provider": "llm-provider",
		"llm.model":    "llm-model",
	})

	root.AddCommand(
		newServeCmd(a),
		newProfileCmd(a),
		newValidateCmd(a),
		newPlanCmd(a),
		newCleanCmd(a),
		newVersionCmd(),
	)
	return root
}

// bindFlags binds persistent or local flags of cmd to viper keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		if f == nil {
			panic("unknown flag " + name)
		}
		_ = v.BindPFlag(key, f)
	}
}

// init loads configuration, builds the logger and installs the metrics
// backend. Configuration errors stop the command.
func (a *app) init() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.issues = config.Validate(*cfg)
	if config.HasErrors(a.issues) {
		var msgs []string
		for _, iss := range a.issues {
			if iss.Severity == config.SeverityError {
				msgs = append(msgs, iss.Error())
			}
		}
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}

	if a.log, err = newLogger(a.verbose, cfg.LogLevel); err != nil {
		return err
	}
	for _, iss := range a.issues {
		a.log.Debug("config warning", zap.String("path", iss.Path), zap.String("message", iss.Message))
	}
	return a.setupMetrics()
}

func (a *app) close() {
	if a.metricsOn {
		if err := metrics.Flush(); err != nil {
			a.log.Warn("metrics flush failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func newLogger(verbose bool, level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

func (a *app) setupMetrics() error {
	m := a.cfg.Metrics
	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "", "none":
		a.log.Debug("metrics disabled")
		return nil
	case "prompush":
		b, err = prompush.NewBackend(m.Job, m.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  m.Namespace,
			GlobalTags: []string{"service:" + m.Job},
		})
	default:
		return fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
	if err != nil {
		a.log.Warn("metrics backend unavailable; metrics disabled",
			zap.String("backend", m.Backend), zap.Error(err))
		return nil
	}
	metrics.SetBackend(b)
	a.metricsOn = true
	a.log.Debug("metrics enabled", zap.String("backend", m.Backend))
	return nil
}

func (a *app) httpClient() *httpds.Client {
	return httpds.NewClient(httpds.Config{Timeout: a.cfg.LLM.Timeout, MaxRetries: a.cfg.LLM.MaxRetries})
}

func (a *app) newPlanner(job string) (*planner.Planner, error) {
	l := a.cfg.LLM
	client, err := planner.NewClient(planner.Config{
		Provider:   l.Provider,
		Model:      l.Model,
		APIKey:     l.APIKey(),
		BaseURL:    l.BaseURL,
		Timeout:    l.Timeout,
		MaxRetries: l.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return planner.New(client, planner.WithLogger(a.log), planner.WithJob(job)), nil
}

// exitError carries a process exit code without extra output.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
