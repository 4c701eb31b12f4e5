package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block startup.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block startup.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single lint finding. Path is a dotted key into the config,
// e.g. "storage.dsn".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate lints cfg without mutating it.
func Validate(cfg Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		issues = append(issues, errorAt("server.addr", "server.addr must not be empty"))
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		issues = append(issues, errorAt("server.max_upload_bytes", "server.max_upload_bytes must be > 0"))
	}
	if cfg.Server.PreviewRows < 0 {
		issues = append(issues, errorAt("server.preview_rows", "server.preview_rows must be >= 0"))
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		issues = append(issues, errorAt("output_dir", "output_dir must not be empty"))
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, errorAt("log_level",
			fmt.Sprintf("unknown log level %q; use debug, info, warn or error", cfg.LogLevel)))
	}

	issues = append(issues, validateLLM(cfg.LLM)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateStorage(cfg.Storage)...)
	return issues
}

func validateLLM(l LLM) []Issue {
	var issues []Issue

	var keyVar string
	switch l.Provider {
	case "openai":
		keyVar = "OPENAI_API_KEY"
	case "gemini":
		keyVar = "GEMINI_API_KEY"
	default:
		return append(issues, errorAt("llm.provider",
			fmt.Sprintf("unknown llm provider %q; use openai or gemini", l.Provider)))
	}
	if strings.TrimSpace(l.APIKey()) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "llm.api_key",
			Message:  keyVar + " is not set; planning requests will fail",
		})
	}
	if l.BaseURL != "" {
		if u, err := url.Parse(l.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, errorAt("llm.base_url", fmt.Sprintf("llm.base_url %q is not an absolute URL", l.BaseURL)))
		}
	}
	if l.Timeout < 0 {
		issues = append(issues, errorAt("llm.timeout", "llm.timeout must be >= 0"))
	}
	if l.MaxRetries < 0 {
		issues = append(issues, errorAt("llm.max_retries", "llm.max_retries must be >= 0"))
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "prompush":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, errorAt("metrics.pushgateway_url",
				"metrics.pushgateway_url is required for the prompush backend"))
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, errorAt("metrics.datadog_addr",
				"metrics.datadog_addr is required for the datadog backend"))
		}
	default:
		issues = append(issues, errorAt("metrics.backend",
			fmt.Sprintf("unknown metrics backend %q; use none, prompush or datadog", m.Backend)))
	}
	return issues
}

// validateStorage only applies when export is enabled.
func validateStorage(s Storage) []Issue {
	var issues []Issue
	if s.Kind == "" {
		return nil
	}

	known := map[string]struct{}{
		"postgres": {},
		"sqlite":   {},
		"mssql":    {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, errorAt("storage.kind",
			fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind)))
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, errorAt("storage.dsn", "storage.dsn must not be empty"))
	}
	if strings.TrimSpace(s.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.table",
			Message:  "storage.table is empty; a table named after the job id is used",
		})
	}
	if s.BatchSize <= 0 {
		issues = append(issues, errorAt("storage.batch_size", "storage.batch_size must be > 0"))
	}
	return issues
}

func errorAt(path, msg string) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: msg}
}
