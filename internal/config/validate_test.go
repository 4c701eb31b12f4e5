package config

import (
	"strings"
	"testing"
	"time"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validConfig() Config {
	return Config{
		Server:    Server{Addr: ":8000", MaxUploadBytes: 1 << 20, PreviewRows: 20},
		OutputDir: "outputs",
		LogLevel:  "info",
		LLM: LLM{
			Provider:     "openai",
			Timeout:      time.Minute,
			MaxRetries:   2,
			OpenAIAPIKey: "sk-test",
		},
		Metrics: Metrics{Backend: "none"},
	}
}

/*
TestValidate_ValidMinimal verifies that a well-formed config produces no
issues (errors or warnings).
*/
func TestValidate_ValidMinimal(t *testing.T) {
	if issues := Validate(validConfig()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidate_TopLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Addr = " "
	cfg.Server.MaxUploadBytes = 0
	cfg.OutputDir = ""
	cfg.LogLevel = "loud"

	issues := Validate(cfg)
	for _, want := range []struct{ path, msg string }{
		{"server.addr", "must not be empty"},
		{"server.max_upload_bytes", "must be > 0"},
		{"output_dir", "must not be empty"},
		{"log_level", `unknown log level "loud"`},
	} {
		if !hasIssue(t, issues, SeverityError, want.path, want.msg) {
			t.Fatalf("missing error at %s; got %+v", want.path, issues)
		}
	}
	if !HasErrors(issues) {
		t.Fatalf("HasErrors = false")
	}
}

/*
TestValidate_LLM verifies provider checks and that a missing API key is a
warning naming the provider's environment variable.
*/
func TestValidate_LLM(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*LLM)
		sev  IssueSeverity
		path string
		msg  string
	}{
		{"unknown provider", func(l *LLM) { l.Provider = "claude" }, SeverityError, "llm.provider", `unknown llm provider "claude"`},
		{"missing openai key", func(l *LLM) { l.OpenAIAPIKey = "" }, SeverityWarning, "llm.api_key", "OPENAI_API_KEY"},
		{"missing gemini key", func(l *LLM) { l.Provider = "gemini" }, SeverityWarning, "llm.api_key", "GEMINI_API_KEY"},
		{"relative base url", func(l *LLM) { l.BaseURL = "/v1" }, SeverityError, "llm.base_url", "not an absolute URL"},
		{"negative timeout", func(l *LLM) { l.Timeout = -time.Second }, SeverityError, "llm.timeout", ">= 0"},
		{"negative retries", func(l *LLM) { l.MaxRetries = -1 }, SeverityError, "llm.max_retries", ">= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mut(&cfg.LLM)
			issues := Validate(cfg)
			if !hasIssue(t, issues, tt.sev, tt.path, tt.msg) {
				t.Fatalf("want %s at %s containing %q; got %+v", tt.sev, tt.path, tt.msg, issues)
			}
		})
	}

	cfg := validConfig()
	cfg.LLM.OpenAIAPIKey = ""
	if HasErrors(Validate(cfg)) {
		t.Fatalf("missing key must not be an error")
	}
}

func TestValidate_Metrics(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Backend = "prompush"
	if !hasIssue(t, Validate(cfg), SeverityError, "metrics.pushgateway_url", "required") {
		t.Fatalf("prompush without URL should error")
	}
	cfg.Metrics.PushgatewayURL = "http://localhost:9091"
	if issues := Validate(cfg); len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}

	cfg.Metrics.Backend = "datadog"
	if !hasIssue(t, Validate(cfg), SeverityError, "metrics.datadog_addr", "required") {
		t.Fatalf("datadog without addr should error")
	}

	cfg.Metrics.Backend = "graphite"
	if !hasIssue(t, Validate(cfg), SeverityError, "metrics.backend", `unknown metrics backend "graphite"`) {
		t.Fatalf("unknown backend should error")
	}
}

/*
TestValidate_Storage verifies that storage is only linted when a kind is
set, and that an empty table is a warning rather than an error.
*/
func TestValidate_Storage(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = Storage{DSN: "ignored"}
	if issues := Validate(cfg); len(issues) != 0 {
		t.Fatalf("disabled storage should not be linted: %+v", issues)
	}

	cfg.Storage = Storage{Kind: "oracle"}
	issues := Validate(cfg)
	if !hasIssue(t, issues, SeverityError, "storage.kind", `unknown storage kind "oracle"`) ||
		!hasIssue(t, issues, SeverityError, "storage.dsn", "must not be empty") ||
		!hasIssue(t, issues, SeverityError, "storage.batch_size", "must be > 0") ||
		!hasIssue(t, issues, SeverityWarning, "storage.table", "job id") {
		t.Fatalf("got issues: %+v", issues)
	}

	cfg.Storage = Storage{Kind: "sqlite", DSN: "file:x.db", Table: "t", BatchSize: 100}
	if issues := Validate(cfg); len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func TestIssue_Error(t *testing.T) {
	iss := Issue{Severity: SeverityError, Path: "storage.dsn", Message: "boom"}
	if got, want := iss.Error(), "error at storage.dsn: boom"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
