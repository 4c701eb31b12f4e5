package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"csvclean/internal/datasource/httpds"
)

// snippetLen bounds the raw response quoted in JSON parse errors.
const snippetLen = 500

// Client asks a language model for a single JSON object.
type Client interface {
	GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error)
}

// LLMError reports a failed model call: missing credentials, a transport
// or provider error, an empty answer or an answer that is not JSON.
type LLMError struct {
	Msg string
	Err error
}

func (e *LLMError) Error() string { return e.Msg }
func (e *LLMError) Unwrap() error { return e.Err }

// Config selects and configures a provider.
type Config struct {
	Provider   string // "openai" (default) or "gemini"
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient builds the client for cfg.Provider.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		hc := httpds.NewClient(httpds.Config{Timeout: cfg.Timeout, MaxRetries: cfg.MaxRetries})
		return NewOpenAIClient(hc, cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case ProviderGemini:
		return NewGeminiClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// decodeObject checks that content is JSON and returns it trimmed.
func decodeObject(provider, content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &LLMError{Msg: provider + " returned empty response"}
	}
	var probe any
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		snippet := content
		if len(snippet) > snippetLen {
			snippet = snippet[:snippetLen]
		}
		return nil, &LLMError{
			Msg: fmt.Sprintf("Failed to parse json: %v. Raw response starts with: %s", err, snippet),
			Err: err,
		}
	}
	return json.RawMessage(content), nil
}
