package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"csvclean/internal/datasource/httpds"
)

const (
	ProviderOpenAI = "openai"

	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// planTemperature keeps plans close to deterministic.
	planTemperature = 0.2
)

// OpenAIClient calls the chat completions endpoint in JSON mode.
type OpenAIClient struct {
	http    *httpds.Client
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAIClient returns a client posting through hc. Empty model and
// baseURL take the defaults.
func NewOpenAIClient(hc *httpds.Client, apiKey, model, baseURL string) *OpenAIClient {
	if hc == nil {
		hc = httpds.NewClient(httpds.Config{})
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIClient{http: hc, apiKey: apiKey, model: model, baseURL: strings.TrimRight(baseURL, "/")}
}

// Model returns the model name sent with each request.
func (c *OpenAIClient) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []chatMessage     `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, &LLMError{Msg: "Missing OPENAI_API_KEY env var"}
	}

	req := chatRequest{
		Model:          c.model,
		Temperature:    planTemperature,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	hdr := http.Header{"Authorization": {"Bearer " + c.apiKey}}
	body, err := c.http.PostJSON(ctx, c.baseURL+"/chat/completions", req, hdr)
	if err != nil {
		return nil, &LLMError{Msg: fmt.Sprintf("OpenAI request failed: %v", err), Err: err}
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &LLMError{Msg: fmt.Sprintf("OpenAI request failed: decode response: %v", err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &LLMError{Msg: "OpenAI returned empty response"}
	}
	return decodeObject("OpenAI", resp.Choices[0].Message.Content)
}
