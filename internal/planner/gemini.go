package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

const (
	ProviderGemini = "gemini"

	DefaultGeminiModel = "gemini-2.0-flash"
)

// GeminiClient calls the Gemini API with a JSON response MIME type.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
}

// NewGeminiClient returns a Gemini client. baseURL overrides the API
// endpoint and is empty in production.
func NewGeminiClient(apiKey, model, baseURL string) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{apiKey: apiKey, model: model, baseURL: baseURL}
}

func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, &LLMError{Msg: "Missing GEMINI_API_KEY env var"}
	}

	cc := &genai.ClientConfig{APIKey: c.apiKey, Backend: genai.BackendGeminiAPI}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &LLMError{Msg: fmt.Sprintf("Gemini request failed: %v", err), Err: err}
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](planTemperature),
		ResponseMIMEType:  "application/json",
	}
	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(user), cfg)
	if err != nil {
		return nil, &LLMError{Msg: fmt.Sprintf("Gemini request failed: %v", err), Err: err}
	}
	return decodeObject("Gemini", resp.Text())
}
