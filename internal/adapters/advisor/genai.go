package advisor

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Completer sends one prompt to a text-completion model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Factory builds a Completer bound to one API key.
type Factory func(ctx context.Context, apiKey string) (Completer, error)

// GenAICompleter calls Gemini through google.golang.org/genai.
type GenAICompleter struct {
	client *genai.Client
	model  string
}

// NewGenAIFactory returns a Factory creating Gemini completers for model.
func NewGenAIFactory(model string) Factory {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return func(ctx context.Context, apiKey string) (Completer, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create GenAI client: %w", err)
		}
		return &GenAICompleter{client: client, model: model}, nil
	}
}

// Complete implements Completer.
func (c *GenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
