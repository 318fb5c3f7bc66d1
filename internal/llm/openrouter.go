package llm

import "fmt"

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates an OpenAIProvider pointed at OpenRouter.
// Model IDs are passed through untouched ("anthropic/claude-haiku-4.5").
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &OpenAIProvider{
		client: newOpenAIClient(cfg.APIKey, baseURL),
		model:  cfg.Model,
	}, nil
}
