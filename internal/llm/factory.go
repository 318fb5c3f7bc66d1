package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/campus/internal/logger"
	"github.com/abhisek/campus/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped with retry and
// event logging. events and log may be nil.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, log *logger.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return &MockProvider{Echo: true}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// caller → retry → logging → base
	logged := WithLogging(base, cfg.Provider, events, log)
	return WithRetry(logged, cfg.Retry), nil
}

// NewEmbedder creates the document Embedder, wrapped the same way as
// NewProvider.
func NewEmbedder(ctx context.Context, cfg Config, events store.EventRepo, log *logger.Logger) (Embedder, error) {
	name := cfg.EmbeddingProvider()

	var base Embedder
	var err error
	switch name {
	case "openai":
		base, err = NewOpenAIEmbedder(cfg.OpenAI, cfg.Embedding)
	case "gemini":
		base, err = NewGeminiEmbedder(ctx, cfg.Gemini, cfg.Embedding)
	case "mock":
		return NewMockEmbedder(cfg.Embedding.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s embedder: %w", name, err)
	}

	logged := WithEmbedLogging(base, name, events, log)
	return WithEmbedRetry(logged, cfg.Retry), nil
}
