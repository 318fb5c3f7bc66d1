package llm

import "context"

// Embedder turns text into vectors for the document index.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	ModelID() string
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	// Provider is "openai", "gemini" or "mock". Empty follows Config.Provider
	// when that provider can embed, else "openai".
	Provider string
	Model    string

	// Dimensions requests a specific vector size; 0 keeps the model default.
	Dimensions int
}
