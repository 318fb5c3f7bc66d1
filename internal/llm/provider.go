// Package llm wraps the chat and embedding APIs campus talks to: the
// learning assistant behind the chat relay and the embedder behind document
// ingestion. Providers are decorated with retry and event logging by
// NewProvider and NewEmbedder.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one assistant turn.
type Provider interface {
	// Generate sends the conversation and returns the assistant's reply.
	// When req.Schema is set the provider asks for JSON and the reply is
	// validated; Response.Content then holds the validated document.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the conversation so far, oldest first. The last message
	// is normally the learner's.
	Messages []Message

	// Schema, when set, asks for a JSON reply matching the definition.
	Schema *Schema

	MaxTokens int

	// Temperature ranges 0.0 - 1.0; 0 leaves the provider default.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema (schema name for OpenAI, cache key for
	// validation). Kebab-case, e.g. "lesson-summary".
	Name string

	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Text is the reply as the model produced it.
	Text string

	// Content is set only for schema requests: the validated JSON reply.
	Content json.RawMessage

	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// finish builds the Response for raw model output, validating it when a
// schema was requested. A truncated schema reply is reported as
// ErrMaxTokensExceeded rather than a validation failure.
func finish(req Request, text, model, stop string, usage Usage) (*Response, error) {
	resp := &Response{Text: text, Usage: usage, Model: model, StopReason: stop}
	if req.Schema == nil {
		return resp, nil
	}
	raw := json.RawMessage(text)
	if stop == "max_tokens" {
		return nil, &ErrMaxTokensExceeded{Content: raw}
	}
	if err := validateResponse(req.Schema, raw); err != nil {
		return nil, err
	}
	resp.Content = raw
	return resp, nil
}
