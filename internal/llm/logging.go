package llm

import (
	"context"
	"time"

	"github.com/abhisek/campus/internal/logger"
	"github.com/abhisek/campus/internal/store"
)

// LoggingProvider is a decorator that records every LLM request as an event.
// Message bodies are not stored; learner chat stays out of the event log.
type LoggingProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
	log      *logger.Logger
}

// WithLogging wraps a Provider with event logging. events may be nil.
func WithLogging(p Provider, provider string, events store.EventRepo, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &LoggingProvider{inner: p, provider: provider, events: events, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		Provider:  l.provider,
		Model:     l.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}
	recordEvent(ctx, l.events, l.log, data)
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// LoggingEmbedder records embedding calls the same way.
type LoggingEmbedder struct {
	inner    Embedder
	provider string
	events   store.EventRepo
	log      *logger.Logger
}

// WithEmbedLogging wraps an Embedder with event logging. events may be nil.
func WithEmbedLogging(e Embedder, provider string, events store.EventRepo, log *logger.Logger) Embedder {
	if log == nil {
		log = logger.Nop()
	}
	return &LoggingEmbedder{inner: e, provider: provider, events: events, log: log}
}

func (l *LoggingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	out, err := l.inner.Embed(ctx, texts)

	data := store.LLMRequestEventData{
		Provider:  l.provider,
		Model:     l.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}
	recordEvent(ctx, l.events, l.log, data)
	return out, err
}

func (l *LoggingEmbedder) ModelID() string {
	return l.inner.ModelID()
}

// recordEvent appends the event. A logging failure never fails the request.
func recordEvent(ctx context.Context, events store.EventRepo, log *logger.Logger, data store.LLMRequestEventData) {
	log.Debug("llm request",
		"provider", data.Provider,
		"model", data.Model,
		"purpose", data.Purpose,
		"latency_ms", data.LatencyMs,
		"success", data.Success,
	)
	if events == nil {
		return
	}
	if err := events.AppendLLMRequest(ctx, data); err != nil {
		log.Warn("failed to log LLM request event", "error", err)
	}
}
