package cmd

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/abhisek/campus/internal/ingest"
	"github.com/abhisek/campus/internal/llm"
	"github.com/abhisek/campus/internal/relay"
)

var errNoProvider = errors.New("no LLM provider configured: set CAMPUS_LLM_PROVIDER and its API key, or CAMPUS_CHAT_WEBHOOK_URL")

// providerConfig returns the configured LLM settings, or the first provider
// with a key in the standard env vars when the configured one has none.
func providerConfig(cfg llm.Config) (llm.Config, error) {
	if err := cfg.Validate(); err == nil {
		return cfg, nil
	}
	if d, ok := llm.DiscoverConfig(); ok {
		return d, nil
	}
	return llm.Config{}, errNoProvider
}

// newRelay builds the chat relay. A webhook URL wins over the LLM provider.
func (e *env) newRelay(ctx context.Context) (*relay.Relay, error) {
	var up relay.Upstream
	if url := e.cfg.Relay.WebhookURL; url != "" {
		up = relay.NewWebhookUpstream(url, e.cfg.Relay.Timeout)
	} else {
		lcfg, err := providerConfig(e.cfg.LLM)
		if err != nil {
			return nil, err
		}
		// The relay retries; the provider should fail fast.
		lcfg.Retry.MaxAttempts = 1
		p, err := llm.NewProvider(ctx, lcfg, e.st, e.log)
		if err != nil {
			return nil, err
		}
		up = relay.NewAssistantUpstream(p, "", 0)
	}

	retries := e.cfg.Relay.Retries
	if retries == 0 {
		retries = -1
	}
	e.log.Info("chat relay ready", "upstream", up.Name(), "retries", e.cfg.Relay.Retries)
	return relay.New(up, relay.Options{
		Retries:     retries,
		InitialWait: e.cfg.Relay.InitialWait,
		Events:      e.st,
		Log:         e.log,
	}), nil
}

// newIngest builds the ingestion pipeline. Vectors go to Pinecone when a
// host and key are set, otherwise to an in-process index.
func (e *env) newIngest(ctx context.Context) (*ingest.Service, error) {
	dir := e.cfg.Ingest.UploadDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(e.dbPath), "uploads")
	}
	files, err := ingest.NewLocalFileStore(dir)
	if err != nil {
		return nil, err
	}

	lcfg := e.cfg.LLM
	if err := lcfg.ValidateEmbedding(); err != nil {
		d, ok := llm.DiscoverConfig()
		if !ok || d.ValidateEmbedding() != nil {
			return nil, err
		}
		lcfg = d
	}
	emb, err := llm.NewEmbedder(ctx, lcfg, e.st, e.log)
	if err != nil {
		return nil, err
	}

	var index ingest.VectorIndex
	ic := e.cfg.Ingest
	if ic.PineconeHost != "" && ic.PineconeAPIKey != "" {
		pc, err := ingest.NewPineconeIndex(ingest.PineconeConfig{Host: ic.PineconeHost, APIKey: ic.PineconeAPIKey})
		if err != nil {
			return nil, err
		}
		index = pc
	} else {
		e.log.Warn("CAMPUS_PINECONE_HOST not set, vectors are kept in memory only")
		index = ingest.NewMemoryIndex()
	}

	return ingest.NewService(files, emb, index, ingest.Options{
		MaxTextLength: ic.MaxTextLength,
		MaxFileSize:   ic.MaxFileSize,
		Namespace:     ic.PineconeNamespace,
		Events:        e.st,
		Log:           e.log,
	}), nil
}
