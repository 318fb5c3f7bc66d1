package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Vector is one entry of the document index.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// VectorIndex stores document vectors.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
}

// PineconeConfig addresses one Pinecone index on the data plane.
type PineconeConfig struct {
	// Host is the index host, e.g. "docs-abc123.svc.us-east1-gcp.pinecone.io".
	// A URL with a scheme is used as is.
	Host       string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
}

// PineconeIndex talks to the Pinecone data-plane REST API.
type PineconeIndex struct {
	cfg     PineconeConfig
	baseURL string
	http    *http.Client
}

func NewPineconeIndex(cfg PineconeConfig) (*PineconeIndex, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		return nil, fmt.Errorf("pinecone host required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Pinecone API key")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2025-10"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := cfg.Host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &PineconeIndex{
		cfg:     cfg,
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type upsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type upsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

func (p *PineconeIndex) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	out, err := doJSON[upsertResponse](ctx, p, http.MethodPost, "/vectors/upsert", upsertRequest{
		Vectors:   vectors,
		Namespace: namespace,
	})
	if err != nil {
		return err
	}
	if out.UpsertedCount != int64(len(vectors)) {
		return fmt.Errorf("pinecone upserted %d of %d vectors", out.UpsertedCount, len(vectors))
	}
	return nil
}

// StatusError is a non-2xx reply from Pinecone.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pinecone http %d: %s", e.StatusCode, e.Body)
}

func doJSON[T any](ctx context.Context, p *PineconeIndex, method, path string, body any) (*T, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", p.cfg.APIVersion)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone decode: %w", err)
	}
	return &out, nil
}

// MemoryIndex keeps vectors in memory. It stands in for Pinecone when no
// index is configured.
type MemoryIndex struct {
	mu      sync.Mutex
	vectors map[string]map[string]Vector
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{vectors: make(map[string]map[string]Vector)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.vectors[namespace]
	if ns == nil {
		ns = make(map[string]Vector)
		m.vectors[namespace] = ns
	}
	for _, v := range vectors {
		ns[v.ID] = v
	}
	return nil
}

// Get returns a stored vector.
func (m *MemoryIndex) Get(namespace, id string) (Vector, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vectors[namespace][id]
	return v, ok
}

// Len counts the vectors in a namespace.
func (m *MemoryIndex) Len(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vectors[namespace])
}
