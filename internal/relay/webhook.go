package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/abhisek/campus/internal/validate"
)

// maxReplyBytes bounds how much of a webhook reply is read.
const maxReplyBytes = 1 << 20

// ResponseSchema is the contract a webhook reply must meet.
var ResponseSchema = &validate.Schema{
	Name: "chat-webhook-response",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response": map[string]any{"type": "string"},
		},
		"required": []any{"response"},
	},
}

// WebhookUpstream posts chat requests as JSON to an HTTP endpoint.
type WebhookUpstream struct {
	url    string
	client *http.Client
}

// NewWebhookUpstream creates a webhook upstream. timeout bounds one call;
// zero means 30s.
func NewWebhookUpstream(url string, timeout time.Duration) *WebhookUpstream {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookUpstream{url: url, client: &http.Client{Timeout: timeout}}
}

func (w *WebhookUpstream) Name() string { return "webhook" }

func (w *WebhookUpstream) Call(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, internal(fmt.Errorf("encode request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, internal(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return Response{}, unavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return Response{}, unavailable(fmt.Errorf("read reply: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return Response{}, unavailable(fmt.Errorf("webhook returned %s", resp.Status))
	case resp.StatusCode >= 300:
		return Response{}, internal(fmt.Errorf("webhook returned %s: %s", resp.Status, snippet(raw)))
	}

	if err := validate.JSON(ResponseSchema, raw); err != nil {
		return Response{}, malformed(err)
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Response{}, malformed(err)
	}
	return out, nil
}

// snippet shortens a reply body for error messages, cutting on a rune
// boundary.
func snippet(b []byte) string {
	const n = 200
	if len(b) <= n {
		return string(b)
	}
	cut := n
	for cut > n-utf8.UTFMax && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "..."
}
