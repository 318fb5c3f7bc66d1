package ingest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abhisek/campus/internal/validate"
)

// File is an uploaded document. Data is standard base64; a data URL prefix
// ("data:...;base64,") is accepted and stripped.
type File struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data"`
}

// Request is one ingestion call.
type Request struct {
	File     File   `json:"file"`
	Category string `json:"category"`

	// UserID is recorded in the event log and vector metadata. Optional.
	UserID string `json:"userId,omitempty"`
}

// Result locates the stored file and its vector.
type Result struct {
	FilePath   string `json:"filePath"`
	PineconeID string `json:"pineconeId"`
}

// RequestError reports a request that cannot be ingested as sent.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid ingest request: %s: %s", e.Field, e.Reason)
}

// RequestSchema is the JSON contract of an ingestion request body.
var RequestSchema = &validate.Schema{
	Name: "ingest-request",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string", "minLength": 1},
					"type": map[string]any{"type": "string"},
					"size": map[string]any{"type": "integer", "minimum": 0},
					"data": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []any{"name", "data"},
			},
			"category": map[string]any{"type": "string", "minLength": 1},
			"userId":   map[string]any{"type": "string"},
		},
		"required": []any{"file", "category"},
	},
}

// DecodeRequest validates raw against RequestSchema and decodes it.
func DecodeRequest(raw []byte) (Request, error) {
	if err := validate.JSON(RequestSchema, raw); err != nil {
		return Request{}, &RequestError{Field: "body", Reason: err.Error()}
	}
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, &RequestError{Field: "body", Reason: err.Error()}
	}
	return req, nil
}

// decode checks the request and returns the file bytes.
func (r Request) decode(maxSize int64) ([]byte, error) {
	if strings.TrimSpace(r.File.Name) == "" {
		return nil, &RequestError{Field: "file.name", Reason: "required"}
	}
	if strings.TrimSpace(r.Category) == "" {
		return nil, &RequestError{Field: "category", Reason: "required"}
	}
	if strings.ContainsAny(r.Category, `/\`) || r.Category == "." || r.Category == ".." {
		return nil, &RequestError{Field: "category", Reason: "must be a single path segment"}
	}
	if r.File.Size < 0 {
		return nil, &RequestError{Field: "file.size", Reason: "negative"}
	}
	if r.File.Size > maxSize {
		return nil, &RequestError{Field: "file.size", Reason: fmt.Sprintf("exceeds %d bytes", maxSize)}
	}

	data := r.File.Data
	if i := strings.Index(data, ";base64,"); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+len(";base64,"):]
	}
	// Encoded length bounds the decoded size; reject before allocating.
	if int64(base64.StdEncoding.DecodedLen(len(data))) > maxSize+2 {
		return nil, &RequestError{Field: "file.data", Reason: fmt.Sprintf("exceeds %d bytes", maxSize)}
	}
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, &RequestError{Field: "file.data", Reason: "not valid base64"}
	}
	if len(b) == 0 {
		return nil, &RequestError{Field: "file.data", Reason: "empty file"}
	}
	if int64(len(b)) > maxSize {
		return nil, &RequestError{Field: "file.data", Reason: fmt.Sprintf("exceeds %d bytes", maxSize)}
	}
	if r.File.Size > 0 && int64(len(b)) != r.File.Size {
		return nil, &RequestError{Field: "file.size", Reason: fmt.Sprintf("declared %d bytes, got %d", r.File.Size, len(b))}
	}
	return b, nil
}

// safeName reduces an uploaded name to a base file name.
func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '/', r == ':':
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." || name == "" {
		return "upload"
	}
	return name
}
