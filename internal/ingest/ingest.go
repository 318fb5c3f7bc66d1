// Package ingest stores uploaded course documents and indexes their text
// for the learning assistant: decode, save, extract, truncate, embed,
// upsert.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/campus/internal/llm"
	"github.com/abhisek/campus/internal/logger"
	"github.com/abhisek/campus/internal/store"
)

// DefaultMaxTextLength is how many runes of extracted text are embedded.
const DefaultMaxTextLength = 8000

// DefaultMaxFileSize bounds a decoded upload.
const DefaultMaxFileSize = 10 << 20

// Stage names the step of an ingestion that failed.
type Stage string

const (
	StageStore   Stage = "store"
	StageExtract Stage = "extract"
	StageEmbed   Stage = "embed"
	StageIndex   Stage = "index"
)

// StageError is a failure after the request was accepted.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("ingest %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Options configures a Service. Zero values take the defaults.
type Options struct {
	MaxTextLength int
	MaxFileSize   int64
	Namespace     string
	Events        store.EventRepo
	Log           *logger.Logger
}

// Service runs ingestions. It is safe for concurrent use when its
// collaborators are.
type Service struct {
	files    FileStore
	embedder llm.Embedder
	index    VectorIndex
	opts     Options
	log      *logger.Logger
	newID    func() string
}

func NewService(files FileStore, embedder llm.Embedder, index VectorIndex, opts Options) *Service {
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = DefaultMaxTextLength
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		files:    files,
		embedder: embedder,
		index:    index,
		opts:     opts,
		log:      log.With("component", "ingest"),
		newID:    uuid.NewString,
	}
}

// Ingest stores the file and indexes its text. Invalid requests return a
// *RequestError; failures after that are *StageError. The stored file is
// kept when a later stage fails so the upload can be re-indexed.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := s.ingest(ctx, req)
	s.record(ctx, req, time.Since(start), err)
	return res, err
}

func (s *Service) ingest(ctx context.Context, req Request) (Result, error) {
	data, err := req.decode(s.opts.MaxFileSize)
	if err != nil {
		return Result{}, err
	}

	path, err := s.files.Save(ctx, req.Category, req.File.Name, data)
	if err != nil {
		return Result{}, &StageError{Stage: StageStore, Err: err}
	}

	text, kind, err := ExtractText(req.File.Name, req.File.Type, data)
	if err != nil {
		return Result{}, &StageError{Stage: StageExtract, Err: err}
	}
	full := len([]rune(text))
	text = Truncate(text, s.opts.MaxTextLength)

	vecs, err := s.embedder.Embed(llm.WithPurpose(ctx, llm.PurposeIngest), []string{text})
	if err != nil {
		return Result{}, &StageError{Stage: StageEmbed, Err: err}
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return Result{}, &StageError{Stage: StageEmbed, Err: errors.New("embedder returned no vector")}
	}

	id := s.newID()
	meta := map[string]any{
		"filePath":  path,
		"fileName":  req.File.Name,
		"fileType":  kind,
		"category":  req.Category,
		"text":      text,
		"truncated": full > s.opts.MaxTextLength,
		"model":     s.embedder.ModelID(),
	}
	if req.UserID != "" {
		meta["userId"] = req.UserID
	}
	if err := s.index.Upsert(ctx, s.opts.Namespace, []Vector{{ID: id, Values: vecs[0], Metadata: meta}}); err != nil {
		return Result{}, &StageError{Stage: StageIndex, Err: err}
	}

	s.log.Info("document ingested",
		"path", path,
		"type", kind,
		"runes", full,
		"vector", id,
	)
	return Result{FilePath: path, PineconeID: id}, nil
}

func (s *Service) record(ctx context.Context, req Request, took time.Duration, err error) {
	if err != nil {
		s.log.Error("ingest failed", "file", req.File.Name, "category", req.Category, "error", err)
	}
	if s.opts.Events == nil {
		return
	}
	data := store.FunctionCallEventData{
		Function:  "ingest",
		UserID:    req.UserID,
		Attempts:  1,
		LatencyMs: took.Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}
	if logErr := s.opts.Events.AppendFunctionCall(context.WithoutCancel(ctx), data); logErr != nil {
		s.log.Warn("failed to log ingest event", "error", logErr)
	}
}
