// Package relay forwards learner chat turns to the assistant upstream,
// either an external webhook or an LLM provider, retrying transient
// failures with exponential backoff.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/campus/internal/logger"
	"github.com/abhisek/campus/internal/store"
)

// Action is what the learner asks the relay to do.
type Action string

const (
	ActionSendMessage         Action = "sendMessage"
	ActionLoadPreviousSession Action = "loadPreviousSession"
)

// Request is one chat call.
type Request struct {
	SessionID string `json:"sessionId"`
	Action    Action `json:"action"`
	ChatInput string `json:"chatInput,omitempty"`
	UserID    string `json:"userId"`
}

// Response is the assistant's reply. SessionID echoes the session the
// reply belongs to, which is new when the request carried none.
type Response struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId,omitempty"`
}

// Upstream answers one chat request. Errors should be *UpstreamError so
// the relay can tell transient failures apart; anything else counts as
// KindInternal.
type Upstream interface {
	Call(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Options configures a Relay. Zero values take the defaults.
type Options struct {
	// Retries is the number of retries after the first call. Zero means
	// the default of 3; negative disables retries.
	Retries int

	// InitialWait is the first backoff; it doubles per retry. Default 1s.
	InitialWait time.Duration

	// Events receives one function-call event per Chat. Optional.
	Events store.EventRepo

	Log *logger.Logger
}

// Relay is safe for concurrent use.
type Relay struct {
	up    Upstream
	opts  Options
	log   *logger.Logger
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

// New creates a Relay over up.
func New(up Upstream, opts Options) *Relay {
	if opts.Retries == 0 {
		opts.Retries = 3
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.InitialWait <= 0 {
		opts.InitialWait = time.Second
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Relay{up: up, opts: opts, log: log, sleep: sleepCtx, newID: uuid.NewString}
}

// Chat validates req and forwards it, retrying KindUnavailable failures.
// The terminal error is an *UpstreamError with the attempt count set.
func (r *Relay) Chat(ctx context.Context, req Request) (Response, error) {
	req, err := r.normalize(req)
	if err != nil {
		return Response{}, err
	}

	start := time.Now()
	resp, attempts, err := r.forward(ctx, req)
	r.record(ctx, req, attempts, time.Since(start), err)
	if err != nil {
		return Response{}, err
	}
	resp.SessionID = req.SessionID
	return resp, nil
}

func (r *Relay) normalize(req Request) (Request, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return req, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if req.Action == "" {
		req.Action = ActionSendMessage
	}
	switch req.Action {
	case ActionSendMessage:
		if strings.TrimSpace(req.ChatInput) == "" {
			return req, fmt.Errorf("%w: chatInput is required for %s", ErrInvalidRequest, req.Action)
		}
	case ActionLoadPreviousSession:
		if req.SessionID == "" {
			return req, fmt.Errorf("%w: sessionId is required for %s", ErrInvalidRequest, req.Action)
		}
	default:
		return req, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, req.Action)
	}
	if req.SessionID == "" {
		req.SessionID = r.newID()
	}
	return req, nil
}

func (r *Relay) forward(ctx context.Context, req Request) (Response, int, error) {
	var lastErr *UpstreamError
	for attempt := 0; attempt <= r.opts.Retries; attempt++ {
		if attempt > 0 {
			wait := r.opts.InitialWait << (attempt - 1)
			r.log.Warn("chat upstream retry",
				"upstream", r.up.Name(),
				"attempt", attempt+1,
				"wait", wait.String(),
				"error", lastErr.Err,
			)
			if err := r.sleep(ctx, wait); err != nil {
				lastErr.Attempts = attempt
				return Response{}, attempt, lastErr
			}
		}

		resp, err := r.up.Call(ctx, req)
		if err == nil {
			return resp, attempt + 1, nil
		}
		if ctx.Err() != nil {
			return Response{}, attempt + 1, &UpstreamError{Kind: KindUnavailable, Attempts: attempt + 1, Err: ctx.Err()}
		}

		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			upErr = internal(err)
		}
		lastErr = &UpstreamError{Kind: upErr.Kind, Err: upErr.Err}
		if upErr.Kind != KindUnavailable {
			lastErr.Attempts = attempt + 1
			return Response{}, attempt + 1, lastErr
		}
	}
	lastErr.Attempts = r.opts.Retries + 1
	return Response{}, r.opts.Retries + 1, lastErr
}

// record appends the function-call event. Failures are only logged.
func (r *Relay) record(ctx context.Context, req Request, attempts int, took time.Duration, err error) {
	data := store.FunctionCallEventData{
		Function:  "chat",
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Attempts:  attempts,
		LatencyMs: took.Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		data.ErrorMessage = err.Error()
		r.log.Error("chat failed", "user", req.UserID, "session", req.SessionID, "attempts", attempts, "error", err)
	} else {
		r.log.Info("chat relayed", "user", req.UserID, "session", req.SessionID, "attempts", attempts)
	}
	if r.opts.Events == nil {
		return
	}
	if logErr := r.opts.Events.AppendFunctionCall(context.WithoutCancel(ctx), data); logErr != nil {
		r.log.Warn("failed to log chat event", "error", logErr)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
