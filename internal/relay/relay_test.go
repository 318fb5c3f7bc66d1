package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/campus/internal/llm"
	"github.com/abhisek/campus/internal/store"
)

type scriptedUpstream struct {
	errs  []error
	calls int
	reqs  []Request
}

func (s *scriptedUpstream) Name() string { return "scripted" }

func (s *scriptedUpstream) Call(_ context.Context, req Request) (Response, error) {
	s.calls++
	s.reqs = append(s.reqs, req)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return Response{}, err
		}
	}
	return Response{Response: "reply to " + req.ChatInput}, nil
}

type fakeEvents struct {
	store.EventRepo
	calls []store.FunctionCallEventData
}

func (f *fakeEvents) AppendFunctionCall(_ context.Context, d store.FunctionCallEventData) error {
	f.calls = append(f.calls, d)
	return nil
}

// newTestRelay records waits instead of sleeping.
func newTestRelay(up Upstream, events store.EventRepo) (*Relay, *[]time.Duration) {
	r := New(up, Options{Events: events})
	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	r.newID = func() string { return "session-1" }
	return r, &waits
}

func send(text string) Request {
	return Request{UserID: "ada", Action: ActionSendMessage, ChatInput: text}
}

func TestChat_Success(t *testing.T) {
	up := &scriptedUpstream{}
	events := &fakeEvents{}
	r, waits := newTestRelay(up, events)

	resp, err := r.Chat(context.Background(), send("hi"))
	require.NoError(t, err)
	assert.Equal(t, "reply to hi", resp.Response)
	assert.Equal(t, "session-1", resp.SessionID)
	assert.Equal(t, "session-1", up.reqs[0].SessionID)
	assert.Empty(t, *waits)

	require.Len(t, events.calls, 1)
	assert.True(t, events.calls[0].Success)
	assert.Equal(t, 1, events.calls[0].Attempts)
	assert.Equal(t, "chat", events.calls[0].Function)
}

func TestChat_RetriesWithBackoff(t *testing.T) {
	down := unavailable(errors.New("connection refused"))
	up := &scriptedUpstream{errs: []error{down, down}}
	r, waits := newTestRelay(up, nil)

	resp, err := r.Chat(context.Background(), send("hi"))
	require.NoError(t, err)
	assert.Equal(t, "reply to hi", resp.Response)
	assert.Equal(t, 3, up.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestChat_GivesUpAfterThreeRetries(t *testing.T) {
	down := unavailable(errors.New("503"))
	up := &scriptedUpstream{errs: []error{down, down, down, down, nil}}
	events := &fakeEvents{}
	r, waits := newTestRelay(up, events)

	_, err := r.Chat(context.Background(), send("hi"))
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, KindUnavailable, upErr.Kind)
	assert.Equal(t, 4, upErr.Attempts)
	assert.True(t, upErr.Retryable())
	assert.Equal(t, 4, up.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *waits)

	require.Len(t, events.calls, 1)
	assert.False(t, events.calls[0].Success)
	assert.Equal(t, 4, events.calls[0].Attempts)
}

func TestChat_NonTransientNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"internal", internal(errors.New("500")), KindInternal},
		{"malformed", malformed(errors.New("missing response")), KindMalformed},
		{"untyped", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &scriptedUpstream{errs: []error{tt.err}}
			r, waits := newTestRelay(up, nil)

			_, err := r.Chat(context.Background(), send("hi"))
			var upErr *UpstreamError
			require.True(t, errors.As(err, &upErr))
			assert.Equal(t, tt.kind, upErr.Kind)
			assert.Equal(t, 1, upErr.Attempts)
			assert.Equal(t, 1, up.calls)
			assert.Empty(t, *waits)
		})
	}
}

func TestUpstreamError_MessagesDiffer(t *testing.T) {
	seen := map[string]Kind{}
	for _, k := range []Kind{KindUnavailable, KindInternal, KindMalformed} {
		msg := (&UpstreamError{Kind: k}).Message()
		prev, dup := seen[msg]
		assert.False(t, dup, "%s and %s share a message", k, prev)
		seen[msg] = k
	}
}

func TestChat_CancelledDuringBackoff(t *testing.T) {
	up := &scriptedUpstream{errs: []error{unavailable(errors.New("down"))}}
	r := New(up, Options{InitialWait: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := r.Chat(ctx, send("hi"))
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, 1, upErr.Attempts)
}

func TestChat_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no user", Request{ChatInput: "hi"}},
		{"blank input", Request{UserID: "ada", ChatInput: "  "}},
		{"unknown action", Request{UserID: "ada", Action: "shout", ChatInput: "hi"}},
		{"load without session", Request{UserID: "ada", Action: ActionLoadPreviousSession}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &scriptedUpstream{}
			r, _ := newTestRelay(up, nil)
			_, err := r.Chat(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Zero(t, up.calls)
		})
	}
}

func TestChat_DefaultsToSendMessage(t *testing.T) {
	up := &scriptedUpstream{}
	r, _ := newTestRelay(up, nil)
	_, err := r.Chat(context.Background(), Request{UserID: "ada", SessionID: "s-9", ChatInput: "hi"})
	require.NoError(t, err)
	assert.Equal(t, ActionSendMessage, up.reqs[0].Action)
	assert.Equal(t, "s-9", up.reqs[0].SessionID)
}

func TestWebhookUpstream(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"bad gateway", http.StatusBadGateway, `oops`, KindUnavailable},
		{"unavailable", http.StatusServiceUnavailable, ``, KindUnavailable},
		{"rate limited", http.StatusTooManyRequests, ``, KindUnavailable},
		{"server error", http.StatusInternalServerError, `{"message":"workflow failed"}`, KindInternal},
		{"not found", http.StatusNotFound, ``, KindInternal},
		{"not json", http.StatusOK, `<html>`, KindMalformed},
		{"missing field", http.StatusOK, `{"output":"hi"}`, KindMalformed},
		{"wrong type", http.StatusOK, `{"response":42}`, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewWebhookUpstream(srv.URL, time.Second).Call(context.Background(), send("hi"))
			var upErr *UpstreamError
			require.True(t, errors.As(err, &upErr), "got %v", err)
			assert.Equal(t, tt.want, upErr.Kind)
		})
	}
}

func TestWebhookUpstream_LongErrorBodyStaysValidUTF8(t *testing.T) {
	// One ASCII byte shifts every two-byte rune so byte 200 falls mid-rune.
	body := "x" + strings.Repeat("é", 150)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	_, err := NewWebhookUpstream(srv.URL, time.Second).Call(context.Background(), send("hi"))
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()), "error text %q", err.Error())
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet([]byte("short")))

	ascii := strings.Repeat("a", 250)
	assert.Equal(t, ascii[:200]+"...", snippet([]byte(ascii)))

	for _, r := range []string{"é", "€", "🙂"} {
		got := snippet([]byte("x" + strings.Repeat(r, 100)))
		assert.True(t, utf8.ValidString(got), "%q", got)
		assert.LessOrEqual(t, len(got), 203)
		assert.Greater(t, len(got), 200-utf8.UTFMax)
	}
}

func TestWebhookUpstream_PostsContract(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"Lesson 3 covers select."}`))
	}))
	defer srv.Close()

	req := Request{SessionID: "s-1", Action: ActionSendMessage, ChatInput: "What is next?", UserID: "ada"}
	resp, err := NewWebhookUpstream(srv.URL, time.Second).Call(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Lesson 3 covers select.", resp.Response)
	assert.Equal(t, map[string]any{
		"sessionId": "s-1",
		"action":    "sendMessage",
		"chatInput": "What is next?",
		"userId":    "ada",
	}, got)
}

func TestWebhookUpstream_RelayRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	r, waits := newTestRelay(NewWebhookUpstream(srv.URL, time.Second), nil)
	resp, err := r.Chat(context.Background(), send("hi"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
	assert.EqualValues(t, 3, hits.Load())
	assert.Len(t, *waits, 2)
}

func TestWebhookUpstream_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewWebhookUpstream(url, time.Second).Call(context.Background(), send("hi"))
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, KindUnavailable, upErr.Kind)
}

func TestAssistantUpstream_KeepsHistory(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: "Channels pass values between goroutines."},
		llm.MockResponse{Text: "Use a buffered channel."},
	)
	a := NewAssistantUpstream(mock, "", 0)
	ctx := context.Background()

	first := Request{UserID: "ada", SessionID: "s", Action: ActionSendMessage, ChatInput: "What is a channel?"}
	resp, err := a.Call(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Channels pass values between goroutines.", resp.Response)

	second := first
	second.ChatInput = "How do I avoid blocking?"
	_, err = a.Call(ctx, second)
	require.NoError(t, err)

	require.Equal(t, 2, mock.CallCount())
	msgs := mock.Calls[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
	assert.Equal(t, DefaultSystemPrompt, mock.Calls[1].System)

	prev, err := a.Call(ctx, Request{UserID: "ada", SessionID: "s", Action: ActionLoadPreviousSession})
	require.NoError(t, err)
	assert.Contains(t, prev.Response, "user: What is a channel?")
	assert.Contains(t, prev.Response, "assistant: Use a buffered channel.")

	other, err := a.Call(ctx, Request{UserID: "bob", SessionID: "s", Action: ActionLoadPreviousSession})
	require.NoError(t, err)
	assert.Empty(t, other.Response, "sessions are scoped per user")
}

func TestAssistantUpstream_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limit", &llm.ErrRateLimit{Err: errors.New("429")}, KindUnavailable},
		{"down", &llm.ErrProviderUnavailable{}, KindUnavailable},
		{"rejected", &llm.ErrRequestRejected{StatusCode: 401, Err: errors.New("key")}, KindInternal},
		{"invalid", &llm.ErrInvalidResponse{Err: errors.New("bad")}, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssistantUpstream(llm.NewMockProvider(llm.MockResponse{Err: tt.err}), "", 0)
			_, err := a.Call(context.Background(), send("hi"))
			var upErr *UpstreamError
			require.True(t, errors.As(err, &upErr))
			assert.Equal(t, tt.want, upErr.Kind)
		})
	}
}

func TestAssistantUpstream_FailedTurnLeavesHistory(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{}},
		llm.MockResponse{Text: "answer"},
	)
	a := NewAssistantUpstream(mock, "", 0)
	r, _ := newTestRelay(a, nil)

	_, err := r.Chat(context.Background(), Request{UserID: "ada", SessionID: "s", ChatInput: "q"})
	require.NoError(t, err)

	prev, err := a.Call(context.Background(), Request{UserID: "ada", SessionID: "s", Action: ActionLoadPreviousSession})
	require.NoError(t, err)
	assert.Equal(t, "user: q\nassistant: answer", prev.Response)
}
