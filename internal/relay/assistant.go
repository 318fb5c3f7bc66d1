package relay

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/abhisek/campus/internal/llm"
)

// DefaultSystemPrompt frames the assistant when no prompt is configured.
const DefaultSystemPrompt = "You are the campus learning assistant. Answer questions about the learner's " +
	"formations, lessons and quizzes clearly and briefly. Do not reveal quiz answers before the learner submits."

// AssistantUpstream answers chat turns with an LLM provider and keeps the
// recent history of each session in memory.
type AssistantUpstream struct {
	provider  llm.Provider
	system    string
	maxTurns  int
	maxTokens int

	mu       sync.Mutex
	sessions map[string][]llm.Message
}

// NewAssistantUpstream creates an upstream over p. maxTurns bounds how many
// messages of history are kept per session; 0 means 20.
func NewAssistantUpstream(p llm.Provider, system string, maxTurns int) *AssistantUpstream {
	if system == "" {
		system = DefaultSystemPrompt
	}
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &AssistantUpstream{
		provider:  p,
		system:    system,
		maxTurns:  maxTurns,
		maxTokens: 1024,
		sessions:  make(map[string][]llm.Message),
	}
}

func (a *AssistantUpstream) Name() string { return "llm:" + a.provider.ModelID() }

func (a *AssistantUpstream) Call(ctx context.Context, req Request) (Response, error) {
	key := req.UserID + "/" + req.SessionID

	if req.Action == ActionLoadPreviousSession {
		a.mu.Lock()
		history := append([]llm.Message(nil), a.sessions[key]...)
		a.mu.Unlock()
		return Response{Response: transcript(history)}, nil
	}

	a.mu.Lock()
	msgs := append(append([]llm.Message(nil), a.sessions[key]...), llm.Message{Role: llm.RoleUser, Content: req.ChatInput})
	a.mu.Unlock()

	resp, err := a.provider.Generate(llm.WithPurpose(ctx, llm.PurposeChat), llm.Request{
		System:    a.system,
		Messages:  msgs,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return Response{}, classifyLLM(err)
	}
	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return Response{}, malformed(errors.New("assistant returned an empty reply"))
	}

	// History only grows on success, so a retried turn is not duplicated.
	msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: reply})
	if len(msgs) > a.maxTurns {
		msgs = msgs[len(msgs)-a.maxTurns:]
	}
	a.mu.Lock()
	a.sessions[key] = msgs
	a.mu.Unlock()

	return Response{Response: reply}, nil
}

// Forget drops a session's history.
func (a *AssistantUpstream) Forget(userID, sessionID string) {
	a.mu.Lock()
	delete(a.sessions, userID+"/"+sessionID)
	a.mu.Unlock()
}

func transcript(msgs []llm.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

func classifyLLM(err error) *UpstreamError {
	var (
		rl       *llm.ErrRateLimit
		unavail  *llm.ErrProviderUnavailable
		invalid  *llm.ErrInvalidResponse
		truncate *llm.ErrMaxTokensExceeded
	)
	switch {
	case errors.As(err, &rl), errors.As(err, &unavail):
		return unavailable(err)
	case errors.As(err, &invalid), errors.As(err, &truncate):
		return malformed(err)
	case errors.Is(err, context.DeadlineExceeded):
		return unavailable(err)
	default:
		return internal(err)
	}
}
