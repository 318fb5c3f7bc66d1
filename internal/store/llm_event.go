package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	entsql "entgo.io/ent/dialect/sql"
)

func (s *Store) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := s.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ins := sqlite().Insert("llm_request_events").
		Columns("sequence", "timestamp", "provider", "model", "purpose",
			"input_tokens", "output_tokens", "latency_ms", "success", "error_message").
		Values(seqNum, millis(now()), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage)
	if _, err := exec(ctx, s.db, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (s *Store) AppendFunctionCall(ctx context.Context, data FunctionCallEventData) error {
	seqNum, err := s.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ins := sqlite().Insert("function_call_events").
		Columns("sequence", "timestamp", "function", "user_id", "session_id",
			"attempts", "latency_ms", "success", "error_message").
		Values(seqNum, millis(now()), data.Function, data.UserID, data.SessionID,
			data.Attempts, data.LatencyMs, data.Success, data.ErrorMessage)
	if _, err := exec(ctx, s.db, ins); err != nil {
		return fmt.Errorf("save function call event: %w", err)
	}
	return nil
}

type llmEventRow struct {
	Sequence     int64  `sql:"sequence"`
	Timestamp    int64  `sql:"timestamp"`
	Provider     string `sql:"provider"`
	Model        string `sql:"model"`
	Purpose      string `sql:"purpose"`
	InputTokens  int    `sql:"input_tokens"`
	OutputTokens int    `sql:"output_tokens"`
	LatencyMs    int64  `sql:"latency_ms"`
	Success      bool   `sql:"success"`
	ErrorMessage string `sql:"error_message"`
}

type functionEventRow struct {
	Sequence     int64  `sql:"sequence"`
	Timestamp    int64  `sql:"timestamp"`
	Function     string `sql:"function"`
	UserID       string `sql:"user_id"`
	SessionID    string `sql:"session_id"`
	Attempts     int    `sql:"attempts"`
	LatencyMs    int64  `sql:"latency_ms"`
	Success      bool   `sql:"success"`
	ErrorMessage string `sql:"error_message"`
}

// QueryEvents merges both event tables by sequence.
func (s *Store) QueryEvents(ctx context.Context, opts QueryOpts) ([]EventRecord, error) {
	var llm []llmEventRow
	lq := sqlite().Select("sequence", "timestamp", "provider", "model", "purpose",
		"input_tokens", "output_tokens", "latency_ms", "success", "error_message").
		From(sqlite().Table("llm_request_events")).
		OrderBy("sequence")
	if p := eventFilter(opts); p != nil {
		lq.Where(p)
	}
	if err := scan(ctx, s.db, lq, &llm); err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}

	var fns []functionEventRow
	fq := sqlite().Select("sequence", "timestamp", "function", "user_id", "session_id",
		"attempts", "latency_ms", "success", "error_message").
		From(sqlite().Table("function_call_events")).
		OrderBy("sequence")
	if p := eventFilter(opts); p != nil {
		fq.Where(p)
	}
	if err := scan(ctx, s.db, fq, &fns); err != nil {
		return nil, fmt.Errorf("query function events: %w", err)
	}

	out := make([]EventRecord, 0, len(llm)+len(fns))
	for _, r := range llm {
		out = append(out, EventRecord{
			Sequence:  r.Sequence,
			Timestamp: fromMillis(r.Timestamp),
			Kind:      "llm",
			Name:      r.Provider + "/" + r.Model,
			Detail:    fmt.Sprintf("%s in=%d out=%d", r.Purpose, r.InputTokens, r.OutputTokens),
			LatencyMs: r.LatencyMs,
			Success:   r.Success,
			Error:     r.ErrorMessage,

			Model:        r.Model,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
		})
	}
	for _, r := range fns {
		detail := fmt.Sprintf("user=%s attempts=%d", r.UserID, r.Attempts)
		if r.SessionID != "" {
			detail += " session=" + r.SessionID
		}
		out = append(out, EventRecord{
			Sequence:  r.Sequence,
			Timestamp: fromMillis(r.Timestamp),
			Kind:      "function",
			Name:      r.Function,
			Detail:    detail,
			LatencyMs: r.LatencyMs,
			Success:   r.Success,
			Error:     r.ErrorMessage,
		})
	}
	slices.SortFunc(out, func(a, b EventRecord) int { return cmp.Compare(a.Sequence, b.Sequence) })

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return out, nil
}

func eventFilter(opts QueryOpts) *entsql.Predicate {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", millis(opts.From)))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", millis(opts.To)))
	}
	if len(preds) == 0 {
		return nil
	}
	return entsql.And(preds...)
}
