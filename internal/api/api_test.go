package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/campus/internal/enrollment"
	"github.com/abhisek/campus/internal/ingest"
	"github.com/abhisek/campus/internal/llm"
	"github.com/abhisek/campus/internal/relay"
	"github.com/abhisek/campus/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type env struct {
	router *gin.Engine
	store  *store.Store
}

func newEnv(t *testing.T, mutate ...func(*Deps)) *env {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "campus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	d := Deps{
		Repo:   s,
		Writer: enrollment.NewWriter(s, s.SnapshotRepo(), nil),
		Reader: enrollment.NewReader(s),
	}
	for _, fn := range mutate {
		fn(&d)
	}
	return &env{router: NewRouter(d), store: s}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	code, _ := e["code"].(string)
	return code
}

// imported returns an env with the Go formation imported and "ada" enrolled.
func imported(t *testing.T, mutate ...func(*Deps)) *env {
	t.Helper()
	e := newEnv(t, mutate...)
	doc, err := os.ReadFile(filepath.Join("..", "catalog", "testdata", "formation.json"))
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/v1/formations", doc)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/v1/users/ada/formations/f-go/enroll", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return e
}

func TestHealthCheck(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestImportAndList(t *testing.T) {
	e := imported(t)

	rec := e.do(t, http.MethodGet, "/v1/formations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["formations"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "f-go", list[0].(map[string]any)["id"])

	rec = e.do(t, http.MethodGet, "/v1/users/ada/formations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	enrolled := decode(t, rec)["enrollments"].([]any)
	require.Len(t, enrolled, 1)
	assert.Equal(t, "in_progress", enrolled[0].(map[string]any)["status"])
}

func TestImport_Invalid(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/v1/formations", []byte(`{"format_version":"v2.0.0","formation":{}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_formation", errorCode(t, rec))
}

func TestFormationProgress(t *testing.T) {
	e := imported(t)

	rec := e.do(t, http.MethodGet, "/v1/users/ada/formations/f-go/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rep enrollment.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.True(t, rep.Enrolled)
	// Skills block: (80 + 25) / 2; the chapters block has not started.
	assert.Equal(t, 26.25, rep.Progress)
	require.Len(t, rep.Blocks, 2)
	assert.Equal(t, "b-basics", rep.Blocks[0].ID)
	assert.Equal(t, 52.5, rep.Blocks[0].Progress)
	assert.False(t, rep.Blocks[1].Started)

	rec = e.do(t, http.MethodGet, "/v1/users/ada/formations/nope/progress", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompleteLesson(t *testing.T) {
	e := imported(t)
	body := map[string]string{"chapterId": "c-channels", "blockId": "b-concurrency"}

	rec := e.do(t, http.MethodPost, "/v1/users/ada/lessons/l-buffered/complete", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	// One of two lessons, chapter quiz not passed: 0.75 * 50.
	assert.Equal(t, 37.5, out["chapterProgress"])
	assert.Equal(t, 30.0, out["blockProgress"])
	assert.Equal(t, false, out["alreadyCompleted"])

	rec = e.do(t, http.MethodPost, "/v1/users/ada/lessons/l-buffered/complete", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["alreadyCompleted"])

	be, err := e.store.GetBlockEnrollment(context.Background(), "ada", "b-concurrency")
	require.NoError(t, err)
	assert.Equal(t, 30.0, be.Progress)
}

func TestCompleteLesson_Errors(t *testing.T) {
	e := imported(t)
	tests := []struct {
		name   string
		lesson string
		body   any
		status int
	}{
		{"missing fields", "l-buffered", map[string]string{"chapterId": "c-channels"}, http.StatusBadRequest},
		{"wrong chapter", "l-buffered", map[string]string{"chapterId": "c-other", "blockId": "b-concurrency"}, http.StatusUnprocessableEntity},
		{"wrong lesson", "l-nope", map[string]string{"chapterId": "c-channels", "blockId": "b-concurrency"}, http.StatusUnprocessableEntity},
		{"skills block", "l-buffered", map[string]string{"chapterId": "c-channels", "blockId": "b-basics"}, http.StatusUnprocessableEntity},
		{"unknown block", "l-buffered", map[string]string{"chapterId": "c-channels", "blockId": "b-nope"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/v1/users/ada/lessons/"+tt.lesson+"/complete", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestCompleteLesson_NotEnrolled(t *testing.T) {
	e := imported(t)
	body := map[string]string{"chapterId": "c-channels", "blockId": "b-concurrency"}

	rec := e.do(t, http.MethodPost, "/v1/users/bob/lessons/l-buffered/complete", body)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "not_enrolled", errorCode(t, rec))

	rec = e.do(t, http.MethodPost, "/v1/users/ada/lessons/l-buffered/complete", body)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetQuiz_HidesAnswers(t *testing.T) {
	e := imported(t)
	rec := e.do(t, http.MethodGet, "/v1/users/ada/quizzes/q-channels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "is_correct")
	assert.NotContains(t, rec.Body.String(), "correct")

	var v quizView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Len(t, v.Questions, 1)
	assert.Equal(t, "a-receiver", v.Questions[0].Answers[0].ID, "answers in order_index order")
}

func TestSubmitQuiz(t *testing.T) {
	e := imported(t)
	submit := func(answer string) *httptest.ResponseRecorder {
		return e.do(t, http.MethodPost, "/v1/users/ada/quizzes/q-channels/attempts", map[string]any{
			"answers": []map[string]string{{"questionId": "qq-close", "answerId": answer}},
		})
	}

	rec := submit("a-receiver")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, 0.0, out["score"])
	assert.Equal(t, false, out["passed"])

	rec = submit("a-sender")
	require.Equal(t, http.StatusCreated, rec.Code)
	out = decode(t, rec)
	assert.Equal(t, 100.0, out["score"])
	assert.Equal(t, true, out["passed"])
	review := out["review"].([]any)
	require.Len(t, review, 1)
	assert.Equal(t, []any{"a-sender"}, review[0].(map[string]any)["correctIds"])

	rec = e.do(t, http.MethodGet, "/v1/users/ada/quizzes/q-channels/attempts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode(t, rec)
	assert.Equal(t, 100.0, hist["best"])
	assert.Equal(t, 100.0, hist["latest"])
	assert.Len(t, hist["attempts"], 2)

	rec = submit("a-receiver")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(t, http.MethodGet, "/v1/users/ada/quizzes/q-channels/attempts", nil)
	hist = decode(t, rec)
	assert.Equal(t, 100.0, hist["best"], "best score is kept")
	assert.Equal(t, 0.0, hist["latest"])
}

func TestSubmitQuiz_Errors(t *testing.T) {
	e := imported(t)
	tests := []struct {
		name    string
		answers []map[string]string
		status  int
		code    string
	}{
		{"missing answer", []map[string]string{}, http.StatusBadRequest, "incomplete"},
		{"unknown answer", []map[string]string{{"questionId": "qq-close", "answerId": "a-nope"}}, http.StatusBadRequest, "invalid_answer"},
		{"duplicate", []map[string]string{
			{"questionId": "qq-close", "answerId": "a-sender"},
			{"questionId": "qq-close", "answerId": "a-receiver"},
		}, http.StatusBadRequest, "invalid_answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/v1/users/ada/quizzes/q-channels/attempts", map[string]any{"answers": tt.answers})
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	attempts, err := e.store.ListQuizAttempts(context.Background(), "ada", "q-channels")
	require.NoError(t, err)
	assert.Empty(t, attempts, "rejected submissions record nothing")

	rec := e.do(t, http.MethodPost, "/v1/users/ada/quizzes/q-nope/attempts", map[string]any{"answers": []any{}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubUpstream struct {
	err error
}

func (s stubUpstream) Name() string { return "stub" }

func (s stubUpstream) Call(_ context.Context, req relay.Request) (relay.Response, error) {
	if s.err != nil {
		return relay.Response{}, s.err
	}
	return relay.Response{Response: "you said " + req.ChatInput}, nil
}

func TestChat(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		e := newEnv(t)
		rec := e.do(t, http.MethodPost, "/v1/functions/chat", map[string]string{"userId": "ada", "chatInput": "hi"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "not_configured", errorCode(t, rec))
	})

	t.Run("ok", func(t *testing.T) {
		e := newEnv(t, func(d *Deps) { d.Relay = relay.New(stubUpstream{}, relay.Options{}) })
		rec := e.do(t, http.MethodPost, "/v1/functions/chat", map[string]string{
			"sessionId": "s-1", "action": "sendMessage", "userId": "ada", "chatInput": "hi",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		out := decode(t, rec)
		assert.Equal(t, "you said hi", out["response"])
		assert.Equal(t, "s-1", out["sessionId"])
	})

	t.Run("invalid", func(t *testing.T) {
		e := newEnv(t, func(d *Deps) { d.Relay = relay.New(stubUpstream{}, relay.Options{}) })
		rec := e.do(t, http.MethodPost, "/v1/functions/chat", map[string]string{"chatInput": "hi"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream kinds", func(t *testing.T) {
		tests := []struct {
			kind   relay.Kind
			status int
		}{
			{relay.KindUnavailable, http.StatusServiceUnavailable},
			{relay.KindInternal, http.StatusBadGateway},
			{relay.KindMalformed, http.StatusBadGateway},
		}
		for _, tt := range tests {
			up := stubUpstream{err: &relay.UpstreamError{Kind: tt.kind, Err: errors.New("boom")}}
			e := newEnv(t, func(d *Deps) { d.Relay = relay.New(up, relay.Options{Retries: -1}) })
			rec := e.do(t, http.MethodPost, "/v1/functions/chat", map[string]string{"userId": "ada", "chatInput": "hi"})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, string(tt.kind), errorCode(t, rec))
		}
	})
}

func TestIngest(t *testing.T) {
	index := ingest.NewMemoryIndex()
	withIngest := func(d *Deps) {
		files, err := ingest.NewLocalFileStore(t.TempDir())
		require.NoError(t, err)
		d.Ingest = ingest.NewService(files, llm.NewMockEmbedder(4), index, ingest.Options{Namespace: "campus"})
	}
	e := newEnv(t, withIngest)

	body := "Select waits on several channel operations."
	rec := e.do(t, http.MethodPost, "/v1/functions/ingest", map[string]any{
		"file": map[string]any{
			"name": "select.txt",
			"type": "text/plain",
			"size": len(body),
			"data": base64.StdEncoding.EncodeToString([]byte(body)),
		},
		"category": "concurrency",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Contains(t, out["filePath"], "concurrency/")
	id, _ := out["pineconeId"].(string)
	_, ok := index.Get("campus", id)
	assert.True(t, ok)

	rec = e.do(t, http.MethodPost, "/v1/functions/ingest", map[string]any{"category": "concurrency"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestBodyLimit(t *testing.T) {
	e := newEnv(t, func(d *Deps) { d.MaxBodyBytes = 16 })
	rec := e.do(t, http.MethodPost, "/v1/formations", bytes.Repeat([]byte("x"), 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
