package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/campus/internal/catalog"
	"github.com/abhisek/campus/internal/ingest"
	"github.com/abhisek/campus/internal/quiz"
	"github.com/abhisek/campus/internal/relay"
)

func (h *handler) listFormations(c *gin.Context) {
	list, err := h.Repo.ListFormations(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	type item struct {
		ID         string    `json:"id"`
		Title      string    `json:"title"`
		Blocks     int       `json:"blocks"`
		ImportedAt time.Time `json:"importedAt"`
	}
	out := make([]item, 0, len(list))
	for _, f := range list {
		out = append(out, item{ID: f.ID, Title: f.Title, Blocks: f.Blocks, ImportedAt: f.ImportedAt})
	}
	c.JSON(http.StatusOK, gin.H{"formations": out})
}

// POST /v1/formations
// Body is an import document ({format_version, formation}).
func (h *handler) importFormation(c *gin.Context) {
	f, err := catalog.Decode(c.Request.Body)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondErr(c, err)
			return
		}
		respondError(c, http.StatusBadRequest, "invalid_formation", err)
		return
	}
	if err := h.Repo.SaveFormation(c.Request.Context(), f); err != nil {
		respondErr(c, err)
		return
	}
	h.log.Info("formation imported", "formation", f.ID, "blocks", len(f.Blocks))
	c.JSON(http.StatusCreated, gin.H{"id": f.ID, "blocks": len(f.Blocks)})
}

func (h *handler) listEnrollments(c *gin.Context) {
	rows, err := h.Repo.ListFormationEnrollments(c.Request.Context(), c.Param("user"))
	if err != nil {
		respondErr(c, err)
		return
	}
	type item struct {
		FormationID string     `json:"formationId"`
		Status      string     `json:"status"`
		Progress    float64    `json:"progress"`
		EnrolledAt  time.Time  `json:"enrolledAt"`
		CompletedAt *time.Time `json:"completedAt,omitempty"`
	}
	out := make([]item, 0, len(rows))
	for _, fe := range rows {
		out = append(out, item{
			FormationID: fe.FormationID,
			Status:      fe.Status,
			Progress:    fe.Progress,
			EnrolledAt:  fe.EnrolledAt,
			CompletedAt: fe.CompletedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": out})
}

// GET /v1/users/:user/formations/:formation/progress
func (h *handler) formationProgress(c *gin.Context) {
	rep, err := h.Reader.FormationReport(c.Request.Context(), c.Param("user"), c.Param("formation"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// POST /v1/users/:user/formations/:formation/enroll
func (h *handler) enroll(c *gin.Context) {
	fe, err := h.Writer.Enroll(c.Request.Context(), c.Param("user"), c.Param("formation"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"formationId": fe.FormationID,
		"status":      fe.Status,
		"progress":    fe.Progress,
		"enrolledAt":  fe.EnrolledAt,
	})
}

// POST /v1/users/:user/formations/:formation/refresh
func (h *handler) refreshFormation(c *gin.Context) {
	res, err := h.Writer.RefreshFormation(c.Request.Context(), c.Param("user"), c.Param("formation"))
	if err != nil {
		respondErr(c, err)
		return
	}
	blocks := make([]gin.H, 0, len(res.Blocks))
	for _, b := range res.Blocks {
		blocks = append(blocks, gin.H{"id": b.BlockID, "progress": b.Progress, "started": b.Started, "passed": b.Passed})
	}
	c.JSON(http.StatusOK, gin.H{
		"formationId": res.FormationID,
		"progress":    res.Progress,
		"status":      res.Status,
		"completed":   res.Completed,
		"blocks":      blocks,
	})
}

type completeLessonRequest struct {
	ChapterID string `json:"chapterId" binding:"required"`
	BlockID   string `json:"blockId" binding:"required"`
}

// POST /v1/users/:user/lessons/:lesson/complete
func (h *handler) completeLesson(c *gin.Context) {
	var req completeLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.Writer.ApplyLessonCompletion(c.Request.Context(), c.Param("user"), c.Param("lesson"), req.ChapterID, req.BlockID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chapterProgress":  res.ChapterProgress,
		"blockProgress":    res.BlockProgress,
		"alreadyCompleted": res.AlreadyCompleted,
		"blockCompleted":   res.BlockCompleted,
	})
}

type quizView struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Type      string         `json:"type"`
	Best      *int           `json:"best,omitempty"`
	Latest    *int           `json:"latest,omitempty"`
	Attempts  int            `json:"attempts"`
	Questions []questionView `json:"questions"`
}

type questionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Answers []answerView `json:"answers"`
}

type answerView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// GET /v1/users/:user/quizzes/:quiz
// Questions are listed without correctness or explanations.
func (h *handler) getQuiz(c *gin.Context) {
	q, err := h.Repo.GetQuiz(c.Request.Context(), c.Param("user"), c.Param("quiz"))
	if err != nil {
		respondErr(c, err)
		return
	}
	catalog.SortQuestions(q.Questions)
	v := quizView{
		ID:       q.ID,
		Title:    q.Title,
		Type:     string(q.Type),
		Best:     q.BestScore,
		Latest:   q.LatestScore,
		Attempts: q.AttemptCount,
	}
	for _, qu := range q.Questions {
		qv := questionView{ID: qu.ID, Text: qu.Text}
		for _, a := range qu.Answers {
			qv.Answers = append(qv.Answers, answerView{ID: a.ID, Text: a.Text})
		}
		v.Questions = append(v.Questions, qv)
	}
	c.JSON(http.StatusOK, v)
}

type submitQuizRequest struct {
	Answers []submittedAnswer `json:"answers" binding:"required"`
}

type submittedAnswer struct {
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

type reviewedAnswer struct {
	QuestionID  string   `json:"questionId"`
	AnswerID    string   `json:"answerId"`
	Correct     bool     `json:"correct"`
	CorrectIDs  []string `json:"correctIds"`
	Explanation string   `json:"explanation,omitempty"`
}

// POST /v1/users/:user/quizzes/:quiz/attempts
// Runs a quiz session with one answer per question and records the attempt.
func (h *handler) submitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	userID := c.Param("user")

	q, err := h.Repo.GetQuiz(ctx, userID, c.Param("quiz"))
	if err != nil {
		respondErr(c, err)
		return
	}
	sess, err := quiz.NewSession(*q, userID, h.Writer)
	if err != nil {
		respondErr(c, err)
		return
	}

	chosen := make(map[string]string, len(req.Answers))
	for _, a := range req.Answers {
		if _, dup := chosen[a.QuestionID]; dup {
			respondError(c, http.StatusBadRequest, "invalid_answer", errors.New("question "+a.QuestionID+" answered twice"))
			return
		}
		chosen[a.QuestionID] = a.AnswerID
	}

	review := make([]reviewedAnswer, 0, sess.Total())
	var res quiz.Result
	for sess.Phase() != quiz.Completed {
		cur := sess.Current()
		answerID, ok := chosen[cur.ID]
		if !ok {
			respondError(c, http.StatusBadRequest, "incomplete", errors.New("missing answer for question "+cur.ID))
			return
		}
		fb, err := sess.SelectAnswer(cur.ID, answerID)
		if err != nil {
			respondErr(c, err)
			return
		}
		review = append(review, reviewedAnswer{
			QuestionID:  fb.QuestionID,
			AnswerID:    fb.AnswerID,
			Correct:     fb.Correct,
			CorrectIDs:  fb.CorrectIDs,
			Explanation: fb.Explanation,
		})
		delete(chosen, cur.ID)

		res, err = sess.Advance(ctx)
		if err != nil {
			var perr *quiz.PersistenceError
			if errors.As(err, &perr) {
				c.Error(err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error":  APIError{Message: "the attempt could not be saved; submit again", Code: "persistence", Retryable: true},
					"score":  res.Score,
					"review": review,
				})
				return
			}
			respondErr(c, err)
			return
		}
	}
	if len(chosen) > 0 {
		h.log.Debug("ignored answers for unknown questions", "quiz", q.ID, "count", len(chosen))
	}

	attempt := sess.Attempt()
	c.JSON(http.StatusCreated, gin.H{
		"attemptId": attempt.ID,
		"score":     res.Score,
		"correct":   res.Correct,
		"total":     res.Total,
		"passed":    res.Score >= catalog.PassThreshold,
		"review":    review,
	})
}

// GET /v1/users/:user/quizzes/:quiz/attempts
func (h *handler) listAttempts(c *gin.Context) {
	ctx := c.Request.Context()
	userID, quizID := c.Param("user"), c.Param("quiz")

	attempts, err := h.Repo.ListQuizAttempts(ctx, userID, quizID)
	if err != nil {
		respondErr(c, err)
		return
	}
	best, err := h.Repo.GetBestQuizScore(ctx, userID, quizID)
	if err != nil {
		respondErr(c, err)
		return
	}
	var latest *int
	if len(attempts) > 0 {
		latest = &attempts[0].Score
	}
	c.JSON(http.StatusOK, gin.H{
		"quizId":   quizID,
		"best":     best,
		"latest":   latest,
		"attempts": attempts,
	})
}

// POST /v1/functions/chat
func (h *handler) chat(c *gin.Context) {
	if h.Relay == nil {
		respondError(c, http.StatusServiceUnavailable, "not_configured", errors.New("chat relay is not configured"))
		return
	}
	var req relay.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	resp, err := h.Relay.Chat(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /v1/functions/ingest
func (h *handler) ingest(c *gin.Context) {
	if h.Ingest == nil {
		respondError(c, http.StatusServiceUnavailable, "not_configured", errors.New("document ingestion is not configured"))
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondErr(c, err)
		return
	}
	if ct := c.ContentType(); ct != "" && !strings.HasSuffix(ct, "json") {
		respondError(c, http.StatusUnsupportedMediaType, "invalid_request", errors.New("expected a JSON body"))
		return
	}
	req, err := ingest.DecodeRequest(raw)
	if err != nil {
		respondErr(c, err)
		return
	}
	res, err := h.Ingest.Ingest(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
