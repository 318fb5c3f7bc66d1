package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/campus/internal/enrollment"
	"github.com/abhisek/campus/internal/ingest"
	"github.com/abhisek/campus/internal/quiz"
	"github.com/abhisek/campus/internal/relay"
	"github.com/abhisek/campus/internal/store"
	"github.com/abhisek/campus/internal/validate"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

type retryable interface{ Retryable() bool }

// respondErr maps a domain error to its status and error code.
func respondErr(c *gin.Context, err error) {
	var (
		upErr      *relay.UpstreamError
		reqErr     *ingest.RequestError
		stageErr   *ingest.StageError
		schemaErr  *validate.Error
		maxBytes   *http.MaxBytesError
		retryErr   retryable
		quizPreErr *quiz.PreconditionError
	)
	switch {
	case errors.As(err, &maxBytes):
		respondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
	case errors.Is(err, enrollment.ErrNotEnrolled):
		respondError(c, http.StatusConflict, "not_enrolled", err)
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, enrollment.ErrLessonNotInChapter),
		errors.Is(err, enrollment.ErrChapterNotInBlock),
		errors.Is(err, enrollment.ErrNotChaptersBlock),
		errors.Is(err, enrollment.ErrInvalidScore):
		respondError(c, http.StatusUnprocessableEntity, "mismatch", err)
	case errors.As(err, &quizPreErr):
		respondError(c, http.StatusUnprocessableEntity, "quiz_unavailable", err)
	case errors.Is(err, quiz.ErrUnknownQuestion), errors.Is(err, quiz.ErrUnknownAnswer):
		respondError(c, http.StatusBadRequest, "invalid_answer", err)
	case errors.Is(err, relay.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.As(err, &reqErr), errors.As(err, &schemaErr):
		respondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.As(err, &upErr):
		status := http.StatusBadGateway
		if upErr.Kind == relay.KindUnavailable {
			status = http.StatusServiceUnavailable
		}
		c.Error(err)
		c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{
			Message:   upErr.Message(),
			Code:      string(upErr.Kind),
			Retryable: upErr.Retryable(),
		}})
	case errors.As(err, &stageErr):
		status := http.StatusBadGateway
		switch stageErr.Stage {
		case ingest.StageExtract:
			status = http.StatusUnprocessableEntity
		case ingest.StageStore:
			status = http.StatusInternalServerError
		}
		respondError(c, status, "ingest_"+string(stageErr.Stage), err)
	case errors.As(err, &retryErr) && retryErr.Retryable():
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorEnvelope{Error: APIError{
			Message:   err.Error(),
			Code:      "persistence",
			Retryable: true,
		}})
	default:
		respondError(c, http.StatusInternalServerError, "internal", err)
	}
}
