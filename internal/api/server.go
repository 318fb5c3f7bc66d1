// Package api serves learner progress, quiz submission, chat and document
// ingestion over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/campus/internal/enrollment"
	"github.com/abhisek/campus/internal/ingest"
	"github.com/abhisek/campus/internal/logger"
	"github.com/abhisek/campus/internal/relay"
	"github.com/abhisek/campus/internal/store"
)

// Repository is the persistence the handlers read directly.
type Repository interface {
	store.ContentRepo
	store.ProgressRepo
	store.EnrollmentRepo
}

// Deps are the collaborators of the HTTP server. Relay and Ingest may be
// nil; their routes then answer 503.
type Deps struct {
	Repo   Repository
	Writer *enrollment.Writer
	Reader *enrollment.Reader
	Relay  *relay.Relay
	Ingest *ingest.Service
	Log    *logger.Logger

	// MaxBodyBytes bounds request bodies. Zero means 16 MiB.
	MaxBodyBytes int64
}

type handler struct {
	Deps
	log *logger.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = 16 << 20
	}
	h := &handler{Deps: d, log: d.Log.With("component", "api")}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log), bodyLimit(d.MaxBodyBytes))

	router.GET("/healthcheck", healthCheck)

	v1 := router.Group("/v1")
	{
		v1.GET("/formations", h.listFormations)
		v1.POST("/formations", h.importFormation)
	}

	users := v1.Group("/users/:user")
	{
		users.GET("/formations", h.listEnrollments)
		users.GET("/formations/:formation/progress", h.formationProgress)
		users.POST("/formations/:formation/enroll", h.enroll)
		users.POST("/formations/:formation/refresh", h.refreshFormation)
		users.POST("/lessons/:lesson/complete", h.completeLesson)
		users.GET("/quizzes/:quiz", h.getQuiz)
		users.POST("/quizzes/:quiz/attempts", h.submitQuiz)
		users.GET("/quizzes/:quiz/attempts", h.listAttempts)
	}

	functions := v1.Group("/functions")
	{
		functions.POST("/chat", h.chat)
		functions.POST("/ingest", h.ingest)
	}
	return router
}

// Serve runs the router on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, router http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func healthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		kv := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request", kv...)
			return
		}
		log.Debug("request", kv...)
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
