// Package enrollment applies learner events to enrollment rows and builds
// read-time progress reports.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/abhisek/campus/internal/catalog"
	"github.com/abhisek/campus/internal/logger"
	"github.com/abhisek/campus/internal/progress"
	"github.com/abhisek/campus/internal/store"
)

// Repository is the persistence the writer needs.
type Repository interface {
	store.ContentRepo
	store.ProgressRepo
	store.EnrollmentRepo
}

// SnapshotKeep is how many progress snapshots RefreshFormation retains per
// learner and formation.
const SnapshotKeep = 20

// Writer turns lesson completions and quiz attempts into stored state.
type Writer struct {
	repo      Repository
	snapshots store.SnapshotRepo
	log       *logger.Logger
}

// NewWriter creates a Writer. snapshots may be nil.
func NewWriter(repo Repository, snapshots store.SnapshotRepo, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Nop()
	}
	return &Writer{repo: repo, snapshots: snapshots, log: log}
}

// LessonResult is the recomputed progress after a lesson completion.
type LessonResult struct {
	ChapterProgress  float64
	BlockProgress    float64
	AlreadyCompleted bool
	BlockCompleted   bool
}

// ApplyLessonCompletion marks the lesson complete, recomputes chapter and
// block progress and stores the block progress. Completing a lesson twice
// is not an error; the second call reports AlreadyCompleted and the current
// progress. The learner must be enrolled in the block's formation.
// Formation progress is left to read time.
func (w *Writer) ApplyLessonCompletion(ctx context.Context, userID, lessonID, chapterID, blockID string) (LessonResult, error) {
	block, err := w.repo.GetBlock(ctx, userID, blockID)
	if err != nil {
		return LessonResult{}, fmt.Errorf("load block %s: %w", blockID, err)
	}
	if block.Kind != catalog.KindChapters {
		return LessonResult{}, fmt.Errorf("block %s: %w", blockID, ErrNotChaptersBlock)
	}
	ch, ok := block.Chapter(chapterID)
	if !ok {
		return LessonResult{}, fmt.Errorf("chapter %s, block %s: %w", chapterID, blockID, ErrChapterNotInBlock)
	}
	if !hasLesson(*ch, lessonID) {
		return LessonResult{}, fmt.Errorf("lesson %s, chapter %s: %w", lessonID, chapterID, ErrLessonNotInChapter)
	}
	if _, err := w.repo.GetFormationEnrollment(ctx, userID, block.FormationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LessonResult{}, fmt.Errorf("%s in formation %s: %w", userID, block.FormationID, ErrNotEnrolled)
		}
		return LessonResult{}, fmt.Errorf("load enrollment: %w", err)
	}

	created, err := w.repo.UpsertLessonProgress(ctx, userID, lessonID, chapterID, blockID)
	if err != nil {
		return LessonResult{}, &PersistenceError{Op: "mark lesson complete", Err: err}
	}

	done, err := w.repo.GetChapterLessonCompletion(ctx, userID, chapterID)
	if err != nil {
		return LessonResult{}, fmt.Errorf("recount chapter %s: %w", chapterID, err)
	}
	ch.CompletedLessons = 0
	for _, l := range ch.Lessons {
		if _, ok := done.LessonIDs[l.ID]; ok {
			ch.CompletedLessons++
		}
	}

	chapterProgress, err := progress.ChapterTotal(*ch)
	if err != nil {
		return LessonResult{}, err
	}
	blockProgress := Round(progress.BlockProgress(*block))

	if err := w.repo.UpdateBlockEnrollmentProgress(ctx, userID, blockID, blockProgress); err != nil {
		return LessonResult{}, &PersistenceError{Op: "store block progress", Err: err}
	}

	res := LessonResult{
		ChapterProgress:  Round(chapterProgress),
		BlockProgress:    blockProgress,
		AlreadyCompleted: !created,
		BlockCompleted:   progress.Full(blockProgress),
	}
	w.log.Info("lesson completed",
		"user", userID,
		"lesson", lessonID,
		"chapter_progress", res.ChapterProgress,
		"block_progress", res.BlockProgress,
		"repeat", res.AlreadyCompleted,
	)
	return res, nil
}

// ApplyQuizAttempt appends the attempt. Enrollment progress is not touched;
// quiz credit is folded in when progress is next read.
func (w *Writer) ApplyQuizAttempt(ctx context.Context, attempt catalog.QuizAttempt) error {
	if attempt.Score < 0 || attempt.Score > 100 {
		return fmt.Errorf("attempt %s score %d: %w", attempt.ID, attempt.Score, ErrInvalidScore)
	}
	if err := w.repo.InsertQuizAttempt(ctx, attempt); err != nil {
		return &PersistenceError{Op: "record quiz attempt", Err: err}
	}
	w.log.Info("quiz attempt recorded", "user", attempt.UserID, "quiz", attempt.QuizID, "score", attempt.Score)
	return nil
}

// InsertQuizAttempt lets a Writer record attempts for quiz sessions.
func (w *Writer) InsertQuizAttempt(ctx context.Context, attempt catalog.QuizAttempt) error {
	return w.ApplyQuizAttempt(ctx, attempt)
}

// Enroll registers the learner on a formation and all of its blocks.
func (w *Writer) Enroll(ctx context.Context, userID, formationID string) (*store.FormationEnrollment, error) {
	fe, err := w.repo.EnrollFormation(ctx, userID, formationID)
	if err != nil {
		return nil, &PersistenceError{Op: "enroll", Err: err}
	}
	w.log.Info("enrolled", "user", userID, "formation", formationID)
	return fe, nil
}

// BlockResult is one block's recomputed state.
type BlockResult struct {
	BlockID  string
	Progress float64
	Started  bool
	Passed   bool
}

// FormationResult is the outcome of RefreshFormation.
type FormationResult struct {
	FormationID string
	Progress    float64
	Completed   bool
	Status      string
	Blocks      []BlockResult
}

// RefreshFormation recomputes every block and the formation from current
// learner state and stores them. The formation becomes completed once its
// progress is 100 and every block passes; completion is never undone.
func (w *Writer) RefreshFormation(ctx context.Context, userID, formationID string) (FormationResult, error) {
	f, err := w.repo.GetFormation(ctx, userID, formationID)
	if err != nil {
		return FormationResult{}, fmt.Errorf("load formation %s: %w", formationID, err)
	}

	res := FormationResult{
		FormationID: formationID,
		Progress:    Round(progress.FormationProgress(*f)),
		Completed:   progress.FormationComplete(*f),
	}
	for _, b := range f.Blocks {
		res.Blocks = append(res.Blocks, BlockResult{
			BlockID:  b.ID,
			Progress: Round(progress.BlockProgress(b)),
			Started:  progress.BlockStarted(b),
			Passed:   progress.BlockPassed(b),
		})
	}

	for _, b := range res.Blocks {
		if err := w.repo.UpdateBlockEnrollmentProgress(ctx, userID, b.BlockID, b.Progress); err != nil {
			return FormationResult{}, &PersistenceError{Op: "store block progress", Err: err}
		}
	}
	if err := w.repo.UpdateFormationEnrollment(ctx, userID, formationID, res.Progress, res.Completed); err != nil {
		return FormationResult{}, &PersistenceError{Op: "store formation progress", Err: err}
	}

	fe, err := w.repo.GetFormationEnrollment(ctx, userID, formationID)
	if err != nil {
		return FormationResult{}, fmt.Errorf("reload enrollment: %w", err)
	}
	res.Status = fe.Status
	res.Completed = fe.Status == store.StatusCompleted

	w.snapshot(ctx, userID, res)
	w.log.Info("formation refreshed", "user", userID, "formation", formationID, "progress", res.Progress, "status", res.Status)
	return res, nil
}

// snapshot records the refresh in the progress history. Failures are logged
// and do not fail the refresh.
func (w *Writer) snapshot(ctx context.Context, userID string, res FormationResult) {
	if w.snapshots == nil {
		return
	}
	data := store.SnapshotData{
		Version:   1,
		Progress:  res.Progress,
		Status:    res.Status,
		Completed: res.Completed,
		Blocks:    make(map[string]float64, len(res.Blocks)),
	}
	for _, b := range res.Blocks {
		data.Blocks[b.BlockID] = b.Progress
	}
	snap := &store.Snapshot{UserID: userID, FormationID: res.FormationID, Data: data}
	if err := w.snapshots.Save(ctx, snap); err != nil {
		w.log.Warn("save progress snapshot", "error", err)
		return
	}
	if err := w.snapshots.Prune(ctx, userID, res.FormationID, SnapshotKeep); err != nil {
		w.log.Warn("prune progress snapshots", "error", err)
	}
}

func hasLesson(ch catalog.Chapter, lessonID string) bool {
	for _, l := range ch.Lessons {
		if l.ID == lessonID {
			return true
		}
	}
	return false
}

// Round keeps two decimals. Stored progress is rounded so that re-reading
// an enrollment returns exactly what was written.
func Round(p float64) float64 {
	return math.Round(p*100) / 100
}
