package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/campus/internal/catalog"
)

// GetChapterLessonCompletion returns the distinct lessons the learner
// completed in the chapter.
func (s *Store) GetChapterLessonCompletion(ctx context.Context, userID, chapterID string) (LessonCompletion, error) {
	var rows []lessonProgressRow
	q := sqlite().Select("lesson_id", "chapter_id").
		From(sqlite().Table("lesson_progress")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("chapter_id", chapterID)))
	if err := scan(ctx, s.db, q, &rows); err != nil {
		return LessonCompletion{}, fmt.Errorf("lesson completion for %s: %w", chapterID, err)
	}

	lc := LessonCompletion{ChapterID: chapterID, LessonIDs: make(map[string]struct{}, len(rows))}
	for _, r := range rows {
		lc.LessonIDs[r.LessonID] = struct{}{}
	}
	lc.CompletedCount = len(lc.LessonIDs)
	return lc, nil
}

// UpsertLessonProgress inserts the completion fact once per (user, lesson).
func (s *Store) UpsertLessonProgress(ctx context.Context, userID, lessonID, chapterID, blockID string) (bool, error) {
	ins := sqlite().Insert("lesson_progress").
		Columns("user_id", "lesson_id", "chapter_id", "block_id", "completed_at").
		Values(userID, lessonID, chapterID, blockID, millis(now())).
		OnConflict(
			entsql.ConflictColumns("user_id", "lesson_id"),
			entsql.DoNothing(),
		)
	res, err := exec(ctx, s.db, ins)
	if err != nil {
		return false, fmt.Errorf("upsert lesson progress %s: %w", lessonID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert lesson progress %s: %w", lessonID, err)
	}
	return n > 0, nil
}

// InsertQuizAttempt appends an attempt row.
func (s *Store) InsertQuizAttempt(ctx context.Context, a catalog.QuizAttempt) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = now()
	}
	ins := sqlite().Insert("quiz_attempts").
		Columns("id", "quiz_id", "user_id", "score", "is_completed", "created_at").
		Values(a.ID, a.QuizID, a.UserID, a.Score, a.IsCompleted, millis(created))
	if _, err := exec(ctx, s.db, ins); err != nil {
		return fmt.Errorf("insert attempt for quiz %s: %w", a.QuizID, err)
	}
	return nil
}

// ListQuizAttempts returns the learner's attempts for a quiz, newest first.
func (s *Store) ListQuizAttempts(ctx context.Context, userID, quizID string) ([]catalog.QuizAttempt, error) {
	var rows []attemptRow
	q := sqlite().Select("id", "quiz_id", "user_id", "score", "is_completed", "created_at").
		From(sqlite().Table("quiz_attempts")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("quiz_id", quizID))).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("rowid"))
	if err := scan(ctx, s.db, q, &rows); err != nil {
		return nil, fmt.Errorf("list attempts for quiz %s: %w", quizID, err)
	}

	out := make([]catalog.QuizAttempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.QuizAttempt{
			ID:          r.ID,
			QuizID:      r.QuizID,
			UserID:      r.UserID,
			Score:       r.Score,
			IsCompleted: r.IsCompleted,
			CreatedAt:   fromMillis(r.CreatedAt),
		})
	}
	return out, nil
}

// GetLatestQuizAttempt returns the newest completed attempt, or nil.
func (s *Store) GetLatestQuizAttempt(ctx context.Context, userID, quizID string) (*catalog.QuizAttempt, error) {
	attempts, err := s.ListQuizAttempts(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	for _, a := range attempts {
		if a.IsCompleted {
			return &a, nil
		}
	}
	return nil, nil
}

// GetBestQuizScore returns the highest completed score, or nil.
func (s *Store) GetBestQuizScore(ctx context.Context, userID, quizID string) (*int, error) {
	scores, err := s.loadScores(ctx, userID, []string{quizID})
	if err != nil {
		return nil, err
	}
	return scores[quizID].best, nil
}

// UpsertSkillProgress stores the learner's state for one skill of a block.
func (s *Store) UpsertSkillProgress(ctx context.Context, userID, blockID string, skill catalog.Skill) error {
	ins := sqlite().Insert("skill_progress").
		Columns("user_id", "block_id", "name", "level", "score", "attempts", "updated_at").
		Values(userID, blockID, skill.Name, skill.Level, skill.Score, skill.Attempts, millis(now())).
		OnConflict(
			entsql.ConflictColumns("user_id", "block_id", "name"),
			entsql.ResolveWithNewValues(),
		)
	if _, err := exec(ctx, s.db, ins); err != nil {
		return fmt.Errorf("upsert skill %s/%s: %w", blockID, skill.Name, err)
	}
	return nil
}
