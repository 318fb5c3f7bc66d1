package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var enrollmentColumns = []string{"user_id", "formation_id", "status", "progress", "enrolled_at", "updated_at", "completed_at"}

// EnrollFormation registers the learner on the formation and each of its
// blocks. Existing enrollments keep their progress and status.
func (s *Store) EnrollFormation(ctx context.Context, userID, formationID string) (*FormationEnrollment, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var blocks []struct {
			ID string `sql:"id"`
		}
		bq := sqlite().Select("id").
			From(sqlite().Table("blocks")).
			Where(entsql.EQ("formation_id", formationID))
		if err := scan(ctx, tx, bq, &blocks); err != nil {
			return fmt.Errorf("list blocks of %s: %w", formationID, err)
		}
		if len(blocks) == 0 {
			return fmt.Errorf("formation %s: %w", formationID, ErrNotFound)
		}

		ts := millis(now())
		ins := sqlite().Insert("formation_enrollments").
			Columns("user_id", "formation_id", "status", "progress", "enrolled_at", "updated_at").
			Values(userID, formationID, StatusInProgress, 0.0, ts, ts).
			OnConflict(entsql.ConflictColumns("user_id", "formation_id"), entsql.DoNothing())
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("enroll %s in %s: %w", userID, formationID, err)
		}

		for _, b := range blocks {
			ins := sqlite().Insert("block_enrollments").
				Columns("user_id", "block_id", "formation_id", "status", "progress", "enrolled_at", "updated_at").
				Values(userID, b.ID, formationID, StatusInProgress, 0.0, ts, ts).
				OnConflict(entsql.ConflictColumns("user_id", "block_id"), entsql.DoNothing())
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("enroll %s in block %s: %w", userID, b.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetFormationEnrollment(ctx, userID, formationID)
}

// GetFormationEnrollment returns ErrNotFound when the learner is not enrolled.
func (s *Store) GetFormationEnrollment(ctx context.Context, userID, formationID string) (*FormationEnrollment, error) {
	rows, err := s.formationEnrollments(ctx, entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("formation_id", formationID),
	))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("enrollment of %s in %s: %w", userID, formationID, ErrNotFound)
	}
	return &rows[0], nil
}

// ListFormationEnrollments returns the learner's formations, oldest first.
func (s *Store) ListFormationEnrollments(ctx context.Context, userID string) ([]FormationEnrollment, error) {
	return s.formationEnrollments(ctx, entsql.EQ("user_id", userID))
}

func (s *Store) formationEnrollments(ctx context.Context, where *entsql.Predicate) ([]FormationEnrollment, error) {
	var rows []enrollmentRow
	q := sqlite().Select(enrollmentColumns...).
		From(sqlite().Table("formation_enrollments")).
		Where(where).
		OrderBy("enrolled_at", "formation_id")
	if err := scan(ctx, s.db, q, &rows); err != nil {
		return nil, fmt.Errorf("query formation enrollments: %w", err)
	}
	out := make([]FormationEnrollment, 0, len(rows))
	for _, r := range rows {
		out = append(out, FormationEnrollment{
			UserID:      r.UserID,
			FormationID: r.FormationID,
			Status:      r.Status,
			Progress:    r.Progress,
			EnrolledAt:  fromMillis(r.EnrolledAt),
			UpdatedAt:   fromMillis(r.UpdatedAt),
			CompletedAt: fromMillisPtr(r.CompletedAt),
		})
	}
	return out, nil
}

// GetBlockEnrollment returns ErrNotFound when no row exists.
func (s *Store) GetBlockEnrollment(ctx context.Context, userID, blockID string) (*BlockEnrollment, error) {
	rows, err := s.blockEnrollments(ctx, entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("block_id", blockID),
	))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("enrollment of %s in block %s: %w", userID, blockID, ErrNotFound)
	}
	return &rows[0], nil
}

// ListBlockEnrollments returns the learner's block rows for a formation.
func (s *Store) ListBlockEnrollments(ctx context.Context, userID, formationID string) ([]BlockEnrollment, error) {
	return s.blockEnrollments(ctx, entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("formation_id", formationID),
	))
}

func (s *Store) blockEnrollments(ctx context.Context, where *entsql.Predicate) ([]BlockEnrollment, error) {
	var rows []enrollmentRow
	q := sqlite().Select(append([]string{"block_id"}, enrollmentColumns...)...).
		From(sqlite().Table("block_enrollments")).
		Where(where).
		OrderBy("enrolled_at", "block_id")
	if err := scan(ctx, s.db, q, &rows); err != nil {
		return nil, fmt.Errorf("query block enrollments: %w", err)
	}
	out := make([]BlockEnrollment, 0, len(rows))
	for _, r := range rows {
		out = append(out, BlockEnrollment{
			UserID:      r.UserID,
			BlockID:     r.BlockID,
			FormationID: r.FormationID,
			Status:      r.Status,
			Progress:    r.Progress,
			EnrolledAt:  fromMillis(r.EnrolledAt),
			UpdatedAt:   fromMillis(r.UpdatedAt),
			CompletedAt: fromMillisPtr(r.CompletedAt),
		})
	}
	return out, nil
}

// UpdateBlockEnrollmentProgress upserts the block row in one statement.
// The status and completed_at only ever move forward.
func (s *Store) UpdateBlockEnrollmentProgress(ctx context.Context, userID, blockID string, progress float64) error {
	var owner []struct {
		FormationID string `sql:"formation_id"`
	}
	oq := sqlite().Select("formation_id").
		From(sqlite().Table("blocks")).
		Where(entsql.EQ("id", blockID))
	if err := scan(ctx, s.db, oq, &owner); err != nil {
		return fmt.Errorf("look up block %s: %w", blockID, err)
	}
	if len(owner) == 0 {
		return fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}

	ts := millis(now())
	status, completedAt := StatusInProgress, (*int64)(nil)
	if progress >= 100 {
		status, completedAt = StatusCompleted, &ts
	}

	ins := sqlite().Insert("block_enrollments").
		Columns("user_id", "block_id", "formation_id", "status", "progress", "enrolled_at", "updated_at", "completed_at").
		Values(userID, blockID, owner[0].FormationID, status, progress, ts, ts, completedAt).
		OnConflict(
			entsql.ConflictColumns("user_id", "block_id"),
			entsql.ResolveWith(forwardOnly("block_enrollments")),
		)
	if _, err := exec(ctx, s.db, ins); err != nil {
		return fmt.Errorf("update block enrollment %s/%s: %w", userID, blockID, err)
	}
	return nil
}

// UpdateFormationEnrollment upserts the formation row. complete marks the
// formation completed; it never reverts to in_progress.
func (s *Store) UpdateFormationEnrollment(ctx context.Context, userID, formationID string, progress float64, complete bool) error {
	ts := millis(now())
	status, completedAt := StatusInProgress, (*int64)(nil)
	if complete {
		status, completedAt = StatusCompleted, &ts
	}

	ins := sqlite().Insert("formation_enrollments").
		Columns("user_id", "formation_id", "status", "progress", "enrolled_at", "updated_at", "completed_at").
		Values(userID, formationID, status, progress, ts, ts, completedAt).
		OnConflict(
			entsql.ConflictColumns("user_id", "formation_id"),
			entsql.ResolveWith(forwardOnly("formation_enrollments")),
		)
	if _, err := exec(ctx, s.db, ins); err != nil {
		return fmt.Errorf("update formation enrollment %s/%s: %w", userID, formationID, err)
	}
	return nil
}

// forwardOnly builds the conflict update for enrollment upserts: progress
// and updated_at take the new values, status and completed_at keep a prior
// completion.
func forwardOnly(table string) func(*entsql.UpdateSet) {
	return func(u *entsql.UpdateSet) {
		u.SetExcluded("progress")
		u.SetExcluded("updated_at")
		u.Set("status", entsql.Expr(fmt.Sprintf(
			"CASE WHEN `%s`.`status` = '%s' THEN `%s`.`status` ELSE `excluded`.`status` END",
			table, StatusCompleted, table,
		)))
		u.Set("completed_at", entsql.Expr(fmt.Sprintf(
			"COALESCE(`%s`.`completed_at`, `excluded`.`completed_at`)", table,
		)))
	}
}
