package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var learnerTables = []string{
	"skill_progress", "lesson_progress", "quiz_attempts",
	"formation_enrollments", "block_enrollments", "progress_snapshots",
}

// ResetLearner deletes every learner-scoped row for userID. Content and
// the event log are kept.
func (s *Store) ResetLearner(ctx context.Context, userID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range learnerTables {
			del := sqlite().Delete(table).Where(entsql.EQ("user_id", userID))
			if _, err := exec(ctx, tx, del); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}
