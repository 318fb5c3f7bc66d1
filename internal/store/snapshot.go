package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// snapshotRepo implements SnapshotRepo on the progress_snapshots table.
type snapshotRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

// SnapshotRepo returns a SnapshotRepo backed by this store.
func (s *Store) SnapshotRepo() SnapshotRepo {
	return &snapshotRepo{db: s.db, seq: s.seq}
}

type snapshotRow struct {
	ID          int    `sql:"id"`
	Sequence    int64  `sql:"sequence"`
	UserID      string `sql:"user_id"`
	FormationID string `sql:"formation_id"`
	Timestamp   int64  `sql:"timestamp"`
	Data        string `sql:"data"`
}

var snapshotColumns = []string{"id", "sequence", "user_id", "formation_id", "timestamp", "data"}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}
	if snap.Sequence == 0 {
		if snap.Sequence, err = r.seq.Next(ctx); err != nil {
			return err
		}
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = now()
	}

	ins := sqlite().Insert("progress_snapshots").
		Columns("sequence", "user_id", "formation_id", "timestamp", "data").
		Values(snap.Sequence, snap.UserID, snap.FormationID, millis(snap.Timestamp), string(data))
	res, err := exec(ctx, r.db, ins)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context, userID, formationID string) (*Snapshot, error) {
	rows, err := r.query(ctx, userID, formationID, entsql.Desc("timestamp"), entsql.Desc("id"))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *snapshotRepo) History(ctx context.Context, userID, formationID string) ([]Snapshot, error) {
	return r.query(ctx, userID, formationID, "timestamp", "id")
}

func (r *snapshotRepo) Prune(ctx context.Context, userID, formationID string, keep int) error {
	rows, err := r.query(ctx, userID, formationID, entsql.Desc("timestamp"), entsql.Desc("id"))
	if err != nil {
		return fmt.Errorf("query snapshots for prune: %w", err)
	}
	if len(rows) <= keep {
		return nil // fewer than keep snapshots exist
	}

	var stale []any
	for _, s := range rows[keep:] {
		stale = append(stale, s.ID)
	}
	del := sqlite().Delete("progress_snapshots").Where(entsql.In("id", stale...))
	if _, err := exec(ctx, r.db, del); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

func (r *snapshotRepo) query(ctx context.Context, userID, formationID string, order ...string) ([]Snapshot, error) {
	var rows []snapshotRow
	q := sqlite().Select(snapshotColumns...).
		From(sqlite().Table("progress_snapshots")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("formation_id", formationID))).
		OrderBy(order...)
	if err := scan(ctx, r.db, q, &rows); err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}

	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		var data SnapshotData
		if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
		}
		out = append(out, Snapshot{
			ID:          row.ID,
			Sequence:    row.Sequence,
			UserID:      row.UserID,
			FormationID: row.FormationID,
			Timestamp:   fromMillis(row.Timestamp),
			Data:        data,
		})
	}
	return out, nil
}
