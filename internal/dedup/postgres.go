package dedup

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps seen records in a seen_items table. Marks are written
// through immediately, so Persist is a no-op; the database provides the
// atomicity the file backend gets from rename.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) IsSeen(ctx context.Context, identity string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM seen_items WHERE identity = $1)", identity)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) MarkSeen(ctx context.Context, identity string, firstSeen time.Time) error {
	// DO NOTHING keeps the original first-seen timestamp on re-marks.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_items (identity, first_seen)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO NOTHING`,
		identity, firstSeen)
	return err
}

func (s *PostgresStore) Prune(ctx context.Context, retention time.Duration, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM seen_items WHERE first_seen < $1", now.Add(-retention))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) Persist(_ context.Context) error { return nil }

func (s *PostgresStore) Close() error { return s.db.Close() }
