package persist

import (
	"context"
	"fmt"
)

// JournalRepo stores journal entries in Postgres.
type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Write inserts a batch of entries in a single transaction.
func (r *JournalRepo) Write(ctx context.Context, entries []Entry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO battle_journal (session_id, turn, kind, detail, recorded_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.Session.String(), e.Turn, e.Kind, e.Detail, e.At,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Close releases the pool.
func (r *JournalRepo) Close() error {
	r.db.Close()
	return nil
}
