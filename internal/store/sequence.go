package store

import (
	"context"
	"database/sql"
)

// SequenceRepository mints monotonically increasing values for named
// counters. Rows are created lazily on first use and never deleted.
type SequenceRepository struct {
	db *sql.DB
}

func NewSequenceRepository(db *sql.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next atomically increments the named sequence and returns its new
// value. The upsert-increment is a single statement, so concurrent
// callers always observe distinct, strictly increasing values. There is
// no read-then-write fallback: if the statement fails, the caller fails.
func (r *SequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	const query = `
		INSERT INTO sequences (name, value)
		VALUES ($1, 1)
		ON CONFLICT (name)
		DO UPDATE SET value = sequences.value + 1
		RETURNING value`
	var value int64
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}
