package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/InventoryGo/pkg/database"
)

// SequenceRepository implements repository.SequenceRepository using an
// upserted counter row per (prefix, day).
type SequenceRepository struct {
	pool database.DBTX
}

// NewSequenceRepository creates a new PostgreSQL-backed sequence repository.
func NewSequenceRepository(pool database.DBTX) *SequenceRepository {
	return &SequenceRepository{pool: pool}
}

const nextSequenceSQL = `
	INSERT INTO document_sequences (prefix, day, value)
	VALUES ($1, $2, 1)
	ON CONFLICT (prefix, day) DO UPDATE SET value = document_sequences.value + 1
	RETURNING value`

// Next returns the next counter value for prefix on day.
func (r *SequenceRepository) Next(ctx context.Context, prefix string, day time.Time) (int, error) {
	var value int
	if err := r.pool.QueryRow(ctx, nextSequenceSQL, prefix, day.UTC().Format("2006-01-02")).Scan(&value); err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", prefix, err)
	}
	return value, nil
}
