package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/pkg/events"
)

var _ port.OutboxRepository = (*OutboxRepo)(nil)

// OutboxRepo implements events.OutboxRepository. Entries are relayed in
// insertion order.
type OutboxRepo struct {
	pool *pgxpool.Pool
}

// NewOutboxRepo creates a new PostgreSQL-backed outbox.
func NewOutboxRepo(pool *pgxpool.Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool}
}

// Store appends entries to the outbox.
func (r *OutboxRepo) Store(ctx context.Context, entries []events.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.ID, e.AggregateID, e.AggregateType, e.EventType, e.Payload, e.CreatedAt.UTC())
	}
	if err := db(ctx, r.pool).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert outbox entries: %w", err)
	}
	return nil
}

// FetchUnpublished returns up to batchSize unpublished entries, oldest first.
// A batchSize of zero or less returns all of them.
func (r *OutboxRepo) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, payload, created_at, published_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY seq`
	args := []any{}
	if batchSize > 0 {
		query += ` LIMIT $1`
		args = append(args, batchSize)
	}

	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []events.OutboxEntry
	for rows.Next() {
		var e events.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Payload, &e.CreatedAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkPublished stamps the given entries.
func (r *OutboxRepo) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE outbox SET published_at = $2 WHERE id = ANY($1) AND published_at IS NULL`, ids, at.UTC())
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
