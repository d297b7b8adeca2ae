package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"weblogger/internal/domain/repository"
)

var _ repository.PingQueue = (*PingQueueRepository)(nil)

// PingQueueRepository implements repository.PingQueue backed by PostgreSQL.
// Rows are drained by the pinger job; enqueueing is fire-and-forget from
// the entry save path.
type PingQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPingQueueRepository creates a new PingQueueRepository.
func NewPingQueueRepository(pool *pgxpool.Pool) *PingQueueRepository {
	return &PingQueueRepository{pool: pool}
}

// Enqueue inserts one pending ping.
func (r *PingQueueRepository) Enqueue(ctx context.Context, p *repository.Ping) error {
	if p == nil || p.TargetURL == "" {
		return fmt.Errorf("ping target url is required")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := db(ctx, r.pool).Exec(ctx, `
INSERT INTO ping_queue (id, weblog_id, entry_id, target_url, attempts, queued_at)
VALUES ($1, $2, $3, $4, $5, now())`,
		p.ID, p.WeblogID, p.EntryID, p.TargetURL, p.Attempts,
	)
	if err != nil {
		return fmt.Errorf("enqueue ping: %w", err)
	}
	return nil
}

// Pending returns the oldest queued pings, up to limit.
func (r *PingQueueRepository) Pending(ctx context.Context, limit int) ([]repository.Ping, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db(ctx, r.pool).Query(ctx, `
SELECT id, weblog_id, entry_id, target_url, attempts, queued_at
FROM ping_queue
ORDER BY queued_at ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending pings: %w", err)
	}
	defer rows.Close()

	var pings []repository.Ping
	for rows.Next() {
		var p repository.Ping
		if err := rows.Scan(&p.ID, &p.WeblogID, &p.EntryID, &p.TargetURL, &p.Attempts, &p.QueuedAt); err != nil {
			return nil, fmt.Errorf("scan ping: %w", err)
		}
		pings = append(pings, p)
	}
	return pings, rows.Err()
}

// Remove deletes a completed ping.
func (r *PingQueueRepository) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM ping_queue WHERE id = $1`, id); err != nil {
		return fmt.Errorf("remove ping: %w", err)
	}
	return nil
}
