package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"weblogger/internal/domain/hitcount"
	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/weblog"
)

var _ repository.HitCountRepository = (*HitCountRepository)(nil)

// HitCountRepository implements repository.HitCountRepository backed by
// PostgreSQL. One row per weblog.
type HitCountRepository struct {
	pool *pgxpool.Pool
}

// NewHitCountRepository creates a new HitCountRepository.
func NewHitCountRepository(pool *pgxpool.Pool) *HitCountRepository {
	return &HitCountRepository{pool: pool}
}

// Get retrieves the counter for a weblog, nil when no row exists.
func (r *HitCountRepository) Get(ctx context.Context, weblogID weblog.ID) (*hitcount.HitCount, error) {
	if weblogID == uuid.Nil {
		return nil, fmt.Errorf("%w: weblog id is required", hitcount.ErrInvalidIncrement)
	}
	hc := &hitcount.HitCount{}
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT weblog_id, daily_hits FROM hit_counts WHERE weblog_id = $1`, weblogID,
	).Scan(&hc.WeblogID, &hc.DailyHits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get hit count: %w", err)
	}
	return hc, nil
}

// Save upserts the counter row for a weblog.
func (r *HitCountRepository) Save(ctx context.Context, hc *hitcount.HitCount) error {
	if hc == nil || hc.WeblogID == uuid.Nil {
		return fmt.Errorf("%w: weblog id is required", hitcount.ErrInvalidIncrement)
	}
	_, err := db(ctx, r.pool).Exec(ctx, `
INSERT INTO hit_counts (weblog_id, daily_hits)
VALUES ($1, $2)
ON CONFLICT (weblog_id) DO UPDATE SET daily_hits = EXCLUDED.daily_hits`,
		hc.WeblogID, hc.DailyHits,
	)
	if err != nil {
		return fmt.Errorf("save hit count: %w", err)
	}
	return nil
}

// ResetAll zeroes every weblog's counter in one bulk update.
func (r *HitCountRepository) ResetAll(ctx context.Context) (int64, error) {
	tag, err := db(ctx, r.pool).Exec(ctx, `UPDATE hit_counts SET daily_hits = 0 WHERE daily_hits <> 0`)
	if err != nil {
		return 0, fmt.Errorf("reset hit counts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Hot returns enabled, active weblogs with nonzero hits modified after the
// cutoff, busiest first.
func (r *HitCountRepository) Hot(ctx context.Context, since time.Time, offset, length int) ([]hitcount.HotWeblog, error) {
	b := &whereBuilder{}
	b.add("h.daily_hits > $%d", 0)
	b.add("w.enabled = $%d", true)
	b.add("w.active = $%d", true)
	b.add("w.last_modified > $%d", since)

	sql := `
SELECT w.id, w.handle, w.name, h.daily_hits
FROM hit_counts h
INNER JOIN weblogs w ON w.id = h.weblog_id` +
		b.clause() + `
ORDER BY h.daily_hits DESC` + firstMax(b, offset, length)

	rows, err := db(ctx, r.pool).Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("hot weblogs: %w", err)
	}
	defer rows.Close()

	var hot []hitcount.HotWeblog
	for rows.Next() {
		var hw hitcount.HotWeblog
		if err := rows.Scan(&hw.WeblogID, &hw.Handle, &hw.Name, &hw.DailyHits); err != nil {
			return nil, fmt.Errorf("scan hot weblog: %w", err)
		}
		hot = append(hot, hw)
	}
	return hot, rows.Err()
}
