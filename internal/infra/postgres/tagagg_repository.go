package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/tagagg"
	"weblogger/internal/domain/weblog"
)

var _ repository.TagAggregateRepository = (*TagAggregateRepository)(nil)

// TagAggregateRepository implements repository.TagAggregateRepository
// backed by PostgreSQL. No uniqueness constraint exists on (name,
// weblog_id): concurrent writers may create duplicate rows for a scope, and
// the newest-row read plus the sweep make that converge.
type TagAggregateRepository struct {
	pool *pgxpool.Pool
}

// NewTagAggregateRepository creates a new TagAggregateRepository.
func NewTagAggregateRepository(pool *pgxpool.Pool) *TagAggregateRepository {
	return &TagAggregateRepository{pool: pool}
}

// Newest returns the most recently used aggregate row for the scope, nil
// when no row exists. Ordering by last_used keeps readers on the row that
// concurrent writers are actually maintaining; a stale duplicate decays to
// a low total and is reclaimed by the sweep.
func (r *TagAggregateRepository) Newest(ctx context.Context, name string, weblogID *weblog.ID) (*tagagg.Aggregate, error) {
	b := &whereBuilder{}
	b.add("name = $%d", name)
	if weblogID != nil {
		b.add("weblog_id = $%d", *weblogID)
	} else {
		b.conditions = append(b.conditions, "weblog_id IS NULL")
	}

	row := db(ctx, r.pool).QueryRow(ctx, `
SELECT id, name, weblog_id, total, last_used
FROM tag_aggregates`+b.clause()+`
ORDER BY last_used DESC
LIMIT 1`, b.args...)

	agg := &tagagg.Aggregate{}
	if err := row.Scan(&agg.ID, &agg.Name, &agg.WeblogID, &agg.Total, &agg.LastUsed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tag aggregate: %w", err)
	}
	return agg, nil
}

// Save upserts one aggregate row.
func (r *TagAggregateRepository) Save(ctx context.Context, agg *tagagg.Aggregate) error {
	if agg == nil {
		return fmt.Errorf("%w: aggregate is nil", tagagg.ErrInvalidUpdate)
	}
	if agg.ID == uuid.Nil {
		agg.ID = uuid.New()
	}
	_, err := db(ctx, r.pool).Exec(ctx, `
INSERT INTO tag_aggregates (id, name, weblog_id, total, last_used)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	total = EXCLUDED.total,
	last_used = EXCLUDED.last_used`,
		agg.ID, agg.Name, agg.WeblogID, agg.Total, agg.LastUsed,
	)
	if err != nil {
		return fmt.Errorf("save tag aggregate: %w", err)
	}
	return nil
}

// Sweep purges every aggregate row whose total dropped to zero or below,
// across all names and both scopes.
func (r *TagAggregateRepository) Sweep(ctx context.Context) (int64, error) {
	tag, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM tag_aggregates WHERE total <= 0`)
	if err != nil {
		return 0, fmt.Errorf("sweep tag aggregates: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Popular returns the top tag aggregates by total for the scope. Duplicate
// rows for a name are summed so that the transient two-row state never
// shows a split count.
func (r *TagAggregateRepository) Popular(ctx context.Context, weblogID *weblog.ID, offset, limit int) ([]tagagg.TagStat, error) {
	b := &whereBuilder{}
	b.add("total > $%d", 0)
	if weblogID != nil {
		b.add("weblog_id = $%d", *weblogID)
	} else {
		b.conditions = append(b.conditions, "weblog_id IS NULL")
	}

	sql := `
SELECT name, SUM(total) AS total
FROM tag_aggregates` + b.clause() + `
GROUP BY name
ORDER BY total DESC` + firstMax(b, offset, limit)

	rows, err := db(ctx, r.pool).Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("popular tags: %w", err)
	}
	defer rows.Close()

	var stats []tagagg.TagStat
	for rows.Next() {
		var s tagagg.TagStat
		if err := rows.Scan(&s.Name, &s.Count); err != nil {
			return nil, fmt.Errorf("scan tag stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
