package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"weblogger/internal/domain/comment"
	"weblogger/internal/domain/entry"
	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/weblog"
)

var _ repository.EntryRepository = (*EntryRepository)(nil)

const entryColumns = "id, weblog_id, anchor, title, text_content, category_id, locale, status, creator, pub_time, update_time, created_at"

// EntryRepository implements repository.EntryRepository backed by PostgreSQL.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Get retrieves a single entry by ID with tags and attributes loaded.
func (r *EntryRepository) Get(ctx context.Context, id entry.ID) (*entry.Entry, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: entry id is required", entry.ErrInvalidEntry)
	}
	q := db(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %s", entry.ErrNotFound, id)
		}
		return nil, err
	}
	if err := r.loadTags(ctx, []*entry.Entry{e}); err != nil {
		return nil, err
	}
	if err := r.loadAttributes(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByAnchor retrieves the entry for (weblog, anchor). Duplicate anchors
// should not exist, but when they do the most recently published row wins.
func (r *EntryRepository) GetByAnchor(ctx context.Context, weblogID weblog.ID, anchor string) (*entry.Entry, error) {
	q := db(ctx, r.pool)
	row := q.QueryRow(ctx, `
SELECT `+entryColumns+`
FROM entries
WHERE weblog_id = $1 AND anchor = $2
ORDER BY pub_time DESC NULLS LAST
LIMIT 1`, weblogID, anchor)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: anchor %q", entry.ErrNotFound, anchor)
		}
		return nil, err
	}
	if err := r.loadTags(ctx, []*entry.Entry{e}); err != nil {
		return nil, err
	}
	if err := r.loadAttributes(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// AnchorExists reports whether any entry in the weblog already uses anchor.
func (r *EntryRepository) AnchorExists(ctx context.Context, weblogID weblog.ID, anchor string) (bool, error) {
	q := db(ctx, r.pool)
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM entries WHERE weblog_id = $1 AND anchor = $2)`,
		weblogID, anchor,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("anchor exists: %w", err)
	}
	return exists, nil
}

// List returns entries matching the criteria.
func (r *EntryRepository) List(ctx context.Context, criteria entry.SearchCriteria) ([]*entry.Entry, error) {
	c := criteria
	if err := c.Normalize(); err != nil {
		return nil, err
	}
	sql, args := buildEntryListSQL(c, false)
	q := db(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}
	if err := r.loadTags(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of entries matching the criteria.
func (r *EntryRepository) Count(ctx context.Context, criteria entry.SearchCriteria) (int64, error) {
	c := criteria
	if err := c.Normalize(); err != nil {
		return 0, err
	}
	sql, args := buildEntryListSQL(c, true)
	var count int64
	if err := db(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// CountByCategory returns the number of entries referencing the category.
func (r *EntryRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(1) FROM entries WHERE category_id = $1`, categoryID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count entries by category: %w", err)
	}
	return count, nil
}

// CountPublished returns the published entry count, sitewide when weblogID
// is zero.
func (r *EntryRepository) CountPublished(ctx context.Context, weblogID weblog.ID) (int64, error) {
	b := &whereBuilder{}
	b.add("status = $%d", string(entry.StatusPublished))
	if weblogID != uuid.Nil {
		b.add("weblog_id = $%d", weblogID)
	}
	var count int64
	err := db(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(1) FROM entries`+b.clause(), b.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count published entries: %w", err)
	}
	return count, nil
}

// Neighbor finds the published entry immediately after (next) or before
// (previous) current by pub time in the same weblog, optionally constrained
// to a category and/or locale prefix. Returns nil when no neighbor exists.
func (r *EntryRepository) Neighbor(ctx context.Context, current *entry.Entry, categoryID uuid.UUID, locale string, next bool) (*entry.Entry, error) {
	if current == nil {
		return nil, fmt.Errorf("%w: current entry is required", entry.ErrInvalidEntry)
	}
	b := &whereBuilder{}
	b.add("weblog_id = $%d", current.WeblogID)
	b.add("status = $%d", string(entry.StatusPublished))
	b.add("id <> $%d", current.ID)
	if current.PubTime != nil {
		if next {
			b.add("pub_time > $%d", *current.PubTime)
		} else {
			b.add("pub_time < $%d", *current.PubTime)
		}
	} else if next {
		// A draft has no reference time to advance from.
		return nil, nil
	}
	// No reference time for "previous" from a draft: the newest published
	// entry is the previous one.
	if categoryID != uuid.Nil {
		b.add("category_id = $%d", categoryID)
	}
	if locale != "" {
		b.add("locale LIKE $%d", likePrefix(locale))
	}

	order := " ORDER BY pub_time DESC"
	if next {
		order = " ORDER BY pub_time ASC"
	}
	sql := `SELECT ` + entryColumns + ` FROM entries` + b.clause() + order + ` LIMIT 1`
	row := db(ctx, r.pool).QueryRow(ctx, sql, b.args...)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// Save upserts the entry row and its tags and attributes. Tag rows no
// longer on the entry are removed by the service, which also owns the
// aggregate bookkeeping.
func (r *EntryRepository) Save(ctx context.Context, e *entry.Entry) error {
	if e == nil {
		return fmt.Errorf("%w: entry is nil", entry.ErrInvalidEntry)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	q := db(ctx, r.pool)
	_, err := q.Exec(ctx, `
INSERT INTO entries (`+entryColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
ON CONFLICT (id) DO UPDATE SET
	anchor = EXCLUDED.anchor,
	title = EXCLUDED.title,
	text_content = EXCLUDED.text_content,
	category_id = EXCLUDED.category_id,
	locale = EXCLUDED.locale,
	status = EXCLUDED.status,
	pub_time = EXCLUDED.pub_time,
	update_time = EXCLUDED.update_time`,
		e.ID, e.WeblogID, e.Anchor, e.Title, e.Text,
		nullableUUID(e.CategoryID), e.Locale, string(e.Status), e.Creator,
		e.PubTime, e.UpdateTime,
	)
	if err != nil {
		return fmt.Errorf("save entry: %w", err)
	}

	for _, t := range e.Tags {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		_, err := q.Exec(ctx, `
INSERT INTO entry_tags (id, entry_id, weblog_id, name, creator, tag_time)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (entry_id, name) DO NOTHING`,
			t.ID, e.ID, t.WeblogID, t.Name, t.Creator, t.Time,
		)
		if err != nil {
			return fmt.Errorf("save entry tag %q: %w", t.Name, err)
		}
	}

	for _, a := range e.Attributes {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		_, err := q.Exec(ctx, `
INSERT INTO entry_attributes (id, entry_id, name, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (entry_id, name) DO UPDATE SET value = EXCLUDED.value`,
			a.ID, e.ID, a.Name, a.Value,
		)
		if err != nil {
			return fmt.Errorf("save entry attribute %q: %w", a.Name, err)
		}
	}
	return nil
}

// Delete removes the entry row. Dependent rows are removed beforehand by
// the cascade in the entry service.
func (r *EntryRepository) Delete(ctx context.Context, id entry.ID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: entry id is required", entry.ErrInvalidEntry)
	}
	if _, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// DeleteAttributes removes every attribute row of the entry.
func (r *EntryRepository) DeleteAttributes(ctx context.Context, entryID entry.ID) error {
	if _, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM entry_attributes WHERE entry_id = $1`, entryID); err != nil {
		return fmt.Errorf("delete entry attributes: %w", err)
	}
	return nil
}

// DeleteAttribute removes one named attribute row of the entry.
func (r *EntryRepository) DeleteAttribute(ctx context.Context, entryID entry.ID, name string) error {
	if _, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM entry_attributes WHERE entry_id = $1 AND name = $2`, entryID, name); err != nil {
		return fmt.Errorf("delete entry attribute %q: %w", name, err)
	}
	return nil
}

// DeleteTag removes a single tag row.
func (r *EntryRepository) DeleteTag(ctx context.Context, tagID uuid.UUID) error {
	if _, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM entry_tags WHERE id = $1`, tagID); err != nil {
		return fmt.Errorf("delete entry tag: %w", err)
	}
	return nil
}

// MostCommented aggregates approved comment counts per entry, bounded above
// by endDate, optionally scoped to a weblog and a start date, ordered by
// count descending.
func (r *EntryRepository) MostCommented(ctx context.Context, weblogID weblog.ID, startDate, endDate time.Time, offset, length int) ([]repository.CommentedEntry, error) {
	b := &whereBuilder{}
	b.add("c.status = $%d", string(comment.StatusApproved))
	b.add("c.post_time <= $%d", endDate)
	if weblogID != uuid.Nil {
		b.add("w.id = $%d", weblogID)
	}
	if !startDate.IsZero() {
		b.add("c.post_time >= $%d", startDate)
	}

	sql := `
SELECT e.id, w.handle, e.anchor, e.title, COUNT(c.id) AS comment_count
FROM comments c
INNER JOIN entries e ON e.id = c.entry_id
INNER JOIN weblogs w ON w.id = e.weblog_id` +
		b.clause() + `
GROUP BY e.id, w.handle, e.anchor, e.title
ORDER BY comment_count DESC` + firstMax(b, offset, length)

	rows, err := db(ctx, r.pool).Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("most commented entries: %w", err)
	}
	defer rows.Close()

	var results []repository.CommentedEntry
	for rows.Next() {
		var ce repository.CommentedEntry
		if err := rows.Scan(&ce.EntryID, &ce.WeblogHandle, &ce.Anchor, &ce.Title, &ce.Count); err != nil {
			return nil, fmt.Errorf("scan most commented: %w", err)
		}
		results = append(results, ce)
	}
	return results, rows.Err()
}

func (r *EntryRepository) loadTags(ctx context.Context, entries []*entry.Entry) error {
	ids := make([]uuid.UUID, 0, len(entries))
	byID := make(map[uuid.UUID]*entry.Entry, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
		byID[e.ID] = e
	}

	rows, err := db(ctx, r.pool).Query(ctx, `
SELECT id, entry_id, weblog_id, name, creator, tag_time
FROM entry_tags
WHERE entry_id = ANY($1)
ORDER BY name ASC`, ids)
	if err != nil {
		return fmt.Errorf("load entry tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t entry.Tag
		if err := rows.Scan(&t.ID, &t.EntryID, &t.WeblogID, &t.Name, &t.Creator, &t.Time); err != nil {
			return fmt.Errorf("scan entry tag: %w", err)
		}
		byID[t.EntryID].Tags = append(byID[t.EntryID].Tags, t)
	}
	return rows.Err()
}

func (r *EntryRepository) loadAttributes(ctx context.Context, e *entry.Entry) error {
	rows, err := db(ctx, r.pool).Query(ctx, `
SELECT id, entry_id, name, value
FROM entry_attributes
WHERE entry_id = $1
ORDER BY name ASC`, e.ID)
	if err != nil {
		return fmt.Errorf("load entry attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a entry.Attribute
		if err := rows.Scan(&a.ID, &a.EntryID, &a.Name, &a.Value); err != nil {
			return fmt.Errorf("scan entry attribute: %w", err)
		}
		e.Attributes = append(e.Attributes, a)
	}
	return rows.Err()
}

// buildEntryListSQL translates normalized criteria into SQL. Predicates
// append in a fixed order and parameters bind in that same order.
func buildEntryListSQL(c entry.SearchCriteria, countOnly bool) (string, []any) {
	columns := entryColumns
	if countOnly {
		columns = "COUNT(1)"
	}

	b := &whereBuilder{}
	if c.WeblogID != uuid.Nil {
		b.add("weblog_id = $%d", c.WeblogID)
	}
	if c.CategoryID != uuid.Nil {
		b.add("category_id = $%d", c.CategoryID)
	}
	if len(c.Tags) > 0 {
		b.add(`EXISTS (
	SELECT 1 FROM entry_tags et
	WHERE et.entry_id = e.id AND et.name = ANY($%d)
)`, c.Tags)
	}
	if c.Creator != "" {
		b.add("creator = $%d", c.Creator)
	}
	if c.StartDate != nil {
		b.add("pub_time >= $%d", *c.StartDate)
	}
	if c.EndDate != nil {
		b.add("pub_time <= $%d", *c.EndDate)
	}
	switch {
	case c.Status != "":
		b.add("status = $%d", string(c.Status))
	case c.WeblogID == uuid.Nil:
		// No weblog scope means the sitewide view: published only.
		b.add("status = $%d", string(entry.StatusPublished))
	}
	if c.Locale != "" {
		b.add("locale LIKE $%d", likePrefix(c.Locale))
	}
	if c.Text != "" {
		pattern := "%" + c.Text + "%"
		b.add("(title ILIKE $%d OR text_content ILIKE $%d)", pattern, pattern)
	}

	sql := "SELECT " + columns + " FROM entries e" + b.clause()
	if countOnly {
		return sql, b.args
	}

	direction := " DESC"
	if c.Ascending {
		direction = " ASC"
	}
	switch c.SortBy {
	case entry.SortByUpdateTime:
		sql += " ORDER BY update_time" + direction
	default:
		sql += " ORDER BY pub_time" + direction
	}

	sql += firstMax(b, c.Offset, c.MaxResults)
	return sql, b.args
}

// firstMax renders optional OFFSET/LIMIT. length -1 means unbounded.
func firstMax(b *whereBuilder, offset, length int) string {
	var sql string
	if length != entry.UnboundedResults {
		sql += " LIMIT " + b.bind(length)
	}
	if offset != 0 {
		sql += " OFFSET " + b.bind(offset)
	}
	return sql
}

func likePrefix(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(prefix)
	return escaped + "%"
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func scanEntries(rows pgx.Rows) ([]*entry.Entry, error) {
	var entries []*entry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*entry.Entry, error) {
	e := &entry.Entry{}
	var categoryID *uuid.UUID
	var status string
	if err := row.Scan(
		&e.ID,
		&e.WeblogID,
		&e.Anchor,
		&e.Title,
		&e.Text,
		&categoryID,
		&e.Locale,
		&status,
		&e.Creator,
		&e.PubTime,
		&e.UpdateTime,
		&e.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	if categoryID != nil {
		e.CategoryID = *categoryID
	}
	e.Status = entry.Status(status)
	return e, nil
}
