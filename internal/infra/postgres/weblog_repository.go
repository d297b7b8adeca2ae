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

	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/weblog"
)

var _ repository.WeblogRepository = (*WeblogRepository)(nil)

const weblogColumns = "id, handle, name, description, locale, timezone, enabled, active, default_category_id, last_modified, created_at"

// WeblogRepository implements repository.WeblogRepository backed by
// PostgreSQL.
type WeblogRepository struct {
	pool *pgxpool.Pool
}

// NewWeblogRepository creates a new WeblogRepository.
func NewWeblogRepository(pool *pgxpool.Pool) *WeblogRepository {
	return &WeblogRepository{pool: pool}
}

// Get retrieves a weblog by ID.
func (r *WeblogRepository) Get(ctx context.Context, id weblog.ID) (*weblog.Weblog, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: weblog id is required", weblog.ErrInvalidWeblog)
	}
	row := db(ctx, r.pool).QueryRow(ctx, `SELECT `+weblogColumns+` FROM weblogs WHERE id = $1`, id)
	return scanWeblog(row, id.String())
}

// GetByHandle retrieves a weblog by its unique handle.
func (r *WeblogRepository) GetByHandle(ctx context.Context, handle string) (*weblog.Weblog, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, fmt.Errorf("%w: handle is required", weblog.ErrInvalidWeblog)
	}
	row := db(ctx, r.pool).QueryRow(ctx, `SELECT `+weblogColumns+` FROM weblogs WHERE handle = $1`, handle)
	return scanWeblog(row, handle)
}

// Save upserts a weblog.
func (r *WeblogRepository) Save(ctx context.Context, blog *weblog.Weblog) error {
	if blog == nil {
		return fmt.Errorf("%w: weblog is nil", weblog.ErrInvalidWeblog)
	}
	if blog.ID == uuid.Nil {
		blog.ID = uuid.New()
	}
	if blog.LastModified.IsZero() {
		blog.LastModified = time.Now()
	}
	_, err := db(ctx, r.pool).Exec(ctx, `
INSERT INTO weblogs (`+weblogColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	locale = EXCLUDED.locale,
	timezone = EXCLUDED.timezone,
	enabled = EXCLUDED.enabled,
	active = EXCLUDED.active,
	default_category_id = EXCLUDED.default_category_id,
	last_modified = GREATEST(weblogs.last_modified, EXCLUDED.last_modified)`,
		blog.ID, blog.Handle, blog.Name, blog.Description, blog.Locale, blog.TimeZone,
		blog.Enabled, blog.Active, nullableUUID(blog.DefaultCategoryID), blog.LastModified,
	)
	if err != nil {
		return fmt.Errorf("save weblog: %w", err)
	}
	return nil
}

// Touch advances the weblog's last-modified timestamp. GREATEST keeps the
// timestamp from rewinding when touches race.
func (r *WeblogRepository) Touch(ctx context.Context, id weblog.ID, now time.Time) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: weblog id is required", weblog.ErrInvalidWeblog)
	}
	_, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE weblogs SET last_modified = GREATEST(last_modified, $2) WHERE id = $1`,
		id, now,
	)
	if err != nil {
		return fmt.Errorf("touch weblog: %w", err)
	}
	return nil
}

// GetCategory retrieves a category by ID.
func (r *WeblogRepository) GetCategory(ctx context.Context, id uuid.UUID) (*weblog.Category, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: category id is required", weblog.ErrInvalidWeblog)
	}
	row := db(ctx, r.pool).QueryRow(ctx,
		`SELECT id, weblog_id, name FROM categories WHERE id = $1`, id)
	return scanCategory(row, id.String())
}

// GetCategoryByName retrieves a category by name within a weblog.
func (r *WeblogRepository) GetCategoryByName(ctx context.Context, weblogID weblog.ID, name string) (*weblog.Category, error) {
	row := db(ctx, r.pool).QueryRow(ctx,
		`SELECT id, weblog_id, name FROM categories WHERE weblog_id = $1 AND name = $2`,
		weblogID, name)
	return scanCategory(row, name)
}

// SaveCategory upserts a category.
func (r *WeblogRepository) SaveCategory(ctx context.Context, cat *weblog.Category) error {
	if cat == nil || strings.TrimSpace(cat.Name) == "" {
		return fmt.Errorf("%w: category name is required", weblog.ErrInvalidWeblog)
	}
	if cat.ID == uuid.Nil {
		cat.ID = uuid.New()
	}
	_, err := db(ctx, r.pool).Exec(ctx, `
INSERT INTO categories (id, weblog_id, name)
VALUES ($1, $2, $3)
ON CONFLICT (weblog_id, name) DO NOTHING`,
		cat.ID, cat.WeblogID, cat.Name,
	)
	if err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

func scanWeblog(row pgx.Row, ref string) (*weblog.Weblog, error) {
	w := &weblog.Weblog{}
	var defaultCategoryID *uuid.UUID
	if err := row.Scan(
		&w.ID, &w.Handle, &w.Name, &w.Description, &w.Locale, &w.TimeZone,
		&w.Enabled, &w.Active, &defaultCategoryID, &w.LastModified, &w.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", weblog.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("scan weblog: %w", err)
	}
	if defaultCategoryID != nil {
		w.DefaultCategoryID = *defaultCategoryID
	}
	return w, nil
}

func scanCategory(row pgx.Row, ref string) (*weblog.Category, error) {
	c := &weblog.Category{}
	if err := row.Scan(&c.ID, &c.WeblogID, &c.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: category %s", weblog.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return c, nil
}
