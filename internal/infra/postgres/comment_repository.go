package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"weblogger/internal/domain/comment"
	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/weblog"
)

var _ repository.CommentRepository = (*CommentRepository)(nil)

const commentColumns = "id, entry_id, weblog_id, name, email, content, post_time, status"

// CommentRepository implements repository.CommentRepository backed by
// PostgreSQL.
type CommentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

// Get retrieves a single comment by ID, nil when absent.
func (r *CommentRepository) Get(ctx context.Context, id comment.ID) (*comment.Comment, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: comment id is required", comment.ErrInvalidComment)
	}
	row := db(ctx, r.pool).QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// List returns comments matching the criteria, sorted by post time.
func (r *CommentRepository) List(ctx context.Context, criteria comment.SearchCriteria) ([]*comment.Comment, error) {
	c := criteria
	if err := c.Normalize(); err != nil {
		return nil, err
	}
	sql, args := buildCommentListSQL(c)
	rows, err := db(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []*comment.Comment
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, cm)
	}
	return comments, rows.Err()
}

// Save upserts a comment.
func (r *CommentRepository) Save(ctx context.Context, c *comment.Comment) error {
	if c == nil {
		return fmt.Errorf("%w: comment is nil", comment.ErrInvalidComment)
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := db(ctx, r.pool).Exec(ctx, `
INSERT INTO comments (`+commentColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	content = EXCLUDED.content,
	status = EXCLUDED.status`,
		c.ID, c.EntryID, c.WeblogID, c.Name, c.Email, c.Content, c.PostTime, string(c.Status),
	)
	if err != nil {
		return fmt.Errorf("save comment: %w", err)
	}
	return nil
}

// Delete removes a comment by ID.
func (r *CommentRepository) Delete(ctx context.Context, id comment.ID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: comment id is required", comment.ErrInvalidComment)
	}
	if _, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// CountApproved returns the sitewide approved comment count.
func (r *CommentRepository) CountApproved(ctx context.Context) (int64, error) {
	var count int64
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(1) FROM comments WHERE status = $1`, string(comment.StatusApproved),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

// CountApprovedForWeblog returns the approved comment count for one weblog.
func (r *CommentRepository) CountApprovedForWeblog(ctx context.Context, weblogID weblog.ID) (int64, error) {
	var count int64
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(1) FROM comments WHERE weblog_id = $1 AND status = $2`,
		weblogID, string(comment.StatusApproved),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count weblog comments: %w", err)
	}
	return count, nil
}

// buildCommentListSQL translates normalized criteria into SQL. The entry
// filter takes precedence over the weblog filter; predicates append in a
// fixed order and parameters bind in that same order. No secondary sort
// key is added, so ties on post_time come back in storage order.
func buildCommentListSQL(c comment.SearchCriteria) (string, []any) {
	b := &whereBuilder{}
	if c.EntryID != uuid.Nil {
		b.add("entry_id = $%d", c.EntryID)
	} else if c.WeblogID != uuid.Nil {
		b.add("weblog_id = $%d", c.WeblogID)
	}
	if c.SearchText != "" {
		b.add("upper(content) LIKE $%d", "%"+strings.ToUpper(c.SearchText)+"%")
	}
	if c.StartDate != nil {
		b.add("post_time >= $%d", *c.StartDate)
	}
	if c.EndDate != nil {
		b.add("post_time <= $%d", *c.EndDate)
	}
	if c.Status != "" {
		b.add("status = $%d", string(c.Status))
	}

	sql := "SELECT " + commentColumns + " FROM comments" + b.clause()
	if c.ReverseChrono {
		sql += " ORDER BY post_time DESC"
	} else {
		sql += " ORDER BY post_time ASC"
	}
	sql += firstMax(b, c.Offset, c.MaxResults)
	return sql, b.args
}

func scanComment(row pgx.Row) (*comment.Comment, error) {
	c := &comment.Comment{}
	var status string
	if err := row.Scan(
		&c.ID, &c.EntryID, &c.WeblogID, &c.Name, &c.Email, &c.Content, &c.PostTime, &status,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan comment: %w", err)
	}
	c.Status = comment.Status(status)
	return c, nil
}
