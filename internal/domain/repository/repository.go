// Package repository defines the narrow persistence capabilities the
// services depend on. One concrete implementation per storage backend
// lives under internal/infra.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"weblogger/internal/domain/comment"
	"weblogger/internal/domain/entry"
	"weblogger/internal/domain/hitcount"
	"weblogger/internal/domain/tagagg"
	"weblogger/internal/domain/weblog"
)

// Transactor runs fn inside a single transactional unit of work. Every
// repository call made with the ctx passed to fn joins that transaction.
// Multi-step mutations (cascade delete, tag count update, anchor creation)
// are wrapped in one Transactor call so that a failed step rolls back the
// whole operation.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WeblogRepository defines storage operations for weblogs and categories.
type WeblogRepository interface {
	Get(ctx context.Context, id weblog.ID) (*weblog.Weblog, error)
	GetByHandle(ctx context.Context, handle string) (*weblog.Weblog, error)
	Save(ctx context.Context, blog *weblog.Weblog) error
	Touch(ctx context.Context, id weblog.ID, now time.Time) error
	GetCategory(ctx context.Context, id uuid.UUID) (*weblog.Category, error)
	GetCategoryByName(ctx context.Context, weblogID weblog.ID, name string) (*weblog.Category, error)
	SaveCategory(ctx context.Context, cat *weblog.Category) error
}

// EntryRepository defines storage operations for entries, their tags and
// attributes.
type EntryRepository interface {
	Get(ctx context.Context, id entry.ID) (*entry.Entry, error)
	GetByAnchor(ctx context.Context, weblogID weblog.ID, anchor string) (*entry.Entry, error)
	AnchorExists(ctx context.Context, weblogID weblog.ID, anchor string) (bool, error)
	List(ctx context.Context, criteria entry.SearchCriteria) ([]*entry.Entry, error)
	Count(ctx context.Context, criteria entry.SearchCriteria) (int64, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	CountPublished(ctx context.Context, weblogID weblog.ID) (int64, error)
	Neighbor(ctx context.Context, current *entry.Entry, categoryID uuid.UUID, locale string, next bool) (*entry.Entry, error)
	Save(ctx context.Context, e *entry.Entry) error
	Delete(ctx context.Context, id entry.ID) error
	DeleteAttributes(ctx context.Context, entryID entry.ID) error
	DeleteAttribute(ctx context.Context, entryID entry.ID, name string) error
	DeleteTag(ctx context.Context, tagID uuid.UUID) error
	MostCommented(ctx context.Context, weblogID weblog.ID, startDate, endDate time.Time, offset, length int) ([]CommentedEntry, error)
}

// CommentRepository defines storage operations for comments.
type CommentRepository interface {
	Get(ctx context.Context, id comment.ID) (*comment.Comment, error)
	List(ctx context.Context, criteria comment.SearchCriteria) ([]*comment.Comment, error)
	Save(ctx context.Context, c *comment.Comment) error
	Delete(ctx context.Context, id comment.ID) error
	CountApproved(ctx context.Context) (int64, error)
	CountApprovedForWeblog(ctx context.Context, weblogID weblog.ID) (int64, error)
}

// TagAggregateRepository maintains the per-weblog and sitewide tag usage
// counters.
type TagAggregateRepository interface {
	// Newest returns the most recently used aggregate row for (name,
	// weblogID), or nil when no row exists. weblogID nil selects the
	// sitewide scope.
	Newest(ctx context.Context, name string, weblogID *weblog.ID) (*tagagg.Aggregate, error)
	Save(ctx context.Context, agg *tagagg.Aggregate) error
	// Sweep deletes every aggregate row, any name and any scope, whose
	// total is <= 0. Returns the number of rows purged.
	Sweep(ctx context.Context) (int64, error)
	Popular(ctx context.Context, weblogID *weblog.ID, offset, limit int) ([]tagagg.TagStat, error)
}

// HitCountRepository maintains per-weblog daily hit counters.
type HitCountRepository interface {
	Get(ctx context.Context, weblogID weblog.ID) (*hitcount.HitCount, error)
	Save(ctx context.Context, hc *hitcount.HitCount) error
	ResetAll(ctx context.Context) (int64, error)
	Hot(ctx context.Context, since time.Time, offset, length int) ([]hitcount.HotWeblog, error)
}

// PingQueue stores pending update notifications for external aggregators.
type PingQueue interface {
	Enqueue(ctx context.Context, p *Ping) error
	Pending(ctx context.Context, limit int) ([]Ping, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// Ping is one queued update notification.
type Ping struct {
	ID        uuid.UUID
	WeblogID  weblog.ID
	EntryID   entry.ID
	TargetURL string
	Attempts  int
	QueuedAt  time.Time
}

// CommentedEntry is one row of the most-commented aggregate: an entry plus
// its approved comment count.
type CommentedEntry struct {
	EntryID      entry.ID `json:"entryId"`
	WeblogHandle string   `json:"weblogHandle"`
	Anchor       string   `json:"anchor"`
	Title        string   `json:"title"`
	Count        int64    `json:"count"`
}
