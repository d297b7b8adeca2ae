package entry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"weblogger/internal/domain/weblog"
)

// SortBy selects the sort column for entry queries.
type SortBy string

const (
	SortByPubTime    SortBy = "pubTime"
	SortByUpdateTime SortBy = "updateTime"
)

// UnboundedResults disables the result limit on a criteria query.
const UnboundedResults = -1

// SearchCriteria bundles the optional filters for entry queries. A zero
// WeblogID means "visible sitewide" (published entries across all weblogs).
type SearchCriteria struct {
	WeblogID     weblog.ID
	CategoryName string
	// CategoryID is resolved from CategoryName by the entry service before
	// the criteria reach a repository; repositories filter on it only.
	CategoryID   uuid.UUID
	Tags         []string
	Creator      string
	StartDate    *time.Time
	EndDate      *time.Time
	Status       Status
	Locale       string
	Text         string
	SortBy       SortBy
	Ascending    bool
	Offset       int
	MaxResults   int
}

// Normalize validates the criteria, applies defaults and lowers the tag
// filter with the undetermined locale, dropping names that fold to the
// empty string. Weblog-scoped queries go through the entry service, which
// folds the filter with the weblog's locale first; the neutral lowering
// here leaves an already-folded name unchanged.
func (c *SearchCriteria) Normalize() error {
	if c.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0", ErrInvalidEntry)
	}
	if c.MaxResults == 0 || c.MaxResults < UnboundedResults {
		c.MaxResults = UnboundedResults
	}
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, c.Status)
	}
	if c.SortBy == "" {
		c.SortBy = SortByPubTime
	}
	switch c.SortBy {
	case SortByPubTime, SortByUpdateTime:
	default:
		return fmt.Errorf("%w: unsupported sort %q", ErrInvalidEntry, c.SortBy)
	}

	tags := c.Tags[:0]
	for _, name := range c.Tags {
		norm := NormalizeTagName(name, language.Und)
		if norm != "" {
			tags = append(tags, norm)
		}
	}
	c.Tags = tags
	return nil
}

// AnchorCache maps "<weblogHandle>:<anchor>" keys to entry ids. It is a
// best-effort accelerator: implementations may lose or return stale
// mappings, and callers re-validate every hit.
type AnchorCache interface {
	Get(key string) (ID, bool)
	Put(key string, id ID)
	Evict(key string)
}

// AnchorKey builds the cache key for a weblog handle and anchor.
func AnchorKey(handle, anchor string) string {
	return handle + ":" + anchor
}
