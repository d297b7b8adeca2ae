package entry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"weblogger/internal/domain/comment"
	"weblogger/internal/domain/entry"
	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/weblog"
	"weblogger/internal/pkg/timeutil"
)

// TagCounter maintains the tag aggregates as entry tags come and go.
type TagCounter interface {
	UpdateTagCount(ctx context.Context, name string, weblogID weblog.ID, amount int) error
	RemoveEntryTag(ctx context.Context, tag entry.Tag, published bool) error
}

// Notifier queues update pings for a freshly published entry.
type Notifier interface {
	QueueApplicableAutoPings(ctx context.Context, e *entry.Entry) error
}

// EntryDay is one calendar day of entries, keyed by the noon instant of the
// day in the weblog's timezone.
type EntryDay struct {
	Day     time.Time      `json:"day"`
	Entries []*entry.Entry `json:"entries"`
}

// Service implements the entry operations: criteria queries, anchor
// management, neighbor navigation and the save/remove lifecycle with its
// tag aggregate and weblog bookkeeping.
type Service struct {
	entries  repository.EntryRepository
	weblogs  repository.WeblogRepository
	comments repository.CommentRepository
	tags     TagCounter
	pings    Notifier
	tx       repository.Transactor
	anchors  entry.AnchorCache
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds an entry service. pings may be nil when no ping targets
// are configured.
func NewService(
	entries repository.EntryRepository,
	weblogs repository.WeblogRepository,
	comments repository.CommentRepository,
	tags TagCounter,
	pings Notifier,
	tx repository.Transactor,
	anchors entry.AnchorCache,
	logger *slog.Logger,
) *Service {
	return &Service{
		entries:  entries,
		weblogs:  weblogs,
		comments: comments,
		tags:     tags,
		pings:    pings,
		tx:       tx,
		anchors:  anchors,
		logger:   logger,
		now:      time.Now,
	}
}

// GetEntry returns one entry by id.
func (s *Service) GetEntry(ctx context.Context, id entry.ID) (*entry.Entry, error) {
	return s.entries.Get(ctx, id)
}

// GetEntries returns entries matching the criteria. A category name filter
// is resolved to the category id within the criteria's weblog; a name that
// does not exist there fails the query rather than silently matching
// nothing.
func (s *Service) GetEntries(ctx context.Context, criteria entry.SearchCriteria) ([]*entry.Entry, error) {
	if err := s.prepare(ctx, &criteria); err != nil {
		return nil, err
	}
	return s.entries.List(ctx, criteria)
}

// CountEntries returns the number of entries matching the criteria.
func (s *Service) CountEntries(ctx context.Context, criteria entry.SearchCriteria) (int64, error) {
	if err := s.prepare(ctx, &criteria); err != nil {
		return 0, err
	}
	return s.entries.Count(ctx, criteria)
}

// GetEntriesByDay groups matching entries into calendar days in the
// weblog's timezone. Days appear in the order the underlying query returns
// entries, so the default criteria yield newest day first.
func (s *Service) GetEntriesByDay(ctx context.Context, criteria entry.SearchCriteria) ([]EntryDay, error) {
	if err := s.prepare(ctx, &criteria); err != nil {
		return nil, err
	}
	loc, err := s.criteriaLocation(ctx, criteria)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.List(ctx, criteria)
	if err != nil {
		return nil, err
	}

	var days []EntryDay
	for _, e := range entries {
		day := timeutil.NoonOfDay(entryTime(e), loc)
		if n := len(days); n > 0 && days[n-1].Day.Equal(day) {
			days[n-1].Entries = append(days[n-1].Entries, e)
			continue
		}
		days = append(days, EntryDay{Day: day, Entries: []*entry.Entry{e}})
	}
	return days, nil
}

// GetEntryDateStrings returns the distinct YYYYMMDD day stamps of matching
// entries, in the same order GetEntriesByDay would return the days.
func (s *Service) GetEntryDateStrings(ctx context.Context, criteria entry.SearchCriteria) ([]string, error) {
	days, err := s.GetEntriesByDay(ctx, criteria)
	if err != nil {
		return nil, err
	}
	loc, err := s.criteriaLocation(ctx, criteria)
	if err != nil {
		return nil, err
	}
	stamps := make([]string, 0, len(days))
	for _, d := range days {
		stamps = append(stamps, timeutil.DayStamp(d.Day, loc))
	}
	return stamps, nil
}

// GetEntryByAnchor resolves an entry by weblog and anchor, consulting the
// anchor cache first. A cached id is re-validated against storage; a stale
// mapping is evicted and the lookup falls through to the anchor query, so
// the cache self-heals after an entry is re-anchored or removed.
func (s *Service) GetEntryByAnchor(ctx context.Context, blog *weblog.Weblog, anchor string) (*entry.Entry, error) {
	if blog == nil {
		return nil, fmt.Errorf("%w: weblog is required", entry.ErrInvalidEntry)
	}
	key := entry.AnchorKey(blog.Handle, anchor)
	if id, ok := s.anchors.Get(key); ok {
		e, err := s.entries.Get(ctx, id)
		if err == nil && e.WeblogID == blog.ID && e.Anchor == anchor {
			return e, nil
		}
		if err != nil && !errors.Is(err, entry.ErrNotFound) {
			return nil, err
		}
		s.anchors.Evict(key)
	}

	e, err := s.entries.GetByAnchor(ctx, blog.ID, anchor)
	if err != nil {
		return nil, err
	}
	s.anchors.Put(key, e.ID)
	return e, nil
}

// CreateAnchor produces a weblog-unique anchor for the entry by probing the
// deterministic base slug against existing anchors and suffixing a counter
// on collision. Uniqueness is not constraint-backed, so two concurrent
// saves of an identical title can still race; the probe keeps that window
// small and collisions merely share a slug.
func (s *Service) CreateAnchor(ctx context.Context, e *entry.Entry) (string, error) {
	base := e.AnchorBase()
	anchor := base
	for i := 1; ; i++ {
		exists, err := s.entries.AnchorExists(ctx, e.WeblogID, anchor)
		if err != nil {
			return "", err
		}
		if !exists {
			return anchor, nil
		}
		anchor = base + strconv.Itoa(i)
	}
}

// NextEntry returns the next published entry after current in pubTime
// order, optionally constrained to a category of current's weblog and a
// locale prefix. Nil is returned when no neighbor exists.
func (s *Service) NextEntry(ctx context.Context, current *entry.Entry, categoryName, locale string) (*entry.Entry, error) {
	return s.neighbor(ctx, current, categoryName, locale, true)
}

// PreviousEntry returns the published entry preceding current in pubTime
// order. Nil is returned when no neighbor exists.
func (s *Service) PreviousEntry(ctx context.Context, current *entry.Entry, categoryName, locale string) (*entry.Entry, error) {
	return s.neighbor(ctx, current, categoryName, locale, false)
}

func (s *Service) neighbor(ctx context.Context, current *entry.Entry, categoryName, locale string, next bool) (*entry.Entry, error) {
	if current == nil {
		return nil, fmt.Errorf("%w: current entry is required", entry.ErrInvalidEntry)
	}
	categoryID := uuid.Nil
	if categoryName != "" {
		cat, err := s.weblogs.GetCategoryByName(ctx, current.WeblogID, categoryName)
		if err != nil {
			return nil, err
		}
		categoryID = cat.ID
	}
	return s.entries.Neighbor(ctx, current, categoryID, locale, next)
}

// IsCategoryInUse reports whether the category still anchors any entry or
// serves as its weblog's default category.
func (s *Service) IsCategoryInUse(ctx context.Context, cat *weblog.Category) (bool, error) {
	if cat == nil {
		return false, fmt.Errorf("%w: category is required", weblog.ErrInvalidWeblog)
	}
	count, err := s.entries.CountByCategory(ctx, cat.ID)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	blog, err := s.weblogs.Get(ctx, cat.WeblogID)
	if err != nil {
		return false, err
	}
	return blog.DefaultCategoryID == cat.ID, nil
}

// MostCommentedEntries returns entries ranked by approved comment count in
// the window. A nil endDate means now. The storage ordering is re-applied
// in memory so that backends with unstable grouped sorts still hand back a
// strictly descending list.
func (s *Service) MostCommentedEntries(ctx context.Context, weblogID weblog.ID, startDate, endDate *time.Time, offset, length int) ([]repository.CommentedEntry, error) {
	if offset < 0 {
		offset = 0
	}
	if length <= 0 {
		length = 10
	}
	start := time.Time{}
	if startDate != nil {
		start = *startDate
	}
	end := s.now()
	if endDate != nil {
		end = *endDate
	}
	ranked, err := s.entries.MostCommented(ctx, weblogID, start, end, offset, length)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	return ranked, nil
}

// RemoveEntryAttribute deletes the named attribute from storage and from
// the in-memory entry.
func (s *Service) RemoveEntryAttribute(ctx context.Context, name string, e *entry.Entry) error {
	if e == nil {
		return fmt.Errorf("%w: entry is required", entry.ErrInvalidEntry)
	}
	if err := s.entries.DeleteAttribute(ctx, e.ID, name); err != nil {
		return err
	}
	e.RemoveAttribute(name)
	return nil
}

// IsDuplicateCategoryName reports whether the weblog already has a category
// with the candidate's name.
func (s *Service) IsDuplicateCategoryName(ctx context.Context, cat *weblog.Category) (bool, error) {
	if cat == nil {
		return false, fmt.Errorf("%w: category is required", entry.ErrInvalidEntry)
	}
	_, err := s.weblogs.GetCategoryByName(ctx, cat.WeblogID, cat.Name)
	if errors.Is(err, weblog.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EntryCount returns the number of published entries sitewide.
func (s *Service) EntryCount(ctx context.Context) (int64, error) {
	criteria := entry.SearchCriteria{Status: entry.StatusPublished}
	if err := criteria.Normalize(); err != nil {
		return 0, err
	}
	return s.entries.Count(ctx, criteria)
}

// EntryCountForWeblog returns the number of published entries in one weblog.
func (s *Service) EntryCountForWeblog(ctx context.Context, weblogID weblog.ID) (int64, error) {
	return s.entries.CountPublished(ctx, weblogID)
}

// SaveEntry persists the entry, assigning an anchor when it has none, and
// reconciles the tag aggregates against the previously stored tag set: tags
// added to a published entry are counted up, tags removed from one are
// counted down, and a publish or unpublish transition shifts the counts of
// every surviving tag. A publish also touches the weblog and queues update
// pings after the transaction commits.
func (s *Service) SaveEntry(ctx context.Context, e *entry.Entry) error {
	if e == nil {
		return fmt.Errorf("%w: entry is required", entry.ErrInvalidEntry)
	}

	var freshlyPublished bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if e.Anchor == "" {
			anchor, err := s.CreateAnchor(ctx, e)
			if err != nil {
				return err
			}
			e.Anchor = anchor
		}

		var old *entry.Entry
		if e.ID != uuid.Nil {
			prev, err := s.entries.Get(ctx, e.ID)
			if err != nil && !errors.Is(err, entry.ErrNotFound) {
				return err
			}
			old = prev
		}

		if err := s.entries.Save(ctx, e); err != nil {
			return err
		}
		if err := s.reconcileTags(ctx, old, e); err != nil {
			return err
		}

		if e.Published() {
			if err := s.weblogs.Touch(ctx, e.WeblogID, s.now()); err != nil {
				return err
			}
		}
		freshlyPublished = e.Published() && (old == nil || !old.Published())
		return nil
	})
	if err != nil {
		return err
	}

	if freshlyPublished && s.pings != nil {
		// Pings are best effort; a queue failure must not fail the save.
		if err := s.pings.QueueApplicableAutoPings(ctx, e); err != nil && s.logger != nil {
			s.logger.Warn("failed to queue update pings", "entry_id", e.ID, "error", err)
		}
	}
	return nil
}

// reconcileTags diffs the stored tag set against the saved one and adjusts
// the aggregates. Only published entries contribute to counts.
func (s *Service) reconcileTags(ctx context.Context, old, e *entry.Entry) error {
	wasPublished := old != nil && old.Published()
	isPublished := e.Published()

	oldTags := map[string]entry.Tag{}
	if old != nil {
		for _, t := range old.Tags {
			oldTags[t.Name] = t
		}
	}
	newNames := map[string]struct{}{}
	for _, t := range e.Tags {
		newNames[t.Name] = struct{}{}
	}

	for name, t := range oldTags {
		if _, kept := newNames[name]; !kept {
			if err := s.tags.RemoveEntryTag(ctx, t, wasPublished); err != nil {
				return err
			}
		}
	}
	for _, t := range e.Tags {
		_, existed := oldTags[t.Name]
		switch {
		case !existed && isPublished:
			if err := s.tags.UpdateTagCount(ctx, t.Name, e.WeblogID, 1); err != nil {
				return err
			}
		case existed && isPublished && !wasPublished:
			if err := s.tags.UpdateTagCount(ctx, t.Name, e.WeblogID, 1); err != nil {
				return err
			}
		case existed && !isPublished && wasPublished:
			if err := s.tags.UpdateTagCount(ctx, t.Name, e.WeblogID, -1); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveEntry deletes the entry and everything hanging off it in one
// transaction: its comments one by one, its tag rows with the matching
// aggregate decrements, its attributes, and finally the entry row. A
// published entry's removal touches the weblog; the anchor cache mapping is
// dropped after the transaction commits.
func (s *Service) RemoveEntry(ctx context.Context, e *entry.Entry) error {
	if e == nil {
		return fmt.Errorf("%w: entry is required", entry.ErrInvalidEntry)
	}

	var handle string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		blog, err := s.weblogs.Get(ctx, e.WeblogID)
		if err != nil {
			return err
		}
		handle = blog.Handle

		criteria := comment.SearchCriteria{EntryID: e.ID, MaxResults: entry.UnboundedResults}
		if err := criteria.Normalize(); err != nil {
			return err
		}
		comments, err := s.comments.List(ctx, criteria)
		if err != nil {
			return err
		}
		for _, c := range comments {
			if err := s.comments.Delete(ctx, c.ID); err != nil {
				return err
			}
		}

		for _, t := range e.Tags {
			if err := s.tags.RemoveEntryTag(ctx, t, e.Published()); err != nil {
				return err
			}
		}
		if err := s.entries.DeleteAttributes(ctx, e.ID); err != nil {
			return err
		}
		if err := s.entries.Delete(ctx, e.ID); err != nil {
			return err
		}

		if e.Published() {
			return s.weblogs.Touch(ctx, e.WeblogID, s.now())
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.anchors.Evict(entry.AnchorKey(handle, e.Anchor))
	return nil
}

// prepare normalizes the criteria and resolves a category name filter to
// its id. Category names are weblog-scoped, so the filter requires a weblog
// in the criteria. Tag filters on a weblog-scoped query are folded with the
// weblog's locale before Normalize so they match tags the way AddTag stored
// them; this must happen first because locale-neutral lowering is lossy
// (Turkish İ/I collapse).
func (s *Service) prepare(ctx context.Context, criteria *entry.SearchCriteria) error {
	if len(criteria.Tags) > 0 && criteria.WeblogID != uuid.Nil {
		blog, err := s.weblogs.Get(ctx, criteria.WeblogID)
		if err != nil {
			return err
		}
		for i, name := range criteria.Tags {
			criteria.Tags[i] = entry.NormalizeTagName(name, blog.LanguageTag())
		}
	}
	if err := criteria.Normalize(); err != nil {
		return err
	}
	if criteria.CategoryName == "" || criteria.CategoryID != uuid.Nil {
		return nil
	}
	if criteria.WeblogID == uuid.Nil {
		return fmt.Errorf("%w: category filter requires a weblog", entry.ErrInvalidEntry)
	}
	cat, err := s.weblogs.GetCategoryByName(ctx, criteria.WeblogID, criteria.CategoryName)
	if err != nil {
		return err
	}
	criteria.CategoryID = cat.ID
	return nil
}

// criteriaLocation picks the timezone for day grouping: the criteria
// weblog's timezone when a weblog is set, the application default otherwise.
func (s *Service) criteriaLocation(ctx context.Context, criteria entry.SearchCriteria) (*time.Location, error) {
	if criteria.WeblogID == uuid.Nil {
		return timeutil.Location(), nil
	}
	blog, err := s.weblogs.Get(ctx, criteria.WeblogID)
	if err != nil {
		return nil, err
	}
	return blog.Location(), nil
}

// entryTime is the instant an entry sorts and groups by: pubTime when set,
// updateTime for drafts.
func entryTime(e *entry.Entry) time.Time {
	if e.PubTime != nil {
		return *e.PubTime
	}
	return e.UpdateTime
}
