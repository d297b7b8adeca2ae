package tag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"weblogger/internal/domain/entry"
	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/tagagg"
	"weblogger/internal/domain/weblog"
)

// TagRowDeleter removes a single entry-tag row.
type TagRowDeleter interface {
	DeleteTag(ctx context.Context, tagID uuid.UUID) error
}

// StatsCache stores popular-tag pages.
type StatsCache interface {
	Get(ctx context.Context, scope string, offset, limit int) ([]tagagg.TagStat, bool, error)
	Set(ctx context.Context, scope string, offset, limit int, stats []tagagg.TagStat) error
}

// Service maintains tag aggregates and serves the popular-tags view.
type Service struct {
	aggregates repository.TagAggregateRepository
	tagRows    TagRowDeleter
	tx         repository.Transactor
	cache      StatsCache
	logger     *slog.Logger
	now        func() time.Time
}

// NewService builds a tag service. cache may be nil.
func NewService(aggregates repository.TagAggregateRepository, tagRows TagRowDeleter, tx repository.Transactor, cache StatsCache, logger *slog.Logger) *Service {
	return &Service{
		aggregates: aggregates,
		tagRows:    tagRows,
		tx:         tx,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// UpdateTagCount maintains the two aggregate rows for a tag name: the row
// scoped to weblogID and the sitewide row. Each is created when absent and
// the amount is positive, otherwise incremented, with last_used refreshed.
// A global sweep then reclaims every row whose total reached zero or below;
// the sweep is deliberately not scoped to name, so it also collects
// duplicate-row leftovers from concurrent writers.
func (s *Service) UpdateTagCount(ctx context.Context, name string, weblogID weblog.ID, amount int) error {
	if amount == 0 {
		return fmt.Errorf("%w: amount cannot be zero", tagagg.ErrInvalidUpdate)
	}
	if weblogID == uuid.Nil {
		return fmt.Errorf("%w: weblog is required", tagagg.ErrInvalidUpdate)
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		if err := s.applyScope(ctx, name, &weblogID, amount, now); err != nil {
			return err
		}
		if err := s.applyScope(ctx, name, nil, amount, now); err != nil {
			return err
		}
		purged, err := s.aggregates.Sweep(ctx)
		if err != nil {
			return err
		}
		if purged > 0 && s.logger != nil {
			s.logger.Debug("tag aggregate sweep", "purged", purged)
		}
		return nil
	})
}

func (s *Service) applyScope(ctx context.Context, name string, weblogID *weblog.ID, amount int, now time.Time) error {
	agg, err := s.aggregates.Newest(ctx, name, weblogID)
	if err != nil {
		return err
	}
	switch {
	case agg == nil && amount > 0:
		agg = &tagagg.Aggregate{
			Name:     name,
			WeblogID: weblogID,
			Total:    amount,
			LastUsed: now,
		}
	case agg != nil:
		agg.Total += amount
		agg.LastUsed = now
	default:
		// Decrement against a missing row: nothing to create.
		return nil
	}
	return s.aggregates.Save(ctx, agg)
}

// RemoveEntryTag deletes one entry-tag row, decrementing the aggregates
// first when the owning entry is published. Tags of unpublished entries
// were never counted, so no decrement happens for them.
func (s *Service) RemoveEntryTag(ctx context.Context, tag entry.Tag, published bool) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if published {
			if err := s.UpdateTagCount(ctx, tag.Name, tag.WeblogID, -1); err != nil {
				return err
			}
		}
		return s.tagRows.DeleteTag(ctx, tag.ID)
	})
}

// Popular returns the top tags for a weblog, or sitewide when weblogID is
// nil, with a 1..5 log-scaled display intensity, sorted by name.
func (s *Service) Popular(ctx context.Context, weblogID *weblog.ID, offset, limit int) ([]tagagg.TagStat, error) {
	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	scope := "site"
	if weblogID != nil {
		scope = weblogID.String()
	}

	if s.cache != nil {
		stats, ok, err := s.cache.Get(ctx, scope, offset, limit)
		if err != nil {
			s.logDebug("popular tags cache lookup failed", err)
		} else if ok {
			return stats, nil
		}
	}

	stats, err := s.aggregates.Popular(ctx, weblogID, offset, limit)
	if err != nil {
		return nil, err
	}
	scaleIntensity(stats)
	// The query had to sort by total; the view wants names.
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

	if s.cache != nil {
		if err := s.cache.Set(ctx, scope, offset, limit, stats); err != nil {
			s.logDebug("popular tags cache set failed", err)
		}
	}
	return stats, nil
}

// scaleIntensity maps counts onto a 1..5 weight on a log scale, so a tag
// used ten times as often does not drown out everything else.
func scaleIntensity(stats []tagagg.TagStat) {
	if len(stats) == 0 {
		return
	}
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, s := range stats {
		min = math.Min(min, float64(s.Count))
		max = math.Max(max, float64(s.Count))
	}
	min = math.Log(1 + min)
	max = math.Log(1 + max)
	span := math.Max(.01, max-min) * 1.0001

	for i := range stats {
		stats[i].Intensity = int(1 + math.Floor(5*(math.Log(1+float64(stats[i].Count))-min)/span))
	}
}

func (s *Service) logDebug(msg string, err error) {
	if s.logger == nil || err == nil {
		return
	}
	s.logger.Debug(msg, "error", err)
}
