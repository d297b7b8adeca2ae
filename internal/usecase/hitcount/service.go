package hitcount

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"weblogger/internal/domain/hitcount"
	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/weblog"
	"weblogger/internal/pkg/timeutil"
)

// HotCache stores hot-weblogs pages.
type HotCache interface {
	Get(ctx context.Context, sinceDays, offset, length int) ([]hitcount.HotWeblog, bool, error)
	Set(ctx context.Context, sinceDays, offset, length int, hot []hitcount.HotWeblog) error
}

// Service maintains the per-weblog daily hit counters.
type Service struct {
	hits   repository.HitCountRepository
	tx     repository.Transactor
	cache  HotCache
	logger *slog.Logger
}

// NewService builds a hit count service. cache may be nil.
func NewService(hits repository.HitCountRepository, tx repository.Transactor, cache HotCache, logger *slog.Logger) *Service {
	return &Service{hits: hits, tx: tx, cache: cache, logger: logger}
}

// GetHitCount returns the counter for a weblog, nil when none exists yet.
func (s *Service) GetHitCount(ctx context.Context, weblogID weblog.ID) (*hitcount.HitCount, error) {
	return s.hits.Get(ctx, weblogID)
}

// IncrementHitCount adds amount to a weblog's daily counter. A missing
// counter row is created on a positive increment; a negative adjustment
// against a missing row is a no-op, since there is nothing to count down.
func (s *Service) IncrementHitCount(ctx context.Context, weblogID weblog.ID, amount int) error {
	if amount == 0 {
		return fmt.Errorf("%w: amount cannot be zero", hitcount.ErrInvalidIncrement)
	}
	if weblogID == uuid.Nil {
		return fmt.Errorf("%w: weblog is required", hitcount.ErrInvalidIncrement)
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		hc, err := s.hits.Get(ctx, weblogID)
		if err != nil {
			return err
		}
		switch {
		case hc == nil && amount > 0:
			hc = &hitcount.HitCount{WeblogID: weblogID, DailyHits: amount}
		case hc == nil:
			return nil
		default:
			hc.DailyHits += amount
			if hc.DailyHits < 0 {
				hc.DailyHits = 0
			}
		}
		return s.hits.Save(ctx, hc)
	})
}

// ResetAllHitCounts zeroes every daily counter and returns how many rows
// changed.
func (s *Service) ResetAllHitCounts(ctx context.Context) (int64, error) {
	return s.hits.ResetAll(ctx)
}

// HotWeblogs returns the enabled, active weblogs with the highest daily hit
// counts among those modified in the last sinceDays days.
func (s *Service) HotWeblogs(ctx context.Context, sinceDays, offset, length int) ([]hitcount.HotWeblog, error) {
	if sinceDays <= 0 {
		sinceDays = 1
	}
	if offset < 0 {
		offset = 0
	}
	if length <= 0 {
		length = 10
	}

	if s.cache != nil {
		hot, ok, err := s.cache.Get(ctx, sinceDays, offset, length)
		if err != nil {
			s.logDebug("hot weblogs cache lookup failed", err)
		} else if ok {
			return hot, nil
		}
	}

	hot, err := s.hits.Hot(ctx, timeutil.DaysAgo(sinceDays), offset, length)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sinceDays, offset, length, hot); err != nil {
			s.logDebug("hot weblogs cache set failed", err)
		}
	}
	return hot, nil
}

func (s *Service) logDebug(msg string, err error) {
	if s.logger == nil || err == nil {
		return
	}
	s.logger.Debug(msg, "error", err)
}
