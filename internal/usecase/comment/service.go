package comment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"weblogger/internal/domain/comment"
	"weblogger/internal/domain/repository"
	"weblogger/internal/domain/weblog"
)

// Service implements comment moderation queries and the save/remove
// lifecycle with weblog last-modified bookkeeping.
type Service struct {
	comments repository.CommentRepository
	weblogs  repository.WeblogRepository
	tx       repository.Transactor
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a comment service.
func NewService(comments repository.CommentRepository, weblogs repository.WeblogRepository, tx repository.Transactor, logger *slog.Logger) *Service {
	return &Service{
		comments: comments,
		weblogs:  weblogs,
		tx:       tx,
		logger:   logger,
		now:      time.Now,
	}
}

// GetComment returns one comment by id, nil when it does not exist.
func (s *Service) GetComment(ctx context.Context, id comment.ID) (*comment.Comment, error) {
	return s.comments.Get(ctx, id)
}

// GetComments returns comments matching the criteria in post-time order,
// oldest first unless the criteria ask for reverse chronology.
func (s *Service) GetComments(ctx context.Context, criteria comment.SearchCriteria) ([]*comment.Comment, error) {
	if err := criteria.Normalize(); err != nil {
		return nil, err
	}
	return s.comments.List(ctx, criteria)
}

// SaveComment persists the comment and touches its weblog, since new or
// re-moderated comments change what the weblog renders.
func (s *Service) SaveComment(ctx context.Context, c *comment.Comment) error {
	if c == nil {
		return fmt.Errorf("%w: comment is required", comment.ErrInvalidComment)
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.comments.Save(ctx, c); err != nil {
			return err
		}
		return s.touch(ctx, c.WeblogID)
	})
}

// RemoveComment deletes one comment and touches its weblog.
func (s *Service) RemoveComment(ctx context.Context, c *comment.Comment) error {
	if c == nil {
		return fmt.Errorf("%w: comment is required", comment.ErrInvalidComment)
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.comments.Delete(ctx, c.ID); err != nil {
			return err
		}
		return s.touch(ctx, c.WeblogID)
	})
}

// RemoveMatchingComments deletes every comment matching the criteria and
// returns how many were removed. The matches are fetched first and deleted
// one by one rather than with a criteria-shaped bulk DELETE; affected
// weblogs are touched once each.
func (s *Service) RemoveMatchingComments(ctx context.Context, criteria comment.SearchCriteria) (int, error) {
	if err := criteria.Normalize(); err != nil {
		return 0, err
	}

	removed := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		matches, err := s.comments.List(ctx, criteria)
		if err != nil {
			return err
		}
		touched := map[weblog.ID]struct{}{}
		for _, c := range matches {
			if err := s.comments.Delete(ctx, c.ID); err != nil {
				return err
			}
			removed++
			touched[c.WeblogID] = struct{}{}
		}
		now := s.now()
		for id := range touched {
			if err := s.weblogs.Touch(ctx, id, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CommentCount returns the number of approved comments sitewide.
func (s *Service) CommentCount(ctx context.Context) (int64, error) {
	return s.comments.CountApproved(ctx)
}

// CommentCountForWeblog returns the number of approved comments in one
// weblog.
func (s *Service) CommentCountForWeblog(ctx context.Context, weblogID weblog.ID) (int64, error) {
	return s.comments.CountApprovedForWeblog(ctx, weblogID)
}

func (s *Service) touch(ctx context.Context, weblogID weblog.ID) error {
	if weblogID == uuid.Nil {
		return nil
	}
	return s.weblogs.Touch(ctx, weblogID, s.now())
}
