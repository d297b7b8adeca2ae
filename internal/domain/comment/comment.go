package comment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"weblogger/internal/domain/entry"
	"weblogger/internal/domain/weblog"
)

// ErrInvalidComment signals invalid comment parameters.
var ErrInvalidComment = errors.New("invalid comment")

// ID represents a comment identifier.
type ID = uuid.UUID

// Status is the moderation state of a comment.
type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusPending  Status = "PENDING"
	StatusSpam     Status = "SPAM"
)

// Valid reports whether s is a known moderation status.
func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusPending, StatusSpam:
		return true
	}
	return false
}

// Comment represents a reader comment on an entry. WeblogID is denormalized
// from the entry for query convenience.
type Comment struct {
	ID       ID
	EntryID  entry.ID
	WeblogID weblog.ID
	Name     string
	Email    string
	Content  string
	PostTime time.Time
	Status   Status
}

// Params represents the input values required to create a Comment.
type Params struct {
	ID       ID
	EntryID  entry.ID
	WeblogID weblog.ID
	Name     string
	Email    string
	Content  string
	PostTime time.Time
	Status   Status
}

// New creates a Comment after validating params.
func New(params Params) (*Comment, error) {
	if params.EntryID == uuid.Nil {
		return nil, fmt.Errorf("%w: entry id is required", ErrInvalidComment)
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidComment)
	}
	status := params.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidComment, params.Status)
	}
	id := params.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	postTime := params.PostTime
	if postTime.IsZero() {
		postTime = time.Now()
	}
	return &Comment{
		ID:       id,
		EntryID:  params.EntryID,
		WeblogID: params.WeblogID,
		Name:     strings.TrimSpace(params.Name),
		Email:    strings.TrimSpace(params.Email),
		Content:  params.Content,
		PostTime: postTime,
		Status:   status,
	}, nil
}

// SearchCriteria bundles the optional filters for comment queries. When
// both EntryID and WeblogID are set, the entry filter wins and the weblog
// filter is skipped.
type SearchCriteria struct {
	EntryID       entry.ID
	WeblogID      weblog.ID
	SearchText    string
	StartDate     *time.Time
	EndDate       *time.Time
	Status        Status
	ReverseChrono bool
	Offset        int
	MaxResults    int
}

// Normalize validates the criteria and applies defaults.
func (c *SearchCriteria) Normalize() error {
	if c.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0", ErrInvalidComment)
	}
	if c.MaxResults == 0 || c.MaxResults < entry.UnboundedResults {
		c.MaxResults = entry.UnboundedResults
	}
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidComment, c.Status)
	}
	return nil
}
