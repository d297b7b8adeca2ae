// Package tagagg holds the denormalized tag usage aggregates. Two logical
// rows exist per tag name: one scoped to a weblog and one sitewide
// (WeblogID nil). Concurrent writers may leave duplicate rows for the same
// scope; readers pick the most recently used row and the sweep reclaims
// rows whose total drops to zero or below.
package tagagg

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"weblogger/internal/domain/weblog"
)

// ErrInvalidUpdate signals a rejected tag count update.
var ErrInvalidUpdate = errors.New("invalid tag count update")

// Aggregate is one running-total row. WeblogID nil means the sitewide scope.
type Aggregate struct {
	ID       uuid.UUID
	Name     string
	WeblogID *weblog.ID
	Total    int
	LastUsed time.Time
}

// Sitewide reports whether the row is the sitewide scope.
func (a *Aggregate) Sitewide() bool {
	return a.WeblogID == nil
}

// TagStat is a popular-tags view row. Intensity is a 1..5 display weight
// derived from the count on a log scale.
type TagStat struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Intensity int    `json:"intensity"`
}
