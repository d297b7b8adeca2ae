package hitcount

import (
	"errors"

	"weblogger/internal/domain/weblog"
)

// ErrInvalidIncrement signals a rejected hit count update.
var ErrInvalidIncrement = errors.New("invalid hit count increment")

// HitCount is the per-weblog daily visit counter. Counters are reset in
// bulk on a schedule by an external trigger.
type HitCount struct {
	WeblogID  weblog.ID
	DailyHits int
}

// HotWeblog is one row of the "hot weblogs" view.
type HotWeblog struct {
	WeblogID  weblog.ID `json:"weblogId"`
	Handle    string    `json:"handle"`
	Name      string    `json:"name"`
	DailyHits int       `json:"dailyHits"`
}
