package timeutil

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	locationMu sync.RWMutex
	location   = time.UTC
)

// SetLocation sets the default application timezone.
func SetLocation(name string) error {
	tz := strings.TrimSpace(name)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("load location %q: %w", tz, err)
	}
	locationMu.Lock()
	location = loc
	locationMu.Unlock()
	return nil
}

// Location returns the configured timezone.
func Location() *time.Location {
	locationMu.RLock()
	loc := location
	locationMu.RUnlock()
	return loc
}

// Now returns the current time in the configured timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// NoonOfDay normalizes t to 12:00 of its calendar day in loc. Day-grouped
// entry views bucket by this value so that entries posted at any hour of a
// local day collapse onto one key.
func NoonOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = Location()
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, loc)
}

// DayStamp formats t as an 8-character YYYYMMDD date in loc.
func DayStamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = Location()
	}
	return t.In(loc).Format("20060102")
}

// DaysAgo returns the instant n days before now.
func DaysAgo(n int) time.Time {
	return Now().AddDate(0, 0, -n)
}
