package weblog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// ErrInvalidWeblog signals invalid weblog parameters.
var ErrInvalidWeblog = errors.New("invalid weblog")

// ErrNotFound signals a lookup miss on a weblog or one of its categories.
var ErrNotFound = errors.New("weblog not found")

// ID represents a weblog identifier.
type ID = uuid.UUID

var handlePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Weblog represents a single weblog (multi-tenant unit).
type Weblog struct {
	ID                ID
	Handle            string
	Name              string
	Description       string
	Locale            string
	TimeZone          string
	Enabled           bool
	Active            bool
	DefaultCategoryID uuid.UUID
	LastModified      time.Time
	CreatedAt         time.Time
}

// Category represents an entry category owned by a weblog.
type Category struct {
	ID       uuid.UUID
	WeblogID ID
	Name     string
}

// Params represents the input values required to create a Weblog.
type Params struct {
	ID          ID
	Handle      string
	Name        string
	Description string
	Locale      string
	TimeZone    string
	Enabled     bool
	Active      bool
}

// New creates a Weblog after validating params.
func New(params Params) (*Weblog, error) {
	handle := strings.TrimSpace(params.Handle)
	if handle == "" {
		return nil, fmt.Errorf("%w: handle is required", ErrInvalidWeblog)
	}
	if !handlePattern.MatchString(handle) {
		return nil, fmt.Errorf("%w: handle %q is not url-safe", ErrInvalidWeblog, handle)
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidWeblog)
	}
	id := params.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Weblog{
		ID:          id,
		Handle:      handle,
		Name:        strings.TrimSpace(params.Name),
		Description: strings.TrimSpace(params.Description),
		Locale:      params.Locale,
		TimeZone:    params.TimeZone,
		Enabled:     params.Enabled,
		Active:      params.Active,
	}, nil
}

// Touch advances LastModified to now. LastModified never rewinds, so a
// caller holding a stale copy cannot push the timestamp backwards.
func (w *Weblog) Touch(now time.Time) {
	if now.After(w.LastModified) {
		w.LastModified = now
	}
}

// LanguageTag parses the weblog locale, falling back to the undetermined
// tag when the locale is absent or malformed.
func (w *Weblog) LanguageTag() language.Tag {
	if w == nil || w.Locale == "" {
		return language.Und
	}
	tag, err := language.Parse(normalizeLocale(w.Locale))
	if err != nil {
		return language.Und
	}
	return tag
}

// Location resolves the weblog time zone, defaulting to UTC.
func (w *Weblog) Location() *time.Location {
	if w == nil || w.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(w.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// normalizeLocale accepts both "en_US" and "en-US" forms.
func normalizeLocale(locale string) string {
	return strings.ReplaceAll(locale, "_", "-")
}
