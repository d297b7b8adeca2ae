package entry

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"weblogger/internal/domain/weblog"
)

// ErrInvalidEntry signals invalid entry parameters.
var ErrInvalidEntry = errors.New("invalid entry")

// ErrNotFound signals a lookup miss on an entry.
var ErrNotFound = errors.New("entry not found")

// ID represents an entry identifier.
type ID = uuid.UUID

// Status is the publication state of an entry.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
)

// Valid reports whether s is a known publication status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPublished:
		return true
	}
	return false
}

const maxAnchorBaseLength = 60

// Entry represents a weblog entry.
type Entry struct {
	ID         ID
	WeblogID   weblog.ID
	Anchor     string
	Title      string
	Text       string
	CategoryID uuid.UUID
	Locale     string
	Status     Status
	Creator    string
	PubTime    *time.Time
	UpdateTime time.Time
	Tags       []Tag
	Attributes []Attribute
	CreatedAt  time.Time
}

// Tag is a tag attached to an entry. WeblogID and Creator are denormalized
// from the entry for query convenience.
type Tag struct {
	ID       uuid.UUID
	EntryID  ID
	WeblogID weblog.ID
	Name     string
	Creator  string
	Time     time.Time
}

// Attribute is a free-form name/value pair attached to an entry.
type Attribute struct {
	ID      uuid.UUID
	EntryID ID
	Name    string
	Value   string
}

// RemoveAttribute drops the named attribute from the entry and reports
// whether one was present.
func (e *Entry) RemoveAttribute(name string) bool {
	kept := e.Attributes[:0]
	removed := false
	for _, a := range e.Attributes {
		if a.Name == name {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	e.Attributes = kept
	return removed
}

// Params represents the input values required to create an Entry.
type Params struct {
	ID         ID
	WeblogID   weblog.ID
	Anchor     string
	Title      string
	Text       string
	CategoryID uuid.UUID
	Locale     string
	Status     Status
	Creator    string
	PubTime    *time.Time
	UpdateTime time.Time
}

// New creates an Entry after validating params.
func New(params Params) (*Entry, error) {
	if params.WeblogID == uuid.Nil {
		return nil, fmt.Errorf("%w: weblog id is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidEntry)
	}
	status := params.Status
	if status == "" {
		status = StatusDraft
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, params.Status)
	}
	if status == StatusPublished && params.PubTime == nil {
		return nil, fmt.Errorf("%w: published entry requires a pub time", ErrInvalidEntry)
	}
	id := params.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	updateTime := params.UpdateTime
	if updateTime.IsZero() {
		updateTime = time.Now()
	}
	return &Entry{
		ID:         id,
		WeblogID:   params.WeblogID,
		Anchor:     strings.TrimSpace(params.Anchor),
		Title:      strings.TrimSpace(params.Title),
		Text:       params.Text,
		CategoryID: params.CategoryID,
		Locale:     params.Locale,
		Status:     status,
		Creator:    params.Creator,
		PubTime:    params.PubTime,
		UpdateTime: updateTime,
	}, nil
}

// Published reports whether the entry is visible.
func (e *Entry) Published() bool {
	return e.Status == StatusPublished
}

// AddTag normalizes name using the owning weblog's locale and appends a tag.
// Names that normalize to the empty string are silently dropped, and a name
// already present on the entry is not added twice.
func (e *Entry) AddTag(name string, blog *weblog.Weblog) {
	var tag language.Tag
	if blog != nil {
		tag = blog.LanguageTag()
	}
	norm := NormalizeTagName(name, tag)
	if norm == "" {
		return
	}
	for _, t := range e.Tags {
		if t.Name == norm {
			return
		}
	}
	var weblogID weblog.ID
	if blog != nil {
		weblogID = blog.ID
	} else {
		weblogID = e.WeblogID
	}
	e.Tags = append(e.Tags, Tag{
		ID:       uuid.New(),
		EntryID:  e.ID,
		WeblogID: weblogID,
		Name:     norm,
		Creator:  e.Creator,
		Time:     e.UpdateTime,
	})
}

// NormalizeTagName trims and case-folds a tag name. Lower-casing is done
// per locale because upper/lower mappings are not 1:1 across languages
// (the Turkish dotless i being the usual example).
func NormalizeTagName(name string, locale language.Tag) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return cases.Lower(locale).String(trimmed)
}

// AnchorBase derives the deterministic base slug for the entry's anchor:
// the title when present, otherwise the leading words of the text. The
// weblog-unique anchor itself is produced by the entry service, which probes
// this base against existing anchors.
func (e *Entry) AnchorBase() string {
	source := e.Title
	if strings.TrimSpace(source) == "" {
		source = firstWords(e.Text, 5)
	}
	return slugify(source, maxAnchorBaseLength)
}

func firstWords(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func slugify(source string, maxLen int) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(source) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
		if b.Len() >= maxLen {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "entry"
	}
	return slug
}
