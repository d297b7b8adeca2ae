package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	domainEntry "weblogger/internal/domain/entry"
	"weblogger/internal/domain/weblog"
	usecaseEntry "weblogger/internal/usecase/entry"
)

const (
	defaultEntryLimit = 25
	maxEntryLimit     = 100
)

// WeblogResolver resolves a weblog from its URL handle.
type WeblogResolver interface {
	GetByHandle(ctx context.Context, handle string) (*weblog.Weblog, error)
}

// EntryHandler exposes entry endpoints.
type EntryHandler struct {
	service *usecaseEntry.Service
	weblogs WeblogResolver
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(service *usecaseEntry.Service, weblogs WeblogResolver) *EntryHandler {
	return &EntryHandler{service: service, weblogs: weblogs}
}

// RegisterRoutes registers entry handlers on the router.
func (h *EntryHandler) RegisterRoutes(r chiRouter) {
	r.Get("/weblogs/{handle}/entries", h.handleListEntries)
	r.Get("/weblogs/{handle}/entries/{anchor}", h.handleGetEntryByAnchor)
}

func (h *EntryHandler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	blog, err := h.weblogs.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	criteria, err := buildEntryCriteria(r, blog.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := h.service.GetEntries(r.Context(), criteria)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := entryListResponse{
		Entries: make([]entryResponse, 0, len(entries)),
		Limit:   criteria.MaxResults,
		Offset:  criteria.Offset,
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EntryHandler) handleGetEntryByAnchor(w http.ResponseWriter, r *http.Request) {
	blog, err := h.weblogs.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	e, err := h.service.GetEntryByAnchor(r.Context(), blog, chi.URLParam(r, "anchor"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

func buildEntryCriteria(r *http.Request, weblogID weblog.ID) (domainEntry.SearchCriteria, error) {
	criteria := domainEntry.SearchCriteria{
		WeblogID:     weblogID,
		CategoryName: r.URL.Query().Get("category"),
		Tags:         r.URL.Query()["tag"],
		Creator:      r.URL.Query().Get("creator"),
		Status:       domainEntry.Status(r.URL.Query().Get("status")),
		Locale:       r.URL.Query().Get("locale"),
		Text:         r.URL.Query().Get("q"),
		SortBy:       domainEntry.SortBy(r.URL.Query().Get("sort")),
	}

	var err error
	if criteria.StartDate, err = readQueryTime(r, "start"); err != nil {
		return criteria, err
	}
	if criteria.EndDate, err = readQueryTime(r, "end"); err != nil {
		return criteria, err
	}
	if criteria.Ascending, err = readQueryBool(r, "asc", false); err != nil {
		return criteria, err
	}
	if criteria.Offset, err = readQueryInt(r, "offset", 0, 0, 0); err != nil {
		return criteria, err
	}
	if criteria.MaxResults, err = readQueryInt(r, "limit", 1, maxEntryLimit, defaultEntryLimit); err != nil {
		return criteria, err
	}
	return criteria, nil
}

func toEntryResponse(e *domainEntry.Entry) entryResponse {
	resp := entryResponse{
		ID:         e.ID,
		WeblogID:   e.WeblogID,
		Anchor:     e.Anchor,
		Title:      e.Title,
		Text:       e.Text,
		Locale:     e.Locale,
		Status:     string(e.Status),
		Creator:    e.Creator,
		PubTime:    e.PubTime,
		UpdateTime: e.UpdateTime,
		Tags:       make([]string, 0, len(e.Tags)),
	}
	if e.CategoryID != uuid.Nil {
		id := e.CategoryID
		resp.CategoryID = &id
	}
	for _, t := range e.Tags {
		resp.Tags = append(resp.Tags, t.Name)
	}
	return resp
}

type entryListResponse struct {
	Entries []entryResponse `json:"entries"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type entryResponse struct {
	ID         domainEntry.ID `json:"id"`
	WeblogID   weblog.ID      `json:"weblog_id"`
	Anchor     string         `json:"anchor"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	CategoryID *uuid.UUID     `json:"category_id,omitempty"`
	Locale     string         `json:"locale,omitempty"`
	Status     string         `json:"status"`
	Creator    string         `json:"creator"`
	PubTime    *time.Time     `json:"pub_time,omitempty"`
	UpdateTime time.Time      `json:"update_time"`
	Tags       []string       `json:"tags"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	message := "internal error"
	if status < 500 && err != nil {
		message = err.Error()
	}
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, weblog.ErrNotFound), errors.Is(err, domainEntry.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, weblog.ErrInvalidWeblog), errors.Is(err, domainEntry.ErrInvalidEntry):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
