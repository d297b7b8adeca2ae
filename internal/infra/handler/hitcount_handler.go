package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domainHitcount "weblogger/internal/domain/hitcount"
	usecaseHitcount "weblogger/internal/usecase/hitcount"
)

const (
	defaultHotLimit = 10
	maxHotLimit     = 100
	maxHotSinceDays = 30
)

// HitCountHandler exposes the hit counter and hot-weblogs endpoints.
type HitCountHandler struct {
	service           *usecaseHitcount.Service
	weblogs           WeblogResolver
	defaultWindowDays int
}

// NewHitCountHandler creates a new HitCountHandler.
func NewHitCountHandler(service *usecaseHitcount.Service, weblogs WeblogResolver, defaultWindowDays int) *HitCountHandler {
	if defaultWindowDays < 1 {
		defaultWindowDays = 1
	}
	return &HitCountHandler{service: service, weblogs: weblogs, defaultWindowDays: defaultWindowDays}
}

// RegisterRoutes registers hit count handlers on the router.
func (h *HitCountHandler) RegisterRoutes(r chiRouter) {
	r.Post("/weblogs/{handle}/hits", h.handleIncrementHits)
	r.Get("/weblogs/hot", h.handleHotWeblogs)
}

func (h *HitCountHandler) handleIncrementHits(w http.ResponseWriter, r *http.Request) {
	blog, err := h.weblogs.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// An empty body counts a single hit.
	req := incrementHitsRequest{Amount: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	if err := h.service.IncrementHitCount(r.Context(), blog.ID, req.Amount); err != nil {
		if errors.Is(err, domainHitcount.ErrInvalidIncrement) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "counted"})
}

func (h *HitCountHandler) handleHotWeblogs(w http.ResponseWriter, r *http.Request) {
	sinceDays, err := readQueryInt(r, "since_days", 1, maxHotSinceDays, h.defaultWindowDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	length, err := readQueryInt(r, "limit", 1, maxHotLimit, defaultHotLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := readQueryInt(r, "offset", 0, 0, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	hot, err := h.service.HotWeblogs(r.Context(), sinceDays, offset, length)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hotWeblogsResponse{
		Weblogs:   hot,
		SinceDays: sinceDays,
		Limit:     length,
		Offset:    offset,
	})
}

type incrementHitsRequest struct {
	Amount int `json:"amount"`
}

type hotWeblogsResponse struct {
	Weblogs   []domainHitcount.HotWeblog `json:"weblogs"`
	SinceDays int                        `json:"since_days"`
	Limit     int                        `json:"limit"`
	Offset    int                        `json:"offset"`
}
