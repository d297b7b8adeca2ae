package handler

import (
	"net/http"

	"weblogger/internal/domain/tagagg"
	"weblogger/internal/domain/weblog"
	usecaseTag "weblogger/internal/usecase/tag"
)

const (
	defaultPopularTagLimit = 25
	maxPopularTagLimit     = 100
)

// TagHandler exposes the popular-tags endpoint.
type TagHandler struct {
	service *usecaseTag.Service
	weblogs WeblogResolver
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(service *usecaseTag.Service, weblogs WeblogResolver) *TagHandler {
	return &TagHandler{service: service, weblogs: weblogs}
}

// RegisterRoutes registers tag handlers on the router.
func (h *TagHandler) RegisterRoutes(r chiRouter) {
	r.Get("/tags/popular", h.handlePopularTags)
}

func (h *TagHandler) handlePopularTags(w http.ResponseWriter, r *http.Request) {
	limit, err := readQueryInt(r, "limit", 1, maxPopularTagLimit, defaultPopularTagLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := readQueryInt(r, "offset", 0, 0, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Without a weblog query parameter, the sitewide aggregates are served.
	var weblogID *weblog.ID
	if handle := r.URL.Query().Get("weblog"); handle != "" {
		blog, err := h.weblogs.GetByHandle(r.Context(), handle)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		weblogID = &blog.ID
	}

	stats, err := h.service.Popular(r.Context(), weblogID, offset, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, popularTagsResponse{
		Tags:   stats,
		Limit:  limit,
		Offset: offset,
	})
}

type popularTagsResponse struct {
	Tags   []tagagg.TagStat `json:"tags"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}
