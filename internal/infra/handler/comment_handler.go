package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	domainComment "weblogger/internal/domain/comment"
	"weblogger/internal/domain/weblog"
	usecaseComment "weblogger/internal/usecase/comment"
)

const (
	defaultCommentLimit = 50
	maxCommentLimit     = 200
)

// CommentHandler exposes comment moderation endpoints.
type CommentHandler struct {
	service *usecaseComment.Service
	weblogs WeblogResolver
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(service *usecaseComment.Service, weblogs WeblogResolver) *CommentHandler {
	return &CommentHandler{service: service, weblogs: weblogs}
}

// RegisterRoutes registers comment handlers on the router.
func (h *CommentHandler) RegisterRoutes(r chiRouter) {
	r.Get("/weblogs/{handle}/comments", h.handleListComments)
	r.Delete("/weblogs/{handle}/comments", h.handleRemoveMatching)
}

func (h *CommentHandler) handleListComments(w http.ResponseWriter, r *http.Request) {
	blog, err := h.weblogs.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	criteria, err := buildCommentCriteria(r, blog)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	comments, err := h.service.GetComments(r.Context(), criteria)
	if err != nil {
		if errors.Is(err, domainComment.ErrInvalidComment) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeDomainError(w, err)
		return
	}

	resp := commentListResponse{
		Comments: make([]commentResponse, 0, len(comments)),
		Limit:    criteria.MaxResults,
		Offset:   criteria.Offset,
	}
	for _, c := range comments {
		resp.Comments = append(resp.Comments, toCommentResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CommentHandler) handleRemoveMatching(w http.ResponseWriter, r *http.Request) {
	blog, err := h.weblogs.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	criteria, err := buildCommentCriteria(r, blog)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// A criteria delete is bulk by nature; the limit from the query would
	// silently truncate it.
	criteria.MaxResults = -1
	criteria.Offset = 0

	removed, err := h.service.RemoveMatchingComments(r.Context(), criteria)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func buildCommentCriteria(r *http.Request, blog *weblog.Weblog) (domainComment.SearchCriteria, error) {
	criteria := domainComment.SearchCriteria{
		WeblogID:   blog.ID,
		SearchText: r.URL.Query().Get("q"),
		Status:     domainComment.Status(r.URL.Query().Get("status")),
	}

	var err error
	if raw := r.URL.Query().Get("entry"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return criteria, errors.New("entry must be a uuid")
		}
		criteria.EntryID = id
	}
	if criteria.StartDate, err = readQueryTime(r, "start"); err != nil {
		return criteria, err
	}
	if criteria.EndDate, err = readQueryTime(r, "end"); err != nil {
		return criteria, err
	}
	if criteria.ReverseChrono, err = readQueryBool(r, "reverse", false); err != nil {
		return criteria, err
	}
	if criteria.Offset, err = readQueryInt(r, "offset", 0, 0, 0); err != nil {
		return criteria, err
	}
	if criteria.MaxResults, err = readQueryInt(r, "limit", 1, maxCommentLimit, defaultCommentLimit); err != nil {
		return criteria, err
	}
	return criteria, nil
}

func toCommentResponse(c *domainComment.Comment) commentResponse {
	return commentResponse{
		ID:       c.ID,
		EntryID:  c.EntryID,
		Name:     c.Name,
		Email:    c.Email,
		Content:  c.Content,
		PostTime: c.PostTime,
		Status:   string(c.Status),
	}
}

type commentListResponse struct {
	Comments []commentResponse `json:"comments"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type commentResponse struct {
	ID       domainComment.ID `json:"id"`
	EntryID  uuid.UUID        `json:"entry_id"`
	Name     string           `json:"name"`
	Email    string           `json:"email,omitempty"`
	Content  string           `json:"content"`
	PostTime time.Time        `json:"post_time"`
	Status   string           `json:"status"`
}
