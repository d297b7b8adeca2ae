package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig bundles handler dependencies.
type RouterConfig struct {
	EntryHandler    *EntryHandler
	CommentHandler  *CommentHandler
	TagHandler      *TagHandler
	HitCountHandler *HitCountHandler
	HealthHandler   *HealthHandler

	APIBasePath       string
	Middlewares       []func(http.Handler) http.Handler
	PrometheusHandler http.Handler
}

// NewRouter wires handlers and middlewares.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	for _, mw := range cfg.Middlewares {
		if mw == nil {
			continue
		}
		r.Use(mw)
	}

	if cfg.PrometheusHandler != nil {
		r.Handle("/metrics", cfg.PrometheusHandler)
	}

	apiBasePath := normalizeAPIBasePath(cfg.APIBasePath)
	if apiBasePath == "" {
		apiBasePath = "/"
	}
	r.Route(apiBasePath, func(api chi.Router) {
		if cfg.EntryHandler != nil {
			cfg.EntryHandler.RegisterRoutes(api)
		}
		if cfg.CommentHandler != nil {
			cfg.CommentHandler.RegisterRoutes(api)
		}
		if cfg.TagHandler != nil {
			cfg.TagHandler.RegisterRoutes(api)
		}
		if cfg.HitCountHandler != nil {
			cfg.HitCountHandler.RegisterRoutes(api)
		}
		if cfg.HealthHandler != nil {
			api.Get("/health", cfg.HealthHandler.ServeHTTP)
		}
	})
	return r
}
