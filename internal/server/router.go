package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/skumatch/internal/api"
	"github.com/cloo-solutions/skumatch/internal/api/handlers"
	"github.com/cloo-solutions/skumatch/internal/api/middleware"
	"github.com/cloo-solutions/skumatch/internal/web"
)

// MaxBodyBytes bounds request bodies, uploaded PDFs included.
const MaxBodyBytes int64 = 20 * 1024 * 1024

type BackendRouterConfig struct {
	Handler *handlers.CollaboratorHandler
}

// NewBackendRouter routes the collaborator services the matching UI calls.
func NewBackendRouter(cfg BackendRouterConfig) http.Handler {
	r := newBaseRouter(middleware.MaxBodyBytes(MaxBodyBytes))

	r.Post("/process-pdf", cfg.Handler.ProcessPDF)
	r.Post("/search", cfg.Handler.Search)
	r.Post("/save-mapping", cfg.Handler.SaveMapping)
	r.Get("/debug-embedding/{id}", cfg.Handler.DebugEmbedding)

	return r
}

type UIRouterConfig struct {
	Handler *web.Handler
	// MaxBodyBytes overrides the upload limit; zero means MaxBodyBytes.
	MaxBodyBytes int64
}

// NewUIRouter routes the browser UI. Oversized uploads are not answered with
// a 413 here; the upload handler turns them into a notification on the page.
func NewUIRouter(cfg UIRouterConfig) http.Handler {
	limit := cfg.MaxBodyBytes
	if limit <= 0 {
		limit = MaxBodyBytes
	}
	r := newBaseRouter(middleware.LimitBody(limit))

	r.Get("/", cfg.Handler.Index)
	r.Post("/upload", cfg.Handler.Upload)
	r.Post("/rows/{index}/match", cfg.Handler.SelectMatch)
	r.Post("/confirm", cfg.Handler.Confirm)
	r.Get("/api/view", cfg.Handler.View)

	return r
}

func newBaseRouter(bodyLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(bodyLimit)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
