package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/giuthas/patkit/internal/recordingservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth
// group.
func NewRouter(svc *recordingservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Sessions and recordings (read side).
	r.Get("/sessions", h.ListSessions)
	r.Get("/recordings", h.ListRecordings)
	r.Get("/recordings/*", h.GetRecording)

	// Curation.
	r.Patch("/recordings/*", h.SetExcluded)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
