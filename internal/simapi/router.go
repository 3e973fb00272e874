package simapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all simulator routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(token))

	r.Post("/keys/type", h.TypeText)
	r.Post("/keys/tap", h.TapKey)
	r.Post("/passkey", h.SetPasskey)

	r.Route("/buttons/{button}", func(r chi.Router) {
		r.Post("/press", h.PressButton)
		r.Post("/release", h.ReleaseButton)
		r.Post("/tap", h.TapButton)
	})

	r.Get("/screen.png", h.Screen)
	r.Get("/state", h.State)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
