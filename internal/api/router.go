package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/decks", func(r chi.Router) {
		r.Get("/", h.ListDecks)
		r.Post("/", h.CreateDeck)

		r.Route("/{deckID}", func(r chi.Router) {
			r.Get("/", h.GetDeck)
			r.Put("/", h.RenameDeck)
			r.Delete("/", h.DeleteDeck)

			r.Get("/cards", h.ListCards)
			r.Post("/cards", h.AddCard)
			r.Put("/cards/{cardID}", h.UpdateCard)
			r.Delete("/cards/{cardID}", h.DeleteCard)

			r.Post("/sessions", h.StartSession)
		})
	})

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/rate", h.RateCard)
		r.Get("/summary", h.SessionSummary)
		r.Post("/finish", h.FinishSession)
		r.Post("/exit", h.ExitSession)
		r.Post("/restart", h.RestartSession)
	})

	r.Get("/search", h.SearchCards)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
