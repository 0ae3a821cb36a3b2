package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/kanbo/internal/boardservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced. Card mutations
// additionally require an acting user in the X-User-ID header.
func NewRouter(svc *boardservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/boards", h.ListBoards)

	r.Route("/boards/{boardID}", func(r chi.Router) {
		r.Get("/", h.GetBoard)
		r.Get("/logs", h.History)
		r.Get("/logs/last", h.LastLog)
		r.Get("/search", h.SearchCards)

		// Card mutations.
		r.Group(func(r chi.Router) {
			r.Use(ActorMiddleware)
			r.Post("/columns/{col}/cards", h.CreateCard)
			r.Put("/columns/{col}/cards/{card}", h.UpdateCard)
			r.Delete("/columns/{col}/cards/{card}", h.DeleteCard)
			r.Post("/columns/{col}/cards/{card}/move", h.MoveCard)
		})
	})

	return r
}
