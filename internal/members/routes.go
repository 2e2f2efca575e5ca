package members

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vivaldi20/member-directory/internal/middleware"
)

func SetupRoutes(h *Handler, tokens middleware.TokenFetcher) http.Handler {
	r := chi.NewRouter()

	// All member routes require a token
	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenMiddleware(tokens))

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/{id}/update-profile-photo", h.UpdateProfilePhoto)
	})

	return r
}
