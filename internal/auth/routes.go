package auth

import (
	"github.com/go-chi/chi/v5"
	"github.com/vivaldi20/member-directory/internal/middleware"
)

// SetupRoutes registers /register, /login and /logout on the root router.
// limiter may be nil.
func SetupRoutes(h *Handler, tokens middleware.TokenFetcher, limiter *middleware.RateLimiter) func(r chi.Router) {
	return func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Handler)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.TokenMiddleware(tokens))
			r.Post("/logout", h.Logout)
		})
	}
}
