package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vivaldi20/member-directory/internal/utils"
)

const unauthenticated = "Unauthenticated."

type TokenFetcher interface {
	FindTokenByKey(ctx context.Context, key string) (utils.TokenData, error)
}

// TokenMiddleware resolves "Authorization: Token <key>" (or "Bearer <key>")
// to a user id and places it on the request context.
func TokenMiddleware(fetcher TokenFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := tokenFromHeader(r.Header.Get("Authorization"))
			if !ok {
				utils.WriteMessage(w, http.StatusUnauthorized, unauthenticated)
				return
			}

			token, err := fetcher.FindTokenByKey(r.Context(), key)
			if err != nil {
				utils.WriteMessage(w, http.StatusUnauthorized, unauthenticated)
				return
			}

			ctx := utils.WithIdentity(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromHeader(header string) (string, bool) {
	scheme, key, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return "", false
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, " ") {
		return "", false
	}
	return key, true
}

// CORSMiddleware echoes the Origin back only when it is on the allow-list.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin") // important for caches
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
