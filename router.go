package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/vivaldi20/member-directory/internal/auth"
	"github.com/vivaldi20/member-directory/internal/config"
	"github.com/vivaldi20/member-directory/internal/members"
	"github.com/vivaldi20/member-directory/internal/middleware"
	"github.com/vivaldi20/member-directory/internal/reporting"
	"github.com/vivaldi20/member-directory/internal/storage"
)

// app bundles the dependencies constructed in main.
type app struct {
	cfg      config.Config
	store    auth.Store
	files    storage.Storage
	reporter *reporting.Reporter
}

func newRouter(a app) http.Handler {
	tokens := auth.TokenInfo{Store: a.store}
	limiter := middleware.NewRateLimiter(a.cfg.LoginRatePerMinute, a.cfg.LoginRateBurst)

	authHandler := auth.NewHandler(a.store, a.files.URL, a.reporter)
	membersHandler := members.NewHandler(a.store, a.files, a.reporter, a.cfg.MaxUploadBytes())

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if a.cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(a.reporter.Middleware)
	r.Use(middleware.CORSMiddleware(a.cfg.AllowedOrigins))
	r.Use(chimiddleware.StripSlashes)

	r.Get("/", RootHandler)

	r.Group(auth.SetupRoutes(authHandler, tokens, limiter))
	r.Mount("/members", members.SetupRoutes(membersHandler, tokens))

	// Serve uploaded photos when they live on local disk
	if local, ok := a.files.(*storage.LocalStorage); ok {
		prefix := "/" + strings.Trim(a.cfg.MediaURL, "/")
		if prefix != "/" {
			fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(local.Root())))
			r.Get(prefix+"/*", fs.ServeHTTP)
		}
	}

	return r
}
