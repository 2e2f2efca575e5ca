package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/vivaldi20/member-directory/internal/auth"
	"github.com/vivaldi20/member-directory/internal/config"
	"github.com/vivaldi20/member-directory/internal/db"
	"github.com/vivaldi20/member-directory/internal/reporting"
	"github.com/vivaldi20/member-directory/internal/storage"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	reporter := reporting.New(cfg.SentryDSN, cfg.SentryEnvironment)
	defer reporter.Flush(2 * time.Second)

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(conn)

	if err := auth.Init(conn); err != nil {
		log.Fatalf("auth init: %v", err)
	}

	files, err := newStorage(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	r := newRouter(app{
		cfg:      cfg,
		store:    auth.NewGormStore(conn),
		files:    files,
		reporter: reporter,
	})

	fmt.Printf("Server listening on port :%s...\n", cfg.Port)

	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		log.Printf("server stopped: %v", err)
	}
}

func newStorage(cfg config.Config) (storage.Storage, error) {
	switch cfg.Storage {
	case config.StorageMinio:
		s, err := storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", cfg.MinioBucket, err)
		}
		log.Printf("[storage] using minio bucket %s at %s", cfg.MinioBucket, cfg.MinioEndpoint)
		return s, nil
	default:
		log.Printf("[storage] using local media root %s", cfg.MediaRoot)
		return storage.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	}
}
