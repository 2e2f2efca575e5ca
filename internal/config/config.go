package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// StorageBackend selects where profile photos are written.
type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageMinio StorageBackend = "minio"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is empty")
	ErrMissingMinioBucket = errors.New("MINIO_BUCKET is required for the minio storage backend")
	ErrUnknownStorage     = errors.New("unknown STORAGE_BACKEND")
)

// Config holds the runtime settings of the member directory service.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	// TrustProxy honours X-Forwarded-For / X-Real-IP for the client address.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy"`

	Storage     StorageBackend `yaml:"storage_backend"`
	MediaRoot   string         `yaml:"media_root"`
	MediaURL    string         `yaml:"media_url"`
	MaxUploadMB int64          `yaml:"max_upload_mb"`

	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`

	LoginRatePerMinute int `yaml:"login_rate_per_minute"`
	LoginRateBurst     int `yaml:"login_rate_burst"`

	SentryDSN         string `yaml:"sentry_dsn"`
	SentryEnvironment string `yaml:"sentry_environment"`
}

// Defaults returns a Config populated with the fallback values.
func Defaults() Config {
	return Config{
		Port:               "5050",
		AllowedOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		Storage:            StorageLocal,
		MediaRoot:          "./media",
		MediaURL:           "/media/",
		MaxUploadMB:        10,
		MinioEndpoint:      "localhost:9000",
		MinioAccessKey:     "minioadmin",
		MinioSecretKey:     "minioadmin",
		MinioBucket:        "member-directory",
		LoginRatePerMinute: 20,
		LoginRateBurst:     5,
		SentryEnvironment:  "development",
	}
}

// LoadFromEnv builds the configuration from defaults, the optional YAML file
// named by CONFIG_FILE and finally environment variables.
//
// Environment variables:
//   - PORT, DATABASE_URL
//   - ALLOWED_ORIGINS: comma separated list of CORS origins
//   - TRUST_PROXY: "true" to take the client IP from proxy headers
//   - STORAGE_BACKEND: "local" or "minio" (default: "local")
//   - MEDIA_ROOT, MEDIA_URL, MAX_UPLOAD_MB
//   - MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY, MINIO_BUCKET, MINIO_USE_SSL
//   - LOGIN_RATE_PER_MINUTE, LOGIN_RATE_BURST
//   - SENTRY_DSN, SENTRY_ENVIRONMENT
func LoadFromEnv() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
	if v, ok := os.LookupEnv("TRUST_PROXY"); ok {
		cfg.TrustProxy = v == "true"
	}

	cfg.Storage = StorageBackend(strings.ToLower(getEnv("STORAGE_BACKEND", string(cfg.Storage))))
	cfg.MediaRoot = getEnv("MEDIA_ROOT", cfg.MediaRoot)
	cfg.MediaURL = getEnv("MEDIA_URL", cfg.MediaURL)
	cfg.MaxUploadMB = getEnvInt64("MAX_UPLOAD_MB", cfg.MaxUploadMB)

	cfg.MinioEndpoint = getEnv("MINIO_ENDPOINT", cfg.MinioEndpoint)
	cfg.MinioAccessKey = getEnv("MINIO_ACCESS_KEY", cfg.MinioAccessKey)
	cfg.MinioSecretKey = getEnv("MINIO_SECRET_KEY", cfg.MinioSecretKey)
	cfg.MinioBucket = getEnv("MINIO_BUCKET", cfg.MinioBucket)
	if v, ok := os.LookupEnv("MINIO_USE_SSL"); ok {
		cfg.MinioUseSSL = v == "true"
	}

	cfg.LoginRatePerMinute = int(getEnvInt64("LOGIN_RATE_PER_MINUTE", int64(cfg.LoginRatePerMinute)))
	cfg.LoginRateBurst = int(getEnvInt64("LOGIN_RATE_BURST", int64(cfg.LoginRateBurst)))

	cfg.SentryDSN = getEnv("SENTRY_DSN", cfg.SentryDSN)
	cfg.SentryEnvironment = getEnv("SENTRY_ENVIRONMENT", cfg.SentryEnvironment)

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	switch c.Storage {
	case StorageLocal:
	case StorageMinio:
		if c.MinioBucket == "" {
			return ErrMissingMinioBucket
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, c.Storage)
	}
	return nil
}

// MaxUploadBytes is the request body cap for photo uploads.
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
