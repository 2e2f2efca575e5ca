package reporting

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/vivaldi20/member-directory/internal/utils"
)

// Reporter forwards server-side failures to Sentry. A zero Reporter, or one
// built without a DSN, only logs.
type Reporter struct {
	initialized bool
}

func New(dsn, environment string) *Reporter {
	if dsn == "" {
		log.Println("[reporting] SENTRY_DSN not set, Sentry disabled")
		return &Reporter{}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		TracesSampleRate: 0.2,
		EnableTracing:    true,
	})
	if err != nil {
		log.Printf("[reporting] Sentry initialization failed: %v", err)
		return &Reporter{}
	}

	log.Println("[reporting] Sentry initialized")
	return &Reporter{initialized: true}
}

// Error logs err and sends it to Sentry, tagged with the failing operation.
func (r *Reporter) Error(ctx context.Context, op string, err error) {
	log.Printf("[%s] error: %v", op, err)
	if r == nil || !r.initialized {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", op)
		if userID, ok := utils.GetUserIDFromContext(ctx); ok {
			scope.SetUser(sentry.User{ID: strconv.FormatUint(uint64(userID), 10)})
		}
		hub.CaptureException(err)
	})
}

// Middleware attaches a per-request hub and reports panics before re-raising them.
func (r *Reporter) Middleware(next http.Handler) http.Handler {
	if r == nil || !r.initialized {
		return next
	}
	return sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(next)
}

func (r *Reporter) Flush(timeout time.Duration) bool {
	if r == nil || !r.initialized {
		return true
	}
	return sentry.Flush(timeout)
}
