// Package http is the REST transport of the notification event service.
package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/strogmv/notifyevents/internal/pkg/circuitbreaker"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterConfig carries the collaborators and limits of the HTTP surface.
type RouterConfig struct {
	Handlers       *Handlers
	Identity       *Identity
	Limiter        *RateLimiter
	Breaker        *circuitbreaker.Breaker
	BreakerTimeout time.Duration
	Checks         map[string]HealthCheck
	CORSOrigins    []string
	RequestTimeout string
	MaxBodyBytes   int64
	ServiceName    string
}

// NewRouter builds the instrumented HTTP handler.
func NewRouter(c RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(AccessLogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: c.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Authorization", "Content-Type", applicationTokenHeader, "Idempotency-Key", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Idempotent-Replayed"},
		MaxAge:         300,
	}))

	r.Get("/healthz", healthHandler(c.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/notification-events", func(r chi.Router) {
		r.Use(c.Limiter.Middleware)
		if c.Breaker != nil {
			r.Use(CircuitBreakerMiddleware(c.Breaker, c.BreakerTimeout))
		}
		r.Use(TimeoutMiddleware(c.RequestTimeout))
		if c.MaxBodyBytes > 0 {
			r.Use(MaxBodySizeMiddleware(c.MaxBodyBytes))
		}
		r.Use(c.Identity.Middleware)

		h := c.Handlers
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/report.pdf", h.Report)
		r.Get("/{id}", h.GetEvent)
		r.Put("/{id}", h.UpdateEvent)
		r.Post("/{id}/resend", h.ResendEvent)
	})

	name := c.ServiceName
	if name == "" {
		name = "notifyevents"
	}
	return otelhttp.NewHandler(r, name)
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := map[string]string{}
		for _, n := range names {
			if err := checks[n](ctx); err != nil {
				result[n] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			result[n] = "ok"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		writeJSON(w, status, map[string]any{"status": state, "checks": result})
	}
}
