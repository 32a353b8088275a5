package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if g.metrics != nil {
		r.Use(instrument(g.metrics))
	}

	// Public: no auth required.
	r.Get("/health", g.handleHealth())
	if g.metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.limiter, g.logger))
		}
		r.Use(rateLimit(g.limiter))

		if g.notifications != nil {
			r.Handle("/ws/notifications", g.notifications)
		}

		r.Route("/api", func(r chi.Router) {
			if g.reminders != nil {
				r.Route("/reminders", func(r chi.Router) {
					r.Get("/", g.handleListReminders())
					r.Post("/", g.handleCreateReminder())
					r.Delete("/", g.handleCancelAllReminders())
					r.Post("/cancel", g.handleCancelReminderByText())
					r.Get("/{id}", g.handleGetReminder())
					r.Delete("/{id}", g.handleCancelReminder())
					r.Post("/{id}/snooze", g.handleSnoozeReminder())
					r.Post("/{id}/trigger", g.handleTriggerReminder())
					r.Post("/{id}/actions/{action}", g.handleReminderAction())
				})
			}
			if g.memories != nil {
				r.Route("/memories", func(r chi.Router) {
					r.Get("/", g.handleListMemories())
					r.Post("/", g.handleRemember())
					r.Delete("/", g.handleForgetAll())
					r.Post("/recall", g.handleRecall())
					r.Delete("/{id}", g.handleForget())
				})
			}
			if g.embedding != nil {
				r.Get("/embedding", g.handleEmbeddingStatus())
				r.Post("/embedding/reset", g.handleEmbeddingReset())
			}
		})
	})

	return r
}

// instrument records method, matched route pattern, status and latency.
func instrument(m Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, route, status, time.Since(start))
		})
	}
}

func rateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil {
				if err := limiter.Allow(bucketAPI); err != nil {
					writeError(w, http.StatusTooManyRequests, "too many requests")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
