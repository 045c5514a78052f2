package gateway

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// PublicHandler builds the webhook router. Every path under the prefix is
// routed to the webhook, which validates the token itself.
func (g *Gateway) PublicHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(g.config.MaxBodyBytes))

	// Telegram POSTs updates, but any method is accepted.
	if g.config.Prefix != "" {
		r.Handle(g.config.Prefix, g.webhook)
	}
	r.Handle(g.config.Prefix+"/*", g.webhook)
	return r
}

// AdminHandler builds the admin router. /health stays open for load
// balancers; /status and /metrics require auth when it is configured.
func (g *Gateway) AdminHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", g.handleHealth())

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.logger))
		}
		r.Get("/status", g.handleStatus())
		if g.metrics != nil {
			r.Handle("/metrics", g.metrics.Handler())
		}
	})
	return r
}

// requestID tags each request with an ID, reusing the caller's
// X-Request-Id when it is a UUID. Handlers read it with middleware.GetReqID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
