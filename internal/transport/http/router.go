// Package http wires the chi router, middleware chain and handlers.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hl7bridge/internal/platform/middleware"
)

// RouterConfig bundles everything the router needs.
type RouterConfig struct {
	Messages *MessagesHandler
	Consents *ConsentHandler
	Audit    *AuditHandler
	Health   *HealthHandler
	Resolver middleware.ActorResolver
	Logger   *slog.Logger
}

// NewRouter assembles the HTTP surface. Everything under /api/v1 requires a
// resolved actor; health and metrics stay open for probes and scrapers.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	r.Get("/healthz", cfg.Health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireActor(cfg.Resolver, cfg.Logger))

		r.Post("/messages", cfg.Messages.Submit)

		r.Route("/consents", func(r chi.Router) {
			r.Post("/", cfg.Consents.Grant)
			r.Post("/revoke", cfg.Consents.Revoke)
			r.Get("/patients/{patientID}", cfg.Consents.ListByPatient)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/events", cfg.Audit.Query)
			r.Post("/purge", cfg.Audit.Purge)
		})
	})

	return r
}
