// Package api serves read-only HTTP access to ingested venues.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/venue-ingest/internal/metrics"
	"github.com/sells-group/venue-ingest/internal/model"
)

// Service is the read side of the ingestion pipeline.
type Service interface {
	QueryEntities(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error)
	GetStats(ctx context.Context) (*model.VenueStats, error)
}

// NewRouter wires middleware and routes. reg may be nil.
func NewRouter(svc Service, reg *metrics.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(requestLogger(reg))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handler{svc: svc}

	r.Get("/health", h.health)
	r.Get("/venues", h.listVenues)
	r.Get("/stats", h.stats)
	r.Method(http.MethodGet, "/metrics", reg.Handler())

	return r
}
