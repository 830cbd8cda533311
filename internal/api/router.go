package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Georisk/internal/broker"
	"github.com/MikeSquared-Agency/Georisk/internal/config"
	"github.com/MikeSquared-Agency/Georisk/internal/store"
)

func NewRouter(b *broker.Broker, s store.Store, circuits CircuitReporter, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.Server.RateLimitPerMinute, cfg.Server.TrustClientID))

	assessments := NewAssessmentsHandler(b, s, logger)
	explain := NewExplainHandler(s)
	factors := NewFactorsHandler(b.Catalog())
	admin := NewAdminHandler(s, circuits)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assessments", assessments.Create)
		r.Post("/assessments/batch", assessments.Batch)
		r.Get("/assessments", assessments.List)
		r.Get("/assessments/{id}", assessments.Get)
		r.Get("/assessments/{id}/explain", explain.Explain)
		r.Get("/batches/{id}", assessments.GetBatch)

		r.Get("/factors", factors.List)
		r.Post("/weights/normalize", factors.Normalize)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Get("/admin/stats", admin.Stats)
			r.Get("/admin/providers", admin.Providers)
		})
	})

	return r
}

// NewMetricsRouter serves /health and the metrics of g.
func NewMetricsRouter(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}
