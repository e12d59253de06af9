package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/promokit/adserve/internal/config"
	"github.com/promokit/adserve/internal/metrics"
	"github.com/promokit/adserve/internal/transport/http/handlers"
	authmw "github.com/promokit/adserve/internal/transport/http/middleware"
)

func New(
	serve *handlers.ServeHandler,
	events *handlers.EventsHandler,
	stats *handlers.AnalyticsHandler,
	admin *handlers.AdminAdsHandler,
	auth *authmw.AuthMiddleware,
	z *handlers.HealthHandler,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	r.Use(authmw.RequestID)
	r.Use(authmw.SecurityHeaders)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(authmw.AccessLog)
	r.Use(authmw.Metrics)

	if cfg.RLEnabled {
		r.Use(httprate.LimitByIP(cfg.RLLimit, cfg.RLWindow))
	}

	r.Get("/healthz", z.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/ads/v1", func(r chi.Router) {
		// Public serving surface.
		r.Get("/serve/{position}", serve.Serve)
		r.Post("/events", events.Record)

		// Admin surface: dashboards and catalog mutation.
		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			r.Use(auth.RequireRole("admin"))

			r.Get("/analytics/daily", stats.Daily)
			r.Get("/analytics/devices", stats.Devices)
			r.Get("/analytics/countries", stats.Countries)
			r.Get("/analytics/top", stats.Top)
			r.Get("/analytics/ads/{ad_id}", stats.AdSummary)

			r.Post("/admin/ads", admin.Create)
			r.Get("/admin/ads/{ad_id}", admin.Get)
			r.Patch("/admin/ads/{ad_id}", admin.Update)
			r.Delete("/admin/ads/{ad_id}", admin.Delete)
		})
	})

	return r
}
