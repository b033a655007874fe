package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"clinicbook/backend/internal/metrics"
)

type RouterConfig struct {
	Service schedulingService
	DB      *bun.DB
	Redis   *redis.Client
	Metrics *metrics.Collector
	Logger  *slog.Logger
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))

	health := NewHealthHandler(cfg.DB, cfg.Redis, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	h := NewHandlers(cfg.Service, cfg.Logger)

	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/slots", h.GetSlots)
		r.Post("/templates", h.CreateTemplate)
		r.Delete("/templates/{templateID}", h.DeactivateTemplate)
		r.Post("/unavailability", h.CreateUnavailability)
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/{id}", h.GetAppointment)
		r.Post("/{id}/status", h.TransitionAppointment)
	})

	return r
}
