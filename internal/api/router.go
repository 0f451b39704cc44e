package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/veloxdental/scheduling-middleware/internal/scheduling"
)

type RouterConfig struct {
	Service     SchedulingService
	PgPool      *pgxpool.Pool
	Redis       *redis.Client
	Remote      RemotePinger
	Credentials scheduling.Credentials
	Registry    *prometheus.Registry
	Log         zerolog.Logger
	Env         string
	Version     string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(CredentialsMiddleware(cfg.Credentials))

	// Health and metrics
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Remote, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	// Voice-agent custom actions
	r.Post("/appointments/view", viewAppointmentsHandler(cfg.Service))
	r.Post("/appointments/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/book", bookAppointmentHandler(cfg.Service))
	r.Post("/availability", availabilityHandler(cfg.Service))
	r.Post("/patients/search", searchPatientsHandler(cfg.Service))

	// Office reference data
	r.Get("/practitioners", practitionersHandler(cfg.Service))
	r.Get("/appointment-types", appointmentTypesHandler(cfg.Service))
	r.Get("/appointment-types/suggest", suggestTypeHandler(cfg.Service))

	return r
}
