package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harborvet/vetpms/internal/appointments"
	"github.com/harborvet/vetpms/internal/auth"
	"github.com/harborvet/vetpms/internal/billing"
	"github.com/harborvet/vetpms/internal/clinics"
	httpmiddleware "github.com/harborvet/vetpms/internal/http/middleware"
	"github.com/harborvet/vetpms/internal/inventory"
	"github.com/harborvet/vetpms/internal/observability/metrics"
	"github.com/harborvet/vetpms/internal/patients"
	"github.com/harborvet/vetpms/internal/reports"
	"github.com/harborvet/vetpms/internal/tenants"
	"github.com/harborvet/vetpms/internal/users"
	"github.com/harborvet/vetpms/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger   *logging.Logger
	Resolver *auth.Resolver

	AppointmentsHandler *appointments.Handler
	PatientsHandler     *patients.Handler
	UsersHandler        *users.Handler
	ClinicsHandler      *clinics.Handler
	TenantsHandler      *tenants.Handler
	InventoryHandler    *inventory.Handler
	BillingHandler      *billing.Handler
	ReportsHandler      *reports.Handler

	MetricsHandler http.Handler
	HTTPMetrics    *metrics.HTTPMetrics

	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware)
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Session-scoped API routes
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(httpmiddleware.RequireSession(cfg.Resolver, cfg.Logger))

		if cfg.AppointmentsHandler != nil {
			api.Mount("/appointments", cfg.AppointmentsHandler.Routes())
		}
		if cfg.PatientsHandler != nil {
			api.Mount("/patients", cfg.PatientsHandler.Routes())
			api.Mount("/owners", cfg.PatientsHandler.OwnerRoutes())
		}
		if cfg.UsersHandler != nil {
			api.Mount("/users", cfg.UsersHandler.Routes())
		}
		if cfg.ClinicsHandler != nil {
			api.Mount("/clinics", cfg.ClinicsHandler.Routes())
		}
		if cfg.TenantsHandler != nil {
			api.Mount("/tenants", cfg.TenantsHandler.Routes())
		}
		if cfg.InventoryHandler != nil {
			api.Mount("/inventory", cfg.InventoryHandler.Routes())
		}
		if cfg.BillingHandler != nil {
			api.Mount("/invoices", cfg.BillingHandler.Routes())
		}
		if cfg.ReportsHandler != nil {
			api.Mount("/reports", cfg.ReportsHandler.Routes())
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
