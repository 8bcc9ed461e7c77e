package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/registra-gov/registra/internal/activity"
	"github.com/registra-gov/registra/internal/auth"
	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/company"
	"github.com/registra-gov/registra/internal/dashboard"
	"github.com/registra-gov/registra/internal/observability"
	"github.com/registra-gov/registra/internal/petition"
	"github.com/registra-gov/registra/internal/property"
	"github.com/registra-gov/registra/internal/securities"
	"github.com/registra-gov/registra/internal/shared"
	"github.com/registra-gov/registra/internal/users"
	"github.com/registra-gov/registra/internal/vehicle"
	"github.com/registra-gov/registra/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          authz.Middleware

	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	CompanyHandler    *company.Handler
	PropertyHandler   *property.Handler
	VehicleHandler    *vehicle.Handler
	SecuritiesHandler *securities.Handler
	PetitionHandler   *petition.Handler
	ActivityHandler   *activity.Handler
	DashboardHandler  *dashboard.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router. Every route below the protected
// group runs behind the principal middleware: claims are read from the
// session once, the principal is built immutably, and module/permission
// guards apply per route tree.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Authenticate)

		r.Get("/auth/me", params.AuthHandler.Me)

		r.Route("/users", func(r chi.Router) {
			r.Use(params.Guard.RequireModule(authz.ModuleUsers))
			params.UsersHandler.MountRoutes(r)
		})
		r.Route("/companies", func(r chi.Router) {
			r.Use(params.Guard.RequireModule(authz.ModuleCompany))
			params.CompanyHandler.MountRoutes(r)
		})
		r.Route("/properties", func(r chi.Router) {
			r.Use(params.Guard.RequireModule(authz.ModuleProperty))
			params.PropertyHandler.MountRoutes(r)
		})
		r.Route("/vehicles", func(r chi.Router) {
			r.Use(params.Guard.RequireModule(authz.ModuleVehicle))
			params.VehicleHandler.MountRoutes(r)
		})
		r.Route("/securities", func(r chi.Router) {
			r.Use(params.Guard.RequireModule(authz.ModuleSecurities))
			params.SecuritiesHandler.MountRoutes(r)
		})
		// Petition-writer licenses are part of the registrar's domain and
		// share the company module gate.
		r.Route("/petition-writers", func(r chi.Router) {
			r.Use(params.Guard.RequireModule(authz.ModuleCompany))
			params.PetitionHandler.MountRoutes(r)
		})
		r.Route("/activity", func(r chi.Router) {
			r.Use(params.Guard.RequireModule(authz.ModuleReports))
			params.ActivityHandler.MountRoutes(r)
		})
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(params.Guard.RequireModule(authz.ModuleDashboard))
			params.DashboardHandler.MountRoutes(r)
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
