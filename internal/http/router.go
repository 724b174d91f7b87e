// Package http assembles the service's chi router: the public applicant
// surface, the token-guarded admin API, the session-guarded dashboard routes
// and the operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "alumreg/internal/admin/handler"
	erphandler "alumreg/internal/erp/handler"
	"alumreg/internal/platform/config"
	"alumreg/internal/platform/middleware"
	reghandler "alumreg/internal/registration/handler"
	"alumreg/pkg/platform/httputil"
)

// HealthChecker reports one dependency's health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Registration *reghandler.Handler
	Erp          *erphandler.Handler
	Admin        *adminhandler.Handler
	Logger       *slog.Logger

	// Readiness dependencies; nil entries are skipped.
	Checks map[string]HealthChecker
}

// New builds the full route tree.
func New(cfg config.Server, deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestMetadata)

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(deps.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		deps.Registration.RegisterPublic(r)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(cfg.AdminToken, deps.Logger))
			deps.Admin.Register(r)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdminSession(cfg.JWTSigningKey, deps.Logger))
				deps.Registration.RegisterAdmin(r)
				deps.Erp.Register(r)
			})
		})
	})

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings every registered dependency and reports per-dependency
// state. Any failure yields 503 so the load balancer stops routing here.
func handleReadyz(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		result := make(map[string]string, len(checks))

		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				result[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		httputil.WriteJSON(w, status, result)
	}
}
