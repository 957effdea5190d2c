package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	residencyhandler "domio/internal/residency/handler"

	"domio/internal/platform/metrics"
	"domio/internal/platform/middleware"
	"domio/pkg/platform/httputil"
)

// Deps carries everything the router mounts.
type Deps struct {
	Residency *residencyhandler.Handler
	Validator middleware.TokenValidator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Health    func() error
}

// NewRouter wires all endpoints. Lifecycle routes sit behind bearer
// authentication; health and metrics stay public.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Validator, d.Logger))
		d.Residency.Register(r)
	})

	return r
}
