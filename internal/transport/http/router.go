// Package httptransport assembles the HTTP surface: middleware, feature
// handlers, and the unauthenticated operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attendancehandler "clubhub/internal/attendance/handler"
	directoryhandler "clubhub/internal/directory/handler"
	"clubhub/internal/platform/middleware"
	registrationhandler "clubhub/internal/registration/handler"
)

// Handlers carries the feature handlers the router mounts.
type Handlers struct {
	Registration *registrationhandler.Handler
	Attendance   *attendancehandler.Handler
	Directory    *directoryhandler.Handler
}

// NewRouter wires all endpoints. Everything except /healthz and /metrics sits
// behind bearer authentication.
func NewRouter(h Handlers, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		h.Registration.Register(r)
		h.Attendance.Register(r)
		h.Directory.Register(r)
	})

	return r
}
