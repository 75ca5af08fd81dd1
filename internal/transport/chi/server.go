// Package chi exposes the operational HTTP surface of the service: health and
// metrics. The store itself is consumed as a library; there is no document API
// over HTTP.
package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/labfoundry/expstore/internal/health"
	"github.com/labfoundry/expstore/internal/metrics"
)

// Server serves the operational endpoints.
type Server struct {
	health  *health.Service
	logger  *zap.Logger
	apiKeys []string
}

// NewServer creates the operational HTTP server.
func NewServer(health *health.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{health: health, logger: logger}
}

// WithAPIKeys enables bearer authentication on non-exempt routes.
func (s *Server) WithAPIKeys(keys []string) *Server {
	s.apiKeys = keys
	return s
}

// Router builds the chi router with recovery, request ids and HTTP metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.jsonRecoverer())
	r.Use(chiMiddleware.RequestID)
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Get("/healthz", s.healthCheck)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// healthCheck handles GET /healthz.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != health.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain
// text stacktrace.
func (s *Server) jsonRecoverer() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					s.logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
