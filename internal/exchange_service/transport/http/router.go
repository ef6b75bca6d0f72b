package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giftring/backend/internal/exchange_service/middleware"
)

// NewRouter assembles the exchange service's HTTP surface. Everything under
// /groups requires a valid bearer token; health and metrics do not.
func NewRouter(handler *ExchangeHandler, jwtSecret string, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtSecret, logger))
		handler.RegisterRoutes(r)
	})

	return r
}
