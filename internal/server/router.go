package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"transcript-calculator/internal/calculator"
	"transcript-calculator/internal/handlers"
	"transcript-calculator/internal/observability"
)

// NewRouter wires the middleware chain, the operational endpoints and the
// calculator API.
func NewRouter(calc *calculator.Handler) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler())

	calculator.RegisterRoutes(r, calc)

	return r
}
