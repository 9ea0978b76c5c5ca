package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes. A nil gatherer serves the default
// Prometheus registry.
func SetupRoutes(handler *Handler, gatherer prometheus.Gatherer) *mux.Router {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Update control
	api.HandleFunc("/update/start", handler.StartUpdate).Methods(http.MethodPost)
	api.HandleFunc("/update/stop", handler.StopUpdate).Methods(http.MethodPost)
	api.HandleFunc("/update/status", handler.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/update/runs", handler.ListRuns).Methods(http.MethodGet)

	// Instruments
	api.HandleFunc("/instruments/{symbol}/snapshot", handler.GetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/instruments/{symbol}/cache", handler.DeleteCache).Methods(http.MethodDelete)

	return r
}
