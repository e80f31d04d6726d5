package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes for the API server
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/transfers/build", s.handleBuildTransfer).Methods(http.MethodPost)
	v1.HandleFunc("/transfers", s.handleListTransfers).Methods(http.MethodGet)
	v1.HandleFunc("/transfers/{id}", s.handleGetTransfer).Methods(http.MethodGet)
	v1.HandleFunc("/prices", s.handlePrices).Methods(http.MethodGet)

	return r
}
