package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/frontend-gateway/internal/metrics"
	"github.com/angeloszaimis/frontend-gateway/internal/upstream"
)

func setupAdminRouter(collector *metrics.Collector, up *upstream.Upstream) *mux.Router {
	router := mux.NewRouter()

	router.Handle("/metrics", collector.PrometheusHandler()).Methods(http.MethodGet)
	router.HandleFunc("/stats", collector.StatsHandler(func() any {
		return up.Stats()
	})).Methods(http.MethodGet)

	return router
}
