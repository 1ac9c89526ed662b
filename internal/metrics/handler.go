package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsHandler serves the JSON snapshot. extra, when non-nil, is merged in
// under the "upstream" key.
func (c *Collector) StatsHandler(extra func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Snapshot
			Upstream any `json:"upstream,omitempty"`
		}{Snapshot: c.metrics.Snapshot()}

		if extra != nil {
			body.Upstream = extra()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func (c *Collector) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
