package healthcheck

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/frontend-gateway/internal/metrics"
	"github.com/angeloszaimis/frontend-gateway/internal/upstream"
)

const probeTimeout = 5 * time.Second

// HealthCheck probes up every interval until ctx is done. Any response below
// 500 counts as reachable. collector may be nil.
func HealthCheck(
	ctx context.Context,
	up *upstream.Upstream,
	interval time.Duration,
	logger *slog.Logger,
	collector *metrics.Collector,
) {
	client := &http.Client{
		Timeout: probeTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // nolint:gosec -- same policy as the proxy
		},
	}
	defer client.CloseIdleConnections()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reported := false

	for {
		select {
		case <-ctx.Done():
			logger.Info("Upstream probe stopped",
				slog.String("upstream", up.URL().String()))
			return

		case <-ticker.C:
			healthy := Probe(ctx, client, up.URL().String())
			changed := up.SetHealthy(healthy)

			if changed || !reported {
				reported = true
				collector.Emit(metrics.MetricEvent{
					Type:      metrics.EventUpstreamHealthChanged,
					Timestamp: time.Now(),
					Healthy:   healthy,
				})
			}

			if changed {
				if healthy {
					logger.Info("Upstream is back up",
						slog.String("upstream", up.URL().String()))
				} else {
					logger.Warn("Upstream is down",
						slog.String("upstream", up.URL().String()))
				}
			}
		}
	}
}

// Probe sends one GET to target and reports whether it answered below 500.
func Probe(ctx context.Context, client *http.Client, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set(upstream.SkipBrowserWarningHeader, "true")

	res, err := client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode < http.StatusInternalServerError
}
