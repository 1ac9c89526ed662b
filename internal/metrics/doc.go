// Package metrics collects per-route request statistics for the gateway.
//
// Request handlers emit MetricEvent values on a buffered channel without
// blocking; a single collector goroutine folds them into an in-memory
// snapshot (served as JSON on /stats) and into Prometheus vectors (served on
// /metrics). Both endpoints live on the optional admin listener.
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Route:      "api",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
// On shutdown the collector drains whatever is still buffered.
package metrics
