package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/frontend-gateway/internal/metrics"
)

// UnnamedRoute labels requests that matched no named route.
const UnnamedRoute = "none"

// AccessLog logs one line per request and reports it to collector, which may
// be nil. It must run inside the router so the matched route is known.
func AccessLog(logger *slog.Logger, collector *metrics.Collector) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := RouteName(r)
			start := time.Now()

			collector.Emit(metrics.MetricEvent{
				Type:      metrics.EventRequestReceived,
				Timestamp: start,
				Route:     route,
			})

			recorder := newStatusRecorder(w)
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)

			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Timestamp:  time.Now(),
				Route:      route,
				Duration:   duration,
				StatusCode: recorder.statusCode,
			})

			logger.Info("Handled request",
				slog.String("request_id", RequestIDFrom(r.Context())),
				slog.String("from", clientIP(r)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.Int("status", recorder.statusCode),
				slog.Duration("duration", duration),
				slog.String("user_agent", r.UserAgent()))
		})
	}
}

// RouteName returns the name of the gorilla route that matched r.
func RouteName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
	}
	return UnnamedRoute
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
