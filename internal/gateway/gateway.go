package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/frontend-gateway/config"
	"github.com/angeloszaimis/frontend-gateway/internal/metrics"
	"github.com/angeloszaimis/frontend-gateway/internal/middleware"
	"github.com/angeloszaimis/frontend-gateway/internal/static"
	"github.com/angeloszaimis/frontend-gateway/internal/upstream"
)

const (
	HealthPath = "/health"
	EntryPath  = "/"
)

// isoMillis matches the millisecond ISO-8601 form browsers produce.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Gateway dispatches requests over its route table.
type Gateway struct {
	logger    *slog.Logger
	router    *mux.Router
	routes    []Route
	upstream  *upstream.Upstream
	static    *static.Handler
	entryPage []byte
	now       func() time.Time
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithClock replaces time.Now for the health timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// New builds the gateway from cfg. A missing static root or unreadable entry
// page yields a *StartupDependencyError. collector may be nil.
func New(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector, opts ...Option) (*Gateway, error) {
	target, err := cfg.UpstreamURL()
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}

	entryPage, err := os.ReadFile(cfg.Static.EntryPage)
	if err != nil {
		return nil, &StartupDependencyError{Dependency: "entry page", Err: err}
	}

	files, err := static.New(cfg.Static.Dirs)
	if err != nil {
		return nil, &StartupDependencyError{Dependency: "static root", Err: err}
	}

	g := &Gateway{
		logger:    logger,
		upstream:  upstream.New(target, logger),
		static:    files,
		entryPage: entryPage,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	g.routes = g.buildRoutes()
	g.router = g.buildRouter(cfg.CORS.Enabled, collector)

	return g, nil
}

func (g *Gateway) buildRoutes() []Route {
	routes := []Route{{
		Name:     "health",
		Path:     HealthPath,
		Match:    MatchExact,
		Behavior: BehaviorHealth,
		Handler:  http.HandlerFunc(g.handleHealth),
	}}

	for _, prefix := range ProxyPrefixes {
		routes = append(routes, Route{
			Name:     routeName(prefix),
			Path:     prefix,
			Match:    MatchPrefix,
			Behavior: BehaviorProxy,
			Handler:  g.upstream,
		})
	}

	return append(routes,
		Route{
			Name:     "entry",
			Path:     EntryPath,
			Match:    MatchExact,
			Methods:  []string{http.MethodGet, http.MethodHead},
			Behavior: BehaviorEntryPage,
			Handler:  http.HandlerFunc(g.handleEntryPage),
		},
		Route{
			Name:     "static",
			Match:    MatchAny,
			Behavior: BehaviorStatic,
			Handler:  g.static,
		},
	)
}

func (g *Gateway) buildRouter(cors bool, collector *metrics.Collector) *mux.Router {
	router := mux.NewRouter()
	// Paths reach the proxy and the traversal check exactly as sent.
	router.SkipClean(true)
	router.NotFoundHandler = http.HandlerFunc(http.NotFound)

	router.Use(middleware.RequestID, middleware.AccessLog(g.logger, collector), middleware.Recover(g.logger))
	if cors {
		router.Use(middleware.CORS)
	}

	for _, route := range g.routes {
		route.register(router)
	}

	return router
}

// ServeHTTP handles one request.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

// Routes returns the route table in match order.
func (g *Gateway) Routes() []Route {
	return append([]Route(nil), g.routes...)
}

// Upstream returns the proxied backend.
func (g *Gateway) Upstream() *upstream.Upstream {
	return g.upstream
}

// Close releases the static roots.
func (g *Gateway) Close() error {
	return g.static.Close()
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	resp := HealthResponse{
		Status:    "OK",
		Timestamp: g.now().UTC().Format(isoMillis),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Warn("Failed to write health response", slog.Any("err", err))
	}
}

func (g *Gateway) handleEntryPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(g.entryPage); err != nil {
		g.logger.Warn("Failed to write entry page", slog.Any("err", err))
	}
}
