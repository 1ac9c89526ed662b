package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/angeloszaimis/frontend-gateway/config"
	"github.com/angeloszaimis/frontend-gateway/internal/gateway"
	"github.com/angeloszaimis/frontend-gateway/internal/healthcheck"
	"github.com/angeloszaimis/frontend-gateway/internal/httpserver"
	"github.com/angeloszaimis/frontend-gateway/internal/metrics"
	"github.com/angeloszaimis/frontend-gateway/pkg/logger"
)

const (
	serviceName       = "frontend-gateway"
	metricsBufferSize = 1024
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:       cfg.Logging.Level,
		Environment: cfg.Server.Environment,
		Service:     serviceName,
	})

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		log.Warn("Failed to set GOMAXPROCS", slog.Any("err", err))
	}
	defer undo()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		logStartupError(log, err)
		cancel()
		os.Exit(1)
	}
}

// run builds, binds and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	app, err := newApplication(cfg, log)
	if err != nil {
		return err
	}

	if err := app.listen(); err != nil {
		app.close()
		return err
	}

	app.logStartup()

	return app.serve(ctx)
}

type application struct {
	cfg       *config.Config
	log       *slog.Logger
	collector *metrics.Collector
	gateway   *gateway.Gateway
	server    *httpserver.Server
	// admin is nil when METRICS_ADDR is unset.
	admin *httpserver.Server
}

func newApplication(cfg *config.Config, log *slog.Logger) (*application, error) {
	collector := metrics.NewCollector(metricsBufferSize, log)

	gw, err := gateway.New(cfg, log, collector)
	if err != nil {
		return nil, err
	}

	srv, err := httpserver.New(cfg.ListenAddress(), gw,
		httpserver.WithShutdownTimeout(cfg.Server.ShutdownTimeout))
	if err != nil {
		gw.Close()
		return nil, fmt.Errorf("create server: %w", err)
	}

	app := &application{
		cfg:       cfg,
		log:       log,
		collector: collector,
		gateway:   gw,
		server:    srv,
	}

	if cfg.Metrics.Address != "" {
		app.admin, err = httpserver.New(cfg.Metrics.Address, setupAdminRouter(collector, gw.Upstream()),
			httpserver.WithShutdownTimeout(cfg.Server.ShutdownTimeout))
		if err != nil {
			gw.Close()
			return nil, fmt.Errorf("create admin server: %w", err)
		}
	}

	return app, nil
}

// listen binds every listener up front so a taken port fails startup before
// anything is served.
func (a *application) listen() error {
	if err := a.server.Listen(); err != nil {
		return err
	}
	if a.admin != nil {
		if err := a.admin.Listen(); err != nil {
			a.server.Shutdown(context.Background())
			return err
		}
	}
	return nil
}

func (a *application) logStartup() {
	_, port, _ := net.SplitHostPort(a.server.Addr())

	a.log.Info("Frontend server running",
		slog.String("addr", a.server.Addr()),
		slog.String("port", port))
	a.log.Info("Proxying to AI backend",
		slog.String("upstream", a.gateway.Upstream().URL().String()))
	a.log.Info("Health check available",
		slog.String("url", "http://localhost:"+port+gateway.HealthPath))

	if a.admin != nil {
		a.log.Info("Admin endpoints available",
			slog.String("addr", a.admin.Addr()))
	}
}

// serve blocks until ctx is done or a listener fails, then shuts down.
func (a *application) serve(ctx context.Context) error {
	a.collector.Start(ctx)

	if interval := a.cfg.Upstream.ProbeInterval; interval > 0 {
		go healthcheck.HealthCheck(ctx, a.gateway.Upstream(), interval, a.log, a.collector)
	}

	srvErrCh := make(chan error, 2)

	go func() {
		srvErrCh <- a.server.Start()
	}()

	if a.admin != nil {
		go func() {
			srvErrCh <- a.admin.Start()
		}()
	}

	select {
	case <-ctx.Done():
		a.log.Info("Shutting down gracefully...")
		return a.shutdown()
	case err := <-srvErrCh:
		a.log.Error("Server stopped unexpectedly", slog.Any("err", err))
		return errors.Join(err, a.shutdown())
	}
}

func (a *application) shutdown() error {
	var errs []error

	if err := a.server.Shutdown(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	}
	if a.admin != nil {
		if err := a.admin.Shutdown(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("shutdown admin server: %w", err))
		}
	}

	a.close()

	return errors.Join(errs...)
}

func (a *application) close() {
	if err := a.gateway.Close(); err != nil {
		a.log.Warn("Failed to close static roots", slog.Any("err", err))
	}
}

func logStartupError(log *slog.Logger, err error) {
	var bindErr *httpserver.BindError
	var depErr *gateway.StartupDependencyError

	switch {
	case errors.As(err, &bindErr):
		log.Error("Cannot bind listen address",
			slog.String("addr", bindErr.Addr),
			slog.String("hint", portHint(bindErr.Addr)),
			slog.Any("err", bindErr.Err))
	case errors.As(err, &depErr):
		log.Error("Missing startup dependency",
			slog.String("dependency", depErr.Dependency),
			slog.Any("err", depErr.Err))
	default:
		log.Error("Gateway failed", slog.Any("err", err))
	}
}

func portHint(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "check the HOST and PORT settings"
	}
	if n, err := strconv.Atoi(port); err == nil && n < 1024 {
		return "ports below 1024 usually need elevated privileges"
	}
	return "port " + port + " is probably in use by another process"
}
