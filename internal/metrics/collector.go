package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type EventType string

const (
	EventRequestReceived       EventType = "request_received"
	EventResponseCompleted     EventType = "response_completed"
	EventUpstreamHealthChanged EventType = "upstream_health_changed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Route      string
	Duration   time.Duration
	StatusCode int
	Healthy    bool
}

type Collector struct {
	eventCh  chan MetricEvent
	metrics  *Metrics
	logger   *slog.Logger
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	upstreamUp      prometheus.Gauge
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	c := &Collector{
		eventCh:  make(chan MetricEvent, bufferSize),
		metrics:  NewMetrics(),
		logger:   logger,
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "requests_total",
			Help:      "Requests handled, by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Time to handle a request, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		upstreamUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateway",
			Name:      "upstream_up",
			Help:      "1 when the last upstream probe succeeded.",
		}),
	}

	c.registry.MustRegister(c.requestsTotal, c.requestDuration, c.upstreamUp)

	return c
}

// Emit queues an event without blocking; it is dropped when the buffer is
// full. Safe to call on a nil Collector.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Registry exposes the Prometheus registry backing /metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RequestsTotal() *prometheus.CounterVec {
	return c.requestsTotal
}

func (c *Collector) UpstreamUp() prometheus.Gauge {
	return c.upstreamUp
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Route)

	case EventResponseCompleted:
		c.requestsTotal.WithLabelValues(event.Route, strconv.Itoa(event.StatusCode)).Inc()
		c.requestDuration.WithLabelValues(event.Route).Observe(event.Duration.Seconds())
		c.metrics.RecordResponse(event.Route, event.Duration, event.StatusCode)

	case EventUpstreamHealthChanged:
		if event.Healthy {
			c.upstreamUp.Set(1)
		} else {
			c.upstreamUp.Set(0)
		}
		c.metrics.UpdateUpstreamHealth(event.Healthy)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
