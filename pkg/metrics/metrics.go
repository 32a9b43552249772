// Package metrics exposes Prometheus metrics for a puddle node.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on its own registry so tests and multiple
// nodes in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	ordersAccepted *prometheus.CounterVec
	ordersRejected *prometheus.CounterVec
	ordersRemoved  *prometheus.CounterVec
	ordersOpen     prometheus.Gauge

	gossipPublished prometheus.Counter
	gossipReceived  prometheus.Counter

	wsClients prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// Config names the metric namespace.
type Config struct {
	Namespace string
}

func DefaultConfig() Config {
	return Config{Namespace: "puddle"}
}

func New(cfg Config) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ordersAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "orders_accepted_total",
			Help:      "Orders admitted to the book, by source.",
		}, []string{"source"}),
		ordersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "orders_rejected_total",
			Help:      "Orders refused at admission, by reason.",
		}, []string{"reason"}),
		ordersRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "orders_removed_total",
			Help:      "Orders dropped from the book, by reason.",
		}, []string{"reason"}),
		ordersOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "orders_open",
			Help:      "Orders currently held by the book.",
		}),

		gossipPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "gossip_published_total",
			Help:      "Orders published to peers.",
		}),
		gossipReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "gossip_received_total",
			Help:      "Order messages received from peers.",
		}),

		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients.",
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"route"}),
	}
}

func (m *Metrics) OrderAccepted(source string) { m.ordersAccepted.WithLabelValues(source).Inc() }
func (m *Metrics) OrderRejected(reason string) { m.ordersRejected.WithLabelValues(reason).Inc() }
func (m *Metrics) OrderRemoved(reason string)  { m.ordersRemoved.WithLabelValues(reason).Inc() }
func (m *Metrics) SetOrdersOpen(n int)         { m.ordersOpen.Set(float64(n)) }

func (m *Metrics) GossipPublished() { m.gossipPublished.Inc() }
func (m *Metrics) GossipReceived()  { m.gossipReceived.Inc() }

func (m *Metrics) WSConnected()    { m.wsClients.Inc() }
func (m *Metrics) WSDisconnected() { m.wsClients.Dec() }

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the HTTP handler that exposes the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
