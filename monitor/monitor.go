// monitor/monitor.go
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 是服务器导出的全部 Prometheus 指标
type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	OpenConnections  prometheus.Gauge
	ActiveSessions   prometheus.Gauge
	MessagesReceived *prometheus.CounterVec
	MessageLatency   prometheus.Histogram
}

func NewMetrics(namespace string, startTime time.Time) (*Metrics, []prometheus.Collector) {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of logged players with a live connection",
		}),
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Number of open client sockets",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of running game sessions",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of client messages handled",
		}, []string{"context"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}
	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the server started",
	}, func() float64 { return time.Since(startTime).Seconds() })

	return m, []prometheus.Collector{
		m.OnlinePlayers,
		m.OpenConnections,
		m.ActiveSessions,
		m.MessagesReceived,
		m.MessageLatency,
		uptime,
	}
}

// Monitor turns room and connection events into metrics. It satisfies
// both room.Observer and peer.Observer.
type Monitor struct {
	metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewMonitor registers the metrics on a fresh registry.
func NewMonitor(namespace string) (*Monitor, error) {
	reg := prometheus.NewRegistry()
	return NewMonitorWith(namespace, reg, reg)
}

func NewMonitorWith(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Monitor, error) {
	metrics, collectors := NewMetrics(namespace, time.Now())
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return &Monitor{metrics: metrics, gatherer: gatherer}, nil
}

// Handler serves the registered metrics in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Monitor) PlayerJoined() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) PlayerLeft() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SessionStarted() {
	m.metrics.ActiveSessions.Inc()
}

func (m *Monitor) SessionEnded() {
	m.metrics.ActiveSessions.Dec()
}

func (m *Monitor) ConnectionOpened() {
	m.metrics.OpenConnections.Inc()
}

func (m *Monitor) ConnectionClosed() {
	m.metrics.OpenConnections.Dec()
}

func (m *Monitor) MessageHandled(context string, elapsed time.Duration) {
	m.metrics.MessagesReceived.WithLabelValues(context).Inc()
	m.metrics.MessageLatency.Observe(elapsed.Seconds())
}
