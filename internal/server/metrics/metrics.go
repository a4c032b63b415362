// Package metrics exports the reference server's prometheus collectors.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carvault"

type Metrics struct {
	registry *prometheus.Registry

	rpcRequests   *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	uploadedBytes prometheus.Counter
	delegations   prometheus.Counter
}

// New builds the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Asset store calls by method and status code.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Latency of asset store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Identity provider requests by route and status.",
		}, []string{"route", "status"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Payload bytes accepted by Store.",
		}),
		delegations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegations_issued_total",
			Help:      "Delegations handed out by authorize.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.rpcRequests,
		m.rpcDuration,
		m.httpRequests,
		m.uploadedBytes,
		m.delegations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) ObserveRPC(method, code string, elapsed time.Duration) {
	m.rpcRequests.WithLabelValues(method, code).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(route string, status int) {
	m.httpRequests.WithLabelValues(route, fmt.Sprint(status)).Inc()
}

func (m *Metrics) AddUploaded(n int) {
	m.uploadedBytes.Add(float64(n))
}

func (m *Metrics) DelegationIssued() {
	m.delegations.Inc()
}

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
