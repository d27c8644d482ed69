// Package prom implements the observability hooks with Prometheus metrics.
//
//	m := prom.New()
//	m.Register()                      // install as global hooks
//	router.Handle("/metrics", m.Handler())
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/knowmap/pkg/observability"
)

const namespace = "knowmap"

// Metrics holds every knowmap collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	extractTotal    *prometheus.CounterVec
	extractDuration prometheus.Histogram
	subgraphNodes   prometheus.Histogram

	renderTotal    *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	renderBytes    *prometheus.CounterVec

	cacheOps *prometheus.CounterVec

	clientRequests *prometheus.CounterVec
	clientDuration *prometheus.HistogramVec

	reloadTotal  *prometheus.CounterVec
	graphNodes   prometheus.Gauge
	storeChanges *prometheus.CounterVec

	serverRequests *prometheus.CounterVec
	serverDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		extractTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Subgraph extractions by outcome.",
		}, []string{"status"}),
		extractDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent resolving ancestors and walking the subgraph.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		subgraphNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "subgraph_nodes",
			Help:      "Number of nodes in extracted subgraphs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),

		renderTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Rendered artifacts by format and outcome.",
		}, []string{"format", "status"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent producing an artifact.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"format"}),
		renderBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_bytes_total",
			Help:      "Bytes of rendered output by format.",
		}, []string{"format"}),

		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes by key type.",
		}, []string{"key_type", "op"}),

		clientRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_client_requests_total",
			Help:      "Outgoing HTTP requests by host and status code.",
		}, []string{"host", "status"}),
		clientDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_request_duration_seconds",
			Help:      "Outgoing HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),

		reloadTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Graph reloads by source and outcome.",
		}, []string{"source", "status"}),
		graphNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the served graph after the last successful reload.",
		}),
		storeChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_changes_total",
			Help:      "Store mutations by kind.",
		}, []string{"kind"}),

		serverRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		serverDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API latency by method and route.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
	}
}

// Register installs m as the global pipeline, cache, HTTP and store hooks.
func (m *Metrics) Register() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
	observability.SetStoreHooks(m)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served API request. route is the router
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.serverRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.serverDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveStoreChange counts one store mutation of the given kind.
func (m *Metrics) ObserveStoreChange(kind string) {
	m.storeChanges.WithLabelValues(kind).Inc()
}

func (m *Metrics) OnExtractStart(context.Context, string, int) {}

func (m *Metrics) OnExtractComplete(_ context.Context, _ string, nodes, _ int, d time.Duration, err error) {
	m.extractTotal.WithLabelValues(status(err)).Inc()
	m.extractDuration.Observe(d.Seconds())
	if err == nil {
		m.subgraphNodes.Observe(float64(nodes))
	}
}

func (m *Metrics) OnRenderStart(context.Context, string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	m.renderTotal.WithLabelValues(format, status(err)).Inc()
	m.renderDuration.WithLabelValues(format).Observe(d.Seconds())
	if err == nil {
		m.renderBytes.WithLabelValues(format).Add(float64(size))
	}
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, code int, d time.Duration) {
	m.clientRequests.WithLabelValues(host, strconv.Itoa(code)).Inc()
	m.clientDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.clientRequests.WithLabelValues(host, "error").Inc()
}

func (m *Metrics) OnReload(_ context.Context, source string, nodes int, _ time.Duration, err error) {
	m.reloadTotal.WithLabelValues(source, status(err)).Inc()
	if err == nil {
		m.graphNodes.Set(float64(nodes))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
	_ observability.StoreHooks    = (*Metrics)(nil)
)
