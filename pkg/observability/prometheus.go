package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements every hook interface on top of Prometheus
// collectors registered with its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	loadsTotal     *prometheus.CounterVec
	loadDuration   prometheus.Histogram
	searchesTotal  *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	searchScore    prometheus.Gauge

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	restartsTotal *prometheus.CounterVec
	sweepsTotal   prometheus.Counter
	movesAccepted prometheus.Counter
	movesTried    prometheus.Counter

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with a fresh
// registry, which also carries the Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,

		loadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_loads_total",
			Help: "Datasets loaded, by status",
		}, []string{"status"}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "causeway_load_duration_seconds",
			Help:    "Dataset load latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		searchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_searches_total",
			Help: "Searches run, by strategy and status",
		}, []string{"strategy", "status"}),
		searchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "causeway_search_duration_seconds",
			Help:    "Search latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"strategy"}),
		searchScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "causeway_search_last_score",
			Help: "Total score of the most recent search",
		}),

		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_cache_hits_total",
			Help: "Result cache hits",
		}, []string{"type"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_cache_misses_total",
			Help: "Result cache misses",
		}, []string{"type"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_cache_written_bytes_total",
			Help: "Bytes written to the result cache",
		}, []string{"type"}),

		restartsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_restarts_total",
			Help: "Search restarts completed, by outcome",
		}, []string{"outcome"}),
		sweepsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "causeway_sweeps_total",
			Help: "Sweeps completed across all restarts",
		}),
		movesAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "causeway_moves_accepted_total",
			Help: "Improving moves accepted",
		}),
		movesTried: f.NewCounter(prometheus.CounterOpts{
			Name: "causeway_moves_tried_total",
			Help: "Moves attempted",
		}),

		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_http_requests_total",
			Help: "HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "causeway_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics to path for the node exporter
// textfile collector.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnLoadStart(context.Context, string) {}

func (p *Prometheus) OnLoadComplete(_ context.Context, _ string, _, _ int, d time.Duration, err error) {
	p.loadsTotal.WithLabelValues(status(err)).Inc()
	p.loadDuration.Observe(d.Seconds())
}

func (p *Prometheus) OnSearchStart(context.Context, string, int) {}

func (p *Prometheus) OnSearchComplete(_ context.Context, strategy string, total float64, d time.Duration, err error) {
	p.searchesTotal.WithLabelValues(strategy, status(err)).Inc()
	p.searchDuration.WithLabelValues(strategy).Observe(d.Seconds())
	if err == nil {
		p.searchScore.Set(total)
	}
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheHits.WithLabelValues(keyType).Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheMisses.WithLabelValues(keyType).Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRestartStart(context.Context, int, float64) {}

func (p *Prometheus) OnSweep(_ context.Context, ev SweepEvent) {
	p.sweepsTotal.Inc()
	p.movesAccepted.Add(float64(ev.Accepted))
	p.movesTried.Add(float64(ev.Tried))
}

func (p *Prometheus) OnRestartComplete(_ context.Context, _ int, _ float64, _ int, interrupted bool) {
	outcome := "converged"
	if interrupted {
		outcome = "interrupted"
	}
	p.restartsTotal.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) OnRequest(context.Context, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	p.requestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	p.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ SearchHooks   = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
)
