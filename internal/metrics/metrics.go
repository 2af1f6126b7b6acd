package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/diagram-service/internal/logger"
)

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram_api_requests_total",
			Help: "Number of API requests",
		},
		[]string{"method", "path", "status"},
	)
	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diagram_api_latency_seconds",
			Help:    "API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	DiagramOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram_store_operations_total",
			Help: "Diagram repository operations by outcome",
		},
		[]string{"op", "result"},
	)
	DiagramRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "diagram_rows",
			Help: "Rows in the diagram table at the last sample",
		},
	)
	ProbeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram_health_probe_total",
			Help: "Health probe outcomes",
		},
		[]string{"probe", "status"},
	)
	ProbeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diagram_health_probe_seconds",
			Help:    "Latency of individual health probes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"probe"},
	)
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagram_cache_hits_total",
			Help: "Read cache hits",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagram_cache_misses_total",
			Help: "Read cache misses",
		},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagram_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram_events_published_total",
			Help: "Diagram lifecycle events by publish outcome",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequests,
		APILatency,
		DiagramOps,
		DiagramRows,
		ProbeResults,
		ProbeLatency,
		CacheHits,
		CacheMisses,
		RateLimited,
		EventsPublished,
	)
}

// RowCounter is implemented by repositories able to count their rows.
type RowCounter interface {
	Count(ctx context.Context) (int64, error)
}

// StartRowGauge updates DiagramRows every interval until ctx is done.
func StartRowGauge(ctx context.Context, repo RowCounter, interval time.Duration) {
	if repo == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := repo.Count(ctx)
				if err != nil {
					logger.L.Warn("row gauge count failed", "err", err)
					continue
				}
				DiagramRows.Set(float64(n))
			}
		}
	}()
}

// ObserveOp records the outcome of one repository call.
func ObserveOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	DiagramOps.WithLabelValues(op, result).Inc()
}
