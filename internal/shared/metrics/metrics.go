package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "movierec"

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	cacheLookupsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Recommendation store lookups by result (hit, miss, error).",
	}, []string{"result"})

	modelCallsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_calls_total",
		Help:      "Model invocations by outcome (ok, error, unconfigured).",
	}, []string{"outcome"})

	parseFailuresTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_failures_total",
		Help:      "Model responses that failed to parse as a recommendation list.",
	})

	savesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saves_total",
		Help:      "Explicit saves by outcome (ok, error).",
	}, []string{"outcome"})

	coalescedTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coalesced_requests_total",
		Help:      "Cache misses served by another caller's in-flight model call.",
	})

	modelDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "model_duration_ms",
		Help:      "Model call duration in milliseconds.",
		Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
)

func init() {
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// IncCacheHit counts a store lookup that found a record.
func IncCacheHit() { cacheLookupsTotal.WithLabelValues("hit").Inc() }

// IncCacheMiss counts a store lookup that found nothing.
func IncCacheMiss() { cacheLookupsTotal.WithLabelValues("miss").Inc() }

// IncCacheError counts a store lookup that failed.
func IncCacheError() { cacheLookupsTotal.WithLabelValues("error").Inc() }

// IncModelCall counts a model invocation with the given outcome.
func IncModelCall(outcome string) { modelCallsTotal.WithLabelValues(outcome).Inc() }

// IncParseFailure counts an unparseable model response.
func IncParseFailure() { parseFailuresTotal.Inc() }

// IncSave counts an explicit save with the given outcome.
func IncSave(outcome string) { savesTotal.WithLabelValues(outcome).Inc() }

// IncCoalesced counts a caller that joined an in-flight model call.
func IncCoalesced() { coalescedTotal.Inc() }

// ObserveModelDuration records a model call duration.
func ObserveModelDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	modelDuration.Observe(float64(d.Microseconds()) / 1000.0)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(HTTPHandler())
}

// HTTPHandler is the net/http form of Handler.
func HTTPHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
