package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomspace_http_requests_total",
		Help: "Total HTTP requests processed, by method, route and status.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atomspace_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "atomspace_build_info",
		Help: "Build metadata as labels; value is always 1.",
	}, []string{"version", "commit", "date"})

	// The domain gauges and counters below (AtomCount through
	// ConsensusRejects) are registered and exported, but no code in this
	// module sets or increments them, so they report 0.

	// AtomCount tracks an AtomSpace's live atom count.
	AtomCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atomspace_live_atom_count",
		Help: "Number of currently live atoms in this node's AtomSpace.",
	})

	// QueueDepth tracks the coordination queue's pending-message count.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atomspace_queue_depth",
		Help: "Number of messages currently pending in the coordination queue.",
	})

	// ActiveNodes tracks the live cluster membership count.
	ActiveNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atomspace_active_nodes",
		Help: "Number of cluster nodes currently considered active.",
	})

	// HeartbeatsSent counts outbound heartbeat broadcasts.
	HeartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomspace_heartbeats_sent_total",
		Help: "Total heartbeat messages broadcast by this node's runtime.",
	})

	// ConsensusCommits counts proposals that reached Commit.
	ConsensusCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomspace_consensus_commits_total",
		Help: "Total consensus proposals that reached the Commit phase.",
	})

	// ConsensusRejects counts proposals that reached Reject.
	ConsensusRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atomspace_consensus_rejects_total",
		Help: "Total consensus proposals that reached the Reject phase.",
	})
)

// InitBuildInfo publishes a constant-1 gauge carrying build metadata as
// labels, the standard Prometheus "info" metric idiom.
func InitBuildInfo(version, commit, date string) {
	buildInfo.WithLabelValues(version, commit, date).Set(1)
}

// InstrumentHandler is chi middleware recording request counts and
// latencies per method/route/status.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RegisterMetricsEndpoint mounts /metrics for Prometheus scraping.
func RegisterMetricsEndpoint(r chi.Router) {
	r.Handle("/metrics", promhttp.Handler())
}
