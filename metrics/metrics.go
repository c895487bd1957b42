package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gymchallenge_http_requests_total",
		Help: "Total HTTP requests served.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gymchallenge_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	checkInsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gymchallenge_checkins_total",
		Help: "Recorded check-ins by outcome (created, replaced).",
	}, []string{"outcome"})

	rankingFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gymchallenge_ranking_user_failures_total",
		Help: "Per-user history fetches that failed while building a ranking.",
	})

	proofsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gymchallenge_proofs_deleted_total",
		Help: "Superseded proof photos removed by the janitor.",
	})
)

// MustRegister registers the package collectors once.
func MustRegister(registerer prometheus.Registerer) {
	registerOnce.Do(func() {
		registerer.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			checkInsTotal,
			rankingFailuresTotal,
			proofsDeletedTotal,
		)
	})
}

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// GinMiddleware records request count and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := []string{c.Request.Method, path, strconv.Itoa(c.Writer.Status())}
		httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(labels...).Inc()
	}
}

// CheckInRecorded counts a check-in; created=false means a retake.
func CheckInRecorded(created bool) {
	outcome := "replaced"
	if created {
		outcome = "created"
	}
	checkInsTotal.WithLabelValues(outcome).Inc()
}

func RankingUserFailed() { rankingFailuresTotal.Inc() }

func ProofDeleted() { proofsDeletedTotal.Inc() }
