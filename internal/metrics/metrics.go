package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "quest",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quest",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quest",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	fheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quest",
			Subsystem: "fhe",
			Name:      "operations_total",
			Help:      "Homomorphic operations evaluated by the coprocessor.",
		},
		[]string{"op"},
	)

	transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quest",
			Subsystem: "chain",
			Name:      "transactions_total",
			Help:      "Ledger transactions by method and outcome.",
		},
		[]string{"method", "status"},
	)

	inputProofs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quest",
			Subsystem: "gateway",
			Name:      "input_proofs_total",
			Help:      "Encrypted input registrations by outcome.",
		},
		[]string{"outcome"},
	)

	userDecrypts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quest",
			Subsystem: "gateway",
			Name:      "user_decrypts_total",
			Help:      "User decryption requests by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		fheOperations,
		transactions,
		inputProofs,
		userDecrypts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordFHEOperation(op string) {
	fheOperations.WithLabelValues(op).Inc()
}

func RecordTransaction(method string, ok bool) {
	status := "success"
	if !ok {
		status = "failed"
	}
	transactions.WithLabelValues(method, status).Inc()
}

func RecordInputProof(outcome string) {
	inputProofs.WithLabelValues(outcome).Inc()
}

func RecordUserDecrypt(outcome string) {
	userDecrypts.WithLabelValues(outcome).Inc()
}
