package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// all metrics and middlewares for the REST API and the relay core
var (
	// to prevent metrics from being initialized multiple times
	isMetricsInitVar uint32 = 0

	// active REST API connections
	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_rest_connections",
			Help: "Number of active REST API connections",
		},
	)

	// response times for REST APIs
	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{1, 10, 50, 100, 200, 300, 400, 500},
		},
		[]string{"method", "endpoint"},
	)

	// size of the body for REST APIs
	requestSizeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_request_size_kilobytes",
			Help:    "REST API response size distributions",
			Buckets: []float64{200, 500, 900, 1500, 2000, 3000, 4000, 5000},
		},
		[]string{"method", "endpoint"},
	)

	responseSizeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_size_kilobytes",
			Help:    "REST API response size distributions",
			Buckets: []float64{200, 500, 900, 1500, 2000, 3000, 4000, 5000},
		},
		[]string{"method", "endpoint"},
	)

	// Number of requests processed by REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_requests_processed_total",
		Help: "The total number of processed REST requests",
	}, []string{"method", "endpoint"})

	// Number of envelopes accepted into mailboxes
	EnvelopesStoredMetricsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "envelopes_stored_total",
		Help: "The total number of envelopes accepted into mailboxes",
	})

	// Number of envelopes handed out by destructive fetches
	EnvelopesDeliveredMetricsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "envelopes_delivered_total",
		Help: "The total number of envelopes removed by consume",
	})

	// Number of envelopes dropped because their TTL elapsed
	EnvelopesExpiredMetricsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "envelopes_expired_total",
		Help: "The total number of envelopes dropped on TTL expiry",
	})

	// Envelopes currently held in memory
	StoredEnvelopesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stored_envelopes",
		Help: "Number of envelopes currently held in memory",
	})

	// Mailboxes with at least one envelope
	ActiveMailboxesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_mailboxes",
		Help: "Number of mailboxes holding at least one envelope",
	})

	// Number of requests rejected by the scanner heuristics
	SuspiciousRequestsMetricsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "suspicious_requests_total",
		Help: "The total number of requests rejected as suspicious",
	})

	// Number of requests rejected because the address is blocked
	BlockedRequestsMetricsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blocked_requests_total",
		Help: "The total number of requests rejected from blocked addresses",
	})

	// Number of requests rejected by per-address rate limits
	RateLimitedRequestsMetricsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "The total number of requests rejected by rate limiting",
	})

	// Latency of processing an accepted send
	SendProcessingLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "send_processing_latency_milliseconds",
		Help:    "Latency of send request processing",
		Buckets: prometheus.LinearBuckets(1, 100, 10),
	})
)

func setIsMetricsInit() {
	atomic.StoreUint32(&isMetricsInitVar, 1)
}

func isMetricsInit() bool {
	return atomic.LoadUint32(&isMetricsInitVar) == 1
}

func InitMetrics() {
	if !isMetricsInit() {
		setIsMetricsInit()

		// Metrics have to be registered to be exposed
		prometheus.MustRegister(activeRESTConnections)
		prometheus.MustRegister(responseTimeRESTAPI)
		prometheus.MustRegister(RESTRequestMetricsTotal)
		prometheus.MustRegister(EnvelopesStoredMetricsCount)
		prometheus.MustRegister(EnvelopesDeliveredMetricsCount)
		prometheus.MustRegister(EnvelopesExpiredMetricsCount)
		prometheus.MustRegister(StoredEnvelopesGauge)
		prometheus.MustRegister(ActiveMailboxesGauge)
		prometheus.MustRegister(SuspiciousRequestsMetricsCount)
		prometheus.MustRegister(BlockedRequestsMetricsCount)
		prometheus.MustRegister(RateLimitedRequestsMetricsCount)
		prometheus.MustRegister(SendProcessingLatency)
		prometheus.MustRegister(requestSizeRESTAPI)
		prometheus.MustRegister(responseSizeRESTAPI)

	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Increment the counter for the given endpoint:
		RESTRequestMetricsTotal.WithLabelValues(c.Request.Method, c.FullPath()).Inc()

		r := c.Request
		w := c.Writer

		// Start timing responseTime histogram
		start := time.Now()

		// Set activeConnections gauge
		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		// after request

		// observe request size in kilobtyes
		if r.ContentLength > 0 {
			requestSizeRESTAPI.WithLabelValues(c.Request.Method, c.Request.URL.Path).Observe(float64(r.ContentLength) / 1024)
		}

		// set response size
		if w.Size() > 0 {
			responseSizeRESTAPI.WithLabelValues(c.Request.Method, c.Request.URL.Path).Observe(float64(w.Size()) / 1024)
		}

		// Set responseTime histogram
		latency := time.Since(start)
		responseTimeRESTAPI.WithLabelValues(c.Request.Method, c.Request.URL.Path).Observe(float64(latency.Milliseconds()))
	}
}
