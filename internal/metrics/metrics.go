package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hintparty_ws_connections",
		Help: "Current number of active websocket sessions",
	})
	RoomsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hintparty_rooms_created_total",
		Help: "Total number of rooms created",
	})
	RoundsEnded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hintparty_rounds_ended_total",
		Help: "Rounds ended, by reason",
	}, []string{"reason"})
	GuessesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hintparty_guesses_total",
		Help: "Guesses submitted, by correctness",
	}, []string{"correct"})
	ActionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hintparty_actions_rejected_total",
		Help: "Game actions ignored because of role or state",
	}, []string{"action"})
	BusPublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hintparty_bus_publish_failures_total",
		Help: "Event bus publishes that returned an error",
	})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections,
		RoomsCreated,
		RoundsEnded,
		GuessesTotal,
		ActionsRejected,
		BusPublishFailures,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
