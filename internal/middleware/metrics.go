package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spryntr/waitlist/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics observes latency per route template and tracks in-flight requests.
// Paths that match no route share one label.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RequestsInFlight.Inc()
		defer metrics.RequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.APILatency.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
