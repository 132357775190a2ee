package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iho/coster/internal/infrastructure/metrics"
)

// MetricsMiddleware records HTTP metrics.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
}

// NewMetricsMiddleware creates a new MetricsMiddleware.
func NewMetricsMiddleware(m *metrics.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m}
}

// Wrap wraps an http.Handler with request metrics.
func (m *MetricsMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.metrics.HTTPInFlight.Inc()
		defer m.metrics.HTTPInFlight.Dec()

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := normalizePath(r.URL.Path)
		m.metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.metrics.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// placeholders maps a path segment to the name of the identifier that
// follows it.
var placeholders = map[string]string{
	"tabs":       ":id",
	"users":      ":userID",
	"expenses":   ":expenseID",
	"categories": ":category",
}

// normalizePath replaces identifiers in /api/v1 paths with placeholders to
// keep label cardinality bounded.
//
//	/api/v1/tabs/01H.../users/3/account -> /api/v1/tabs/:id/users/:userID/account
func normalizePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return path
	}

	segments := strings.Split(rest, "/")
	for i := 1; i < len(segments); i++ {
		if placeholder, ok := placeholders[segments[i-1]]; ok && segments[i] != "" {
			segments[i] = placeholder
		}
	}

	return "/api/v1/" + strings.Join(segments, "/")
}
