package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/middleware"
)

// Middleware rejects requests with 429 once the owner's bucket is empty. It
// must run after middleware.Owner. m may be nil.
func Middleware(l *Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := middleware.GetOwner(r.Context())
			ok, wait := l.Reserve(owner)
			if !ok {
				if m != nil {
					m.RateLimitedTotal.Inc()
				}
				logger.FromContext(r.Context()).Warn("rate limit exceeded", "retry_after", wait)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
