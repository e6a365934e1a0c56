package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/api/respond"
	"github.com/gichigi/choir/internal/core"
)

// RateLimit throttles requests per account, or per client address for
// anonymous callers. A nil limiter disables it. When the limiter cannot
// decide, the request is refused with 503.
func RateLimit(limiter core.RateLimiter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := AccountID(r.Context())
			if key == "" {
				key = clientIP(r)
			}
			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rate limiter unavailable"})
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				log.Info("rate limited", zap.String("key", key), zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", retryAfterSeconds(d.RetryAfter))
				respond.JSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// retryAfterSeconds rounds up so clients never retry inside the window.
func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(max(int(math.Ceil(d.Seconds())), 1))
}
