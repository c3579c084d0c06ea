package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const rateLimitExceededJSON = `{"error":"rate limit exceeded","code":429,"retry_after":%d}`

// Rate limiting is opt-in; a zero limit disables it.
var (
	rateLimit       int
	rateLimitWindow = time.Minute
)

// SetRateLimit caps requests per client IP for routers built afterwards.
func SetRateLimit(limit int, window time.Duration) {
	rateLimit = limit
	if window > 0 {
		rateLimitWindow = window
	}
}

// RateLimitMiddleware limits each client to limit requests per window,
// backed by an in-memory store.
func RateLimitMiddleware(limit int, window time.Duration) func(http.Handler) http.Handler {
	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: window, Limit: int64(limit)})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lctx, err := instance.Get(r.Context(), clientKey(r))
			if err != nil {
				// fail open
				if zlog != nil {
					zlog.Warn().Err(err).Msg("rate limiter error")
				}
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
			if lctx.Reached {
				rateLimitedTotal.Inc()
				retryAfter := max(int(time.Until(time.Unix(lctx.Reset, 0)).Seconds()), 0)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = fmt.Fprintf(w, rateLimitExceededJSON, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the request's remote IP. middleware.RealIP has already
// applied X-Forwarded-For and X-Real-IP.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
