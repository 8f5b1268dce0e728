package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/wb-go/wbf/ginext"
	"golang.org/x/time/rate"
)

// clientLimiter holds a per-IP token bucket and the last time it was used.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP with a token bucket refilled at
// requestsPerMinute.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	r        rate.Limit
	b        int
	ttl      time.Duration
	swept    time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute per client.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		r:        rate.Limit(float64(requestsPerMinute) / 60.0),
		b:        requestsPerMinute,
		ttl:      10 * time.Minute,
	}
}

func (l *RateLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.ttl {
		l.sweep(now)
	}

	cl, ok := l.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.limiters[ip] = cl
	}
	cl.lastSeen = now

	return cl.limiter
}

// sweep drops limiters of clients not seen for a while. Callers hold mu.
func (l *RateLimiter) sweep(now time.Time) {
	l.swept = now
	for ip, cl := range l.limiters {
		if now.Sub(cl.lastSeen) > l.ttl {
			delete(l.limiters, ip)
		}
	}
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (l *RateLimiter) Handler() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		now := time.Now()
		reservation := l.get(c.ClientIP(), now).ReserveN(now, 1)
		if d := reservation.DelayFrom(now); d > 0 {
			reservation.CancelAt(now)

			retryAfter := int(math.Ceil(d.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, map[string]interface{}{
				"statusCode": http.StatusTooManyRequests,
				"message":    "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
