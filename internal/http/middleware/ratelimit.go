package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CodeRateLimited is the machine-readable error code carried by 429 bodies.
// It lives here rather than in the handlers taxonomy because the limiter
// rejects requests before any handler runs; handlers re-export it.
const CodeRateLimited = "rate_limited"

// KeyFunc derives the bucket key for a request.
type KeyFunc func(c *gin.Context) string

// KeyByUserOrIP keys the limiter on the caller's userId (query or header)
// when present, falling back to the client IP. Polling clients identify
// themselves on every request, so buckets follow users across networks.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := c.Query("userId"); uid != "" {
			return "u:" + uid
		}
		if uid := c.GetHeader("X-User-ID"); uid != "" {
			return "u:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimiter maintains one token bucket per key with lazy eviction of idle
// buckets.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	key   KeyFunc

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// idleEvictAfter is how long a bucket may sit unused before it is dropped.
const idleEvictAfter = 10 * time.Minute

// NewRateLimiter builds a limiter allowing rps sustained requests with the
// given burst per key.
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		key:     key,
		buckets: make(map[string]*bucket),
	}
}

// Handler returns the Gin middleware. Requests over the limit receive a JSON
// 429 with a Retry-After hint.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.allow(r.key(c)) {
			rid, _ := c.Get(requestIDKey)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"request_id": asString(rid),
				"code":       CodeRateLimited,
				"message":    "too many requests",
			})
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) allow(key string) bool {
	r.mu.Lock()
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(r.rps, r.burst)}
		r.buckets[key] = b
		r.evictIdleLocked()
	}
	b.seen = time.Now()
	r.mu.Unlock()
	return b.lim.Allow()
}

// evictIdleLocked drops buckets not seen recently. Called on bucket creation
// so steady-state traffic pays nothing.
func (r *RateLimiter) evictIdleLocked() {
	cutoff := time.Now().Add(-idleEvictAfter)
	for k, b := range r.buckets {
		if b.seen.Before(cutoff) {
			delete(r.buckets, k)
		}
	}
}
