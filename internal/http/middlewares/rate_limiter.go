package middlewares

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const sweepThreshold = 1024

// RateLimiter hands every key a token bucket that refills limit tokens per
// window and bursts up to limit.
type RateLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	idle    time.Duration
	clients map[string]*client
	now     func() time.Time

	// idle keys are swept at most once per idle interval
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RateLimiter{
		every:   rate.Limit(float64(limit) / window.Seconds()),
		burst:   limit,
		idle:    window,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// RateLimiterMiddleware limits requests per keyFn(c); an empty key falls back
// to the client IP.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		now := rl.now()
		res := rl.limiterFor(key, now).ReserveN(now, 1)

		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			abortWithError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.clients) >= sweepThreshold && now.Sub(rl.lastSweep) > rl.idle {
		for k, cl := range rl.clients {
			if now.Sub(cl.lastSeen) > rl.idle {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}

	cl, ok := rl.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// KeyByIP is for unauthenticated endpoints.
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// KeyByUserOrIP prefers the authenticated principal.
func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := UserIDFromContext(c); ok && id != "" {
		return "user:" + id
	}
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}
	return ip
}
