package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"zedcmms/internal/apierror"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	r       rate.Limit
	b       int
	idleTTL time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		entries: make(map[string]*limiterEntry),
		r:       r,
		b:       b,
		idleTTL: 10 * time.Minute,
	}
}

// Allow consumes one token from ip's bucket.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.entries[ip] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()
	return e.limiter.Allow()
}

// Purge drops buckets idle for longer than the idle TTL.
func (l *IPRateLimiter) Purge() int {
	cutoff := time.Now().Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, ip)
			n++
		}
	}
	return n
}

// RunPurge purges idle buckets every interval until ctx is done.
func (l *IPRateLimiter) RunPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Purge()
		}
	}
}

// Middleware answers 429 once the caller's bucket is empty.
func (l *IPRateLimiter) Middleware(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// RateLimiter limits every API call to rps requests per second per IP.
func RateLimiter(rps float64, burst int) (gin.HandlerFunc, *IPRateLimiter) {
	l := NewIPRateLimiter(rate.Limit(rps), burst)
	return l.Middleware("too many requests"), l
}

// LoginRateLimiter allows 20 login attempts per minute per IP.
func LoginRateLimiter() (gin.HandlerFunc, *IPRateLimiter) {
	l := NewIPRateLimiter(rate.Every(3*time.Second), 20)
	return l.Middleware("too many login attempts, try again in a minute"), l
}
