package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// RateLimiter is an in-memory fixed-window limiter keyed by client IP.
// Used on the login route to slow down credential guessing.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	mu          sync.Mutex
	entries     map[string]*rateLimitEntry
}

// NewRateLimiter creates a limiter allowing maxAttempts requests per window.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		entries:     make(map[string]*rateLimitEntry),
	}
}

// Allow reports whether key may proceed, incrementing its counter.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.entries[key]

	if !exists || now.Sub(entry.windowStart) >= rl.window {
		// New window.
		rl.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}

	if entry.count >= rl.maxAttempts {
		return false
	}

	entry.count++
	return true
}

// RetryAfter returns how long key must wait before retrying; 0 means the key
// is not currently limited.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.entries[key]
	if !exists {
		return 0
	}

	remaining := rl.window - time.Since(entry.windowStart)
	if remaining <= 0 {
		return 0
	}

	if entry.count >= rl.maxAttempts {
		return remaining
	}

	return 0
}

// Cleanup drops expired entries to release memory.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, entry := range rl.entries {
		if now.Sub(entry.windowStart) >= rl.window {
			delete(rl.entries, key)
		}
	}
}

// RateLimit returns a Gin middleware enforcing the limiter per client IP.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		if !rl.Allow(key) {
			retryAfter := rl.RetryAfter(key)
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":      429,
				"message":   "Too many requests, please try again later",
				"timestamp": time.Now(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
