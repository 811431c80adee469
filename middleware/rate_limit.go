package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines a token bucket per key
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second
	Rate rate.Limit
	// Burst is the number of requests allowed at once
	Burst int
	// KeyFunc returns the bucket key (defaults to the client IP)
	KeyFunc func(c echo.Context) string
	// Message is returned when the bucket is empty
	Message string
	// IdleTTL drops buckets not used for this long
	IdleTTL time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	config RateLimitConfig
	store  map[string]*limiterEntry
	mu     sync.Mutex
}

// NewRateLimiter creates a rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}

	rl := &RateLimiter{
		config: config,
		store:  make(map[string]*limiterEntry),
	}
	go rl.cleanup()
	return rl
}

// Allow takes a token from the key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.store[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.store[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(rl.config.KeyFunc(c)) {
				return echo.NewHTTPError(http.StatusTooManyRequests, map[string]interface{}{
					"success": false,
					"error":   rl.config.Message,
				})
			}
			return next(c)
		}
	}
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.config.IdleTTL)
		for key, entry := range rl.store {
			if entry.lastSeen.Before(cutoff) {
				delete(rl.store, key)
			}
		}
		rl.mu.Unlock()
	}
}

// userOrIP keys authenticated requests by user and the rest by client IP
func userOrIP(c echo.Context) string {
	if user := GetCurrentUser(c); user != nil {
		return "user:" + user.ID
	}
	return "ip:" + c.RealIP()
}

// LoginRateLimiter allows a burst of 5 login attempts per IP, refilled one every 12 seconds
var LoginRateLimiter = NewRateLimiter(RateLimitConfig{
	Rate:    rate.Every(12 * time.Second),
	Burst:   5,
	Message: "Too many login attempts. Please wait a minute before trying again.",
})

// UploadRateLimiter bounds document uploads per user
var UploadRateLimiter = NewRateLimiter(RateLimitConfig{
	Rate:    rate.Every(time.Second),
	Burst:   20,
	KeyFunc: userOrIP,
	Message: "Too many uploads. Please slow down.",
})
