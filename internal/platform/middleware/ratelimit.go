package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// LoginRateLimitConfig is the default budget for credential checks per
// client address.
func LoginRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 1,
		BurstSize:         5,
	}
}

// sweepThreshold is the limiter count above which idle limiters are dropped.
const sweepThreshold = 10000

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// rateLimiterStore holds one limiter per client address.
type rateLimiterStore struct {
	entries map[string]*limiterEntry
	mu      sync.Mutex
	config  RateLimitConfig
	now     func() time.Time
}

func newRateLimiterStore(cfg RateLimitConfig) *rateLimiterStore {
	return &rateLimiterStore{
		entries: make(map[string]*limiterEntry),
		config:  cfg,
		now:     time.Now,
	}
}

func (s *rateLimiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok {
		if len(s.entries) >= sweepThreshold {
			s.sweepLocked(now)
		}
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize)}
		s.entries[key] = e
	}
	e.lastUse = now
	return e.limiter
}

// idleFor is how long a limiter takes to refill its whole burst; after that
// a fresh limiter behaves the same.
func (s *rateLimiterStore) idleFor() time.Duration {
	if s.config.RequestsPerSecond <= 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(float64(s.config.BurstSize) / s.config.RequestsPerSecond * float64(time.Second))
}

func (s *rateLimiterStore) sweepLocked(now time.Time) {
	idle := s.idleFor()
	for key, e := range s.entries {
		if now.Sub(e.lastUse) >= idle {
			delete(s.entries, key)
		}
	}
}

// retryAfter is the whole number of seconds until lim grants a token.
func retryAfter(lim *rate.Limiter) int {
	r := lim.Reserve()
	defer r.Cancel()
	d := r.Delay()
	if !r.OK() || d == rate.InfDuration {
		return 1
	}
	return max(int(math.Ceil(d.Seconds())), 1)
}

// RateLimit limits requests per client address with a token bucket. The
// address comes from echo's IPExtractor.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newRateLimiterStore(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lim := store.get(c.RealIP())
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)

			if !lim.Allow() {
				h.Set("Retry-After", strconv.Itoa(retryAfter(lim)))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again later")
			}

			return next(c)
		}
	}
}
