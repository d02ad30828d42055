package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// KeyedLimiter holds one token bucket per key (client IP). Idle buckets are
// swept after ttl.
type KeyedLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter allows perMinute requests per key with the given burst.
func NewKeyedLimiter(perMinute, burst int, ttl time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		ttl:     ttl,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if now.Sub(l.lastSweep) > l.ttl {
		for k, v := range l.buckets {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}
	return b.lim.AllowN(now, 1)
}

// RateLimit answers 429 once the caller's IP has spent its budget.
func RateLimit(l *KeyedLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return deny(c, fiber.StatusTooManyRequests, "Too many requests, try again later")
		}
		return c.Next()
	}
}
