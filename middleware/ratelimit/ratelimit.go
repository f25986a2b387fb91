package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultRPS   = 5
	DefaultBurst = 10
	DefaultTTL   = 5 * time.Minute
)

// Config defines the limiter configuration
type Config struct {
	// RPS is the steady refill rate per client
	RPS float64
	// Burst is the bucket size
	Burst int
	// TTL drops buckets idle for longer than this
	TTL time.Duration
	// KeyFunc identifies the client, c.IP() by default
	KeyFunc func(*fiber.Ctx) string
	// LimitReached renders the rejection
	LimitReached fiber.Handler
	// Now is the clock used for bucket bookkeeping
	Now func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter is a token bucket per client key
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewLimiter(config ...Config) *Limiter {
	return &Limiter{
		cfg:     configDefault(config...),
		buckets: make(map[string]*bucket),
	}
}

// New returns a middleware with its own Limiter
func New(config ...Config) fiber.Handler {
	return NewLimiter(config...).Handler()
}

// Handler returns the fiber middleware. Rejected requests never reach the
// next handler.
func (l *Limiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := l.cfg.KeyFunc(c)
		if key == "" {
			key = "unknown"
		}

		if !l.Allow(key) {
			return l.cfg.LimitReached(c)
		}
		return c.Next()
	}
}

// Allow consumes one token from key's bucket
func (l *Limiter) Allow(key string) bool {
	now := l.cfg.Now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.buckets[key] = b
	}
	b.seen = now
	l.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

// Sweep drops buckets idle longer than the TTL and reports how many remain
func (l *Limiter) Sweep() int {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.cfg.TTL {
			delete(l.buckets, k)
		}
	}
	return len(l.buckets)
}

// Run sweeps every interval until done is closed
func (l *Limiter) Run(done <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.RPS <= 0 {
		cfg.RPS = DefaultRPS
	}

	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *fiber.Ctx) string {
			return c.IP()
		}
	}

	if cfg.LimitReached == nil {
		cfg.LimitReached = func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"message": "Too many requests",
				},
			})
		}
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return cfg
}
