package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestLimiter_BurstThenRefill(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewLimiter(Config{RPS: 1, Burst: 2, Now: clock.Now})

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	assert.True(t, l.Allow("b"), "buckets are per key")

	clock.Advance(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestLimiter_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewLimiter(Config{TTL: time.Minute, Now: clock.Now})

	l.Allow("a")
	clock.Advance(30 * time.Second)
	l.Allow("b")

	assert.Equal(t, 2, l.Sweep())

	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, l.Sweep())

	clock.Advance(time.Hour)
	assert.Equal(t, 0, l.Sweep())
}

func TestHandler_Returns429(t *testing.T) {
	app := fiber.New()
	app.Post("/login", New(Config{
		RPS:   0.001,
		Burst: 1,
		KeyFunc: func(c *fiber.Ctx) string {
			return c.Get("X-Client")
		},
	}), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("X-Client", client)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, send("one"))
	assert.Equal(t, http.StatusTooManyRequests, send("one"))
	assert.Equal(t, http.StatusOK, send("two"))
}

func TestConfigDefault(t *testing.T) {
	cfg := configDefault()
	assert.Equal(t, float64(DefaultRPS), cfg.RPS)
	assert.Equal(t, DefaultBurst, cfg.Burst)
	assert.Equal(t, DefaultTTL, cfg.TTL)
	assert.NotNil(t, cfg.KeyFunc)
	assert.NotNil(t, cfg.LimitReached)
	assert.NotNil(t, cfg.Now)
}
