package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func newApp(rl *Limiter) *fiber.App {
	app := fiber.New()
	app.Use(rl.Middleware())
	app.All("/login", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func status(t *testing.T, app *fiber.App, method string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, "/login", nil))
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode
}

func TestLimitsPostsPerIP(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 3})
	defer rl.Stop()
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }
	app := newApp(rl)

	for i := 0; i < 3; i++ {
		if got := status(t, app, http.MethodPost); got != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, got)
		}
	}
	if got := status(t, app, http.MethodPost); got != fiber.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", got)
	}
	if got := status(t, app, http.MethodGet); got != fiber.StatusOK {
		t.Errorf("showing the form must not be limited, got %d", got)
	}

	// One token comes back every 20s at three per minute.
	now = now.Add(21 * time.Second)
	if got := status(t, app, http.MethodPost); got != fiber.StatusOK {
		t.Errorf("expected refill, got %d", got)
	}
}

func TestForgetIdle(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1})
	defer rl.Stop()
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	if !rl.take("10.0.0.1") {
		t.Fatal("expected first attempt to pass")
	}
	now = now.Add(idleAfter + time.Second)
	rl.forgetIdle()

	rl.mu.Lock()
	n := len(rl.clients)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("expected idle address to be forgotten, %d left", n)
	}
	rl.Stop()
}
