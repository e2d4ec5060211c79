package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const tooManyAttempts = "Too many login attempts. Please try again later."

// idleAfter is how long an address may go without a login attempt before
// its allowance is forgotten.
const idleAfter = 10 * time.Minute

type allowance struct {
	left int
	at   time.Time
}

// Limiter throttles login submissions per client address. Each address
// starts with a full allowance and earns one attempt back every
// window/limit.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*allowance
	limit   int
	step    time.Duration
	log     *zap.Logger
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type Config struct {
	MaxRequestsPerMinute int
	WindowDuration       time.Duration
	Logger               *zap.Logger
}

func New(cfg Config) *Limiter {
	if cfg.MaxRequestsPerMinute <= 0 {
		cfg.MaxRequestsPerMinute = 10
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	l := &Limiter{
		clients: make(map[string]*allowance),
		limit:   cfg.MaxRequestsPerMinute,
		step:    cfg.WindowDuration / time.Duration(cfg.MaxRequestsPerMinute),
		log:     cfg.Logger,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.sweep(5 * time.Minute)
	return l
}

// Middleware limits POSTs; rendering the form is never limited.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}
		ip := c.IP()
		if l.take(ip) {
			return c.Next()
		}
		l.log.Warn("Login attempts throttled", zap.String("ip", ip))
		return c.Status(fiber.StatusTooManyRequests).SendString(tooManyAttempts)
	}
}

func (l *Limiter) take(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	a, ok := l.clients[ip]
	if !ok {
		a = &allowance{left: l.limit, at: now}
		l.clients[ip] = a
	}
	if earned := int(now.Sub(a.at) / l.step); earned > 0 {
		a.left = min(l.limit, a.left+earned)
		a.at = a.at.Add(time.Duration(earned) * l.step)
	}
	if a.left == 0 {
		return false
	}
	a.left--
	return true
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			l.forgetIdle()
		}
	}
}

func (l *Limiter) forgetIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for ip, a := range l.clients {
		if now.Sub(a.at) > idleAfter {
			delete(l.clients, ip)
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.done) })
}
