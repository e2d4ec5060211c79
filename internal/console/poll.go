package console

import (
	"context"
	"sync"
	"time"
)

// Ticker is the part of time.Ticker the poller needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker for the given interval.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Poller runs fn once per tick until stopped. A running poller is stopped
// before it is started again, and Stop waits for the loop to exit, so fn is
// never invoked after Stop returns.
type Poller struct {
	interval  time.Duration
	newTicker TickerFunc
	fn        func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(interval time.Duration, newTicker TickerFunc, fn func(ctx context.Context)) *Poller {
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	return &Poller{
		interval:  interval,
		newTicker: newTicker,
		fn:        fn,
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := p.newTicker(p.interval)

	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				// A tick and a cancel can be ready together.
				if ctx.Err() != nil {
					return
				}
				p.fn(ctx)
			}
		}
	}()
}

func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}
