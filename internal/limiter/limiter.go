package limiter

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces out requests by a fixed interval. A nil *Pacer never waits.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	clock    Timer
}

// NewPacer creates a Pacer. It returns nil for a non-positive interval.
func NewPacer(interval time.Duration, clock Timer) *Pacer {
	if interval <= 0 {
		return nil
	}

	if clock == nil {
		clock = Clock{}
	}

	return &Pacer{
		interval: interval,
		clock:    clock,
	}
}

// FromRPS converts a requests-per-second rate into an interval.
func FromRPS(rps float64) time.Duration {
	if rps <= 0 {
		return 0
	}

	interval := time.Duration(float64(time.Second) / rps)
	if interval <= 0 {
		return time.Nanosecond
	}

	return interval
}

// Interval returns the configured spacing.
func (p *Pacer) Interval() time.Duration {
	if p == nil {
		return 0
	}

	return p.interval
}

// Wait blocks until at least one interval has passed since the previous Wait.
// The first call returns immediately.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	now := p.clock.Now()
	if p.last.IsZero() {
		p.last = now
		p.mu.Unlock()

		return nil
	}

	next := p.last.Add(p.interval)
	if now.Before(next) {
		wait := next.Sub(now)
		p.last = next
		p.mu.Unlock()

		return p.clock.Sleep(ctx, wait)
	}

	p.last = now
	p.mu.Unlock()

	return nil
}

// Pause sleeps for one full interval regardless of history.
func (p *Pacer) Pause(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}

	return p.clock.Sleep(ctx, p.interval)
}
