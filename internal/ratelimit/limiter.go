// Package ratelimit implements the token-bucket throttle guarding all
// outbound platform calls.
package ratelimit

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/hazuki-dev/vrcwatch/internal/ports"
)

// ErrInvalidConfig rejects non-positive capacity or refill rate.
var ErrInvalidConfig = errors.New("ratelimit: capacity and refill rate must be positive")

// Limiter is a classic token bucket: capacity bounds bursts, refillRate
// bounds sustained throughput. Safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	clock      ports.Clock
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func New(capacity int, refillRate float64) (*Limiter, error) {
	return NewWithClock(capacity, refillRate, ports.SystemClock{})
}

// NewWithClock is New with an injectable time source.
func NewWithClock(capacity int, refillRate float64, clock ports.Clock) (*Limiter, error) {
	if capacity <= 0 || refillRate <= 0 {
		return nil, ErrInvalidConfig
	}
	return &Limiter{
		clock:      clock,
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: clock.Now(),
	}, nil
}

// refillLocked tops the bucket up from elapsed time, clamped to capacity.
func (l *Limiter) refillLocked(now time.Time) {
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.refillRate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.lastRefill = now
}

// TryAcquire debits cost tokens if available right now, without blocking.
func (l *Limiter) TryAcquire(cost float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked(l.clock.Now())
	if l.tokens >= cost {
		l.tokens -= cost
		return true
	}
	return false
}

// Acquire blocks until cost tokens are available, then debits them and
// returns true. It returns false if ctx is cancelled or its deadline passes
// first; running out of patience is not an error. A small random jitter is
// added to each wait so concurrent waiters don't wake in lockstep.
func (l *Limiter) Acquire(ctx context.Context, cost float64) bool {
	for {
		l.mu.Lock()
		l.refillLocked(l.clock.Now())
		if l.tokens >= cost {
			l.tokens -= cost
			l.mu.Unlock()
			return true
		}
		wait := time.Duration((cost - l.tokens) / l.refillRate * float64(time.Second))
		l.mu.Unlock()

		wait += time.Duration(rand.Int63n(int64(20 * time.Millisecond)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return false
		case <-timer.C:
		}
	}
}

// Tokens reports the current token count after a refill. Test hook.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked(l.clock.Now())
	return l.tokens
}
