package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket that smooths bursty senders. Telegram allows
// short bursts to a chat but sustained delivery must stay near one
// message per second, so callers take a token and sleep out the returned
// delay before sending.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	return &Limiter{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillPerSec,
		last:       time.Now(),
	}
}

// Take consumes one token and returns how long the caller must wait
// before acting on it. Zero when a token was immediately available. The
// bucket may go negative so queued callers are spaced evenly.
func (l *Limiter) Take() time.Duration {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := now.Sub(l.last).Seconds()
	if elapsed > 0 {
		l.tokens += elapsed * l.refillRate
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
		l.last = now
	}

	l.tokens -= 1
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.refillRate * float64(time.Second))
}
