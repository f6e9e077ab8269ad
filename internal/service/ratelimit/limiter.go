package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	last time.Time
}

// Limiter keeps one token bucket per key on top of x/time/rate.
type Limiter struct {
	mu  sync.Mutex
	m   map[string]*entry
	now func() time.Time
}

func New() *Limiter { return NewWithClock(time.Now) }

func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{m: make(map[string]*entry), now: now}
}

// Allow returns true if one token can be consumed for key. A bucket holds at
// most capacity tokens (at least one) and refills at refillPerSec.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := l.now()
	limit, burst := rate.Limit(refillPerSec), burstOf(capacity)

	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(limit, burst)}
		l.m[key] = e
	}
	if e.lim.Limit() != limit {
		e.lim.SetLimitAt(now, limit)
	}
	if e.lim.Burst() != burst {
		e.lim.SetBurstAt(now, burst)
	}
	e.last = now
	return e.lim.AllowN(now, 1)
}

func burstOf(capacity float64) int {
	if capacity < 1 {
		return 1
	}
	return int(math.Floor(capacity))
}

// Prune drops buckets idle for longer than idle; they would be full anyway.
func (l *Limiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.m {
		if e.last.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
