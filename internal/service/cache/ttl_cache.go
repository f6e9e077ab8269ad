package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v        V
	storedAt time.Time
}

// Stats is the admin view of a cache instance.
type Stats struct {
	ItemCount  int     `json:"item_count"`
	TTLMinutes float64 `json:"ttl_minutes"`
}

// TTLCache is a string-keyed cache whose entries expire ttl after the last Set.
// Expired entries are evicted lazily on Get. Size is unbounded.
type TTLCache[V any] struct {
	mu  sync.Mutex
	m   map[string]entry[V]
	ttl time.Duration
	now func() time.Time
}

type TTLOption[V any] func(*TTLCache[V])

// WithClock replaces time.Now, mainly for tests.
func WithClock[V any](now func() time.Time) TTLOption[V] {
	return func(c *TTLCache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

func NewTTLCache[V any](ttl time.Duration, opts ...TTLOption[V]) *TTLCache[V] {
	c := &TTLCache[V]{m: make(map[string]entry[V]), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value if it was stored less than ttl ago.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.m[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.m, key)
		return zero, false
	}
	return e.v, true
}

// Set stores v and restarts its expiry clock.
func (c *TTLCache[V]) Set(key string, v V) {
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, storedAt: c.now()}
	c.mu.Unlock()
}

func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry[V])
	c.mu.Unlock()
}

// Stats counts stored entries, including expired ones not yet read.
func (c *TTLCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{ItemCount: len(c.m), TTLMinutes: c.ttl.Minutes()}
}

func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }
