package repository

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// recordStore is a mutex-guarded map of per-ticker records that expire ttl
// after they were opened. Expired records are treated as absent and dropped
// on the next write that touches them.
type recordStore[T any] struct {
	mu       sync.Mutex
	m        map[string]T
	ttl      time.Duration
	now      func() time.Time
	openedAt func(T) time.Time
	clone    func(T) T
}

func newRecordStore[T any](ttl time.Duration, now func() time.Time, openedAt func(T) time.Time, clone func(T) T) *recordStore[T] {
	if now == nil {
		now = time.Now
	}
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &recordStore[T]{m: make(map[string]T), ttl: ttl, now: now, openedAt: openedAt, clone: clone}
}

func key(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func (s *recordStore[T]) expired(v T) bool {
	return s.ttl > 0 && s.now().Sub(s.openedAt(v)) >= s.ttl
}

// live returns the record for k; the caller holds the lock.
func (s *recordStore[T]) live(k string) (T, bool) {
	v, ok := s.m[k]
	if !ok {
		return v, false
	}
	if s.expired(v) {
		delete(s.m, k)
		var zero T
		return zero, false
	}
	return v, true
}

func (s *recordStore[T]) get(ticker string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.live(key(ticker))
	if !ok {
		return v, false
	}
	return s.clone(v), true
}

func (s *recordStore[T]) delete(ticker string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(ticker)
	if _, ok := s.m[k]; !ok {
		return false
	}
	delete(s.m, k)
	return true
}

func (s *recordStore[T]) list() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.live(k); ok {
			out = append(out, s.clone(v))
		}
	}
	return out
}

func (s *recordStore[T]) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.m)
	s.m = make(map[string]T)
	return n
}

func (s *recordStore[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.m {
		if _, ok := s.live(k); ok {
			n++
		}
	}
	return n
}
