package repository

import (
	"time"

	"SignalRelay/internal/domain/models"
	"SignalRelay/internal/domain/repository"
)

// MemoryClusterStore tracks breakout lifecycles in process memory.
type MemoryClusterStore struct {
	s *recordStore[models.ClusterRecord]
}

func NewMemoryClusterStore(ttl time.Duration, now func() time.Time) *MemoryClusterStore {
	return &MemoryClusterStore{s: newRecordStore(ttl, now,
		func(r models.ClusterRecord) time.Time { return r.FormedAt },
		models.ClusterRecord.Clone)}
}

var _ repository.ClusterStore = (*MemoryClusterStore)(nil)

func (c *MemoryClusterStore) Get(ticker string) (models.ClusterRecord, bool) {
	return c.s.get(ticker)
}

// Create starts a lifecycle; an unfinished one for the same ticker blocks it.
func (c *MemoryClusterStore) Create(rec models.ClusterRecord) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	k := key(rec.Ticker)
	if cur, ok := c.s.live(k); ok && !cur.Closed {
		return repository.ErrClusterExists
	}
	if rec.FormedAt.IsZero() {
		rec.FormedAt = c.s.now()
	}
	c.s.m[k] = rec.Clone()
	return nil
}

func (c *MemoryClusterStore) Update(ticker string, fn func(rec *models.ClusterRecord) models.Outcome) (models.ClusterRecord, models.Outcome, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	k := key(ticker)
	cur, ok := c.s.live(k)
	if !ok {
		return models.ClusterRecord{}, models.OutcomeRejected, repository.ErrClusterNotFound
	}
	rec := cur.Clone()
	out := fn(&rec)
	if out == models.OutcomeApplied {
		c.s.m[k] = rec.Clone()
	}
	return rec, out, nil
}

func (c *MemoryClusterStore) Delete(ticker string) bool { return c.s.delete(ticker) }

func (c *MemoryClusterStore) List() []models.ClusterRecord { return c.s.list() }

func (c *MemoryClusterStore) Clear() int { return c.s.clear() }

func (c *MemoryClusterStore) Len() int { return c.s.len() }
