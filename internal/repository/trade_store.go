package repository

import (
	"time"

	"SignalRelay/internal/domain/models"
	"SignalRelay/internal/domain/repository"
)

// MemoryTradeStore keeps open trades in process memory.
type MemoryTradeStore struct {
	s *recordStore[models.TradeRecord]
}

// NewMemoryTradeStore creates a store whose records lapse ttl after opening.
// A zero ttl keeps records until they close.
func NewMemoryTradeStore(ttl time.Duration, now func() time.Time) *MemoryTradeStore {
	return &MemoryTradeStore{s: newRecordStore(ttl, now,
		func(r models.TradeRecord) time.Time { return r.OpenedAt }, nil)}
}

var _ repository.TradeStore = (*MemoryTradeStore)(nil)

func (t *MemoryTradeStore) Get(ticker string) (models.TradeRecord, bool) {
	return t.s.get(ticker)
}

// Create stores rec unless an open record already exists for its ticker.
func (t *MemoryTradeStore) Create(rec models.TradeRecord) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	k := key(rec.Ticker)
	if cur, ok := t.s.live(k); ok && !cur.Closed {
		return repository.ErrTradeOpen
	}
	if rec.OpenedAt.IsZero() {
		rec.OpenedAt = t.s.now()
	}
	t.s.m[k] = rec
	return nil
}

// Update applies fn to a copy of the record and persists it only when fn
// reports the change as applied.
func (t *MemoryTradeStore) Update(ticker string, fn func(rec *models.TradeRecord) models.Outcome) (models.TradeRecord, models.Outcome, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	k := key(ticker)
	rec, ok := t.s.live(k)
	if !ok {
		return models.TradeRecord{}, models.OutcomeRejected, repository.ErrTradeNotFound
	}
	out := fn(&rec)
	if out == models.OutcomeApplied {
		t.s.m[k] = rec
	}
	return rec, out, nil
}

func (t *MemoryTradeStore) SetHandle(ticker string, handle models.MessageID) error {
	_, _, err := t.Update(ticker, func(rec *models.TradeRecord) models.Outcome {
		rec.Handle = handle
		return models.OutcomeApplied
	})
	return err
}

func (t *MemoryTradeStore) Delete(ticker string) bool { return t.s.delete(ticker) }

func (t *MemoryTradeStore) List() []models.TradeRecord { return t.s.list() }

func (t *MemoryTradeStore) Clear() int { return t.s.clear() }

func (t *MemoryTradeStore) Len() int { return t.s.len() }
